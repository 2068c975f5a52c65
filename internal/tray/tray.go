// Package tray provides a system tray interface showing the live finger count.
package tray

import (
	"fmt"
	"sync"

	"github.com/ayusman/handpose/internal/app"
	"github.com/getlantern/systray"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle   func(enabled bool)
	onAnnotate func(annotate bool)
	onOpen     func()
	onQuit     func()
	enabled    bool
	annotate   bool
	mu         sync.RWMutex

	// Menu items stored for later updates
	menuToggle   *systray.MenuItem
	menuAnnotate *systray.MenuItem
	menuFingers  *systray.MenuItem
}

// New creates a new Tray. Detection starts enabled; annotate is the initial
// annotation state.
func New(annotate bool) *Tray {
	return &Tray{
		enabled:  true,
		annotate: annotate,
	}
}

// OnToggle sets the callback called when detection is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnAnnotate sets the callback called when annotation is toggled.
func (t *Tray) OnAnnotate(fn func(annotate bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onAnnotate = fn
}

// OnOpen sets the callback for the "Open Viewer" item. Without one the item
// is not shown.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray from outside the menu.
func (t *Tray) Quit() {
	systray.Quit()
}

// Follow updates the finger count from feed results until the feed
// subscription is cancelled by stop.
func (t *Tray) Follow(feed *app.Feed, stop <-chan struct{}) {
	results, unsubscribe := feed.Subscribe(1)
	defer unsubscribe()

	for {
		select {
		case <-stop:
			return
		case r, ok := <-results:
			if !ok {
				return
			}
			if r.HasHand() {
				t.SetFingers(r.Raised)
			} else {
				t.SetFingers(-1)
			}
		}
	}
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Handpose")
	systray.SetTooltip("Handpose hand analysis")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(enabledTitle(t.enabled), "Toggle hand detection")
	t.menuAnnotate = systray.AddMenuItemCheckbox("Annotate frames", "Draw landmarks on frames", t.annotate)
	systray.AddSeparator()

	t.menuFingers = systray.AddMenuItem(fingersTitle(-1), "Raised fingers in the current frame")
	t.menuFingers.Disable()
	systray.AddSeparator()

	var openCh chan struct{}
	if t.onOpen != nil {
		openCh = systray.AddMenuItem("Open Viewer...", "Open the live view in a browser").ClickedCh
		systray.AddSeparator()
	}
	t.mu.Unlock()

	menuQuit := systray.AddMenuItem("Quit", "Quit Handpose")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-t.menuAnnotate.ClickedCh:
				t.handleAnnotate()
			case <-openCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	t.menuToggle.SetTitle(enabledTitle(enabled))
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleAnnotate() {
	t.mu.Lock()
	t.annotate = !t.annotate
	annotate := t.annotate
	if annotate {
		t.menuAnnotate.Check()
	} else {
		t.menuAnnotate.Uncheck()
	}
	callback := t.onAnnotate
	t.mu.Unlock()

	if callback != nil {
		callback(annotate)
	}
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetFingers updates the finger count display. A negative count means no
// hand is in view.
func (t *Tray) SetFingers(n int) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuFingers != nil {
		t.menuFingers.SetTitle(fingersTitle(n))
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// IsAnnotating returns the current annotation state.
func (t *Tray) IsAnnotating() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.annotate
}

func enabledTitle(enabled bool) string {
	if enabled {
		return "● Detecting"
	}
	return "○ Paused"
}

func fingersTitle(n int) string {
	if n < 0 {
		return "Fingers: no hand"
	}
	return fmt.Sprintf("Fingers: %d", n)
}
