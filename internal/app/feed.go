package app

import (
	"sync"
	"sync/atomic"
)

// Feed fans pipeline output out to live consumers: results to subscribers and
// the latest encoded frame to stream viewers.
type Feed struct {
	mu      sync.RWMutex
	subs    map[chan Result]struct{}
	last    Result
	hasLast bool

	frameMu  sync.RWMutex
	frame    []byte
	frameSeq uint64

	viewers atomic.Int32
}

// NewFeed returns an empty feed.
func NewFeed() *Feed {
	return &Feed{subs: make(map[chan Result]struct{})}
}

// Subscribe registers a consumer. Results are dropped for a subscriber whose
// buffer is full. The returned function unsubscribes and closes the channel.
func (f *Feed) Subscribe(buffer int) (<-chan Result, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Result, buffer)

	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, ch)
			f.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of registered subscribers.
func (f *Feed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

// Publish delivers r to every subscriber without blocking.
func (f *Feed) Publish(r Result) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.last = r
	f.hasLast = true
	for ch := range f.subs {
		select {
		case ch <- r:
		default:
		}
	}
}

// Last returns the most recently published result.
func (f *Feed) Last() (Result, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.last, f.hasLast
}

// SetFrame replaces the latest JPEG frame.
func (f *Feed) SetFrame(jpeg []byte) {
	f.frameMu.Lock()
	defer f.frameMu.Unlock()
	f.frame = jpeg
	f.frameSeq++
}

// Frame returns the latest JPEG frame and its sequence number. The sequence
// is zero until the first frame arrives.
func (f *Feed) Frame() ([]byte, uint64) {
	f.frameMu.RLock()
	defer f.frameMu.RUnlock()
	return f.frame, f.frameSeq
}

// Watch registers a stream viewer until the returned function is called.
// The pipeline only encodes frames while someone is watching.
func (f *Feed) Watch() func() {
	f.viewers.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() { f.viewers.Add(-1) })
	}
}

// Watching reports whether any stream viewer is registered.
func (f *Feed) Watching() bool {
	return f.viewers.Load() > 0
}
