package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ayusman/handpose/internal/app"
)

// StreamInterval is how often the stream checks for a new frame.
const StreamInterval = 33 * time.Millisecond

// StreamHandler serves the pipeline's annotated frames as MJPEG.
type StreamHandler struct {
	feed     *app.Feed
	interval time.Duration
}

// NewStreamHandler creates a new StreamHandler reading from feed.
func NewStreamHandler(feed *app.Feed) *StreamHandler {
	return &StreamHandler{feed: feed, interval: StreamInterval}
}

// ServeHTTP streams MJPEG frames to the client until it disconnects.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	release := h.feed.Watch()
	defer release()

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var sent uint64
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		data, seq := h.feed.Frame()
		if seq == sent || len(data) == 0 {
			continue
		}
		sent = seq

		if err := writePart(w, data); err != nil {
			return
		}
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

// writePart writes one multipart JPEG part.
func writePart(w http.ResponseWriter, jpeg []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpeg)); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	_, err := fmt.Fprint(w, "\r\n")
	return err
}
