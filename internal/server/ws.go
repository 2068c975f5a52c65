package server

import (
	"net/http"
	"time"

	"github.com/ayusman/handpose/internal/app"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Websocket timing.
const (
	writeWait      = 5 * time.Second
	subscribeDepth = 8
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// ObservationsHandler pushes every frame result to websocket clients as JSON.
type ObservationsHandler struct {
	feed *app.Feed
	log  *zap.Logger
}

// NewObservationsHandler creates a handler broadcasting results from feed.
func NewObservationsHandler(feed *app.Feed, log *zap.Logger) *ObservationsHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ObservationsHandler{feed: feed, log: log}
}

// ServeHTTP upgrades the connection and streams results until the client
// goes away.
func (h *ObservationsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	results, unsubscribe := h.feed.Subscribe(subscribeDepth)
	defer unsubscribe()

	// Reading detects the client closing the connection.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case res, ok := <-results:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(res); err != nil {
				h.log.Debug("websocket write", zap.Error(err))
				return
			}
		}
	}
}
