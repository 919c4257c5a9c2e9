package http

import (
	"log"
	"net/http"

	"flagquiz-service/internal/app"
	"github.com/gorilla/websocket"
)

// LiveHandler streams today's aggregate results over a websocket: one pulse
// per terminal outcome, primed with the current snapshot on connect.
type LiveHandler struct {
	feed     *app.LiveFeed
	upgrader websocket.Upgrader
}

func NewLiveHandler(feed *app.LiveFeed) *LiveHandler {
	return &LiveHandler{
		feed: feed,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeWS upgrades the connection and forwards pulses until the client
// disconnects.
func (h *LiveHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	pulses, cancel := h.feed.Subscribe()
	defer cancel()

	// Reader only detects close; clients send nothing meaningful.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case pulse, ok := <-pulses:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage[app.Pulse]{Type: "pulse", Payload: pulse}); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case <-readerDone:
			return
		}
	}
}
