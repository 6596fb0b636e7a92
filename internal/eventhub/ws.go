package eventhub

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/vaultlink/vaultlink/internal/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The event feed is served on the trusted local network only.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request to a websocket and streams hub events to the
// client as JSON until the client disconnects or the request context ends.
func ServeWS(hub *Hub, log logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn(r.Context(), "event feed upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		sub := hub.Subscribe(64)
		defer hub.Unsubscribe(sub)

		// Drain client frames so close/ping handling works; the feed itself
		// is write-only. The request context is not cancelled after a hijack,
		// so the drain goroutine signals the disconnect.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-done:
				return
			case <-r.Context().Done():
				return
			case ev, ok := <-sub.Events():
				if !ok {
					return
				}
				if err := conn.WriteJSON(ev); err != nil {
					return
				}
			}
		}
	}
}
