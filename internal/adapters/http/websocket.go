package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/phonemap/internal/adapters/leaflet"
	"github.com/samirrijal/phonemap/internal/pkg/metrics"
)

// wsMessage is sent from client to server.
type wsMessage struct {
	Action string `json:"action"` // "click" | "sync"
	Marker string `json:"marker"` // marker id for "click"
}

// WebSocketHandler returns a handler that pushes scene, notice, selection and
// record events to the browser and accepts marker clicks.
// Clients send JSON: {"action":"click","marker":"m-3"} or {"action":"sync"}.
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		remoteAddr := c.RemoteAddr().String()
		slog.Info("ws client connected", "remote", remoteAddr)
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		var mu sync.Mutex

		// Helper: thread-safe write
		writeRaw := func(mt int, data []byte) error {
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(mt, data)
		}
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			return writeRaw(websocket.TextMessage, data)
		}
		sendState := func() {
			snap := deps.Scene.Snapshot()
			_ = writeJSON(wsEnvelope{Type: "scene", Scene: &snap})
			_ = writeJSON(wsEnvelope{Type: "notices", Notices: deps.Notices.Active()})
			_ = writeJSON(wsEnvelope{Type: "selection", Selected: deps.Shell.Selected()})
		}

		queue := deps.Hub.Register()
		defer deps.Hub.Unregister(queue)
		sendState()

		// Outbound pump with keep-alive ping
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case data, ok := <-queue:
					if !ok {
						return
					}
					if err := writeRaw(websocket.TextMessage, data); err != nil {
						return
					}
				case <-ticker.C:
					if err := writeRaw(websocket.PingMessage, nil); err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(wsEnvelope{Type: "error", Error: "invalid JSON"})
				continue
			}

			switch m.Action {
			case "click":
				if err := deps.Scene.Click(m.Marker); err != nil {
					if errors.Is(err, leaflet.ErrUnknownMarker) {
						_ = writeJSON(wsEnvelope{Type: "error", Error: "unknown marker: " + m.Marker})
						continue
					}
					_ = writeJSON(wsEnvelope{Type: "error", Error: err.Error()})
					continue
				}
				deps.Hub.Broadcast(wsEnvelope{Type: "selection", Selected: deps.Shell.Selected()})
			case "sync":
				sendState()
			default:
				_ = writeJSON(wsEnvelope{Type: "error", Error: "unknown action: " + m.Action})
			}
		}

		close(done)
		slog.Info("ws client disconnected", "remote", remoteAddr)
	}
}
