package http

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/samirrijal/phonemap/internal/adapters/leaflet"
	"github.com/samirrijal/phonemap/internal/core/domain"
)

// wsEnvelope is every message pushed to websocket clients.
type wsEnvelope struct {
	Type     string              `json:"type"` // "scene" | "notices" | "event" | "selection" | "error"
	Scene    *leaflet.Snapshot   `json:"scene,omitempty"`
	Notices  []domain.Notice     `json:"notices,omitempty"`
	Event    *domain.RecordEvent `json:"event,omitempty"`
	Selected *domain.PhoneRecord `json:"selected,omitempty"`
	Error    string              `json:"error,omitempty"`
}

const clientBuffer = 32

// Hub fans messages out to connected websocket clients.
type Hub struct {
	mu      sync.Mutex
	clients map[chan []byte]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[chan []byte]struct{})}
}

// Register adds a client and returns its outbound queue.
func (h *Hub) Register() chan []byte {
	ch := make(chan []byte, clientBuffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unregister removes a client and closes its queue.
func (h *Hub) Unregister(ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues v for every client. A client whose queue is full misses
// the message; the next scene push brings it back in sync.
func (h *Hub) Broadcast(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("ws broadcast encode", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- data:
		default:
			slog.Warn("ws client queue full, dropping message")
		}
	}
}
