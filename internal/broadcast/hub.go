package broadcast

import (
	"log"
	"sync"
)

// Client is a live connection that can be pushed to.
type Client interface {
	ID() string
	Send(v any) error
}

// Hub indexes the live connections by identity.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]Client
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]Client)}
}

// Register adds c and returns the function that removes it again. The
// cleanup is a no-op if c has since been replaced under the same id.
func (h *Hub) Register(c Client) func() {
	h.mu.Lock()
	h.clients[c.ID()] = c
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if cur, ok := h.clients[c.ID()]; ok && cur == c {
			delete(h.clients, c.ID())
		}
	}
}

func (h *Hub) Get(id string) (Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[id]
	return c, ok
}

// Snapshot copies the current client set so sends happen without the lock.
func (h *Hub) Snapshot() []Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Client, 0, len(h.clients))
	for _, c := range h.clients {
		out = append(out, c)
	}
	return out
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SendTo pushes v to id if it is online. Offline ids are skipped silently.
func (h *Hub) SendTo(id string, v any) {
	c, ok := h.Get(id)
	if !ok {
		return
	}
	if err := c.Send(v); err != nil {
		log.Printf("[SendTo] client %s: %v", id, err)
	}
}
