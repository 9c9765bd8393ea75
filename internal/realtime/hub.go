package realtime

import (
	"slices"
	"sync"
)

// Hub is the process-local connection registry. It only tracks which clients
// this instance holds; cross-instance visibility lives in the presence index.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

// Unregister reports whether the client was still registered, so the caller
// runs disconnect side effects exactly once per connection.
func (h *Hub) Unregister(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return false
	}
	delete(h.clients, c)
	return true
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) ByUser(tenantID, userID string) []*Client {
	return h.snapshot(func(c *Client) bool {
		return c.TenantID == tenantID && c.UserID == userID
	})
}

func (h *Hub) ByRoom(tenantID, room string) []*Client {
	return h.snapshot(func(c *Client) bool {
		return c.TenantID == tenantID && c.InRoom(room)
	})
}

func (h *Hub) ByRole(tenantID string, roles []string) []*Client {
	return h.snapshot(func(c *Client) bool {
		return c.TenantID == tenantID && slices.Contains(roles, c.Role)
	})
}

func (h *Hub) ByTenant(tenantID string) []*Client {
	return h.snapshot(func(c *Client) bool {
		return c.TenantID == tenantID
	})
}

func (h *Hub) snapshot(keep func(*Client) bool) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []*Client
	for c := range h.clients {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}
