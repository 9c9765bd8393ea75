package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/kishoreUdatha/HRM-sub003/internal/middleware"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 64
)

// Client is one authenticated websocket connection. It exists only after the
// JWT on the handshake was validated, so everything holding a *Client may
// trust its identity fields.
type Client struct {
	ID         uuid.UUID
	TenantID   string
	UserID     string
	EmployeeID string
	Role       string

	conn    *websocket.Conn
	send    chan []byte
	gateway *Gateway

	mu        sync.RWMutex
	rooms     map[string]struct{}
	dashboard bool

	closeOnce sync.Once
}

func newClient(g *Gateway, conn *websocket.Conn, claims middleware.AuthClaims) *Client {
	return &Client{
		ID:         uuid.New(),
		TenantID:   claims.TenantID,
		UserID:     claims.UserID,
		EmployeeID: claims.EmployeeID,
		Role:       claims.Role,
		conn:       conn,
		send:       make(chan []byte, sendBuffer),
		gateway:    g,
		rooms:      make(map[string]struct{}),
	}
}

func (c *Client) joinRoom(room string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms[room] = struct{}{}
}

func (c *Client) leaveRoom(room string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rooms, room)
}

func (c *Client) InRoom(room string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.rooms[room]
	return ok
}

func (c *Client) subscribeDashboard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dashboard = true
}

func (c *Client) WantsDashboard() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dashboard
}

// Enqueue offers a message without blocking. Push is best effort: a full
// buffer means the socket cannot keep up and the caller drops the connection.
func (c *Client) Enqueue(message []byte) bool {
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// close tears down the underlying socket; both pumps exit on the resulting
// errors. The send channel is intentionally never closed, so concurrent
// Enqueue calls stay safe.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

func (c *Client) readPump() {
	defer c.gateway.disconnect(c)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		c.gateway.handleClientMessage(context.Background(), c, msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
