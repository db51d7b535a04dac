package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Conn is the minimal websocket surface the relay needs.
// *websocket.Conn satisfies it; tests use fakes.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one user's live signaling connection.
type Client struct {
	ID          string
	UserID      int64
	ConnectedAt time.Time

	conn Conn
	mu   sync.Mutex
}

// NewClient wraps a connection for the given user.
func NewClient(userID int64, conn Conn) *Client {
	return &Client{
		ID:          uuid.NewString(),
		UserID:      userID,
		ConnectedAt: time.Now(),
		conn:        conn,
	}
}

// Send writes one text frame. Serialized per client: gorilla connections
// support at most one concurrent writer.
func (c *Client) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
