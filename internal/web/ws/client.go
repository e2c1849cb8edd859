package ws

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mcoot/gobang-online/internal/model"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer
	pongWait = 60 * time.Second

	// Time between pings; must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Largest message accepted from a client
	maxMessageSize = 4096

	// Buffer size for outgoing messages
	sendBufferSize = 64
)

// Client send errors
var (
	ErrClientClosed = errors.New("client is closed")
	ErrBufferFull   = errors.New("client send buffer is full")
)

// Client is one WebSocket connection owned by a user. It implements
// registry.Conn; sends are queued and written by writePump.
type Client struct {
	id          string
	userID      model.UserID
	conn        *websocket.Conn
	logger      *slog.Logger
	connectedAt time.Time

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(conn *websocket.Conn, userID model.UserID, logger *slog.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		id:          id,
		userID:      userID,
		conn:        conn,
		logger:      logger.With(slog.String("conn_id", id), slog.Uint64("uid", uint64(userID))),
		connectedAt: time.Now(),
		send:        make(chan []byte, sendBufferSize),
	}
}

// ID returns the connection id
func (c *Client) ID() string { return c.id }

// UserID returns the user owning the connection
func (c *Client) UserID() model.UserID { return c.userID }

// Send queues payload for delivery without blocking
func (c *Client) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return ErrBufferFull
	}
}

// Close stops accepting messages. writePump flushes what is queued, sends a
// close frame and closes the socket.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readPump delivers each text message to handle until the connection fails
// or the peer goes quiet for longer than pongWait
func (c *Client) readPump(handle func(message []byte)) {
	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("failed to set read deadline", slog.String("error", err.Error()))
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read error", slog.String("error", err.Error()))
			}
			return
		}
		if messageType == websocket.TextMessage {
			handle(message)
		}
	}
}

// writePump writes queued messages and keepalive pings until the send
// channel is closed or a write fails
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Warn("websocket write failed", slog.String("error", err.Error()))
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
