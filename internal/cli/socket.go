package cli

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
)

// errNotLoggedIn is returned by socket commands run without a credential
var errNotLoggedIn = errors.New("not logged in: run 'gobangctl user login' first")

// socket is a WebSocket connection whose incoming messages are delivered on
// a channel. Writes happen on the caller's goroutine only.
type socket struct {
	conn     *websocket.Conn
	messages chan []byte
	errs     chan error
}

// dialSocket opens the WebSocket endpoint at path with the saved credential
func dialSocket(path string) (*socket, error) {
	if cfg.Token == "" {
		return nil, errNotLoggedIn
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+cfg.Token)

	conn, resp, err := websocket.DefaultDialer.Dial(cfg.WebSocketURL(path), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("connection refused: HTTP %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("connection failed: %w", err)
	}

	s := &socket{
		conn:     conn,
		messages: make(chan []byte, 16),
		errs:     make(chan error, 1),
	}
	go s.readLoop()
	return s, nil
}

func (s *socket) readLoop() {
	defer close(s.messages)
	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			s.errs <- err
			return
		}
		s.messages <- message
	}
}

// next waits for the next message. It returns the read error once the
// connection has closed.
func (s *socket) next() ([]byte, error) {
	message, ok := <-s.messages
	if !ok {
		return nil, <-s.errs
	}
	return message, nil
}

func (s *socket) send(v any) error {
	return s.conn.WriteJSON(v)
}

// close sends a close frame and closes the connection
func (s *socket) close() {
	_ = s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = s.conn.Close()
}
