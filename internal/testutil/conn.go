package testutil

import (
	"encoding/json"
	"errors"
	"sync"
)

// ErrConnClosed is returned by a RecordingConn after Close
var ErrConnClosed = errors.New("connection closed")

// RecordingConn is an in-memory connection handle that keeps every payload
// sent to it.
type RecordingConn struct {
	mu       sync.Mutex
	messages [][]byte
	closed   bool
	notify   chan struct{}
}

// NewRecordingConn creates an open RecordingConn
func NewRecordingConn() *RecordingConn {
	return &RecordingConn{notify: make(chan struct{}, 64)}
}

// Send records payload
func (c *RecordingConn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	c.messages = append(c.messages, append([]byte(nil), payload...))
	select {
	case c.notify <- struct{}{}:
	default:
	}
	return nil
}

// Close makes later sends fail
func (c *RecordingConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// Messages returns a copy of every recorded payload
func (c *RecordingConn) Messages() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.messages))
	copy(out, c.messages)
	return out
}

// Count returns the number of recorded payloads
func (c *RecordingConn) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

// Last decodes the most recent payload into v. It returns false if nothing
// has been sent.
func (c *RecordingConn) Last(v any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.messages) == 0 {
		return false
	}
	return json.Unmarshal(c.messages[len(c.messages)-1], v) == nil
}

// Notify is signalled after each recorded payload
func (c *RecordingConn) Notify() <-chan struct{} {
	return c.notify
}
