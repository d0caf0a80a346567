// Package wstest provides an in-memory ws.Connection for tests.
package wstest

import (
	"sync"

	"github.com/hilthontt/sketchroom/internal/infrastructure/ws"
)

type Conn struct {
	id       string
	received []*ws.WSMessage
	sendErr  error
	panics   bool
	mu       sync.Mutex
}

func NewConn(id string) *Conn {
	return &Conn{id: id}
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) Send(msg *ws.WSMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.panics {
		panic("send exploded")
	}
	if c.sendErr != nil {
		return c.sendErr
	}
	c.received = append(c.received, msg)
	return nil
}

// FailWith makes every later Send return err.
func (c *Conn) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendErr = err
}

// Panic makes every later Send panic.
func (c *Conn) Panic() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.panics = true
}

func (c *Conn) Received() []*ws.WSMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*ws.WSMessage, len(c.received))
	copy(out, c.received)
	return out
}

// OfType returns received messages with the given envelope type.
func (c *Conn) OfType(eventType string) []*ws.WSMessage {
	var out []*ws.WSMessage
	for _, msg := range c.Received() {
		if msg.Type == eventType {
			out = append(out, msg)
		}
	}
	return out
}

func (c *Conn) Last() *ws.WSMessage {
	received := c.Received()
	if len(received) == 0 {
		return nil
	}
	return received[len(received)-1]
}

func (c *Conn) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.received = nil
}
