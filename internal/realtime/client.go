package realtime

import (
	"sync"

	"github.com/google/uuid"
)

// Transport is the duplex channel a client is reached through. The websocket
// adapter implements it; tests substitute an in-memory recorder.
type Transport interface {
	// Send queues a frame for delivery. It must not block; a full client
	// buffer is an error and the hub will drop the connection.
	Send(data []byte) error
	Close() error
}

// Client is one live socket connection. identity is nil until the gatekeeper
// accepts it; until then the client is in no rooms and every frame except
// authenticate is refused.
type Client struct {
	id        string
	transport Transport

	mu       sync.RWMutex
	identity *Identity
}

// NewClient wraps a transport in a connection handle.
func NewClient(transport Transport) *Client {
	return &Client{id: uuid.NewString(), transport: transport}
}

// ID is the connection id, unique per socket (not per account; one account
// may hold several simultaneous connections).
func (c *Client) ID() string { return c.id }

// Identity returns the resolved identity, or nil before authentication.
func (c *Client) Identity() *Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity
}

func (c *Client) setIdentity(id *Identity) {
	c.mu.Lock()
	c.identity = id
	c.mu.Unlock()
}

// sendEvent marshals and queues one event frame.
func (c *Client) sendEvent(event string, data interface{}) error {
	frame, err := encodeFrame(event, data)
	if err != nil {
		return err
	}
	return c.transport.Send(frame)
}
