package realtime

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nodetree.io/nodetree/internal/pkg/logger"
)

const defaultClientBuffer = 16

// Client is one connected listener. Outbound is closed by Hub.Unregister.
type Client struct {
	ID       uuid.UUID
	Outbound chan Message

	done      chan struct{}
	closeOnce sync.Once
}

// Done is closed when the client has been unregistered.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Hub tracks connected listeners and broadcasts messages to all of them.
// Slow listeners lose messages instead of blocking the broadcaster.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	buffer  int
	log     *zap.Logger
}

// NewHub creates a Hub whose clients buffer up to buffer messages.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultClientBuffer
	}
	return &Hub{
		clients: make(map[*Client]struct{}),
		buffer:  buffer,
		log:     logger.Named("realtime.hub"),
	}
}

// Register adds a new client.
func (h *Hub) Register() *Client {
	c := &Client{
		ID:       uuid.New(),
		Outbound: make(chan Message, h.buffer),
		done:     make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.log.Debug("Listener connected", zap.String("client_id", c.ID.String()), zap.Int("listeners", n))
	return c
}

// Unregister removes the client and closes its channels. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	c.closeOnce.Do(func() {
		h.mu.Lock()
		delete(h.clients, c)
		n := len(h.clients)
		close(c.done)
		close(c.Outbound)
		h.mu.Unlock()

		h.log.Debug("Listener disconnected", zap.String("client_id", c.ID.String()), zap.Int("listeners", n))
	})
}

// Broadcast queues msg for every client without blocking.
func (h *Hub) Broadcast(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.Outbound <- msg:
		default:
			h.log.Warn("Dropping message, listener buffer full",
				zap.String("client_id", c.ID.String()),
				zap.String("event", msg.Event),
			)
		}
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
