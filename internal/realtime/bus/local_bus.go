package bus

import (
	"context"
	"errors"
	"sync"

	"nodetree.io/nodetree/internal/realtime"
)

// ErrBusClosed is returned by Publish after Close.
var ErrBusClosed = errors.New("realtime bus closed")

// LocalBus delivers published messages to the forwarder in the same process.
type LocalBus struct {
	mu     sync.RWMutex
	onMsg  func(realtime.Message)
	closed bool
}

// NewLocalBus creates an in-process bus.
func NewLocalBus() *LocalBus {
	return &LocalBus{}
}

// Publish delivers msg synchronously. Messages published before a forwarder
// starts are dropped.
func (b *LocalBus) Publish(_ context.Context, msg realtime.Message) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}
	if b.onMsg != nil {
		b.onMsg(msg)
	}
	return nil
}

// StartForwarder sets the delivery callback. It is cleared when ctx ends.
func (b *LocalBus) StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error {
	if onMsg == nil {
		return errors.New("onMsg callback required")
	}
	b.mu.Lock()
	b.onMsg = onMsg
	b.mu.Unlock()

	context.AfterFunc(ctx, func() {
		b.mu.Lock()
		b.onMsg = nil
		b.mu.Unlock()
	})
	return nil
}

// Close stops delivery.
func (b *LocalBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.onMsg = nil
	return nil
}
