// Package notification pushes forest snapshots to realtime listeners after
// node mutations.
//
// Mutations dispatch domain events; ForestBroadcaster hands each one to the
// notify worker pool, which loads a fresh snapshot and publishes it on the
// realtime bus. Failures are logged and never reach the mutating caller.
//
// Import Path: nodetree.io/nodetree/internal/notification
package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"nodetree.io/nodetree/internal/pkg/logger"
	"nodetree.io/nodetree/internal/pkg/worker"
	"nodetree.io/nodetree/internal/realtime"
	"nodetree.io/nodetree/internal/tree"
)

// SnapshotSource renders the whole forest.
type SnapshotSource interface {
	ListRoots(ctx context.Context) ([]tree.Document, error)
}

// Publisher delivers a message to every listener. bus.Bus implements it.
type Publisher interface {
	Publish(ctx context.Context, msg realtime.Message) error
}

// ForestBroadcaster builds and publishes forest snapshots.
type ForestBroadcaster struct {
	source    SnapshotSource
	publisher Publisher
	pools     *worker.Pools
	log       *zap.Logger
}

// NewForestBroadcaster creates a ForestBroadcaster.
func NewForestBroadcaster(source SnapshotSource, publisher Publisher, pools *worker.Pools) *ForestBroadcaster {
	return &ForestBroadcaster{
		source:    source,
		publisher: publisher,
		pools:     pools,
		log:       logger.Named("notification"),
	}
}

// Snapshot returns the current forest as a realtime message.
func (b *ForestBroadcaster) Snapshot(ctx context.Context) (realtime.Message, error) {
	docs, err := b.source.ListRoots(ctx)
	if err != nil {
		return realtime.Message{}, fmt.Errorf("load forest: %w", err)
	}
	return realtime.NewMessage(realtime.EventNodes, docs)
}

// Trigger schedules a broadcast on the notify pool and returns immediately.
func (b *ForestBroadcaster) Trigger(_ context.Context) error {
	// Detached: the broadcast outlives the request that caused it.
	return b.pools.SubmitDetached(worker.PoolNotify, b.Broadcast)
}

// Broadcast loads the snapshot and publishes it synchronously.
func (b *ForestBroadcaster) Broadcast(ctx context.Context) {
	msg, err := b.Snapshot(ctx)
	if err != nil {
		b.log.Error("Snapshot for broadcast failed", zap.Error(err))
		return
	}
	if err := b.publisher.Publish(ctx, msg); err != nil {
		b.log.Error("Snapshot publish failed", zap.Error(err))
		return
	}
	b.log.Debug("Snapshot broadcast", zap.Int("bytes", len(msg.Data)))
}
