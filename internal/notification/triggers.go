package notification

import (
	"context"

	"go.uber.org/zap"

	"nodetree.io/nodetree/internal/domain"
)

// Register subscribes the broadcaster to every node event.
func (b *ForestBroadcaster) Register(d *domain.EventDispatcher) {
	d.RegisterMany(domain.AllNodeEvents, b.OnNodeEvent)
}

// OnNodeEvent fires after a node mutation has committed.
func (b *ForestBroadcaster) OnNodeEvent(ctx context.Context, event *domain.DomainEvent) error {
	b.log.Debug("Node changed, scheduling snapshot",
		zap.String("event_type", string(event.EventType)),
		zap.String("event_id", event.EventID),
		zap.String("node_id", event.AggregateID),
	)
	return b.Trigger(ctx)
}
