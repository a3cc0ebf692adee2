// Package bus carries realtime messages between replicas.
//
// Publishers hand snapshots to the bus; every replica runs a forwarder that
// delivers bus messages to its local hub.
package bus

import (
	"context"
	"fmt"

	"nodetree.io/nodetree/internal/config"
	"nodetree.io/nodetree/internal/realtime"
)

// Bus publishes realtime messages and forwards received ones to onMsg.
type Bus interface {
	Publish(ctx context.Context, msg realtime.Message) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error
	Close() error
}

// New builds the bus selected by cfg.Bus.
func New(ctx context.Context, cfg config.RealtimeConfig) (Bus, error) {
	switch cfg.Bus {
	case config.BusLocal, "":
		return NewLocalBus(), nil
	case config.BusRedis:
		return NewRedisBus(ctx, RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Channel:  cfg.RedisChannel,
		})
	default:
		return nil, fmt.Errorf("unknown realtime bus %q", cfg.Bus)
	}
}
