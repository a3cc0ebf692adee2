package modules

import (
	"context"
	"fmt"

	"nodetree.io/nodetree/internal/config"
	"nodetree.io/nodetree/internal/domain"
	"nodetree.io/nodetree/internal/infrastructure"
	"nodetree.io/nodetree/internal/pkg/worker"
)

// Infrastructure holds shared cross-cutting dependencies for all modules.
// It is a provider, not a Module.
type Infrastructure struct {
	Config     *config.Config
	DB         *infrastructure.Database
	Pools      *worker.Pools
	Dispatcher *domain.EventDispatcher
}

// NewInfrastructure opens the database and starts the worker pools.
func NewInfrastructure(ctx context.Context, cfg *config.Config) (*Infrastructure, error) {
	db, err := infrastructure.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	pools, err := worker.NewPools(ctx, worker.PoolConfig{
		GeneralPoolSize: cfg.Worker.GeneralPoolSize,
		NotifyPoolSize:  cfg.Worker.NotifyPoolSize,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init worker pools: %w", err)
	}

	return &Infrastructure{
		Config:     cfg,
		DB:         db,
		Pools:      pools,
		Dispatcher: domain.NewEventDispatcher(),
	}, nil
}

// Close releases infra resources in reverse dependency order.
func (i *Infrastructure) Close() {
	if i == nil {
		return
	}
	if i.Pools != nil {
		i.Pools.Shutdown()
	}
	if i.DB != nil {
		i.DB.Close()
	}
}
