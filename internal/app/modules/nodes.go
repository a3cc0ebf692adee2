package modules

import (
	"context"
	"fmt"

	"nodetree.io/nodetree/internal/api/handlers"
	"nodetree.io/nodetree/internal/repository"
	"nodetree.io/nodetree/internal/service"
)

// NodesModule wires the node store, generator and service.
type NodesModule struct {
	store   *repository.NodeStore
	service *service.NodeService
}

// NewNodesModule migrates the schema when configured and ensures Root exists.
func NewNodesModule(ctx context.Context, infra *Infrastructure) (*NodesModule, error) {
	cfg := infra.Config
	store := repository.NewNodeStore(infra.DB.Gorm, cfg.Database.OperationTimeout)

	if cfg.Database.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("auto-migrate: %w", err)
		}
	}

	allocator := service.NewRandomRangeAllocator(nil)
	generator := service.NewSubNodeGenerator(store, allocator, nil)
	svc := service.NewNodeService(store, allocator, generator, infra.Dispatcher)

	if _, err := svc.EnsureRoot(ctx); err != nil {
		return nil, err
	}

	return &NodesModule{store: store, service: svc}, nil
}

func (m *NodesModule) Name() string { return "nodes" }

// Service returns the node service.
func (m *NodesModule) Service() *service.NodeService { return m.service }

func (m *NodesModule) ContributeServerDeps(deps *handlers.ServerDeps) {
	if deps == nil {
		return
	}
	deps.Nodes = m.service
}

func (m *NodesModule) Start(context.Context) error { return nil }

func (m *NodesModule) Shutdown(context.Context) error { return nil }
