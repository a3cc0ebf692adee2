// Package app is the composition root. Bootstrap stays orchestration-only.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"nodetree.io/nodetree/internal/api/handlers"
	"nodetree.io/nodetree/internal/app/modules"
	"nodetree.io/nodetree/internal/config"
	"nodetree.io/nodetree/internal/infrastructure"
	"nodetree.io/nodetree/internal/pkg/worker"
)

// Application holds composed application dependencies.
type Application struct {
	Config  *config.Config
	Router  *gin.Engine
	DB      *infrastructure.Database
	Pools   *worker.Pools
	Modules []modules.Module

	realtime *modules.RealtimeModule
}

// Bootstrap initializes all dependencies using module-oriented manual DI.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Application, error) {
	infra, err := modules.NewInfrastructure(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init infrastructure: %w", err)
	}

	nodesModule, err := modules.NewNodesModule(ctx, infra)
	if err != nil {
		infra.Close()
		return nil, fmt.Errorf("init nodes module: %w", err)
	}

	realtimeModule, err := modules.NewRealtimeModule(ctx, infra, nodesModule.Service())
	if err != nil {
		infra.Close()
		return nil, fmt.Errorf("init realtime module: %w", err)
	}

	allModules := []modules.Module{nodesModule, realtimeModule}
	server := handlers.NewServer(modules.NewServerDeps(infra, allModules))

	router, err := newRouter(cfg, server, realtimeModule.Handler())
	if err != nil {
		_ = realtimeModule.Shutdown(ctx)
		infra.Close()
		return nil, fmt.Errorf("init router: %w", err)
	}

	return &Application{
		Config:   cfg,
		Router:   router,
		DB:       infra.DB,
		Pools:    infra.Pools,
		Modules:  allModules,
		realtime: realtimeModule,
	}, nil
}
