package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"nodetree.io/nodetree/internal/pkg/logger"
)

// Start starts module background services (realtime bus forwarder).
func (a *Application) Start(ctx context.Context) error {
	for _, mod := range a.Modules {
		if mod == nil {
			continue
		}
		if err := mod.Start(ctx); err != nil {
			return fmt.Errorf("start %s module: %w", mod.Name(), err)
		}
		logger.Debug("Module started", zap.String("module", mod.Name()))
	}
	return nil
}

// Shutdown gracefully shuts down all application components.
// Pools drain before the database closes so in-flight broadcasts can finish.
func (a *Application) Shutdown() {
	shutdownCtx := context.Background()

	if a.Pools != nil {
		a.Pools.Shutdown()
	}

	for _, mod := range a.Modules {
		if mod == nil {
			continue
		}
		if err := mod.Shutdown(shutdownCtx); err != nil {
			logger.Warn("module shutdown returned error",
				zap.String("module", mod.Name()),
				zap.Error(err),
			)
		}
	}

	if a.DB != nil {
		a.DB.Close()
	}
}
