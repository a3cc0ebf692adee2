// Package modules contains the dependency modules wired by the composition root.
//
// Import Path: nodetree.io/nodetree/internal/app/modules
package modules

import (
	"context"

	"nodetree.io/nodetree/internal/api/handlers"
)

// Module represents a domain-specific dependency unit in the composition root.
type Module interface {
	// Name returns a stable module identifier for logging/debugging.
	Name() string

	// Start launches module-owned background work. It must not block.
	Start(context.Context) error

	// Shutdown performs module-local graceful cleanup.
	Shutdown(context.Context) error
}

// ServerDepsContributor is implemented by modules that provide HTTP handler
// dependencies.
type ServerDepsContributor interface {
	ContributeServerDeps(*handlers.ServerDeps)
}
