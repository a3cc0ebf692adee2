// Package service implements the node tree operations on top of the store.
//
// Services validate input, call the store, and translate store sentinels into
// application errors. Transactions live in the store; a service call is a
// sequence of store calls, each atomic on its own.
//
// Import Path: nodetree.io/nodetree/internal/service
package service

import (
	"context"

	"nodetree.io/nodetree/internal/domain"
)

// NodeRepository is the persistence contract the services depend on.
// *repository.NodeStore implements it.
type NodeRepository interface {
	EnsureRoot(ctx context.Context, w domain.Window) (*domain.Node, bool, error)
	Create(ctx context.Context, n *domain.Node) error
	Get(ctx context.Context, id int64) (*domain.Node, error)
	FindByName(ctx context.Context, name string) (*domain.Node, error)
	Forest(ctx context.Context) (roots, nodes []domain.Node, err error)
	Subtree(ctx context.Context, id int64) ([]domain.Node, error)
	Update(ctx context.Context, n *domain.Node) error
	Delete(ctx context.Context, id int64) (int64, error)
	ChildReplacer
}

// ChildReplacer atomically swaps a parent's children.
type ChildReplacer interface {
	ReplaceChildren(ctx context.Context, parentID int64, build domain.ChildBuilder) ([]domain.Node, error)
}
