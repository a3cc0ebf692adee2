package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"nodetree.io/nodetree/internal/domain"
	apperrors "nodetree.io/nodetree/internal/pkg/errors"
	"nodetree.io/nodetree/internal/pkg/logger"
	"nodetree.io/nodetree/internal/tree"
)

// EventPublisher receives domain events after a mutation has committed.
// *domain.EventDispatcher implements it.
type EventPublisher interface {
	Dispatch(ctx context.Context, event *domain.DomainEvent) error
}

// CreateNodeInput is the create request. Name is nil when absent.
type CreateNodeInput struct {
	Name *string
}

// UpdateNodeInput is a partial update. Nil fields are left unchanged;
// MinNum and MaxNum must be given together.
type UpdateNodeInput struct {
	Name   *string
	MinNum *int
	MaxNum *int
}

// IsEmpty reports whether the update changes nothing.
func (in UpdateNodeInput) IsEmpty() bool {
	return in.Name == nil && in.MinNum == nil && in.MaxNum == nil
}

// RegenerateOutput confirms a sub-node regeneration.
type RegenerateOutput struct {
	Message  string          `json:"message"`
	ParentID int64           `json:"parent_id"`
	Count    int             `json:"count"`
	Children []tree.Document `json:"children"`
}

// NodeService implements the node operations exposed over HTTP.
type NodeService struct {
	store     NodeRepository
	allocator RangeAllocator
	generator *SubNodeGenerator
	events    EventPublisher
}

// NewNodeService creates a NodeService. events may be nil.
func NewNodeService(store NodeRepository, allocator RangeAllocator, generator *SubNodeGenerator, events EventPublisher) *NodeService {
	return &NodeService{
		store:     store,
		allocator: allocator,
		generator: generator,
		events:    events,
	}
}

// EnsureRoot creates the root node when it does not exist yet.
func (s *NodeService) EnsureRoot(ctx context.Context) (*domain.Node, error) {
	root, created, err := s.store.EnsureRoot(ctx, s.allocator.Allocate())
	if err != nil {
		return nil, fmt.Errorf("ensure root: %w", err)
	}
	if created {
		logger.Info("Root node created",
			zap.Int64("id", root.ID),
			zap.Int("min_num", root.MinNum),
			zap.Int("max_num", root.MaxNum),
		)
	}
	return root, nil
}

// ListRoots renders every root with its full subtree.
func (s *NodeService) ListRoots(ctx context.Context) ([]tree.Document, error) {
	roots, nodes, err := s.store.Forest(ctx)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load nodes")
	}
	return tree.SerializeForest(roots, tree.NewIndex(nodes)), nil
}

// Create adds a node under Root with a freshly allocated window.
func (s *NodeService) Create(ctx context.Context, in CreateNodeInput) (*tree.Document, error) {
	if in.Name == nil {
		return nil, apperrors.ErrNameRequired()
	}
	name := *in.Name
	if err := domain.ValidateName(name); err != nil {
		return nil, nameInvalid()
	}

	root, err := s.EnsureRoot(ctx)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to resolve root node")
	}

	n := &domain.Node{
		Name:            name,
		ParentID:        &root.ID,
		CanHaveChildren: true,
	}
	n.SetWindow(s.allocator.Allocate())

	if err := s.store.Create(ctx, n); err != nil {
		return nil, s.storeError(err, root.ID, name)
	}

	logger.Info("Node created", zap.Int64("id", n.ID), zap.String("name", n.Name))
	s.publish(ctx, domain.EventNodeCreated, n.ID, domain.NodePayload{NodeID: n.ID, Name: n.Name, ParentID: n.ParentID})

	doc := tree.Serialize(*n, tree.NewIndex(nil))
	return &doc, nil
}

// Get renders the node and its subtree.
func (s *NodeService) Get(ctx context.Context, id int64) (*tree.Document, error) {
	nodes, err := s.store.Subtree(ctx, id)
	if err != nil {
		return nil, s.storeError(err, id, "")
	}
	idx := tree.NewIndex(nodes)
	node, ok := idx.Node(id)
	if !ok {
		return nil, apperrors.ErrNodeNotFoundf(id)
	}
	doc := tree.Serialize(node, idx)
	return &doc, nil
}

// Update renames a node and/or replaces its window. An empty update returns
// the current document unchanged.
func (s *NodeService) Update(ctx context.Context, id int64, in UpdateNodeInput) (*tree.Document, error) {
	var window *domain.Window
	switch {
	case in.MinNum == nil && in.MaxNum == nil:
	case in.MinNum == nil || in.MaxNum == nil:
		return nil, apperrors.ErrFieldInvalidf(missingBound(in), apperrors.CodeWindowInvalid,
			"min_num and max_num must be provided together")
	default:
		w := domain.Window{Min: *in.MinNum, Max: *in.MaxNum}
		if err := w.Validate(); err != nil {
			return nil, apperrors.ErrFieldInvalidf("min_num", apperrors.CodeWindowInvalid,
				fmt.Sprintf("min_num must be lower than max_num and both must be within [%d, %d]", math.MinInt16, math.MaxInt16))
		}
		window = &w
	}

	current, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.storeError(err, id, "")
	}
	if in.IsEmpty() {
		return s.Get(ctx, id)
	}

	changed := false
	// An unchanged name is not re-validated: Root's own name is shorter than
	// the minimum.
	if in.Name != nil && *in.Name != current.Name {
		if err := domain.ValidateName(*in.Name); err != nil {
			return nil, nameInvalid()
		}
		if current.IsRoot() {
			return nil, apperrors.ErrRootProtectedf(id)
		}
		current.Name = *in.Name
		changed = true
	}
	if window != nil && *window != current.Window() {
		current.SetWindow(*window)
		changed = true
	}

	if changed {
		if err := s.store.Update(ctx, current); err != nil {
			return nil, s.storeError(err, id, current.Name)
		}
		logger.Info("Node updated", zap.Int64("id", id), zap.String("name", current.Name))
		s.publish(ctx, domain.EventNodeUpdated, id, domain.NodePayload{NodeID: id, Name: current.Name, ParentID: current.ParentID})
	}

	return s.Get(ctx, id)
}

// Delete removes the node and its subtree. Root cannot be deleted.
func (s *NodeService) Delete(ctx context.Context, id int64) error {
	removed, err := s.store.Delete(ctx, id)
	if err != nil {
		return s.storeError(err, id, "")
	}

	logger.Info("Node deleted", zap.Int64("id", id), zap.Int64("removed", removed))
	s.publish(ctx, domain.EventNodeDeleted, id, domain.NodePayload{NodeID: id, Removed: removed})
	return nil
}

// RegenerateChildren replaces the node's children with count generated leaves.
func (s *NodeService) RegenerateChildren(ctx context.Context, id int64, count int) (*RegenerateOutput, error) {
	children, err := s.generator.Regenerate(ctx, id, count)
	if err != nil {
		return nil, err
	}

	docs := make([]tree.Document, 0, len(children))
	ids := make([]int64, 0, len(children))
	empty := tree.NewIndex(nil)
	for _, c := range children {
		docs = append(docs, tree.Serialize(c, empty))
		ids = append(ids, c.ID)
	}

	s.publish(ctx, domain.EventNodeChildrenRegenerated, id, domain.ChildrenRegeneratedPayload{
		ParentID: id,
		Count:    len(children),
		ChildIDs: ids,
	})

	return &RegenerateOutput{
		Message:  fmt.Sprintf("Generated %d sub nodes for node %d", len(children), id),
		ParentID: id,
		Count:    len(children),
		Children: docs,
	}, nil
}

func (s *NodeService) publish(ctx context.Context, eventType domain.EventType, nodeID int64, payload any) {
	if s.events == nil {
		return
	}
	event, err := domain.NewNodeEvent(eventType, nodeID, payload)
	if err != nil {
		logger.Error("Build domain event failed", zap.String("event_type", string(eventType)), zap.Error(err))
		return
	}
	if err := s.events.Dispatch(ctx, event); err != nil {
		logger.Warn("Domain event dispatch failed",
			zap.String("event_type", string(eventType)),
			zap.String("event_id", event.EventID),
			zap.Error(err),
		)
	}
}

// storeError maps store sentinels to application errors.
func (s *NodeService) storeError(err error, id int64, name string) error {
	switch {
	case errors.Is(err, domain.ErrNodeNotFound):
		return apperrors.ErrNodeNotFoundf(id)
	case errors.Is(err, domain.ErrNameTaken):
		return apperrors.ErrNodeNameTakenf(name)
	case errors.Is(err, domain.ErrRootProtected):
		return apperrors.ErrRootProtectedf(id)
	case errors.Is(err, domain.ErrLeafNode):
		return apperrors.ErrLeafNoChildrenf(id)
	default:
		return apperrors.Internal(err, "node store failure")
	}
}

func nameInvalid() *apperrors.AppError {
	return apperrors.ErrFieldInvalidf("name", apperrors.CodeNameInvalid,
		fmt.Sprintf("Name must be between %d and %d characters", domain.NameMinLength, domain.NameMaxLength))
}

func missingBound(in UpdateNodeInput) string {
	if in.MinNum == nil {
		return "min_num"
	}
	return "max_num"
}
