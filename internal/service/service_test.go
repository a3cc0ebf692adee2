package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"nodetree.io/nodetree/internal/domain"
	apperrors "nodetree.io/nodetree/internal/pkg/errors"
	"nodetree.io/nodetree/internal/pkg/logger"
	"nodetree.io/nodetree/internal/repository"
	"nodetree.io/nodetree/internal/testutil"
)

func init() {
	_ = logger.Init("error", "json")
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*domain.DomainEvent
	err    error
}

func (p *recordingPublisher) Dispatch(_ context.Context, event *domain.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType)
	}
	return out
}

type fixture struct {
	svc    *NodeService
	store  *repository.NodeStore
	events *recordingPublisher
	root   *domain.Node
}

// wideWindow leaves room for the largest batch.
var wideWindow = FixedRangeAllocator(domain.Window{Min: 100, Max: 160})

func newFixture(t *testing.T, alloc RangeAllocator) *fixture {
	t.Helper()

	store := repository.NewNodeStore(testutil.OpenSQLite(t), 0)
	require.NoError(t, store.Migrate(context.Background()))

	if alloc == nil {
		alloc = NewRandomRangeAllocator(rand.NewPCG(11, 13))
	}
	events := &recordingPublisher{}
	gen := NewSubNodeGenerator(store, alloc, rand.NewPCG(3, 5))
	svc := NewNodeService(store, alloc, gen, events)

	root, err := svc.EnsureRoot(context.Background())
	require.NoError(t, err)

	return &fixture{svc: svc, store: store, events: events, root: root}
}

func strPtr(s string) *string { return &s }
func intPtr(v int) *int       { return &v }

func requireAppError(t *testing.T, err error, code string, status int, kind error) {
	t.Helper()
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	require.Equal(t, code, appErr.Code)
	require.Equal(t, status, appErr.HTTPStatus)
	if kind != nil {
		require.True(t, errors.Is(err, kind), "expected %v to wrap %v", err, kind)
	}
}
