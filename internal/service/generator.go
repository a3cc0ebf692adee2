package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"nodetree.io/nodetree/internal/domain"
	apperrors "nodetree.io/nodetree/internal/pkg/errors"
	"nodetree.io/nodetree/internal/pkg/logger"
)

// Regeneration batch size bounds.
const (
	MinRegenerateCount = 1
	MaxRegenerateCount = 15
)

// SubNodeGenerator replaces a node's children with freshly named leaves.
type SubNodeGenerator struct {
	store     ChildReplacer
	allocator RangeAllocator

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSubNodeGenerator creates a generator. A nil src seeds from the clock.
func NewSubNodeGenerator(store ChildReplacer, allocator RangeAllocator, src rand.Source) *SubNodeGenerator {
	return &SubNodeGenerator{
		store:     store,
		allocator: allocator,
		rng:       newRand(src),
	}
}

// Regenerate deletes every child of parentID and inserts count leaves named by
// distinct integers drawn from the parent's window. Nothing changes on error.
func (g *SubNodeGenerator) Regenerate(ctx context.Context, parentID int64, count int) ([]domain.Node, error) {
	if count < MinRegenerateCount || count > MaxRegenerateCount {
		return nil, apperrors.ErrFieldInvalidf("count", apperrors.CodeCountInvalid,
			fmt.Sprintf("count must be an integer between %d and %d", MinRegenerateCount, MaxRegenerateCount))
	}

	children, err := g.store.ReplaceChildren(ctx, parentID, func(parent domain.Node) ([]domain.Node, error) {
		picks, err := g.sample(parent.Window(), count)
		if err != nil {
			return nil, err
		}
		out := make([]domain.Node, 0, count)
		for _, v := range picks {
			leaf := domain.Node{
				Name:            strconv.Itoa(v),
				ParentID:        &parent.ID,
				CanHaveChildren: false,
			}
			leaf.SetWindow(g.allocator.Allocate())
			out = append(out, leaf)
		}
		return out, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNodeNotFound):
			return nil, apperrors.ErrNodeNotFoundf(parentID)
		case errors.Is(err, domain.ErrLeafNode):
			return nil, apperrors.ErrLeafNoChildrenf(parentID)
		case errors.Is(err, domain.ErrWindowExhausted):
			return nil, apperrors.ErrWindowExhaustedf(parentID, count)
		case errors.Is(err, domain.ErrNameTaken):
			return nil, apperrors.Conflict(apperrors.CodeNodeNameTaken,
				"Generated sub node name collides with an existing node, try again")
		default:
			return nil, apperrors.Internal(err, "failed to generate sub nodes")
		}
	}

	logger.Info("Sub nodes regenerated",
		zap.Int64("parent_id", parentID),
		zap.Int("count", len(children)),
	)
	return children, nil
}

// sample draws k distinct integers from w in random order (Floyd's algorithm).
func (g *SubNodeGenerator) sample(w domain.Window, k int) ([]int, error) {
	n := w.Size()
	if n < k {
		return nil, domain.ErrWindowExhausted
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	chosen := make(map[int]struct{}, k)
	out := make([]int, 0, k)
	for j := n - k; j < n; j++ {
		t := g.rng.IntN(j + 1)
		if _, dup := chosen[t]; dup {
			t = j
		}
		chosen[t] = struct{}{}
		out = append(out, w.Min+t)
	}
	g.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out, nil
}
