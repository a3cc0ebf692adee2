package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"nodetree.io/nodetree/internal/domain"
	"nodetree.io/nodetree/internal/pkg/logger"
	"nodetree.io/nodetree/internal/pkg/worker"
	"nodetree.io/nodetree/internal/realtime"
	"nodetree.io/nodetree/internal/tree"
)

func init() {
	_ = logger.Init("error", "json")
}

type fakeSource struct {
	docs []tree.Document
	err  error
}

func (s fakeSource) ListRoots(context.Context) ([]tree.Document, error) {
	return s.docs, s.err
}

type chanPublisher struct {
	ch  chan realtime.Message
	err error
}

func (p *chanPublisher) Publish(_ context.Context, msg realtime.Message) error {
	p.ch <- msg
	return p.err
}

func newPools(t *testing.T) *worker.Pools {
	t.Helper()
	pools, err := worker.NewPools(context.Background(), worker.PoolConfig{GeneralPoolSize: 2, NotifyPoolSize: 2})
	require.NoError(t, err)
	t.Cleanup(pools.Shutdown)
	return pools
}

func rootForest() []tree.Document {
	return []tree.Document{{ID: 1, Name: domain.RootName, MinNum: 1, MaxNum: 5, CanHaveChildren: true, Children: []tree.Document{}}}
}

func TestForestBroadcaster_Snapshot(t *testing.T) {
	b := NewForestBroadcaster(fakeSource{docs: rootForest()}, &chanPublisher{}, newPools(t))

	msg, err := b.Snapshot(context.Background())
	require.NoError(t, err)
	require.Equal(t, realtime.EventNodes, msg.Event)
	require.JSONEq(t,
		`[{"id":1,"name":"Root","min_num":1,"max_num":5,"parent_id":null,"can_have_children":true,"children":[]}]`,
		string(msg.Data))

	b = NewForestBroadcaster(fakeSource{err: errors.New("db down")}, &chanPublisher{}, newPools(t))
	_, err = b.Snapshot(context.Background())
	require.Error(t, err)
}

func TestForestBroadcaster_EventsPublishSnapshot(t *testing.T) {
	pub := &chanPublisher{ch: make(chan realtime.Message, 4)}
	b := NewForestBroadcaster(fakeSource{docs: rootForest()}, pub, newPools(t))

	d := domain.NewEventDispatcher()
	b.Register(d)

	for _, et := range domain.AllNodeEvents {
		event, err := domain.NewNodeEvent(et, 1, domain.NodePayload{NodeID: 1})
		require.NoError(t, err)
		require.NoError(t, d.Dispatch(context.Background(), event))

		select {
		case msg := <-pub.ch:
			require.Equal(t, realtime.EventNodes, msg.Event)
		case <-time.After(2 * time.Second):
			t.Fatalf("no snapshot published for %s", et)
		}
	}
}

func TestForestBroadcaster_FailuresAreSwallowed(t *testing.T) {
	pub := &chanPublisher{ch: make(chan realtime.Message, 1), err: errors.New("redis down")}
	b := NewForestBroadcaster(fakeSource{docs: rootForest()}, pub, newPools(t))

	require.NoError(t, b.Trigger(context.Background()))
	select {
	case <-pub.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("publish was not attempted")
	}
}

func TestForestBroadcaster_SourceErrorSkipsPublish(t *testing.T) {
	pub := &chanPublisher{ch: make(chan realtime.Message, 1)}
	b := NewForestBroadcaster(fakeSource{err: errors.New("db down")}, pub, newPools(t))

	b.Broadcast(context.Background())
	require.Empty(t, pub.ch)
}

func TestForestBroadcaster_TriggerAfterShutdown(t *testing.T) {
	pools, err := worker.NewPools(context.Background(), worker.PoolConfig{GeneralPoolSize: 1, NotifyPoolSize: 1})
	require.NoError(t, err)
	pools.Shutdown()

	b := NewForestBroadcaster(fakeSource{}, &chanPublisher{}, pools)
	require.ErrorIs(t, b.Trigger(context.Background()), worker.ErrPoolClosed)
}
