package modules

import (
	"context"
	"fmt"

	"nodetree.io/nodetree/internal/api/handlers"
	"nodetree.io/nodetree/internal/notification"
	"nodetree.io/nodetree/internal/realtime"
	"nodetree.io/nodetree/internal/realtime/bus"
)

// RealtimeModule wires snapshot broadcasting: dispatcher → notify pool → bus → hub.
type RealtimeModule struct {
	bus         bus.Bus
	hub         *realtime.Hub
	broadcaster *notification.ForestBroadcaster
	handler     *realtime.Handler
}

// NewRealtimeModule builds the bus and hub and subscribes to node events.
func NewRealtimeModule(ctx context.Context, infra *Infrastructure, snapshots notification.SnapshotSource) (*RealtimeModule, error) {
	cfg := infra.Config

	b, err := bus.New(ctx, cfg.Realtime)
	if err != nil {
		return nil, fmt.Errorf("init realtime bus: %w", err)
	}

	hub := realtime.NewHub(cfg.Realtime.ClientBuffer)
	broadcaster := notification.NewForestBroadcaster(snapshots, b, infra.Pools)
	broadcaster.Register(infra.Dispatcher)

	handler := realtime.NewHandler(hub, broadcaster, broadcaster, realtime.Options{
		Heartbeat:      cfg.Realtime.HeartbeatInterval,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	return &RealtimeModule{
		bus:         b,
		hub:         hub,
		broadcaster: broadcaster,
		handler:     handler,
	}, nil
}

func (m *RealtimeModule) Name() string { return "realtime" }

// Handler returns the WebSocket/SSE handler.
func (m *RealtimeModule) Handler() *realtime.Handler { return m.handler }

// Hub returns the listener hub.
func (m *RealtimeModule) Hub() *realtime.Hub { return m.hub }

// ContributeServerDeps exposes the hub's listener count to readiness.
func (m *RealtimeModule) ContributeServerDeps(deps *handlers.ServerDeps) {
	if deps == nil {
		return
	}
	deps.Listeners = m.hub
}

// Start connects the bus to the local hub.
func (m *RealtimeModule) Start(ctx context.Context) error {
	if err := m.bus.StartForwarder(ctx, m.hub.Broadcast); err != nil {
		return fmt.Errorf("start realtime forwarder: %w", err)
	}
	return nil
}

func (m *RealtimeModule) Shutdown(context.Context) error {
	return m.bus.Close()
}
