package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"nodetree.io/nodetree/internal/pkg/logger"
)

const (
	defaultHeartbeat = 25 * time.Second
	writeWait        = 10 * time.Second
	maxInboundBytes  = 4096
)

// Snapshotter builds the current forest snapshot message.
type Snapshotter interface {
	Snapshot(ctx context.Context) (Message, error)
}

// Trigger schedules a snapshot broadcast to every listener.
type Trigger interface {
	Trigger(ctx context.Context) error
}

// Options configures the transports.
type Options struct {
	// Heartbeat is the WebSocket ping period and the SSE keep-alive period.
	Heartbeat time.Duration
	// AllowedOrigins restricts WebSocket upgrades. Empty or "*" allows any origin.
	AllowedOrigins []string
}

// Handler serves the WebSocket and SSE endpoints.
type Handler struct {
	hub       *Hub
	snapshots Snapshotter
	trigger   Trigger
	heartbeat time.Duration
	upgrader  websocket.Upgrader
	log       *zap.Logger
}

// NewHandler creates the realtime transport handler.
func NewHandler(hub *Hub, snapshots Snapshotter, trigger Trigger, opts Options) *Handler {
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = defaultHeartbeat
	}
	origins := opts.AllowedOrigins
	return &Handler{
		hub:       hub,
		snapshots: snapshots,
		trigger:   trigger,
		heartbeat: opts.Heartbeat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(origins) == 0 || slices.Contains(origins, "*") {
					return true
				}
				return slices.Contains(origins, origin)
			},
		},
		log: logger.Named("realtime"),
	}
}

// Register mounts the transports on rg.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/ws", h.ServeWS)
	rg.GET("/events", h.ServeSSE)
}

// ServeWS upgrades the connection, sends the current snapshot and then relays
// broadcasts. A client message {"event":"update"} triggers a broadcast.
func (h *Handler) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.log.Debug("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := h.hub.Register()
	h.sendInitial(c.Request.Context(), client)

	go h.writePump(conn, client)
	h.readPump(c.Request.Context(), conn, client)
}

func (h *Handler) readPump(ctx context.Context, conn *websocket.Conn, client *Client) {
	defer h.hub.Unregister(client)

	pongWait := 2 * h.heartbeat
	conn.SetReadLimit(maxInboundBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("WebSocket read failed", zap.String("client_id", client.ID.String()), zap.Error(err))
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.log.Debug("Ignoring malformed listener message", zap.String("client_id", client.ID.String()))
			continue
		}
		if msg.Event != EventUpdate {
			continue
		}
		if err := h.trigger.Trigger(ctx); err != nil {
			h.log.Warn("Snapshot trigger failed", zap.String("client_id", client.ID.String()), zap.Error(err))
		}
	}
}

func (h *Handler) writePump(conn *websocket.Conn, client *Client) {
	ticker := time.NewTicker(h.heartbeat)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.Outbound:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				h.hub.Unregister(client)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.hub.Unregister(client)
				return
			}
		}
	}
}

// ServeSSE streams broadcasts as Server-Sent Events until the client leaves.
func (h *Handler) ServeSSE(c *gin.Context) {
	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	ctx := c.Request.Context()
	client := h.hub.Register()
	defer h.hub.Unregister(client)
	h.sendInitial(ctx, client)

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-client.Done():
			return
		case <-heartbeat.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			w.Flush()
		case msg, ok := <-client.Outbound:
			if !ok {
				return
			}
			body, err := json.Marshal(msg)
			if err != nil {
				h.log.Warn("Failed to marshal listener message", zap.Error(err))
				continue
			}
			_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, body)
			w.Flush()
		}
	}
}

// sendInitial queues the current snapshot for a newly connected client only.
func (h *Handler) sendInitial(ctx context.Context, client *Client) {
	msg, err := h.snapshots.Snapshot(ctx)
	if err != nil {
		h.log.Warn("Initial snapshot failed", zap.String("client_id", client.ID.String()), zap.Error(err))
		return
	}
	select {
	case client.Outbound <- msg:
	default:
	}
}
