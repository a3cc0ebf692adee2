// Package handlers implements the HTTP handlers for the node API.
//
// Handlers decode and validate the request shape, call the node service and
// push failures with c.Error; middleware.ErrorHandler renders them.
//
// Import Path: nodetree.io/nodetree/internal/api/handlers
package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"nodetree.io/nodetree/internal/pkg/worker"
	"nodetree.io/nodetree/internal/service"
	"nodetree.io/nodetree/internal/tree"
)

// NodeService is the application surface the node handlers call.
// *service.NodeService implements it.
type NodeService interface {
	ListRoots(ctx context.Context) ([]tree.Document, error)
	Create(ctx context.Context, in service.CreateNodeInput) (*tree.Document, error)
	Get(ctx context.Context, id int64) (*tree.Document, error)
	Update(ctx context.Context, id int64, in service.UpdateNodeInput) (*tree.Document, error)
	Delete(ctx context.Context, id int64) error
	RegenerateChildren(ctx context.Context, id int64, count int) (*service.RegenerateOutput, error)
}

// Pinger reports database reachability for the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ListenerCounter reports connected realtime listeners. *realtime.Hub implements it.
type ListenerCounter interface {
	Len() int
}

// Server holds handler dependencies.
type Server struct {
	nodes     NodeService
	db        Pinger
	pools     *worker.Pools
	listeners ListenerCounter
}

// ServerDeps holds all dependencies for creating a Server.
type ServerDeps struct {
	Nodes NodeService
	DB    Pinger
	// Pools is optional; when set its occupancy is reported by readiness.
	Pools *worker.Pools
	// Listeners is optional; when set readiness reports the realtime listener count.
	Listeners ListenerCounter
}

// NewServer creates a new Server with all dependencies.
func NewServer(deps ServerDeps) *Server {
	return &Server{
		nodes:     deps.Nodes,
		db:        deps.DB,
		pools:     deps.Pools,
		listeners: deps.Listeners,
	}
}

// RegisterNodeRoutes mounts the node API on rg. Paths keep their trailing slash.
func (s *Server) RegisterNodeRoutes(rg *gin.RouterGroup) {
	rg.GET("/", s.ListRoots)
	rg.POST("/", s.CreateNode)
	rg.GET("/:id/", s.GetNode)
	rg.PUT("/:id/", s.UpdateNode)
	rg.DELETE("/:id/", s.DeleteNode)
	rg.POST("/:id/nodes/", s.RegenerateChildren)
}

// RegisterOpsRoutes mounts health probes and the runtime log level endpoint.
func (s *Server) RegisterOpsRoutes(r gin.IRouter) {
	r.GET("/health/live", s.GetLiveness)
	r.GET("/health/ready", s.GetReadiness)
	r.GET("/log/level", s.LogLevel)
	r.PUT("/log/level", s.LogLevel)
}
