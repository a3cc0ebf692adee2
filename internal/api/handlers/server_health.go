package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nodetree.io/nodetree/internal/pkg/logger"
)

// Health is the probe response body.
type Health struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks,omitempty"`
	Workers map[string]any    `json:"workers,omitempty"`
	// Listeners is the number of connected realtime clients on this replica.
	Listeners *int `json:"listeners,omitempty"`
}

// Probe statuses.
const (
	HealthStatusOK       = "ok"
	HealthStatusDegraded = "degraded"
)

// GetLiveness handles GET /health/live.
func (s *Server) GetLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, Health{Status: HealthStatusOK})
}

// GetReadiness handles GET /health/ready.
func (s *Server) GetReadiness(c *gin.Context) {
	checks := make(map[string]string)
	allHealthy := true

	if s.db == nil {
		checks["database"] = "unconfigured"
		allHealthy = false
	} else if err := s.db.Ping(c.Request.Context()); err != nil {
		checks["database"] = "error"
		allHealthy = false
	} else {
		checks["database"] = "ok"
	}

	resp := Health{Status: HealthStatusOK, Checks: checks}
	if s.pools != nil {
		resp.Workers = s.pools.Metrics()
	}
	if s.listeners != nil {
		n := s.listeners.Len()
		resp.Listeners = &n
	}

	httpStatus := http.StatusOK
	if !allHealthy {
		resp.Status = HealthStatusDegraded
		httpStatus = http.StatusServiceUnavailable
	}
	c.JSON(httpStatus, resp)
}

// LogLevel handles GET and PUT /log/level through zap's AtomicLevel handler.
// PUT takes {"level":"debug"}.
func (s *Server) LogLevel(c *gin.Context) {
	logger.LevelHandler().ServeHTTP(c.Writer, c.Request)
}
