package app

import (
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"nodetree.io/nodetree/internal/api/handlers"
	"nodetree.io/nodetree/internal/api/middleware"
	"nodetree.io/nodetree/internal/config"
	"nodetree.io/nodetree/internal/observability"
	"nodetree.io/nodetree/internal/realtime"
)

// defaultAllowedOrigins is used when server.allowed_origins is empty.
var defaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
}

// Probe paths are polled constantly and are not request-logged.
var quietPaths = []string{"/health/live", "/health/ready"}

func newRouter(cfg *config.Config, server *handlers.Server, rt *realtime.Handler) (*gin.Engine, error) {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(quietPaths...))
	router.Use(cors.New(buildCORSConfig(cfg)))
	if cfg.Tracing.Enabled {
		router.Use(otelgin.Middleware(observability.ServiceName(cfg.Tracing)))
	}
	router.NoRoute(middleware.NoRoute())

	server.RegisterOpsRoutes(router)
	if rt != nil {
		rt.Register(router.Group("/realtime"))
	}

	// The validator buffers the response, so ErrorHandler must run inside it
	// for handler errors to be rendered before validation.
	nodes := router.Group(cfg.Server.BasePath)
	if cfg.Server.OpenAPIValidation {
		validator, err := middleware.NewOpenAPIValidator(cfg.Server.BasePath)
		if err != nil {
			return nil, err
		}
		nodes.Use(validator)
	}
	nodes.Use(middleware.ErrorHandler())
	server.RegisterNodeRoutes(nodes)

	return router, nil
}

// buildCORSConfig derives the CORS policy. A "*" origin is honoured only with
// server.unsafe_allow_all_origins, and then credentials are disabled.
func buildCORSConfig(cfg *config.Config) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}

	if cfg.Server.UnsafeAllowAllOrigins {
		c.AllowAllOrigins = true
		c.AllowCredentials = false
		return c
	}

	origins := make([]string, 0, len(cfg.Server.AllowedOrigins))
	for _, o := range cfg.Server.AllowedOrigins {
		o = strings.TrimSpace(o)
		if o == "" || o == "*" || slices.Contains(origins, o) {
			continue
		}
		origins = append(origins, o)
	}
	if len(origins) == 0 {
		origins = slices.Clone(defaultAllowedOrigins)
	}

	c.AllowOrigins = origins
	c.AllowCredentials = cfg.Server.AllowCredentials
	return c
}
