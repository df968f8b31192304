package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/flowforge/plugin-orchestrator/internal/api/middleware"
	"github.com/flowforge/plugin-orchestrator/internal/container"
	"github.com/flowforge/plugin-orchestrator/internal/events"
	"github.com/flowforge/plugin-orchestrator/internal/lifecycle"
	"github.com/flowforge/plugin-orchestrator/internal/logger"
	"github.com/flowforge/plugin-orchestrator/internal/registry"
	"github.com/flowforge/plugin-orchestrator/internal/store"
)

var log = logger.Component("api")

// Server bundles the collaborators every handler needs and owns the gin
// engine plus the stdlib http.Server wrapping it.
type Server struct {
	engine   *lifecycle.Engine
	registry *registry.Aggregator
	store    *store.Store
	driver   *container.Driver
	bus      *events.Bus

	httpServer *http.Server
}

// Deps bundles Server's collaborators for construction.
type Deps struct {
	Engine   *lifecycle.Engine
	Registry *registry.Aggregator
	Store    *store.Store
	Driver   *container.Driver
	Bus      *events.Bus
}

// New builds the gin engine, registers every route, and wraps it in an
// http.Server listening on addr.
func New(addr string, d Deps) *Server {
	s := &Server{
		engine:   d.Engine,
		registry: d.Registry,
		store:    d.Store,
		driver:   d.Driver,
		bus:      d.Bus,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.StructuredLogger())

	s.registerRoutes(router)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins serving in a background goroutine, following the teacher's
// cmd/main.go goroutine-server-plus-signal-channel shutdown shape.
func (s *Server) Start() {
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("api server stopped unexpectedly")
		}
	}()
}

// Shutdown drains in-flight requests before returning, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
