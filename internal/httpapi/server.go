// Package httpapi exposes the assistant's Chat/Task Store/profile/
// personality surface over HTTP, the way the teacher's senses/api.go
// exposed APISense's POST /input endpoints — rebuilt on chi instead of a
// bare http.ServeMux so routing, middleware, and path params follow the
// same idiom as the rest of the retrieved pack.
package httpapi

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sentineld/sentinel/internal/events"
	"github.com/sentineld/sentinel/internal/executor"
	"github.com/sentineld/sentinel/internal/gateway"
	"github.com/sentineld/sentinel/internal/heartbeat"
	"github.com/sentineld/sentinel/internal/memory"
	"github.com/sentineld/sentinel/internal/observability"
	"github.com/sentineld/sentinel/internal/persona"
	"github.com/sentineld/sentinel/internal/prepipeline"
	"github.com/sentineld/sentinel/internal/proactive"
	"github.com/sentineld/sentinel/internal/router"
	"github.com/sentineld/sentinel/internal/security"
	"github.com/sentineld/sentinel/internal/store"
)

// Deps are the collaborators a Server dispatches requests into. Pre may be
// nil, in which case classification falls back to heuristics; NewServer
// substitutes defaults for a nil Log, Sanitizer, RateLimiter or Audit.
type Deps struct {
	Store      *store.Store
	Exec       *executor.Executor
	Gateway    *gateway.Gateway
	Router     *router.DynamicRouter
	Pre        *prepipeline.PrePipeline
	Persona    *persona.Persona
	Heartbeat  *heartbeat.Scheduler
	ShortTerm  *memory.ShortTermMemory
	Facts      *memory.UserFacts
	EmbedCache *memory.EmbedCache
	Proactive  *proactive.Engine
	Sink       *events.Sink
	Log        *observability.Logger
	Metrics    *observability.Metrics

	Sanitizer   *security.Sanitizer
	RateLimiter *security.RateLimiter
	Audit       *security.AuditLogger
}

// Server is Sentinel's HTTP API surface.
type Server struct {
	deps       Deps
	httpServer *http.Server
	listener   net.Listener
}

// NewServer builds a Server listening on addr (e.g. ":8765" or
// "127.0.0.1:8765"), wiring every route onto a chi router.
func NewServer(addr string, deps Deps) *Server {
	if deps.Log == nil {
		deps.Log = observability.NewLogger("httpapi", nil)
	}
	if deps.Sanitizer == nil {
		deps.Sanitizer = security.NewSanitizer(security.SanitizerConfig{})
	}
	if deps.RateLimiter == nil {
		deps.RateLimiter = security.NewRateLimiter(30, time.Minute)
	}
	if deps.Audit == nil {
		deps.Audit = security.NewAuditLogger(security.NewMemoryAuditStore())
	}

	s := &Server{deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/health", s.handleHealth)
	r.Get("/events", s.handleEvents)

	r.Post("/chat", s.handleChat)

	r.Get("/tasks", s.handleListTasks)
	r.Post("/tasks", s.handleCreateTask)
	r.Get("/tasks/summary", s.handleTaskSummary)
	r.Delete("/tasks/{id}", s.handleCancelTask)

	r.Get("/profile", s.handleProfile)

	r.Get("/proactive", s.handleProactiveSuggestions)
	r.Get("/proactive/push", s.handleProactivePush)

	r.Get("/personality", s.handleGetPersonality)
	r.Post("/personality", s.handleSavePersonality)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start begins listening and blocks until the server is shut down.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("httpapi: listen: %w", err)
	}
	s.listener = ln
	s.deps.Log.Info("httpapi listening", "addr", ln.Addr().String())

	if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("httpapi: serve: %w", err)
	}
	return nil
}

// Addr returns the actual listening address, useful when Start was given
// port ":0" and the caller needs to know which port was chosen.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Shutdown gracefully stops the server, waiting up to ctx's deadline for
// in-flight requests (including open SSE streams) to drain.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
