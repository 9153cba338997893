// Package web provides the HTTP API for billing records.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/billing/internal/config"
	"github.com/JonMunkholm/billing/internal/core"
	"github.com/JonMunkholm/billing/internal/metrics"
	"github.com/JonMunkholm/billing/internal/web/middleware"
)

// Server is the HTTP server for the billing API.
type Server struct {
	service *core.Service
	cfg     *config.Config
	metrics *metrics.Metrics
	router  *chi.Mux
	server  *http.Server

	limiters    []*middleware.RateLimiter
	stopSweeper context.CancelFunc
}

// NewServer creates a Server. m may be nil, in which case /metrics is not
// mounted.
func NewServer(service *core.Service, cfg *config.Config, m *metrics.Metrics) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		metrics: m,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(middleware.SecurityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.router.Use(s.rateLimit(s.cfg.Rate.RequestsPerMinute))
	}
}

// requestTimeout applies SERVER_REQUEST_TIMEOUT. It is left off the import
// route: an import keeps running after its request context is cancelled,
// and chi's Timeout would then write a second header over the report.
func (s *Server) requestTimeout(next http.Handler) http.Handler {
	if s.cfg.Server.RequestTimeout <= 0 {
		return next
	}
	return chimw.Timeout(s.cfg.Server.RequestTimeout)(next)
}

func (s *Server) rateLimit(perMinute int) func(http.Handler) http.Handler {
	rl := middleware.NewRateLimiter(perMinute, time.Minute)
	s.limiters = append(s.limiters, rl)
	return rl.Middleware
}

func (s *Server) setupRoutes() {
	s.router.Group(func(r chi.Router) {
		r.Use(s.requestTimeout)
		r.Get("/healthz", s.handleHealth)
		if s.metrics != nil {
			r.Handle("/metrics", s.metrics.Handler())
		}
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(s.cfg.Security))

		r.With(s.requestTimeout).Get("/users", s.handleListUsers)
		r.With(s.requestTimeout).Get("/projects", s.handleListProjects)

		r.Route("/billing", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(s.requestTimeout)

				r.Get("/", s.handleListRecords)
				r.Post("/", s.handleCreateRecord)
				r.Get("/export", s.handleExport)
				r.Get("/template", s.handleTemplate)

				r.Get("/{id}", s.handleGetRecord)
				r.Patch("/{id}", s.handleUpdateRecord)
				r.Delete("/{id}", s.handleDeleteRecord)
				r.Get("/{id}/notice", s.handleNotice)
			})

			r.Group(func(r chi.Router) {
				if s.cfg.Rate.Enabled {
					r.Use(s.rateLimit(s.cfg.Rate.ImportLimit))
				}
				r.Post("/import", s.handleImport)
			})
		})
	})
}

// importDeadline is how long the import route may hold its connection:
// the wait for a slot, the import itself, then the server's own timeout
// for sending the report. Zero means no deadline.
func (s *Server) importDeadline() time.Duration {
	sc := s.cfg.Server
	if sc.ReadTimeout <= 0 && sc.WriteTimeout <= 0 {
		return 0
	}
	return s.cfg.Import.MaxWaitTime + s.cfg.Import.Timeout + max(sc.ReadTimeout, sc.WriteTimeout)
}

// httpServer builds the http.Server Start listens with.
func (s *Server) httpServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
}

// Start listens on the configured address until Shutdown is called.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.stopSweeper = cancel
	for _, rl := range s.limiters {
		go rl.Run(ctx)
	}

	s.server = s.httpServer()

	slog.Info("starting server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.stopSweeper != nil {
		s.stopSweeper()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Ping(r.Context()); err != nil {
		slog.Error("health check failed", "error", err)
		writeJSONStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, map[string]any{
		"status":  "ok",
		"imports": s.service.LimiterStatus(),
	})
}
