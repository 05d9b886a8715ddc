// Package server exposes recommendations over HTTP and streams batch runs
// over a websocket.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"ghostbuild/internal/data"
	"ghostbuild/internal/loader"
	"ghostbuild/internal/metrics"
	"ghostbuild/internal/pipeline"
)

// SnapshotLister lists the keys a store can serve
type SnapshotLister interface {
	ListSnapshots(ctx context.Context) ([]data.SnapshotInfo, error)
}

// Config holds everything the handlers need
type Config struct {
	Source    pipeline.Source
	Snapshots SnapshotLister
	Options   pipeline.Options
	// Mode, Tier and Window fill query parameters the client leaves out
	Mode   string
	Tier   string
	Window string
	// Concurrency bounds websocket batch runs
	Concurrency int
	// AllowedOrigins for websocket upgrades; empty allows any
	AllowedOrigins []string
	Metrics        *metrics.Metrics
	Logger         zerolog.Logger
}

// Server serves the HTTP API
type Server struct {
	cfg      Config
	loader   *loader.Loader
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// New creates a server
func New(cfg Config) *Server {
	s := &Server{
		cfg:    cfg,
		loader: loader.New(loader.WithLogger(cfg.Logger)),
		log:    cfg.Logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      s.checkOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
	return s
}

// Router builds the route table
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/snapshots", s.handleSnapshots)
		r.Get("/build/{champion}", s.handleBuild)
		r.Post("/build", s.handleInlineBuild)
	})
	r.Get("/ws/batch", s.handleBatchWS)

	if s.cfg.Metrics != nil {
		r.Handle("/metrics", s.cfg.Metrics.Handler())
	}
	return r
}

// observe logs and counts every request under its route pattern
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		if s.cfg.Metrics != nil {
			s.cfg.Metrics.RecordAPIRequest(r.Method, route, status, elapsed)
		}
		s.log.Debug().
			Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Dur("elapsed", elapsed).
			Msg("request")
	})
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	s.log.Warn().Str("origin", origin).Msg("websocket connection rejected from unauthorized origin")
	return false
}

// key resolves the champion and query parameters against the defaults
func (s *Server) key(champion string, r *http.Request) pipeline.Key {
	q := r.URL.Query()
	k := pipeline.Key{Champion: champion, Mode: s.cfg.Mode, Tier: s.cfg.Tier, Window: s.cfg.Window}
	if v := q.Get("mode"); v != "" {
		k.Mode = v
	}
	if v := q.Get("tier"); v != "" {
		k.Tier = v
	}
	if v := q.Get("window"); v != "" {
		k.Window = v
	}
	return k
}
