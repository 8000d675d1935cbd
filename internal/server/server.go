// Package server serves the site in live mode: every request renders its
// route against the cached post snapshots, static assets come straight from
// the asset directory.
package server

import (
	"context"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	publishcmd "github.com/goliatone/go-freeze/internal/commands/publish"
	"github.com/goliatone/go-freeze/internal/generator"
	"github.com/goliatone/go-freeze/internal/logging"
	"github.com/goliatone/go-freeze/internal/posts"
	"github.com/goliatone/go-freeze/pkg/interfaces"
)

// Site renders routes on demand. *generator.Service satisfies it.
type Site interface {
	LoadSnapshots(ctx context.Context, force bool) (*generator.Snapshots, error)
	Routes(snapshots *generator.Snapshots) []generator.Route
	RenderRoute(ctx context.Context, snapshots *generator.Snapshots, route generator.Route) (generator.RenderedPage, error)
}

// Reloader forces collections to reload. *publishcmd.ReloadPostsHandler satisfies it.
type Reloader interface {
	Execute(ctx context.Context, msg publishcmd.ReloadPostsCommand) error
}

// Server is the live preview HTTP server.
type Server struct {
	addr      string
	site      Site
	static    fs.FS
	assetRoot string
	reloader  Reloader
	metrics   http.Handler
	logger    interfaces.Logger
	timeout   time.Duration

	router *chi.Mux
	server *http.Server
}

// Option mutates the Server configuration.
type Option func(*Server)

// WithStatic serves fsys below the asset root, "/static/" by default.
func WithStatic(fsys fs.FS, assetRoot string) Option {
	return func(s *Server) {
		s.static = fsys
		if trimmed := strings.Trim(strings.TrimSpace(assetRoot), "/"); trimmed != "" {
			s.assetRoot = trimmed
		}
	}
}

// WithReloader enables POST /-/reload.
func WithReloader(reloader Reloader) Option {
	return func(s *Server) {
		s.reloader = reloader
	}
}

// WithMetrics exposes handler at /metrics.
func WithMetrics(handler http.Handler) Option {
	return func(s *Server) {
		s.metrics = handler
	}
}

// WithLogger sets the request logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRequestTimeout bounds every request. Zero disables the limit.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		s.timeout = timeout
	}
}

// New constructs a server listening on addr.
func New(addr string, site Site, opts ...Option) *Server {
	s := &Server{
		addr:      addr,
		site:      site,
		assetRoot: generator.DefaultAssetRoot,
		logger:    logging.NoOp(),
		timeout:   30 * time.Second,
		router:    chi.NewRouter(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.logRequests)
	s.router.Use(middleware.Recoverer)
	if s.timeout > 0 {
		s.router.Use(middleware.Timeout(s.timeout))
	}

	s.router.Get("/health", s.handleHealth)
	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics)
	}
	if s.reloader != nil {
		s.router.Post("/-/reload", s.handleReload)
	}
	if s.static != nil {
		prefix := "/" + s.assetRoot
		s.router.Handle(prefix+"/*", http.StripPrefix(prefix, http.FileServer(http.FS(s.static))))
	}
	s.router.Get("/*", s.handlePage)
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens until the server is shut down.
func (s *Server) Start() error {
	s.logger.Info("server.start", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snapshots, err := s.site.LoadSnapshots(ctx, false)
	if err != nil {
		s.logger.Error("server.load.failed", "error", err)
		writeError(w, err)
		return
	}

	route, ok := generator.FindRoute(s.site.Routes(snapshots), r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	page, err := s.site.RenderRoute(ctx, snapshots, route)
	if err != nil {
		if posts.IsNotFound(err) {
			http.NotFound(w, r)
			return
		}
		logging.WithRoute(s.logger, route.Path).Error("server.render.failed", "error", err)
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(page.HTML))
}

type reloadResponse struct {
	Collections map[string]int `json:"collections"`
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	var names []string
	for _, value := range r.URL.Query()["collection"] {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			names = append(names, trimmed)
		}
	}

	resp := reloadResponse{Collections: map[string]int{}}
	err := s.reloader.Execute(r.Context(), publishcmd.ReloadPostsCommand{
		Collections: names,
		ResultCallback: func(snapshots map[string]*posts.Snapshot) {
			for name, snapshot := range snapshots {
				resp.Collections[name] = snapshot.Len()
			}
		},
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("server.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(started),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
