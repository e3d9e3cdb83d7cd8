// Package server serves the build tree during development.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/observability"
)

// Options configures a Server.
type Options struct {
	// Port 0 binds an ephemeral port.
	Port          int
	Root          string
	DefaultLocale string
	LiveReload    bool
	// Metrics, when set, is served at MetricsPath.
	Metrics     http.Handler
	MetricsPath string
	Logger      *slog.Logger
}

// Server serves the output tree with caching disabled. "/" redirects to the
// default locale and directory requests serve index.html.
type Server struct {
	opts   Options
	hub    *LiveReloadHub
	router *mux.Router
	srv    *http.Server
	ln     net.Listener
}

// New wires the routes.
func New(opts Options) *Server {
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Server{opts: opts}
	if opts.LiveReload {
		s.hub = NewLiveReloadHub()
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(loggingMiddleware(s.opts.Logger), recoveryMiddleware(s.opts.Logger))

	r.HandleFunc("/", s.redirectToDefault).Methods(http.MethodGet, http.MethodHead)
	if s.opts.Metrics != nil {
		r.Handle(s.opts.MetricsPath, s.opts.Metrics).Methods(http.MethodGet)
	}
	if s.hub != nil {
		r.Handle("/livereload", s.hub).Methods(http.MethodGet)
		r.HandleFunc("/livereload.js", serveLiveReloadScript).Methods(http.MethodGet)
	}

	var files http.Handler = http.FileServer(http.Dir(s.opts.Root))
	if s.hub != nil {
		files = injectLiveReloadScript(files)
	}
	r.PathPrefix("/").Handler(noCache(files))
	return r
}

func (s *Server) redirectToDefault(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/"+s.opts.DefaultLocale+"/", http.StatusFound)
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.router }

// Hub returns the live reload hub, or nil when live reload is off.
func (s *Server) Hub() *LiveReloadHub { return s.hub }

// NotifyRebuilt publishes a new build hash to live reload clients. The first
// call after startup gives browsers their baseline; later calls reload them.
func (s *Server) NotifyRebuilt() {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(strconv.FormatInt(time.Now().UnixNano(), 10))
}

// Start binds the port and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", fmt.Sprintf(":%d", s.opts.Port))
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRuntime, "failed to bind development server").
			Fatal().
			WithContext("port", s.opts.Port).
			Build()
	}
	s.ln = ln
	// no write timeout: live reload streams are long-lived
	s.srv = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       300 * time.Second,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			observability.ErrorContext(ctx, "development server stopped", logfields.Error(err))
		}
	}()
	observability.InfoContext(ctx, "development server listening",
		slog.String("url", fmt.Sprintf("http://localhost:%d/", s.Port())))
	return nil
}

// Port returns the bound port, or the configured one before Start.
func (s *Server) Port() int {
	if s.ln != nil {
		if addr, ok := s.ln.Addr().(*net.TCPAddr); ok {
			return addr.Port
		}
	}
	return s.opts.Port
}

// Stop closes live reload streams and shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.hub != nil {
		s.hub.Shutdown()
	}
	if s.srv == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("development server shutdown: %w", err)
	}
	return nil
}
