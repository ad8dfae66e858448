package debugserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kiai-dev/kiai/pkg/middleware"
	"github.com/kiai-dev/kiai/pkg/session"
	"github.com/kiai-dev/kiai/pkg/spectator"
)

// DefaultShutdownTimeout bounds graceful shutdown.
const DefaultShutdownTimeout = 5 * time.Second

// SessionStatus is implemented by *session.Session.
type SessionStatus interface {
	Status() session.Status
}

// Options configures a Server.
type Options struct {
	// Session provides the session snapshot. Required.
	Session SessionStatus

	// Playback returns the latest playback snapshot, or nil when nothing
	// is being spectated. Optional.
	Playback func() *spectator.Status

	// Gatherer is scraped by /metrics. Default: prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	// Registerer receives the HTTP request metrics. Nil disables them.
	Registerer prometheus.Registerer

	Logger *slog.Logger
}

// Snapshot is the /status response body.
type Snapshot struct {
	Session  session.Status    `json:"session"`
	Playback *spectator.Status `json:"playback,omitempty"`
	Time     time.Time         `json:"time"`
}

// Server is the debug HTTP server.
type Server struct {
	opts   Options
	logger *slog.Logger
	router *chi.Mux
	http   *http.Server
}

// New creates a Server and builds its routes.
func New(opts Options) *Server {
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Server{
		opts:   opts,
		logger: opts.Logger.With("component", "debugserver"),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.OpenTelemetry(
		middleware.WithTracerName("github.com/kiai-dev/kiai/internal/debugserver"),
		middleware.WithRequestFilter(func(r *http.Request) bool { return r.URL.Path != "/healthz" }),
	))
	if s.opts.Registerer != nil {
		r.Use(middleware.Prometheus(middleware.WithRegistry(s.opts.Registerer)))
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	return r
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok\n"))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	snap := Snapshot{
		Session: s.opts.Session.Status(),
		Time:    time.Now().UTC(),
	}
	if s.opts.Playback != nil {
		snap.Playback = s.opts.Playback()
	}

	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		s.logger.Warn("status encode failed", "error", err)
	}
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.http = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("debug server listening", "address", ln.Addr().String())
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultShutdownTimeout)
	defer cancel()

	if s.http == nil {
		return nil
	}
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Error("shutdown error", "error", err)
		return err
	}
	s.logger.Info("debug server stopped")
	return nil
}
