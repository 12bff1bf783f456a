// Package api serves the filter join and exam synchronization endpoints over
// HTTP with JSON bodies.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"
	metricsprom "github.com/slok/go-http-metrics/metrics/prometheus"
	"github.com/slok/go-http-metrics/middleware"
	"github.com/slok/go-http-metrics/middleware/std"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/bloomgate/go-bloomgate/bloomjoin"
	"github.com/bloomgate/go-bloomgate/config"
	"github.com/bloomgate/go-bloomgate/metrics"
	"github.com/bloomgate/go-bloomgate/sitesync"
)

var defaultRecorder = sync.OnceValue(func() middleware.Config {
	return middleware.Config{
		Recorder: metricsprom.NewRecorder(metricsprom.Config{
			Prefix:   metrics.Namespace,
			Registry: prometheus.DefaultRegisterer,
		}),
	}
})

// Opt configures a Server.
type Opt func(*Server)

// WithLogger specifies the logger for the Server.
func WithLogger(logger *zap.Logger) Opt {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetricsRegistry records HTTP metrics in reg instead of the default
// prometheus registry.
func WithMetricsRegistry(reg prometheus.Registerer) Opt {
	return func(s *Server) {
		s.mdlw = middleware.Config{
			Recorder: metricsprom.NewRecorder(metricsprom.Config{
				Prefix:   metrics.Namespace,
				Registry: reg,
			}),
		}
	}
}

// Server is the HTTP surface of a master site.
type Server struct {
	logger     *zap.Logger
	cfg        config.APIConfig
	reconciler *bloomjoin.Reconciler[bloomjoin.Document]
	store      *bloomjoin.FilterStore
	syncer     *sitesync.Syncer
	mdlw       middleware.Config
	limiter    *rate.Limiter

	srv *http.Server
}

// New creates a Server. Filters created through the API are published in
// store under the requesting site id.
func New(
	cfg config.APIConfig,
	reconciler *bloomjoin.Reconciler[bloomjoin.Document],
	store *bloomjoin.FilterStore,
	syncer *sitesync.Syncer,
	opts ...Opt,
) *Server {
	s := &Server{
		logger:     zap.NewNop(),
		cfg:        cfg,
		reconciler: reconciler,
		store:      store,
		syncer:     syncer,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.mdlw.Recorder == nil {
		s.mdlw = defaultRecorder()
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	s.srv = &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	return s
}

// Handler returns the fully wrapped HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mdlw := middleware.New(s.mdlw)
	route := func(pattern, id string, h http.HandlerFunc) {
		mux.Handle(pattern, std.Handler(id, mdlw, h))
	}
	route("POST /bloom-filter/create-filter", "create-filter", s.createFilter)
	route("POST /bloom-filter/filter-records", "filter-records", s.filterRecords)
	route("POST /bloom-filter/bloom-join", "bloom-join", s.bloomJoin)
	route("GET /bloom-filter/filters/{siteId}", "get-filter", s.getFilter)
	route("POST /exams/distribute", "distribute", s.distribute)
	route("POST /exams/modify", "modify", s.modify)
	route("POST /exams/{id}/sync", "sync", s.sync)
	route("POST /exams/{id}/sync/ack", "sync-ack", s.ack)

	var h http.Handler = mux
	if s.cfg.RequestTimeout > 0 {
		h = http.TimeoutHandler(h, s.cfg.RequestTimeout, `{"statusCode":503,"message":"request timed out"}`)
	}
	h = s.limit(h)
	if len(s.cfg.CORSOrigins) > 0 {
		h = cors.New(cors.Options{
			AllowedOrigins: s.cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"Content-Type", "Accept"},
		}).Handler(h)
	}
	return h
}

func (s *Server) limit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Run serves requests until ctx is canceled, then shuts the server down.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.srv.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("server starts serving", zap.Stringer("addr", ln.Addr()))
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.Serve(ln)
	}()
	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
