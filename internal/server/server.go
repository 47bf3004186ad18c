// Package server implements the PearTree HTTP API.
//
// The API is session-based: a client opens a tree once (POST /api/sessions),
// then edits its view through the session's sub-resources. View edits
// (rooting, ordering, hiding, drill-in) are stored as session state and
// replayed onto the tree on every read; durable edits (rotation, painting)
// rewrite the session's source text so they survive independently of the
// view state.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/artic-network/peartree/pkg/cache"
	"github.com/artic-network/peartree/pkg/httputil"
	"github.com/artic-network/peartree/pkg/pipeline"
	"github.com/artic-network/peartree/pkg/session"
)

// Server is the PearTree HTTP API server.
type Server struct {
	cfg     Config
	runner  *pipeline.Runner
	store   session.Store
	fetcher *httputil.Fetcher
	logger  *log.Logger

	storeCloser func() error
}

// New builds a server from its configuration: cache backend, session store
// and pipeline runner. Close releases both backends.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.Default()
	}

	c, err := newCache(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}

	store, closer, err := newStore(ctx, cfg.Sessions)
	if err != nil {
		c.Close()
		return nil, err
	}

	return &Server{
		cfg:         cfg,
		runner:      pipeline.NewRunner(c, nil, logger),
		store:       store,
		fetcher:     httputil.NewFetcher(),
		logger:      logger,
		storeCloser: closer,
	}, nil
}

func newCache(ctx context.Context, cfg CacheConfig) (cache.Cache, error) {
	switch cfg.Backend {
	case BackendRedis:
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	case BackendNull:
		return cache.NewNullCache(), nil
	default:
		dir := cfg.Dir
		if dir == "" {
			base, err := os.UserCacheDir()
			if err != nil {
				return nil, fmt.Errorf("resolve cache dir: %w", err)
			}
			dir = filepath.Join(base, "peartree", "server")
		}
		return cache.NewFileCache(dir)
	}
}

func newStore(ctx context.Context, cfg SessionConfig) (session.Store, func() error, error) {
	switch cfg.Backend {
	case BackendMongo:
		store, err := session.NewMongoStore(ctx, session.MongoConfig{
			URI:        cfg.Mongo.URI,
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.Collection,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		store := session.NewMemoryStore()
		return store, store.Close, nil
	}
}

// Close releases the cache and session backends.
func (s *Server) Close() error {
	err := s.runner.Close()
	if s.storeCloser != nil {
		if cerr := s.storeCloser(); err == nil {
			err = cerr
		}
	}
	return err
}

// sessionTTL returns the configured session lifetime.
func (s *Server) sessionTTL() time.Duration {
	if s.cfg.Sessions.TTL <= 0 {
		return session.DefaultTTL
	}
	return time.Duration(s.cfg.Sessions.TTL)
}

// maxBodyBytes returns the request body limit.
func (s *Server) maxBodyBytes() int64 {
	if s.cfg.MaxTreeBytes <= 0 {
		return 64 << 20
	}
	return s.cfg.MaxTreeBytes
}

// Router builds the chi router with all API routes.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreateSession)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)

			r.Get("/layout", s.handleLayout)
			r.Get("/schema", s.handleSchema)
			r.Get("/artifact", s.handleArtifact)

			r.Post("/midpoint", s.handleMidpoint)
			r.Post("/reroot", s.handleReroot)
			r.Post("/order", s.handleOrder)
			r.Post("/rotate", s.handleRotate)
			r.Post("/hide", s.handleHide)
			r.Post("/show", s.handleShow)
			r.Post("/view", s.handleView)
			r.Post("/paint", s.handlePaint)
			r.Post("/clear-colours", s.handleClearColours)
		})
	})

	return r
}

// ListenAndServe runs the HTTP server until the context is cancelled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// instrument records request logs and prometheus metrics. The route pattern
// rather than the raw path labels the metrics, keeping cardinality bounded.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		elapsed := time.Since(start)

		httpRequestsTotal.WithLabelValues(r.Method, pattern, fmt.Sprint(ww.Status())).Inc()
		httpRequestDuration.WithLabelValues(r.Method, pattern).Observe(elapsed.Seconds())

		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", elapsed,
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
