package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/MrEthical07/folioauth"
	"github.com/MrEthical07/folioauth/metrics/export/prometheus"
	"github.com/MrEthical07/folioauth/middleware"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host               string
	Port               int
	ShutdownTimeout    time.Duration
	CORSOrigins        []string
	MaxBodySize        int64 // bytes
	LoginRatePerMinute int   // per client IP, 0 disables

	// TrustProxyHeaders takes the client IP from X-Forwarded-For / X-Real-IP. Enable it only
	// behind a proxy that overwrites those headers; otherwise the socket address is used.
	TrustProxyHeaders bool
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               8080,
		ShutdownTimeout:    30 * time.Second,
		CORSOrigins:        []string{"http://localhost:3000"},
		MaxBodySize:        64 * 1024,
		LoginRatePerMinute: 20,
	}
}

// Pinger is satisfied by *sqlx.DB and *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Server exposes the auth engine over HTTP.
type Server struct {
	cfg          Config
	engine       *folioauth.Engine
	db           Pinger
	limitCounter httprate.LimitCounter
	router       chi.Router
	httpServer   *http.Server
	logger       *slog.Logger
}

// Option customizes a Server.
type Option func(*Server)

// WithLimitCounter shares the per-IP login budget through c instead of process memory.
func WithLimitCounter(c httprate.LimitCounter) Option {
	return func(s *Server) { s.limitCounter = c }
}

// New wires routes and middleware. db may be nil, in which case /readyz only reports the engine.
func New(cfg Config, engine *folioauth.Engine, db Pinger, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		cfg:    cfg,
		engine: engine,
		db:     db,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()
	cookies := s.engine.Config().Cookie

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	if s.cfg.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.ClientInfo)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- Probes ---
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	if s.engine.Config().Metrics.Enabled {
		r.Method(http.MethodGet, "/metrics", prometheus.NewPrometheusExporter(s.engine).Handler())
	}

	// --- Auth ---
	r.Get("/csrf", s.handleCSRF)
	r.Group(func(r chi.Router) {
		if s.cfg.LoginRatePerMinute > 0 {
			opts := []httprate.Option{httprate.WithKeyFuncs(httprate.KeyByIP)}
			if s.limitCounter != nil {
				opts = append(opts, httprate.WithLimitCounter(s.limitCounter))
			}
			r.Use(httprate.Limit(s.cfg.LoginRatePerMinute, time.Minute, opts...))
		}
		r.Post("/login", s.handleLogin)
	})
	r.Post("/refresh", s.handleRefresh)
	r.Post("/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Guard(s.engine, cookies.AccessName))
		r.Get("/me", s.handleMe)
	})

	s.router = r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz returns 503 when the datastore does not answer a ping.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	checks := map[string]string{}

	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			checks["database"] = "error: " + err.Error()
			status = "degraded"
		} else {
			checks["database"] = "ok"
		}
	}

	if status != "ok" {
		httpStatus = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": status,
		"checks": checks,
	})
}

// ListenAndServe starts the sweeper and the HTTP server and blocks until SIGINT or SIGTERM,
// then drains in-flight requests and closes the engine.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s.engine.StartSweeper(ctx)
	defer s.engine.Close()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
