package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Server defaults.
const (
	DefaultAddr              = ":8000"
	DefaultShutdownTimeout   = 15 * time.Second
	DefaultReadHeaderTimeout = 10 * time.Second
)

// RequestObserver records per-route request outcomes.
type RequestObserver interface {
	ObserveRequest(route string, code int, d time.Duration)
}

// Config configures the HTTP server.
type Config struct {
	// Addr is the listen address.
	Addr string

	// BearerToken is required on /hackrx/run. Empty disables authentication.
	BearerToken string

	// FailurePolicy controls whether responses carry an errors array.
	FailurePolicy domain.FailurePolicy

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
}

// Option configures optional server features.
type Option func(*Server)

// WithMetrics records request metrics and serves handler at /metrics.
func WithMetrics(observer RequestObserver, handler http.Handler) Option {
	return func(s *Server) {
		s.observer = observer
		s.metricsHandler = handler
	}
}

// Server serves the answer pipeline over HTTP.
type Server struct {
	cfg            Config
	answer         driving.AnswerService
	observer       RequestObserver
	metricsHandler http.Handler
	engine         *gin.Engine
}

// NewServer creates a server around an answer service.
func NewServer(answer driving.AnswerService, cfg Config, opts ...Option) (*Server, error) {
	if answer == nil {
		return nil, errors.New("api: answer service is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if !cfg.FailurePolicy.IsValid() {
		cfg.FailurePolicy = domain.FailFast
	}

	s := &Server{cfg: cfg, answer: answer}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = s.buildEngine()
	return s, nil
}

func (s *Server) buildEngine() *gin.Engine {
	if !logger.IsVerbose() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware())
	if s.observer != nil {
		r.Use(MetricsMiddleware(s.observer))
	}

	r.GET("/healthz", handleHealth)
	if s.metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(s.metricsHandler))
	}

	r.POST("/hackrx/run", BearerAuth(s.cfg.BearerToken), s.handleRun)
	return r
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.cfg.Addr
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening on %s", s.cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
