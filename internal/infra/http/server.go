package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"identiscope/internal/config"
	"identiscope/internal/domain"
	"identiscope/internal/infra/edge"
	"identiscope/internal/infra/schema"
	"identiscope/internal/observability/logging"
	"identiscope/internal/usecase"

	"github.com/gin-gonic/gin"
)

type Server struct {
	cfg    config.Config
	r      *gin.Engine
	logger *slog.Logger

	analyze   *usecase.AnalyzeFingerprint
	deletions *usecase.DeletionIntake
	stats     *usecase.StatsReader

	gate    *schema.Gate
	edge    *edge.Provider
	metrics http.Handler
	ready   func(ctx context.Context) error

	rateLimiter         domain.RateLimiter
	rateLimitFailClosed bool
	rateLimitSalt       string
	limits              map[string]routeLimit

	srv *http.Server
}

type ServerDeps struct {
	Analyze     *usecase.AnalyzeFingerprint
	Deletions   *usecase.DeletionIntake
	Stats       *usecase.StatsReader
	RateLimiter domain.RateLimiter
	Edge        *edge.Provider
	Gate        *schema.Gate
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	// Ready backs /healthz; a nil func reports ok.
	Ready  func(ctx context.Context) error
	Logger *slog.Logger
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()

	s := &Server{
		cfg:                 cfg,
		r:                   r,
		logger:              logging.OrDefault(deps.Logger),
		analyze:             deps.Analyze,
		deletions:           deps.Deletions,
		stats:               deps.Stats,
		gate:                deps.Gate,
		edge:                deps.Edge,
		metrics:             deps.Metrics,
		ready:               deps.Ready,
		rateLimiter:         deps.RateLimiter,
		rateLimitFailClosed: cfg.RateLimitFailClosed,
		rateLimitSalt:       cfg.RateLimitSalt,
	}
	if s.gate == nil {
		s.gate = schema.NewGate(int64(cfg.MaxPayloadBytes))
	}
	if s.edge == nil {
		s.edge = edge.NewProvider(edge.Config{IPSalt: cfg.IPHashSalt, TrustHeaders: cfg.TrustEdgeHeaders})
	}
	s.initRateLimit()

	r.Use(s.recovery(), requestID(), s.observe())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.r.GET("/healthz", s.handleHealth)
	if s.metrics != nil {
		s.r.GET("/metrics", gin.WrapH(s.metrics))
	}

	s.r.POST("/analyze", s.limited(routeAnalyze), s.handleAnalyze)
	s.r.POST("/deletion", s.limited(routeDeletionSubmit), s.handleDeletionSubmit)
	s.r.GET("/deletion/:id", s.limited(routeDeletionStatus), s.handleDeletionStatus)
	s.r.GET("/stats", s.limited(routeStats), s.handleStats)

	s.r.NoRoute(func(c *gin.Context) {
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.r
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.cfg.HTTPAddr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout())
	defer cancel()
	s.logger.Info("http server shutting down")
	return s.srv.Shutdown(shutdownCtx)
}
