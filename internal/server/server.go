package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/hyuon7877/onesquare-sub001/internal/api/handlers"
	"github.com/hyuon7877/onesquare-sub001/internal/api/middleware"
	"github.com/hyuon7877/onesquare-sub001/internal/config"
	"github.com/hyuon7877/onesquare-sub001/internal/metrics"
	"github.com/hyuon7877/onesquare-sub001/internal/security"
	"github.com/hyuon7877/onesquare-sub001/internal/store"
)

// Server wraps the HTTP engine and the admission pipeline components.
type Server struct {
	Engine   *gin.Engine
	Detector *security.Detector
	cfg      config.Config
	api      *gin.RouterGroup
}

// New wires up the router with the admission pipeline in its fixed
// order. The order is a contract: whitelist is checked first, deny/ban
// checks run before pattern and rate checks, so trusted clients never
// pay for (or get false positives from) deeper stages. db may be nil to
// disable audit persistence.
func New(db *gorm.DB, st store.Store, cfg config.Config) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)
	debug := cfg.Environment == "development"
	if debug {
		gin.SetMode(gin.DebugMode)
	}

	detector, err := security.NewDetector(st, cfg.Security)
	if err != nil {
		return nil, fmt.Errorf("build intrusion detector: %w", err)
	}
	validator := security.NewValidator(cfg.Security)
	limiter := security.NewRateLimiter(st, cfg.Security)
	auditor := security.NewAuditLogger(st, db, cfg.Security)

	registry := prometheus.NewRegistry()
	metrics.Register(registry)

	router := gin.New()

	// Ops endpoints are registered before the pipeline so health checks
	// and scrapes never consume rate-limit budget.
	router.GET("/api/v1/health", handlers.HealthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	router.Use(
		middleware.RequestID(),
		middleware.Recovery(debug),
		middleware.Identity(cfg.JWTSecret),
		middleware.Audit(auditor, detector, cfg.Security.LoginPaths),
		middleware.SecurityHeaders(middleware.SecurityHeadersConfig{IsDevelopment: debug}),
		middleware.IntrusionGate(detector),
		middleware.Validate(validator, cfg.Security.LogViolations),
		middleware.RateLimit(limiter),
	)

	srv := &Server{Engine: router, Detector: detector, cfg: cfg, api: router.Group("/api/v1")}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	return srv, nil
}

// Mount registers business module routes under /api/v1, behind the full
// pipeline.
func (s *Server) Mount(register func(*gin.RouterGroup)) {
	register(s.api)
}

// Run starts the HTTP server with proper shutdown semantics.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", s.cfg.HTTPPort),
		Handler: s.Engine,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
