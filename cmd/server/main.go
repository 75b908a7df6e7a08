package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tourism-analytics/internal/config"
	"tourism-analytics/internal/handlers"
	"tourism-analytics/internal/middleware"
	"tourism-analytics/internal/repositories"
	"tourism-analytics/internal/services"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}

	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func run(ctx context.Context, cfg *config.Config) error {
	metrics := services.NewPrometheusMetrics(prometheus.DefaultRegisterer)

	source, err := repositories.NewMetricSourceRepository(repositories.MetricSourceConfig{
		BaseURL: cfg.Upstream.BaseURL,
		APIKey:  cfg.Upstream.APIKey,
		Timeout: cfg.Upstream.Timeout,
	}, nil)
	if err != nil {
		return err
	}

	breaker := services.NewCircuitBreaker(services.CircuitBreakerConfig{
		MaxFailures:     cfg.CircuitBreaker.MaxFailures,
		ResetTimeout:    cfg.CircuitBreaker.ResetTimeout,
		HalfOpenMaxSucc: cfg.CircuitBreaker.HalfOpenRequests,
	})
	audit := services.NewAuditLogger(slog.Default().With("component", "analytics_audit"))
	guarded := services.NewGuardedMetricSource(source, breaker, metrics, audit)

	seed := cfg.Fallback.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	synthesizer := services.NewFallbackSynthesizer(services.SeededRandomSource(seed))

	analyticsService := services.NewAnalyticsService(guarded, breaker, synthesizer, metrics, services.AnalyticsServiceConfig{
		CoalesceRequests: cfg.Analytics.CoalesceRequests,
		SessionTTL:       cfg.Analytics.SessionTTL,
	}, services.WithAuditLogger(audit))
	if sweeper, ok := analyticsService.(services.SessionSweeper); ok {
		go sweeper.StartSessionSweeper(ctx)
	}

	tokenService := services.NewTokenService(&cfg.JWT)

	rateLimiter := middleware.NewRateLimiter(cfg.Security.RateLimitPerSecond, cfg.Security.RateLimitBurst)
	go rateLimiter.StartCleanup(ctx)

	e := newServer(cfg, analyticsService, tokenService, rateLimiter)

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("analytics server starting",
			"addr", server.Addr,
			"environment", cfg.Server.Environment,
			"upstream", cfg.Upstream.BaseURL,
			"fallback_seed", seed)
		if err := e.StartServer(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down analytics server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func newServer(
	cfg *config.Config,
	analyticsService services.AnalyticsServiceInterface,
	tokenService services.TokenServiceInterface,
	rateLimiter *middleware.RateLimiter,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewValidator()
	e.HTTPErrorHandler = middleware.CustomHTTPErrorHandler

	e.Use(middleware.RequestID())
	e.Use(middleware.PanicRecovery())
	e.Use(middleware.SecurityHeaders())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.Server.CORSAllowOrigins,
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, handlers.ViewerIDHeader, middleware.TraceIDHeader},
	}))

	healthHandler := handlers.NewHealthCheckHandler(analyticsService)
	e.GET("/health", healthHandler.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1", rateLimiter.Middleware())

	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)
	analytics := api.Group("/analytics", middleware.OptionalAuth(tokenService))
	analytics.GET("/:dashboard", analyticsHandler.GetDashboard)
	analytics.POST("/:dashboard/refresh", analyticsHandler.RefreshDashboard)

	if cfg.IsDevelopment() {
		devHandler := handlers.NewDevHandler(tokenService)
		api.POST("/dev/token", devHandler.IssueToken)
	}

	return e
}
