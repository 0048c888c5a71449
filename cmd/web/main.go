package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"driver-compare/internal/config"
	"driver-compare/internal/handlers"
	"driver-compare/internal/metrics"
	"driver-compare/internal/middleware"
	"driver-compare/internal/observability"
	"driver-compare/internal/server"
	"driver-compare/internal/services"
	"driver-compare/internal/workbook"
)

const (
	workbookLoadTimeout = 30 * time.Second
	janitorInterval     = time.Minute
)

// buildHandler wires the routes behind the middleware chain. Metrics must
// stay last so it sees the matched route pattern.
func buildHandler(cfg *config.Config, dashboard *services.Dashboard, recorder *metrics.Recorder, limiter *middleware.RateLimiter, logger *slog.Logger) http.Handler {
	srv := server.NewServer(dashboard, recorder, handlers.UploadOptions{
		MaxBytes:   cfg.Upload.MaxBytes,
		SessionTTL: cfg.Upload.SessionTTL,
	}, logger)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(limiter, logger),
		middleware.Metrics(recorder),
	)

	return middlewareChain(srv)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"addr", cfg.Address(),
		"max_upload_bytes", cfg.Upload.MaxBytes,
		"session_ttl", cfg.Upload.SessionTTL,
		"rate_limit", cfg.Security.RateLimitEnabled,
	)

	recorder := metrics.New()
	sessions := services.NewSessions(cfg.Upload.SessionTTL, logger)
	dashboard := services.NewDashboard(workbook.NewLoader(logger), sessions, recorder, logger)

	if path := cfg.Upload.DefaultWorkbook; path != "" {
		ctx, cancel := context.WithTimeout(context.Background(), workbookLoadTimeout)
		start := time.Now()
		err := dashboard.LoadDefault(ctx, path)
		cancel()
		if err != nil {
			logger.Error("failed to load default workbook", "path", path, "error", err)
			os.Exit(1)
		}
		logger.Info("default workbook loaded", "path", path, "duration", time.Since(start))
	}

	sessions.Start(janitorInterval)

	limiterCtx, stopLimiter := context.WithCancel(context.Background())
	rateLimiter := middleware.NewRateLimiter(cfg.Security)
	go rateLimiter.Run(limiterCtx, janitorInterval)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      buildHandler(cfg, dashboard, recorder, rateLimiter, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("stopping session janitor", "sessions", sessions.Len())
		sessions.Stop()
		return nil
	})
	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		stopLimiter()
		return nil
	})

	logger.Info("starting graceful server")
	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
