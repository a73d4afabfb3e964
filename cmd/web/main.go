package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"royalty-dashboard/internal/config"
	"royalty-dashboard/internal/middleware"
	"royalty-dashboard/internal/observability"
	"royalty-dashboard/internal/server"
	"royalty-dashboard/internal/services"
)

const version = "1.0.0"

// newHandler wraps the routes in the middleware stack. The metrics
// middleware lives inside the server, next to the mux.
func newHandler(cfg *config.Config, analytics *services.Analytics, metrics *observability.Metrics, logger *slog.Logger) http.Handler {
	srv := server.NewServer(analytics, metrics, logger)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Tracing(),
		middleware.Logger(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
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
		"version", version,
		"addr", cfg.Address(),
		"source", cfg.Source.File,
		"trace_exporter", cfg.Telemetry.TraceExporter,
	)

	shutdownTracing, err := observability.InitTracing(cfg.Telemetry, logger)
	if err != nil {
		logger.Error("failed to initialise tracing", "error", err)
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	analytics := services.NewAnalytics(services.NewLoader(cfg.Source.Workers, logger), logger)
	analytics.SetObserver(metrics)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Source.LoadTimeout)
	start := time.Now()
	err = analytics.LoadFromFile(ctx, cfg.Source.File)
	cancel()
	if err != nil {
		logger.Error("failed to load royalty data", "path", cfg.Source.File, "error", err)
		os.Exit(1)
	}
	logger.Info("royalty data loaded", "duration", time.Since(start))

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      newHandler(cfg, analytics, metrics, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)
	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("flushing traces")
		return shutdownTracing(ctx)
	})

	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
