package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/govsense/cmd/mainconfig"
	"github.com/wolfman30/govsense/internal/api/router"
	"github.com/wolfman30/govsense/internal/app/bootstrap"
	"github.com/wolfman30/govsense/internal/classifier"
	appconfig "github.com/wolfman30/govsense/internal/config"
	"github.com/wolfman30/govsense/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/govsense/internal/http/middleware"
	"github.com/wolfman30/govsense/internal/observability/metrics"
	"github.com/wolfman30/govsense/internal/webchat"
	"github.com/wolfman30/govsense/pkg/logging"
)

// appMetrics groups the collectors registered on the /metrics registry.
type appMetrics struct {
	client  *metrics.ClientMetrics
	session *metrics.SessionMetrics
	service *metrics.ServiceMetrics
}

func main() {
	// Load .env file when present
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting GovSense API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	metricsHandler, m := setupMetrics()

	classifyHandler, closeModel, err := setupClassifier(ctx, cfg, awsCfg, m, logger)
	if err != nil {
		logger.Error("failed to configure classification backend", "error", err)
		os.Exit(1)
	}
	defer closeModel()

	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer limiter.Stop()

	chatClient := bootstrap.BuildClassifyClient(cfg, m.client, logger)
	chat := webchat.NewHandler(chatClient, logger,
		webchat.WithExporter(bootstrap.BuildExporter(cfg, awsCfg, logger)),
		webchat.WithMetrics(m.session),
	)

	// Setup router
	r := router.New(&router.Config{
		Logger:             logger,
		ClassifyHandler:    classifyHandler,
		WebChat:            chat,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        limiter,
	})

	// Create HTTP server. Web chat connections are long-lived, so there is no
	// server-wide read/write timeout; classification calls carry their own.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "api_url", cfg.APIURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupMetrics registers every collector on a dedicated registry and returns
// its /metrics handler.
func setupMetrics() (http.Handler, *appMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := &appMetrics{
		client:  metrics.NewClientMetrics(reg),
		session: metrics.NewSessionMetrics(reg),
		service: metrics.NewServiceMetrics(reg),
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), m
}

// setupClassifier builds the classification endpoints. Without a configured
// model the process still serves web chat against API_URL, so a nil handler
// and no error are returned.
func setupClassifier(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, m *appMetrics, logger *logging.Logger) (*handlers.ClassifyHandler, func() error, error) {
	model, closeModel, err := bootstrap.BuildModel(ctx, cfg, awsCfg, logger)
	if errors.Is(err, bootstrap.ErrNoModel) {
		logger.Warn("classification endpoints disabled", "reason", err.Error())
		return nil, closeModel, nil
	}
	if err != nil {
		return nil, closeModel, err
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	svc := classifier.NewService(model,
		classifier.WithCache(bootstrap.BuildResultCache(redisClient, cfg)),
		classifier.WithMetrics(m.service),
		classifier.WithLogger(logger),
	)
	closeAll := func() error {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return closeModel()
	}
	return handlers.NewClassifyHandler(svc, logger), closeAll, nil
}
