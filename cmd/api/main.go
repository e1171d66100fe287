package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/medforce/clinic-sim/cmd/mainconfig"
	"github.com/medforce/clinic-sim/internal/api/router"
	"github.com/medforce/clinic-sim/internal/blob"
	appconfig "github.com/medforce/clinic-sim/internal/config"
	"github.com/medforce/clinic-sim/internal/http/handlers"
	"github.com/medforce/clinic-sim/internal/intake"
	"github.com/medforce/clinic-sim/internal/llm"
	"github.com/medforce/clinic-sim/internal/observability/metrics"
	"github.com/medforce/clinic-sim/internal/patientsim"
	"github.com/medforce/clinic-sim/internal/rawdata"
	"github.com/medforce/clinic-sim/internal/webchat"
	"github.com/medforce/clinic-sim/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic-sim API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	s3Client := mainconfig.NewS3Client(awsCfg, cfg.AWSEndpointOverride)
	blobs := blob.NewStore(s3Client, cfg.BucketName, logger)

	gemini, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID, logger)
	if err != nil {
		logger.Error("failed to init gemini client", "error", err)
		os.Exit(1)
	}
	defer gemini.Close()

	var cache *redis.Client
	if cfg.RedisAddr != "" {
		cache = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := cache.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, history cache disabled", "addr", cfg.RedisAddr, "error", err)
			cache = nil
		}
	}

	registry := prometheus.NewRegistry()
	intakeMetrics := metrics.NewIntakeMetrics(registry)
	simMetrics := metrics.NewSimulationMetrics(registry)

	history := intake.NewHistoryStore(blobs, cache, nil, logger)
	orch := intake.NewOrchestrator(intake.OrchestratorConfig{
		History:         history,
		Generator:       gemini,
		ModelID:         cfg.GeminiModelID,
		Metrics:         intakeMetrics,
		Logger:          logger,
		GenerateTimeout: cfg.GenerateTimeout,
		StoreTimeout:    cfg.StoreTimeout,
	})

	manager := patientsim.NewManager(patientsim.ManagerConfig{
		Generator:   gemini,
		Blobs:       blobs,
		ModelID:     cfg.GeminiModelID,
		ImageModels: cfg.GeminiImageModels,
		Metrics:     simMetrics,
		Logger:      logger,
	})
	processor := rawdata.NewProcessor(gemini, blobs, cfg.GeminiModelID, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		ChatHandler:        intake.NewHandler(orch, logger),
		WebChatHandler:     webchat.NewHandler(orch, history, logger),
		PatientsHandler:    handlers.NewPatientsHandler(blobs, logger),
		GroundTruth:        handlers.NewGroundTruthHandler(manager, processor, 15*time.Minute, logger),
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSOrigins,
		ChatRatePerSecond:  2,
		ChatBurst:          5,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second, // chat turns wait on the model
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
