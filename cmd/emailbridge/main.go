package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/medforce/clinic-sim/cmd/mainconfig"
	"github.com/medforce/clinic-sim/internal/blob"
	appconfig "github.com/medforce/clinic-sim/internal/config"
	"github.com/medforce/clinic-sim/internal/emailbridge"
	"github.com/medforce/clinic-sim/internal/intake"
	"github.com/medforce/clinic-sim/internal/llm"
	"github.com/medforce/clinic-sim/internal/notify"
	"github.com/medforce/clinic-sim/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic-sim email bridge",
		"env", cfg.Env,
		"imap_host", cfg.IMAPHost,
		"provider", cfg.EmailProvider,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	history := intake.NewHistoryStore(blobs, cache, nil, logger)
	orch := intake.NewOrchestrator(intake.OrchestratorConfig{
		History:         history,
		Generator:       gemini,
		ModelID:         cfg.GeminiModelID,
		Logger:          logger,
		GenerateTimeout: cfg.GenerateTimeout,
		StoreTimeout:    cfg.StoreTimeout,
	})

	var sender notify.EmailSender
	switch cfg.EmailProvider {
	case "sendgrid":
		sg := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger)
		if sg == nil {
			logger.Error("sendgrid api key not configured")
			os.Exit(1)
		}
		sender = sg
	case "stub":
		sender = notify.NewStubEmailSender(logger)
	default:
		sender = notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger)
	}

	bridge := emailbridge.New(emailbridge.Config{
		Fetcher:  emailbridge.NewIMAPFetcher(cfg.IMAPHost, cfg.IMAPUser, cfg.IMAPPassword, logger),
		Chat:     orch,
		Sender:   sender,
		Subject:  cfg.BridgeSubject,
		Interval: cfg.BridgePollInterval,
		Logger:   logger,
	})

	if err := bridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("bridge stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("email bridge stopped")
}
