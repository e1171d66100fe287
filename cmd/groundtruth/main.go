// Command groundtruth generates one synthetic patient from the command line,
// without going through the API server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/medforce/clinic-sim/cmd/mainconfig"
	"github.com/medforce/clinic-sim/internal/blob"
	appconfig "github.com/medforce/clinic-sim/internal/config"
	"github.com/medforce/clinic-sim/internal/llm"
	"github.com/medforce/clinic-sim/internal/patientsim"
	"github.com/medforce/clinic-sim/pkg/logging"
)

func main() {
	var (
		patientID  = flag.String("patient", "", "patient id to generate (required)")
		paramsJSON = flag.String("params", "{}", "generation criteria as JSON")
		transcript = flag.Bool("transcript", false, "also generate a synthetic pre-consultation transcript")
		timeout    = flag.Duration("timeout", 20*time.Minute, "overall generation timeout")
	)
	flag.Parse()

	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	if *patientID == "" {
		logger.Error("missing -patient flag")
		os.Exit(2)
	}
	params := patientsim.Params{}
	if err := json.Unmarshal([]byte(*paramsJSON), &params); err != nil {
		logger.Error("invalid -params JSON", "error", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

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

	manager := patientsim.NewManager(patientsim.ManagerConfig{
		Generator:   gemini,
		Blobs:       blobs,
		ModelID:     cfg.GeminiModelID,
		ImageModels: cfg.GeminiImageModels,
		Logger:      logger,
	})

	logger.Info("generating ground truth", "patient_id", *patientID)
	if err := manager.GenerateGroundTruth(ctx, *patientID, params); err != nil {
		logger.Error("generation failed", "patient_id", *patientID, "error", err)
		os.Exit(1)
	}
	if *transcript {
		if err := manager.GenerateChatTranscript(ctx, *patientID); err != nil {
			logger.Error("transcript generation failed", "patient_id", *patientID, "error", err)
			os.Exit(1)
		}
	}
	logger.Info("generation complete", "patient_id", *patientID)
}
