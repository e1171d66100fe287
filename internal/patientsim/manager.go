// Package patientsim generates synthetic clinical patient journeys: a master
// profile, encounter history, labs, rendered documents, and photo-realistic
// document images, all persisted under patient_data/{id}/ in the blob store.
package patientsim

import (
	"context"
	"fmt"

	"github.com/medforce/clinic-sim/internal/llm"
	"github.com/medforce/clinic-sim/internal/observability/metrics"
	"github.com/medforce/clinic-sim/pkg/logging"
)

// Params are the generation criteria for one patient (age range, condition,
// severity, persona hints). Free-form: they are serialized into the prompt.
type Params map[string]any

// BlobStore is the subset of the blob store used by the Manager.
type BlobStore interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte, contentType string) error
}

// Manager drives ground-truth generation for one clinic simulation.
type Manager struct {
	gen         llm.Generator
	blobs       BlobStore
	modelID     string
	imageModels []string
	metrics     *metrics.SimulationMetrics
	logger      *logging.Logger
}

// ManagerConfig carries the Manager's collaborators.
type ManagerConfig struct {
	Generator   llm.Generator
	Blobs       BlobStore
	ModelID     string
	ImageModels []string
	Metrics     *metrics.SimulationMetrics
	Logger      *logging.Logger
}

// NewManager wires a Manager.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Generator == nil {
		panic("patientsim: generator cannot be nil")
	}
	if cfg.Blobs == nil {
		panic("patientsim: blob store cannot be nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Manager{
		gen:         cfg.Generator,
		blobs:       cfg.Blobs,
		modelID:     cfg.ModelID,
		imageModels: cfg.ImageModels,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
	}
}

// PatientPath returns the key prefix for one patient's artifacts.
func PatientPath(patientID string) string {
	return fmt.Sprintf("patient_data/%s", patientID)
}

// RawDataPath returns the key prefix for a patient's document artifacts.
func RawDataPath(patientID string) string {
	return fmt.Sprintf("patient_data/%s/raw_data", patientID)
}
