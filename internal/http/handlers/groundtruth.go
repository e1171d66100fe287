package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/medforce/clinic-sim/internal/patientsim"
	"github.com/medforce/clinic-sim/internal/rawdata"
	"github.com/medforce/clinic-sim/pkg/logging"
)

var patientIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Simulator is the ground-truth generation surface the handler drives.
type Simulator interface {
	GenerateGroundTruth(ctx context.Context, patientID string, params patientsim.Params) error
	GenerateChatTranscript(ctx context.Context, patientID string) error
}

// AttachmentProcessor runs OCR over a patient's uploaded documents.
type AttachmentProcessor interface {
	ProcessPatient(ctx context.Context, patientID string) ([]rawdata.ParsedDocument, error)
}

// GroundTruthHandler controls patient generation. Generation takes minutes
// of model calls, so it runs detached and the request returns 202.
type GroundTruthHandler struct {
	sim       Simulator
	processor AttachmentProcessor
	timeout   time.Duration
	logger    *logging.Logger

	mu       sync.Mutex
	inFlight map[string]bool
}

func NewGroundTruthHandler(sim Simulator, processor AttachmentProcessor, timeout time.Duration, logger *logging.Logger) *GroundTruthHandler {
	if timeout <= 0 {
		timeout = 15 * time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &GroundTruthHandler{
		sim:       sim,
		processor: processor,
		timeout:   timeout,
		logger:    logger,
		inFlight:  map[string]bool{},
	}
}

// HandleGenerate kicks off ground-truth generation for one patient. A second
// request for a patient whose run is still going gets 409.
func (h *GroundTruthHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	if !patientIDPattern.MatchString(patientID) {
		http.Error(w, "invalid patient id", http.StatusBadRequest)
		return
	}

	params := patientsim.Params{}
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil && err != io.EOF {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if !h.begin(patientID) {
		http.Error(w, "generation already running for patient", http.StatusConflict)
		return
	}

	go func() {
		defer h.end(patientID)
		ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
		defer cancel()
		if err := h.sim.GenerateGroundTruth(ctx, patientID, params); err != nil {
			h.logger.Error("ground truth generation failed", "patient_id", patientID, "error", err)
			return
		}
		h.logger.Info("ground truth generation finished", "patient_id", patientID)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"patient_id": patientID,
		"status":     "generating",
	})
}

// HandleTranscript synthesizes a full pre-consultation conversation for an
// already generated patient.
func (h *GroundTruthHandler) HandleTranscript(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	if !patientIDPattern.MatchString(patientID) {
		http.Error(w, "invalid patient id", http.StatusBadRequest)
		return
	}

	if err := h.sim.GenerateChatTranscript(r.Context(), patientID); err != nil {
		h.logger.Error("transcript generation failed", "patient_id", patientID, "error", err)
		http.Error(w, "failed to generate transcript", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"patient_id": patientID,
		"status":     "transcript_generated",
	})
}

// HandleProcessRawData OCRs the patient's uploaded attachments and returns
// the parsed documents.
func (h *GroundTruthHandler) HandleProcessRawData(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	if !patientIDPattern.MatchString(patientID) {
		http.Error(w, "invalid patient id", http.StatusBadRequest)
		return
	}

	parsed, err := h.processor.ProcessPatient(r.Context(), patientID)
	if err != nil {
		h.logger.Error("raw data processing failed", "patient_id", patientID, "error", err)
		http.Error(w, "failed to process attachments", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"patient_id": patientID,
		"documents":  parsed,
	})
}

func (h *GroundTruthHandler) begin(patientID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.inFlight[patientID] {
		return false
	}
	h.inFlight[patientID] = true
	return true
}

func (h *GroundTruthHandler) end(patientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.inFlight, patientID)
}
