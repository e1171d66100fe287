package intake

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"

	"github.com/medforce/clinic-sim/internal/blob"
	"github.com/medforce/clinic-sim/pkg/logging"
)

// patientIDPattern is the only hard failure at the chat boundary: a request
// whose history cannot be addressed at all.
var patientIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Handler exposes the chat boundary over the orchestrator.
type Handler struct {
	orch   *Orchestrator
	logger *logging.Logger
}

// NewHandler creates the chat HTTP handler.
func NewHandler(orch *Orchestrator, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{orch: orch, logger: logger}
}

// ChatRequest is the POST /chat payload.
type ChatRequest struct {
	PatientID          string         `json:"patient_id"`
	PatientMessage     string         `json:"patient_message"`
	PatientAttachments []string       `json:"patient_attachments"`
	PatientForm        map[string]any `json:"patient_form"`
}

// ChatResponse wraps the structured reply for the frontend.
type ChatResponse struct {
	PatientID string `json:"patient_id"`
	Status    string `json:"status"`
	Reply     Result `json:"reply"`
}

// HandleChat processes one patient message. The end user always receives
// some reply: orchestrator failures collapse to the fixed fallback text
// here, never to a 5xx.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !patientIDPattern.MatchString(req.PatientID) {
		http.Error(w, "invalid patient_id", http.StatusBadRequest)
		return
	}

	result, err := h.orch.HandleMessage(r.Context(), req.PatientID, Request{
		PatientMessage: req.PatientMessage,
		Attachments:    req.PatientAttachments,
		Form:           req.PatientForm,
	})
	status := "success"
	if err != nil {
		// Detail was already logged with its error class; the caller only
		// sees the apology.
		status = "fallback"
		result = FallbackResult()
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		PatientID: req.PatientID,
		Status:    status,
		Reply:     result,
	})
}

// HandleHistory returns the full conversation document for a patient.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	if !patientIDPattern.MatchString(patientID) {
		http.Error(w, "invalid patient id", http.StatusBadRequest)
		return
	}

	history, err := h.orch.History().Fetch(r.Context(), patientID)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			http.Error(w, "chat history not found", http.StatusNotFound)
			return
		}
		h.logger.Error("history fetch failed", "patient_id", patientID, "error", err)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// HandleReset overwrites the conversation with the fixed greeting turn.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	if !patientIDPattern.MatchString(patientID) {
		http.Error(w, "invalid patient id", http.StatusBadRequest)
		return
	}

	history, err := h.orch.Reset(r.Context(), patientID)
	if err != nil {
		h.logger.Error("reset failed", "patient_id", patientID, "error", err)
		http.Error(w, "failed to reset conversation", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
