// Package handlers holds the record-facing HTTP handlers: patient listing,
// document retrieval, and ground-truth generation control.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/medforce/clinic-sim/internal/blob"
	"github.com/medforce/clinic-sim/pkg/logging"
)

const patientPrefix = "patient_data/"

// RecordStore is the blob access the record handlers need.
type RecordStore interface {
	Read(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// PatientsHandler serves the simulated patient roster and their stored
// documents.
type PatientsHandler struct {
	store  RecordStore
	logger *logging.Logger
}

func NewPatientsHandler(store RecordStore, logger *logging.Logger) *PatientsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &PatientsHandler{store: store, logger: logger}
}

// HandleList returns every patient id that has stored artifacts.
func (h *PatientsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	keys, err := h.store.List(r.Context(), patientPrefix)
	if err != nil {
		h.logger.Error("patient list failed", "error", err)
		http.Error(w, "failed to list patients", http.StatusInternalServerError)
		return
	}

	seen := map[string]bool{}
	ids := []string{}
	for _, key := range keys {
		rest := strings.TrimPrefix(key, patientPrefix)
		id, _, ok := strings.Cut(rest, "/")
		if !ok || id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Strings(ids)

	writeJSON(w, http.StatusOK, map[string]any{"patients": ids})
}

// HandleImage streams one stored document artifact, typically a photo scan a
// frontend renders inline in the chat.
func (h *PatientsHandler) HandleImage(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	file := chi.URLParam(r, "file")
	if patientID == "" || file == "" || strings.Contains(file, "..") || strings.Contains(file, "/") {
		http.Error(w, "invalid document path", http.StatusBadRequest)
		return
	}

	key := patientPrefix + patientID + "/raw_data/" + file
	data, err := h.store.Read(r.Context(), key)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			http.Error(w, "document not found", http.StatusNotFound)
			return
		}
		h.logger.Error("document read failed", "key", key, "error", err)
		http.Error(w, "failed to read document", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentTypeFor(file))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func contentTypeFor(file string) string {
	switch strings.ToLower(path.Ext(file)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".json":
		return "application/json"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
