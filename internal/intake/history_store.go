package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/medforce/clinic-sim/internal/blob"
	"github.com/medforce/clinic-sim/pkg/logging"
)

const cacheTTL = 24 * time.Hour

// HistoryKey is the deterministic blob key for one patient's conversation.
func HistoryKey(patientID string) string {
	return fmt.Sprintf("patient_data/%s/pre_consultation_chat.json", patientID)
}

// BlobStore is the subset of the blob store used by HistoryStore.
type BlobStore interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte, contentType string) error
}

// HistoryStore reads and writes the per-patient conversation document. The
// blob store is the durable owner; the optional Redis cache only shortens
// the read path and is never authoritative.
type HistoryStore struct {
	blobs  BlobStore
	cache  *redis.Client
	tracer trace.Tracer
	logger *logging.Logger
}

// NewHistoryStore creates a HistoryStore. cache may be nil.
func NewHistoryStore(blobs BlobStore, cache *redis.Client, tracer trace.Tracer, logger *logging.Logger) *HistoryStore {
	if blobs == nil {
		panic("intake: blob store cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("medforce.internal.intake.history")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &HistoryStore{blobs: blobs, cache: cache, tracer: tracer, logger: logger}
}

// Load returns the patient's conversation history. It fails soft: a missing
// or unparsable document yields an empty history so a first-time patient can
// start a conversation without a provisioning step. Transient read errors
// are logged and likewise recovered to empty.
func (s *HistoryStore) Load(ctx context.Context, patientID string) History {
	ctx, span := s.tracer.Start(ctx, "intake.load_history")
	defer span.End()

	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey(patientID)).Bytes(); err == nil {
			var h History
			if err := json.Unmarshal(data, &h); err == nil {
				return withConversation(h)
			}
		}
	}

	data, err := s.blobs.Read(ctx, HistoryKey(patientID))
	if err != nil {
		if !errors.Is(err, blob.ErrNotFound) {
			span.RecordError(err)
			s.logger.Warn("history read failed, starting empty", "patient_id", patientID, "error", err)
		}
		return History{Conversation: []Turn{}}
	}

	var h History
	if err := json.Unmarshal(data, &h); err != nil {
		span.RecordError(err)
		s.logger.Warn("history document unparsable, starting empty", "patient_id", patientID, "error", err)
		return History{Conversation: []Turn{}}
	}
	return withConversation(h)
}

// Fetch is the strict read used by the history endpoint: a missing document
// is an error, not an empty default.
func (s *HistoryStore) Fetch(ctx context.Context, patientID string) (History, error) {
	ctx, span := s.tracer.Start(ctx, "intake.fetch_history")
	defer span.End()

	data, err := s.blobs.Read(ctx, HistoryKey(patientID))
	if err != nil {
		span.RecordError(err)
		return History{}, err
	}
	var h History
	if err := json.Unmarshal(data, &h); err != nil {
		span.RecordError(err)
		return History{}, fmt.Errorf("intake: decode history for %s: %w", patientID, err)
	}
	return withConversation(h), nil
}

// Save rewrites the full conversation document. Unconditional overwrite,
// last writer wins: there is no optimistic concurrency token, so two
// concurrent writers for the same patient can lose a turn.
func (s *HistoryStore) Save(ctx context.Context, patientID string, h History) error {
	ctx, span := s.tracer.Start(ctx, "intake.save_history")
	defer span.End()

	data, err := json.MarshalIndent(h, "", "    ")
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("intake: marshal history: %w", err)
	}
	if err := s.blobs.Write(ctx, HistoryKey(patientID), data, "application/json"); err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: %v", ErrStore, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey(patientID), data, cacheTTL).Err(); err != nil {
			s.logger.Warn("history cache refresh failed", "patient_id", patientID, "error", err)
		}
	}
	return nil
}

func cacheKey(patientID string) string {
	return fmt.Sprintf("preconsult:%s", patientID)
}

func withConversation(h History) History {
	if h.Conversation == nil {
		h.Conversation = []Turn{}
	}
	return h
}
