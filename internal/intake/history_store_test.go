package intake

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medforce/clinic-sim/internal/blob"
	"github.com/medforce/clinic-sim/pkg/logging"
)

// memBlobs is an in-memory BlobStore.
type memBlobs struct {
	mu       sync.Mutex
	objects  map[string][]byte
	readErr  error
	writeErr error
	writes   int
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: make(map[string][]byte)}
}

func (m *memBlobs) Read(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", blob.ErrNotFound, key)
	}
	return data, nil
}

func (m *memBlobs) Write(_ context.Context, key string, data []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writes++
	m.objects[key] = data
	return nil
}

func newTestStore(t *testing.T, blobs BlobStore) *HistoryStore {
	t.Helper()
	return NewHistoryStore(blobs, nil, nil, logging.New("error"))
}

func TestLoadMissingReturnsEmptyHistory(t *testing.T) {
	store := newTestStore(t, newMemBlobs())

	h := store.Load(context.Background(), "PAT-001")

	assert.NotNil(t, h.Conversation)
	assert.Empty(t, h.Conversation)
}

func TestLoadUnparsableReturnsEmptyHistory(t *testing.T) {
	blobs := newMemBlobs()
	blobs.objects[HistoryKey("PAT-001")] = []byte("{not json")
	store := newTestStore(t, blobs)

	h := store.Load(context.Background(), "PAT-001")
	assert.Empty(t, h.Conversation)
}

func TestLoadTransientErrorRecoversToEmpty(t *testing.T) {
	blobs := newMemBlobs()
	blobs.readErr = errors.New("connection reset")
	store := newTestStore(t, blobs)

	h := store.Load(context.Background(), "PAT-001")
	assert.Empty(t, h.Conversation)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t, newMemBlobs())
	ctx := context.Background()

	original := History{Conversation: []Turn{
		{"sender": "admin", "message": Greeting},
		{"sender": "patient", "message": "I have stomach pain", "attachments": []any{"lab_report_0.png"}},
		{"sender": "admin", "message": "Noted.", "action_type": "TEXT_ONLY"},
	}}

	require.NoError(t, store.Save(ctx, "PAT-001", original))
	loaded := store.Load(ctx, "PAT-001")

	require.Len(t, loaded.Conversation, 3)
	assert.Equal(t, original.Conversation, loaded.Conversation)
}

func TestSaveWriteFailureIsErrStore(t *testing.T) {
	blobs := newMemBlobs()
	blobs.writeErr = errors.New("503 slow down")
	store := newTestStore(t, blobs)

	err := store.Save(context.Background(), "PAT-001", History{Conversation: []Turn{}})
	assert.ErrorIs(t, err, ErrStore)
}

func TestFetchMissingIsNotFound(t *testing.T) {
	store := newTestStore(t, newMemBlobs())

	_, err := store.Fetch(context.Background(), "PAT-404")
	assert.ErrorIs(t, err, blob.ErrNotFound)
}

func TestSaveRefreshesCacheAndLoadHitsIt(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	blobs := newMemBlobs()
	store := NewHistoryStore(blobs, cache, nil, logging.New("error"))
	ctx := context.Background()

	h := History{Conversation: []Turn{{"sender": "admin", "message": Greeting}}}
	require.NoError(t, store.Save(ctx, "PAT-001", h))
	require.True(t, mr.Exists("preconsult:PAT-001"))

	// Break the blob store: a cached load must still succeed.
	blobs.readErr = errors.New("blob store down")
	loaded := store.Load(ctx, "PAT-001")
	require.Len(t, loaded.Conversation, 1)
	assert.Equal(t, Greeting, loaded.Conversation[0]["message"])
}

func TestLoadFallsBackToBlobWhenCacheCold(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	blobs := newMemBlobs()
	noCache := NewHistoryStore(blobs, nil, nil, logging.New("error"))
	ctx := context.Background()

	require.NoError(t, noCache.Save(ctx, "PAT-002", History{Conversation: []Turn{
		{"sender": "admin", "message": Greeting},
	}}))

	cached := NewHistoryStore(blobs, cache, nil, logging.New("error"))
	loaded := cached.Load(ctx, "PAT-002")
	assert.Len(t, loaded.Conversation, 1)
}
