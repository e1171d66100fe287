package rawdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medforce/clinic-sim/internal/llm"
	"github.com/medforce/clinic-sim/pkg/logging"
)

type fakeGen struct {
	mu    sync.Mutex
	reqs  []llm.Request
	out   string
	err   error
}

func (g *fakeGen) Generate(_ context.Context, req llm.Request) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reqs = append(g.reqs, req)
	return g.out, g.err
}

func (g *fakeGen) GenerateImage(context.Context, string, []string) ([]byte, error) {
	return nil, errors.New("not used")
}

type memBlobs struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemBlobs() *memBlobs { return &memBlobs{data: map[string][]byte{}} }

func (m *memBlobs) Read(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	if !ok {
		return nil, fmt.Errorf("memBlobs: %s not found", key)
	}
	return b, nil
}

func (m *memBlobs) Write(_ context.Context, key string, data []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = data
	return nil
}

func seedHistory(t *testing.T, blobs *memBlobs, patientID string, conversation string) {
	t.Helper()
	key := fmt.Sprintf("patient_data/%s/pre_consultation_chat.json", patientID)
	require.NoError(t, blobs.Write(context.Background(), key, []byte(conversation), "application/json"))
}

func TestProcessPatient(t *testing.T) {
	gen := &fakeGen{out: `{"document_type": "lab_report", "extracted_text": "ALT 88 U/L HIGH"}`}
	blobs := newMemBlobs()
	ctx := context.Background()

	seedHistory(t, blobs, "omar-1", `{"conversation": [
		{"sender": "admin", "message": "Hello"},
		{"sender": "patient", "message": "Here are my results", "attachments": ["lab_report_0_2025-06-01.png"]},
		{"sender": "admin", "message": "Thanks", "attachments": ["should_be_ignored.png"]}
	]}`)
	require.NoError(t, blobs.Write(ctx, "patient_data/omar-1/raw_data/lab_report_0_2025-06-01.png", []byte{0x89}, "image/png"))

	p := NewProcessor(gen, blobs, llm.DefaultModelID, logging.New("error"))
	parsed, err := p.ProcessPatient(ctx, "omar-1")
	require.NoError(t, err)

	require.Len(t, parsed, 1)
	assert.Equal(t, "lab_report", parsed[0].DocumentType)
	assert.Equal(t, "ALT 88 U/L HIGH", parsed[0].ExtractedText)
	assert.Equal(t, "patient_data/omar-1/raw_data/lab_report_0_2025-06-01.png", parsed[0].SourceKey)

	// Only the patient's attachment was sent for OCR.
	require.Len(t, gen.reqs, 1)
	assert.Equal(t, []byte{0x89}, gen.reqs[0].Image)
	assert.Equal(t, "image/png", gen.reqs[0].ImageMIME)
	assert.InDelta(t, 0.1, gen.reqs[0].Temperature, 1e-6)
	assert.NotNil(t, gen.reqs[0].Schema)

	var stored []ParsedDocument
	require.NoError(t, json.Unmarshal(blobs.data["patient_data/omar-1/parsed_raw_data.json"], &stored))
	assert.Equal(t, parsed, stored)
}

func TestProcessPatientSkipsUnreadableAttachment(t *testing.T) {
	gen := &fakeGen{out: `{"document_type": "other", "extracted_text": "x"}`}
	blobs := newMemBlobs()
	ctx := context.Background()

	seedHistory(t, blobs, "omar-1", `{"conversation": [
		{"sender": "patient", "message": "two files", "attachments": ["missing.png", "present.jpg"]}
	]}`)
	require.NoError(t, blobs.Write(ctx, "patient_data/omar-1/raw_data/present.jpg", []byte{1}, "image/jpeg"))

	p := NewProcessor(gen, blobs, llm.DefaultModelID, logging.New("error"))
	parsed, err := p.ProcessPatient(ctx, "omar-1")
	require.NoError(t, err)

	require.Len(t, parsed, 1)
	assert.Equal(t, "patient_data/omar-1/raw_data/present.jpg", parsed[0].SourceKey)
	require.Len(t, gen.reqs, 1)
	assert.Equal(t, "image/jpeg", gen.reqs[0].ImageMIME)
}

func TestProcessPatientNoConversation(t *testing.T) {
	p := NewProcessor(&fakeGen{}, newMemBlobs(), llm.DefaultModelID, logging.New("error"))
	_, err := p.ProcessPatient(context.Background(), "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read conversation")
}

func TestProcessPatientEmptyHistoryWritesEmptyResult(t *testing.T) {
	blobs := newMemBlobs()
	seedHistory(t, blobs, "omar-1", `{"conversation": []}`)

	p := NewProcessor(&fakeGen{}, blobs, llm.DefaultModelID, logging.New("error"))
	parsed, err := p.ProcessPatient(context.Background(), "omar-1")
	require.NoError(t, err)
	assert.Empty(t, parsed)
	assert.JSONEq(t, "[]", string(blobs.data["patient_data/omar-1/parsed_raw_data.json"]))
}

func TestParseReferral(t *testing.T) {
	gen := &fakeGen{out: `{"date": "2025-06-15", "specialty": "Hepatology", "provider": "Dr. K. Osei"}`}
	p := NewProcessor(gen, newMemBlobs(), llm.DefaultModelID, logging.New("error"))

	fields, err := p.ParseReferral(context.Background(), "Dear colleague...")
	require.NoError(t, err)
	assert.Equal(t, "Hepatology", fields["specialty"])
	require.Len(t, gen.reqs, 1)
	assert.InDelta(t, 0.1, gen.reqs[0].Temperature, 1e-6)
}
