// Package rawdata extracts structured content from the document photos a
// patient uploads during the pre-consultation chat.
package rawdata

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/medforce/clinic-sim/internal/intake"
	"github.com/medforce/clinic-sim/internal/llm"
	"github.com/medforce/clinic-sim/internal/prompts"
	"github.com/medforce/clinic-sim/pkg/logging"
)

// Vision extraction runs cold: the task is transcription, not invention.
const (
	ocrTemperature      = 0.1
	referralTemperature = 0.1
)

// ParsedDocument is one OCR result tied back to its source attachment.
type ParsedDocument struct {
	SourceKey     string `json:"source_key"`
	DocumentType  string `json:"document_type"`
	ExtractedText string `json:"extracted_text"`
}

// BlobStore is the subset of the blob store the Processor uses.
type BlobStore interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte, contentType string) error
}

// Processor runs vision OCR over uploaded attachments.
type Processor struct {
	gen     llm.Generator
	blobs   BlobStore
	modelID string
	logger  *logging.Logger
}

// NewProcessor wires a Processor.
func NewProcessor(gen llm.Generator, blobs BlobStore, modelID string, logger *logging.Logger) *Processor {
	if gen == nil {
		panic("rawdata: generator cannot be nil")
	}
	if blobs == nil {
		panic("rawdata: blob store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Processor{gen: gen, blobs: blobs, modelID: modelID, logger: logger}
}

// ParseImage classifies a document photo and transcribes its text.
func (p *Processor) ParseImage(ctx context.Context, image []byte, mime string) (ParsedDocument, error) {
	out, err := p.gen.Generate(ctx, llm.Request{
		Model:       p.modelID,
		System:      prompts.System(prompts.ImageParser),
		Prompt:      "Classify this document and transcribe its full text.",
		Temperature: ocrTemperature,
		Schema:      prompts.ImageParserSchema(),
		Image:       image,
		ImageMIME:   mime,
	})
	if err != nil {
		return ParsedDocument{}, fmt.Errorf("rawdata: parse image: %w", err)
	}
	var doc ParsedDocument
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		return ParsedDocument{}, fmt.Errorf("rawdata: decode parse result: %w", err)
	}
	return doc, nil
}

// ParseReferral extracts the referral-board fields from a transcribed
// referral letter.
func (p *Processor) ParseReferral(ctx context.Context, text string) (map[string]any, error) {
	out, err := p.gen.Generate(ctx, llm.Request{
		Model:       p.modelID,
		System:      prompts.System(prompts.ReferralParser),
		Prompt:      fmt.Sprintf("Extract the referral fields from this letter:\n\n%s", text),
		Temperature: referralTemperature,
		Schema:      prompts.ReferralParserSchema(),
	})
	if err != nil {
		return nil, fmt.Errorf("rawdata: parse referral: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(out), &fields); err != nil {
		return nil, fmt.Errorf("rawdata: decode referral fields: %w", err)
	}
	return fields, nil
}

// ProcessPatient reads the patient's conversation, OCRs every attachment the
// patient uploaded, and writes the combined result to parsed_raw_data.json.
// Unreadable attachments are logged and skipped so one bad upload does not
// block the rest of the record.
func (p *Processor) ProcessPatient(ctx context.Context, patientID string) ([]ParsedDocument, error) {
	raw, err := p.blobs.Read(ctx, intake.HistoryKey(patientID))
	if err != nil {
		return nil, fmt.Errorf("rawdata: read conversation: %w", err)
	}
	var history intake.History
	if err := json.Unmarshal(raw, &history); err != nil {
		return nil, fmt.Errorf("rawdata: decode conversation: %w", err)
	}

	parsed := []ParsedDocument{}
	for _, key := range patientAttachments(history, patientID) {
		image, err := p.blobs.Read(ctx, key)
		if err != nil {
			p.logger.Warn("attachment unreadable", "patient_id", patientID, "key", key, "error", err)
			continue
		}
		doc, err := p.ParseImage(ctx, image, mimeForKey(key))
		if err != nil {
			p.logger.Warn("attachment parse failed", "patient_id", patientID, "key", key, "error", err)
			continue
		}
		doc.SourceKey = key
		parsed = append(parsed, doc)
	}

	data, err := json.MarshalIndent(parsed, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("rawdata: marshal parsed documents: %w", err)
	}
	outKey := fmt.Sprintf("patient_data/%s/parsed_raw_data.json", patientID)
	if err := p.blobs.Write(ctx, outKey, data, "application/json"); err != nil {
		return nil, fmt.Errorf("rawdata: store parsed documents: %w", err)
	}
	p.logger.Info("attachments processed", "patient_id", patientID, "parsed", len(parsed))
	return parsed, nil
}

// patientAttachments collects attachment keys from patient turns, in
// conversation order, de-duplicated. Bare filenames resolve under the
// patient's raw_data prefix.
func patientAttachments(history intake.History, patientID string) []string {
	seen := map[string]bool{}
	var keys []string
	for _, turn := range history.Conversation {
		if sender, _ := turn["sender"].(string); sender != intake.SenderPatient {
			continue
		}
		atts, _ := turn["attachments"].([]any)
		for _, a := range atts {
			name, ok := a.(string)
			if !ok || name == "" {
				continue
			}
			key := name
			if !strings.HasPrefix(key, "patient_data/") {
				key = fmt.Sprintf("patient_data/%s/raw_data/%s", patientID, name)
			}
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
	}
	return keys
}

func mimeForKey(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	default:
		return "image/png"
	}
}
