package patientsim

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/medforce/clinic-sim/internal/intake"
	"github.com/medforce/clinic-sim/internal/llm"
	"github.com/medforce/clinic-sim/internal/prompts"
)

// Document is one entry in the raw_data.json inventory: a generated artifact
// a simulated patient can "upload" during intake.
type Document struct {
	Kind     string `json:"kind"`
	DateTime string `json:"date_time,omitempty"`
	TextKey  string `json:"text_key"`
	ImageKey string `json:"image_key,omitempty"`
}

// GenerateGroundTruth runs the full pipeline for one patient: profile, basic
// info, roleplay prompt, encounter history, labs, rendered documents with
// photo scans, the document inventory, and a seeded greeting conversation.
// Artifacts land under patient_data/{id}/ as they are produced, so a failed
// run leaves a usable partial record behind.
func (m *Manager) GenerateGroundTruth(ctx context.Context, patientID string, params Params) error {
	log := m.logger.With("patient_id", patientID)
	base := PatientPath(patientID)
	raw := RawDataPath(patientID)

	profile, err := m.GenerateProfile(ctx, params)
	if err != nil {
		return err
	}
	if err := m.blobs.Write(ctx, base+"/patient_profile.txt", []byte(profile), "text/plain"); err != nil {
		return fmt.Errorf("patientsim: store profile: %w", err)
	}
	log.Info("profile generated")

	info, err := m.ExtractBasicInfo(ctx, profile)
	if err != nil {
		return err
	}
	if err := m.writeJSON(ctx, base+"/basic_info.json", info); err != nil {
		return err
	}

	sysPrompt, err := m.GenerateSystemPrompt(ctx, profile)
	if err != nil {
		return err
	}
	if err := m.blobs.Write(ctx, base+"/system_prompt.txt", []byte(sysPrompt), "text/plain"); err != nil {
		return fmt.Errorf("patientsim: store system prompt: %w", err)
	}

	narrative, err := m.GenerateEncounterNarrative(ctx, profile, params)
	if err != nil {
		return err
	}
	if err := m.blobs.Write(ctx, base+"/encounter_narrative.txt", []byte(narrative), "text/plain"); err != nil {
		return fmt.Errorf("patientsim: store narrative: %w", err)
	}

	encounters, err := m.GenerateEncounters(ctx, profile, narrative)
	if err != nil {
		return err
	}
	if err := m.writeJSON(ctx, base+"/encounters.json", encounters); err != nil {
		return err
	}
	log.Info("encounters generated", "count", len(encounters))

	labs, err := m.GenerateLabs(ctx, profile, encounters)
	if err != nil {
		return err
	}
	if err := m.writeJSON(ctx, base+"/labs.json", labs); err != nil {
		return err
	}

	var inventory []Document

	for i, enc := range encounters {
		doc, err := m.renderEncounterArtifacts(ctx, raw, i, enc)
		if err != nil {
			return err
		}
		inventory = append(inventory, doc...)
	}

	patientName := encounterPatientName(encounters)
	if patientName == "" {
		patientName, _ = info["name"].(string)
	}
	for i, panel := range GroupLabsByDate(labs) {
		text, err := m.RenderLabDoc(ctx, patientName, panel)
		if err != nil {
			return err
		}
		doc, err := m.storeDocument(ctx, raw, "lab_report", i, panel.DateTime, text)
		if err != nil {
			return err
		}
		inventory = append(inventory, doc)
	}

	referral, err := m.GenerateReferralLetter(ctx, profile, narrative)
	if err != nil {
		return err
	}
	refDoc, err := m.storeNamedDocument(ctx, raw+"/referral_letter", "referral_letter", "", referral)
	if err != nil {
		return err
	}
	inventory = append(inventory, refDoc)

	if err := m.writeJSON(ctx, base+"/raw_data.json", inventory); err != nil {
		return err
	}

	if err := m.SeedGreeting(ctx, patientID); err != nil {
		return err
	}
	log.Info("ground truth complete", "documents", len(inventory))
	return nil
}

// renderEncounterArtifacts produces the clinic note for one encounter, plus a
// radiology report when the plan ordered imaging.
func (m *Manager) renderEncounterArtifacts(ctx context.Context, raw string, idx int, enc map[string]any) ([]Document, error) {
	dt := encounterDateTime(enc)

	note, err := m.RenderEncounterDoc(ctx, enc)
	if err != nil {
		return nil, err
	}
	doc, err := m.storeDocument(ctx, raw, "encounter_report", idx, dt, note)
	if err != nil {
		return nil, err
	}
	docs := []Document{doc}

	if len(encounterImaging(enc)) > 0 {
		report, err := m.RenderImagingReport(ctx, enc)
		if err != nil {
			return nil, err
		}
		imgDoc, err := m.storeDocument(ctx, raw, "imaging_report", idx, dt, report)
		if err != nil {
			return nil, err
		}
		docs = append(docs, imgDoc)
	}
	return docs, nil
}

// storeDocument writes a document's text and photo scan under a
// kind_index_date key pair.
func (m *Manager) storeDocument(ctx context.Context, raw, kind string, idx int, dateTime, text string) (Document, error) {
	stem := fmt.Sprintf("%s/%s_%d_%s", raw, kind, idx, fileDate(dateTime))
	return m.storeNamedDocument(ctx, stem, kind, dateTime, text)
}

func (m *Manager) storeNamedDocument(ctx context.Context, stem, kind, dateTime, text string) (Document, error) {
	textKey := stem + ".txt"
	if err := m.blobs.Write(ctx, textKey, []byte(text), "text/plain"); err != nil {
		return Document{}, fmt.Errorf("patientsim: store %s text: %w", kind, err)
	}
	doc := Document{Kind: kind, DateTime: dateTime, TextKey: textKey}

	img, err := m.RenderDocumentImage(ctx, kind, text)
	if err != nil {
		// The text artifact is the ground truth; a missing scan only
		// degrades realism.
		m.logger.Warn("document image skipped", "kind", kind, "error", err)
		return doc, nil
	}
	imageKey := stem + ".png"
	if err := m.blobs.Write(ctx, imageKey, img, "image/png"); err != nil {
		return Document{}, fmt.Errorf("patientsim: store %s image: %w", kind, err)
	}
	doc.ImageKey = imageKey
	return doc, nil
}

// SeedGreeting resets the patient's pre-consultation conversation to the
// single opening admin turn.
func (m *Manager) SeedGreeting(ctx context.Context, patientID string) error {
	history := intake.History{Conversation: []intake.Turn{{
		"sender":  intake.SenderAdmin,
		"message": intake.Greeting,
	}}}
	if err := m.writeJSON(ctx, intake.HistoryKey(patientID), history); err != nil {
		return err
	}
	return nil
}

// GenerateChatTranscript replaces the greeting seed with a full synthetic
// pre-consultation conversation grounded in the patient's record, for
// end-to-end evaluation runs.
func (m *Manager) GenerateChatTranscript(ctx context.Context, patientID string) error {
	base := PatientPath(patientID)
	profile, err := m.blobs.Read(ctx, base+"/patient_profile.txt")
	if err != nil {
		return fmt.Errorf("patientsim: read profile: %w", err)
	}
	inventory, err := m.blobs.Read(ctx, base+"/raw_data.json")
	if err != nil {
		return fmt.Errorf("patientsim: read inventory: %w", err)
	}

	prompt := fmt.Sprintf(
		"Patient profile:\n\n%s\n\nDocuments the patient can upload:\n%s\n\nThe conversation opens with the admin saying: %q\n\nGenerate the transcript.",
		profile, inventory, intake.Greeting)
	out, err := m.gen.Generate(ctx, llm.Request{
		Model:       m.modelID,
		System:      prompts.System(prompts.ChatTranscriptGenerator),
		Prompt:      prompt,
		Temperature: transcriptTemperature,
		Schema:      prompts.ChatTranscriptSchema(),
	})
	if err != nil {
		m.observe("transcript", err)
		return fmt.Errorf("patientsim: generate transcript: %w", err)
	}
	var history intake.History
	if err := json.Unmarshal([]byte(out), &history); err != nil {
		m.observe("transcript", err)
		return fmt.Errorf("patientsim: decode transcript: %w", err)
	}
	m.observe("transcript", nil)
	return m.writeJSON(ctx, intake.HistoryKey(patientID), history)
}

func (m *Manager) writeJSON(ctx context.Context, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("patientsim: marshal %s: %w", key, err)
	}
	if err := m.blobs.Write(ctx, key, data, "application/json"); err != nil {
		return fmt.Errorf("patientsim: store %s: %w", key, err)
	}
	return nil
}

// fileDate reduces an ISO timestamp to a key-safe date token.
func fileDate(dateTime string) string {
	if len(dateTime) >= 10 {
		dateTime = dateTime[:10]
	}
	if dateTime == "" {
		return "undated"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '-'
		}
	}, dateTime)
}
