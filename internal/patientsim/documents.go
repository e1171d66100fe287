package patientsim

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/medforce/clinic-sim/internal/llm"
	"github.com/medforce/clinic-sim/internal/prompts"
)

// RenderEncounterDoc turns one structured encounter into the plain-text
// clinic note a patient would photograph and upload.
func (m *Manager) RenderEncounterDoc(ctx context.Context, encounter map[string]any) (string, error) {
	encJSON, err := json.MarshalIndent(encounter, "", "  ")
	if err != nil {
		return "", fmt.Errorf("patientsim: marshal encounter: %w", err)
	}
	out, err := m.gen.Generate(ctx, llm.Request{
		Model:       m.modelID,
		System:      prompts.System(prompts.EncounterParser),
		Prompt:      fmt.Sprintf("Render this encounter as a printed clinic note:\n%s", encJSON),
		Temperature: encounterDocTemperature,
	})
	if err != nil {
		m.observe("encounter_doc", err)
		return "", fmt.Errorf("patientsim: render encounter doc: %w", err)
	}
	m.observe("encounter_doc", nil)
	return strings.TrimSpace(out), nil
}

// RenderLabDoc turns one lab panel into a printed laboratory report.
func (m *Manager) RenderLabDoc(ctx context.Context, patientName string, panel LabPanel) (string, error) {
	panelJSON, err := json.MarshalIndent(panel, "", "  ")
	if err != nil {
		return "", fmt.Errorf("patientsim: marshal panel: %w", err)
	}
	prompt := fmt.Sprintf("Patient: %s\n\nRender this panel as a printed laboratory report:\n%s", patientName, panelJSON)
	out, err := m.gen.Generate(ctx, llm.Request{
		Model:       m.modelID,
		System:      prompts.System(prompts.LabParser),
		Prompt:      prompt,
		Temperature: labDocTemperature,
	})
	if err != nil {
		m.observe("lab_doc", err)
		return "", fmt.Errorf("patientsim: render lab doc: %w", err)
	}
	m.observe("lab_doc", nil)
	return strings.TrimSpace(out), nil
}

// RenderImagingReport writes the radiology report for an encounter whose plan
// ordered imaging.
func (m *Manager) RenderImagingReport(ctx context.Context, encounter map[string]any) (string, error) {
	encJSON, err := json.MarshalIndent(encounter, "", "  ")
	if err != nil {
		return "", fmt.Errorf("patientsim: marshal encounter: %w", err)
	}
	studies := strings.Join(encounterImaging(encounter), ", ")
	prompt := fmt.Sprintf("Ordered studies: %s\n\nClinical context:\n%s\n\nWrite the radiology report.", studies, encJSON)
	out, err := m.gen.Generate(ctx, llm.Request{
		Model:       m.modelID,
		System:      prompts.System(prompts.ImagingReportGenerator),
		Prompt:      prompt,
		Temperature: imagingTemperature,
	})
	if err != nil {
		m.observe("imaging_report", err)
		return "", fmt.Errorf("patientsim: render imaging report: %w", err)
	}
	m.observe("imaging_report", nil)
	return strings.TrimSpace(out), nil
}

// GenerateReferralLetter writes the GP referral letter that brings the
// patient to the clinic, derived from the profile and the encounter
// narrative.
func (m *Manager) GenerateReferralLetter(ctx context.Context, profile, narrative string) (string, error) {
	prompt := fmt.Sprintf("Patient profile:\n\n%s\n\nClinical course:\n\n%s\n\nWrite the referral letter.", profile, narrative)
	out, err := m.gen.Generate(ctx, llm.Request{
		Model:       m.modelID,
		System:      prompts.System(prompts.ReferralGenerator),
		Prompt:      prompt,
		Temperature: referralTemperature,
	})
	if err != nil {
		m.observe("referral", err)
		return "", fmt.Errorf("patientsim: generate referral: %w", err)
	}
	m.observe("referral", nil)
	return strings.TrimSpace(out), nil
}

// RenderDocumentImage produces a photo-realistic scan of a text document,
// falling back through the configured image models.
func (m *Manager) RenderDocumentImage(ctx context.Context, kind, text string) ([]byte, error) {
	prompt := fmt.Sprintf(
		"A photo of a printed %s on a desk, taken with a phone camera. Slightly off-angle, natural lighting, fully legible. The document reads exactly:\n\n%s",
		strings.ReplaceAll(kind, "_", " "), text)
	img, err := m.gen.GenerateImage(ctx, prompt, m.imageModels)
	if err != nil {
		if m.metrics != nil {
			m.metrics.ObserveImage("error")
		}
		return nil, fmt.Errorf("patientsim: render %s image: %w", kind, err)
	}
	if m.metrics != nil {
		m.metrics.ObserveImage("ok")
	}
	return img, nil
}

// encounterDateTime digs the visit timestamp out of a structured encounter.
func encounterDateTime(encounter map[string]any) string {
	enc, _ := encounter["encounter"].(map[string]any)
	meta, _ := enc["meta"].(map[string]any)
	dt, _ := meta["date_time"].(string)
	return dt
}

// encounterImaging lists the imaging studies ordered in the encounter plan.
func encounterImaging(encounter map[string]any) []string {
	enc, _ := encounter["encounter"].(map[string]any)
	plan, _ := enc["plan"].(map[string]any)
	inv, _ := plan["investigations"].(map[string]any)
	raw, _ := inv["imaging"].([]any)
	studies := make([]string, 0, len(raw))
	for _, s := range raw {
		if str, ok := s.(string); ok && str != "" {
			studies = append(studies, str)
		}
	}
	return studies
}

// encounterPatientName returns the patient name recorded on the first
// encounter that carries one.
func encounterPatientName(encounters []map[string]any) string {
	for _, e := range encounters {
		patient, _ := e["patient"].(map[string]any)
		if name, ok := patient["name"].(string); ok && name != "" {
			return name
		}
	}
	return ""
}
