package patientsim

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/medforce/clinic-sim/internal/llm"
	"github.com/medforce/clinic-sim/internal/prompts"
)

// Generation temperatures. Structured extractions run cold, narrative prose
// runs warmer.
const (
	profileTemperature      = 0.7
	basicInfoTemperature    = 0.3
	systemPromptTemperature = 0.5
	narrativeTemperature    = 0.5
	encountersTemperature   = 0.4
	labsTemperature         = 0.3
	referralTemperature     = 0.4
	imagingTemperature      = 0.4
	labDocTemperature       = 0.1
	encounterDocTemperature = 0.3
	transcriptTemperature   = 0.6
)

// GenerateProfile produces the free-text master profile that every downstream
// artifact is derived from.
func (m *Manager) GenerateProfile(ctx context.Context, params Params) (string, error) {
	criteria, err := json.MarshalIndent(params, "", "  ")
	if err != nil {
		return "", fmt.Errorf("patientsim: marshal params: %w", err)
	}
	out, err := m.gen.Generate(ctx, llm.Request{
		Model:       m.modelID,
		System:      prompts.System(prompts.PatientGenerator),
		Prompt:      fmt.Sprintf("Generate a patient profile matching the following criteria:\n%s", criteria),
		Temperature: profileTemperature,
	})
	if err != nil {
		m.observe("profile", err)
		return "", fmt.Errorf("patientsim: generate profile: %w", err)
	}
	m.observe("profile", nil)
	return strings.TrimSpace(out), nil
}

// ExtractBasicInfo pulls the structured identity fields (name, DOB, contact)
// out of a generated profile.
func (m *Manager) ExtractBasicInfo(ctx context.Context, profile string) (map[string]any, error) {
	out, err := m.gen.Generate(ctx, llm.Request{
		Model:       m.modelID,
		System:      prompts.System(prompts.BasicInfoExtractor),
		Prompt:      fmt.Sprintf("Extract the basic information from this patient profile:\n\n%s", profile),
		Temperature: basicInfoTemperature,
		Schema:      prompts.BasicInfoSchema(),
	})
	if err != nil {
		m.observe("basic_info", err)
		return nil, fmt.Errorf("patientsim: extract basic info: %w", err)
	}
	var info map[string]any
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		m.observe("basic_info", err)
		return nil, fmt.Errorf("patientsim: decode basic info: %w", err)
	}
	m.observe("basic_info", nil)
	return info, nil
}

// GenerateSystemPrompt builds the roleplay instructions a chat model uses to
// impersonate this patient during the intake conversation.
func (m *Manager) GenerateSystemPrompt(ctx context.Context, profile string) (string, error) {
	out, err := m.gen.Generate(ctx, llm.Request{
		Model:       m.modelID,
		System:      prompts.System(prompts.SystemPromptGenerator),
		Prompt:      fmt.Sprintf("Write the roleplay system prompt for this patient:\n\n%s", profile),
		Temperature: systemPromptTemperature,
	})
	if err != nil {
		m.observe("system_prompt", err)
		return "", fmt.Errorf("patientsim: generate system prompt: %w", err)
	}
	m.observe("system_prompt", nil)
	return strings.TrimSpace(out), nil
}

// GenerateEncounterNarrative writes the longitudinal clinical story the
// structured encounters are extracted from.
func (m *Manager) GenerateEncounterNarrative(ctx context.Context, profile string, params Params) (string, error) {
	criteria, err := json.MarshalIndent(params, "", "  ")
	if err != nil {
		return "", fmt.Errorf("patientsim: marshal params: %w", err)
	}
	prompt := fmt.Sprintf("Patient profile:\n\n%s\n\nGeneration criteria:\n%s\n\nWrite the encounter narrative.", profile, criteria)
	out, err := m.gen.Generate(ctx, llm.Request{
		Model:       m.modelID,
		System:      prompts.System(prompts.EncounterNarrative),
		Prompt:      prompt,
		Temperature: narrativeTemperature,
	})
	if err != nil {
		m.observe("narrative", err)
		return "", fmt.Errorf("patientsim: generate narrative: %w", err)
	}
	m.observe("narrative", nil)
	return strings.TrimSpace(out), nil
}

// GenerateEncounters extracts the structured encounter list from the
// narrative. Encounters stay as generic maps so model-supplied detail fields
// survive the round trip into storage.
func (m *Manager) GenerateEncounters(ctx context.Context, profile, narrative string) ([]map[string]any, error) {
	prompt := fmt.Sprintf("Patient profile:\n\n%s\n\nEncounter narrative:\n\n%s\n\nExtract the structured encounters.", profile, narrative)
	out, err := m.gen.Generate(ctx, llm.Request{
		Model:       m.modelID,
		System:      prompts.System(prompts.EncounterGenerator),
		Prompt:      prompt,
		Temperature: encountersTemperature,
		Schema:      prompts.EncountersSchema(),
	})
	if err != nil {
		m.observe("encounters", err)
		return nil, fmt.Errorf("patientsim: generate encounters: %w", err)
	}
	var encounters []map[string]any
	if err := json.Unmarshal([]byte(out), &encounters); err != nil {
		m.observe("encounters", err)
		return nil, fmt.Errorf("patientsim: decode encounters: %w", err)
	}
	m.observe("encounters", nil)
	return encounters, nil
}

// GenerateLabs produces the longitudinal biomarker series consistent with the
// encounter history.
func (m *Manager) GenerateLabs(ctx context.Context, profile string, encounters []map[string]any) ([]LabSeries, error) {
	encJSON, err := json.MarshalIndent(encounters, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("patientsim: marshal encounters: %w", err)
	}
	prompt := fmt.Sprintf("Patient profile:\n\n%s\n\nEncounters:\n%s\n\nGenerate the longitudinal lab series.", profile, encJSON)
	out, err := m.gen.Generate(ctx, llm.Request{
		Model:       m.modelID,
		System:      prompts.System(prompts.LabGenerator),
		Prompt:      prompt,
		Temperature: labsTemperature,
		Schema:      prompts.LabsSchema(),
	})
	if err != nil {
		m.observe("labs", err)
		return nil, fmt.Errorf("patientsim: generate labs: %w", err)
	}
	var labs []LabSeries
	if err := json.Unmarshal([]byte(out), &labs); err != nil {
		m.observe("labs", err)
		return nil, fmt.Errorf("patientsim: decode labs: %w", err)
	}
	m.observe("labs", nil)
	return labs, nil
}

func (m *Manager) observe(kind string, err error) {
	if m.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.metrics.ObserveGeneration(kind, status)
}
