// Package prompts holds the system prompts, response schemas, and form
// templates that drive generation. Prompt text is embedded so a deployed
// binary carries the exact prompt revision it was built with.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
)

//go:embed system_prompts/*.md blank_pre_consult_form.json
var assets embed.FS

// System prompt names, one per generation task.
const (
	LiveAdminAgent        = "live_admin_agent"
	PatientGenerator      = "patient_generator"
	BasicInfoExtractor    = "basic_info_extractor"
	SystemPromptGenerator = "system_prompt_generator"
	EncounterNarrative    = "encounter_narrative"
	EncounterGenerator    = "encounter_generator"
	LabGenerator          = "lab_generator"
	ReferralGenerator     = "referral_generator"
	ImagingReportGenerator = "imaging_report_generator"
	LabParser             = "lab_parser"
	EncounterParser       = "encounter_parser"
	ChatTranscriptGenerator = "pre_consult_chat_generator"
	ImageParser           = "image_parser"
	ReferralParser        = "referral_parser"
)

// System returns the named system prompt. Unknown names panic: prompt names
// are compile-time constants and a miss is a packaging bug.
func System(name string) string {
	data, err := assets.ReadFile(fmt.Sprintf("system_prompts/%s.md", name))
	if err != nil {
		panic(fmt.Sprintf("prompts: missing system prompt %q: %v", name, err))
	}
	return string(data)
}

// BlankPreConsultForm returns a fresh copy of the blank intake form template
// merged into SEND_FORM replies. Each call decodes anew so callers may
// mutate the result.
func BlankPreConsultForm() map[string]any {
	data, err := assets.ReadFile("blank_pre_consult_form.json")
	if err != nil {
		panic(fmt.Sprintf("prompts: missing blank form template: %v", err))
	}
	var form map[string]any
	if err := json.Unmarshal(data, &form); err != nil {
		panic(fmt.Sprintf("prompts: invalid blank form template: %v", err))
	}
	return form
}
