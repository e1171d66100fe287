package prompts

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllSystemPromptsEmbedded(t *testing.T) {
	names := []string{
		LiveAdminAgent,
		PatientGenerator,
		BasicInfoExtractor,
		SystemPromptGenerator,
		EncounterNarrative,
		EncounterGenerator,
		LabGenerator,
		ReferralGenerator,
		ImagingReportGenerator,
		LabParser,
		EncounterParser,
		ChatTranscriptGenerator,
		ImageParser,
		ReferralParser,
	}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			assert.NotEmpty(t, System(name))
		})
	}
}

func TestSystemPanicsOnUnknownName(t *testing.T) {
	assert.Panics(t, func() { System("no_such_prompt") })
}

func TestBlankPreConsultFormIsFreshCopy(t *testing.T) {
	a := BlankPreConsultForm()
	require.NotEmpty(t, a["fields"])
	a["title"] = "mutated"

	b := BlankPreConsultForm()
	assert.Equal(t, "Pre-Consultation Intake Form", b["title"])
}

func TestPreConsultAdminSchemaActionEnum(t *testing.T) {
	schema := PreConsultAdminSchema()
	require.Equal(t, genai.TypeObject, schema.Type)
	action := schema.Properties["action_type"]
	require.NotNil(t, action)
	assert.ElementsMatch(t, []string{"TEXT_ONLY", "SEND_FORM", "OFFER_SLOTS"}, action.Enum)
	assert.Contains(t, schema.Required, "message")
}
