package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDropsNilsAndTagsSender(t *testing.T) {
	in := map[string]any{
		"action_type": "TEXT_ONLY",
		"message":     "Thanks, noted.",
		"slots":       nil,
		"requested_documents": nil,
	}

	out := Normalize(in)

	assert.Equal(t, SenderAdmin, out["sender"])
	assert.Equal(t, "TEXT_ONLY", out["action_type"])
	assert.Equal(t, "Thanks, noted.", out["message"])
	for k, v := range out {
		assert.NotNil(t, v, "key %s must not be nil", k)
	}
	assert.NotContains(t, out, "slots")
	assert.NotContains(t, out, "requested_documents")
}

func TestNormalizeOverridesExistingSender(t *testing.T) {
	out := Normalize(map[string]any{"sender": "patient", "message": "hi"})
	assert.Equal(t, SenderAdmin, out["sender"])
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	in := map[string]any{"message": "hi", "slots": nil}
	_ = Normalize(in)
	assert.Contains(t, in, "slots")
	assert.NotContains(t, in, "sender")
}

func TestNormalizeEmptyInput(t *testing.T) {
	out := Normalize(map[string]any{})
	assert.Equal(t, Turn{"sender": SenderAdmin}, out)
}
