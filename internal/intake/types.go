// Package intake implements the pre-consultation chat: loading and persisting
// per-patient conversation history, driving the admin-side reply through the
// generation service, and normalizing the structured result. The orchestrator
// is stateless between calls; all state lives in the persisted history
// document.
package intake

import (
	"errors"
	"fmt"
)

// Turn senders. Turns alternate patient/admin in intended usage; nothing
// enforces the alternation mechanically.
const (
	SenderPatient = "patient"
	SenderAdmin   = "admin"
)

// Greeting is the single admin turn written by Reset and by ground-truth
// seeding.
const Greeting = "Hello, this is Linda the Hepatology Clinic admin desk. How can I help you today?"

// FallbackMessage is the apology shown whenever a turn cannot be completed.
const FallbackMessage = "I apologize, the system is currently syncing. Please try again."

// Turn is one message exchange unit. A map keeps model-supplied fields intact
// across the save/load round trip.
type Turn map[string]any

// History is the per-patient conversation document, rewritten in full on
// every persist.
type History struct {
	Conversation []Turn `json:"conversation"`
}

// Result is the structured model output for one turn. It is returned to the
// caller unstripped; the persisted admin turn is the normalized copy.
type Result map[string]any

// ActionTypeField reads the result's action_type, empty if absent.
func (r Result) ActionTypeField() string {
	s, _ := r["action_type"].(string)
	return s
}

// Message reads the result's human-readable message, empty if absent.
func (r Result) Message() string {
	s, _ := r["message"].(string)
	return s
}

// ActionType is the closed set of next-state decisions the model may return.
type ActionType string

const (
	ActionTextOnly   ActionType = "TEXT_ONLY"
	ActionSendForm   ActionType = "SEND_FORM"
	ActionOfferSlots ActionType = "OFFER_SLOTS"
)

// ParseActionType validates a model-supplied action type against the known
// set. Unknown values are treated as malformed output, not trusted.
func ParseActionType(s string) (ActionType, error) {
	switch ActionType(s) {
	case ActionTextOnly, ActionSendForm, ActionOfferSlots:
		return ActionType(s), nil
	default:
		return "", fmt.Errorf("%w: unknown action_type %q", ErrMalformedOutput, s)
	}
}

// Error classes. Each is logged distinctly; all collapse to the same
// user-facing fallback text at the HTTP boundary.
var (
	// ErrUpstream covers generation-service or slot-provider unavailability.
	ErrUpstream = errors.New("intake: upstream service unavailable")
	// ErrMalformedOutput covers unparsable or out-of-contract model output.
	ErrMalformedOutput = errors.New("intake: malformed model output")
	// ErrStore covers a failed history write. The turn is dropped, never
	// half-persisted.
	ErrStore = errors.New("intake: history store failure")
)

// FallbackResult is the fixed reply used when a turn fails.
func FallbackResult() Result {
	return Result{
		"message":     FallbackMessage,
		"action_type": string(ActionTextOnly),
	}
}
