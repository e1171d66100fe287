package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/medforce/clinic-sim/internal/llm"
	"github.com/medforce/clinic-sim/internal/observability/metrics"
	"github.com/medforce/clinic-sim/internal/prompts"
	"github.com/medforce/clinic-sim/pkg/logging"
)

const adminTemperature = 0.3

// Request is one inbound patient message with optional uploads and a
// returned intake form.
type Request struct {
	PatientMessage string         `json:"patient_message"`
	Attachments    []string       `json:"patient_attachments"`
	Form           map[string]any `json:"patient_form"`
}

// Orchestrator turns one inbound patient message into one admin-side reply,
// given full prior history, and persists the result.
type Orchestrator struct {
	history *HistoryStore
	slots   SlotProvider
	gen     llm.Generator
	modelID string
	metrics *metrics.IntakeMetrics
	logger  *logging.Logger
	locks   *patientLocks

	generateTimeout time.Duration
	storeTimeout    time.Duration
}

// OrchestratorConfig carries the orchestrator's collaborators and limits.
type OrchestratorConfig struct {
	History         *HistoryStore
	Slots           SlotProvider
	Generator       llm.Generator
	ModelID         string
	Metrics         *metrics.IntakeMetrics
	Logger          *logging.Logger
	GenerateTimeout time.Duration
	StoreTimeout    time.Duration
}

// NewOrchestrator wires an Orchestrator from explicitly constructed, shared
// collaborators.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	if cfg.History == nil {
		panic("intake: history store cannot be nil")
	}
	if cfg.Generator == nil {
		panic("intake: generator cannot be nil")
	}
	if cfg.Slots == nil {
		cfg.Slots = NewStaticSlotProvider()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.GenerateTimeout <= 0 {
		cfg.GenerateTimeout = 60 * time.Second
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 10 * time.Second
	}
	return &Orchestrator{
		history:         cfg.History,
		slots:           cfg.Slots,
		gen:             cfg.Generator,
		modelID:         cfg.ModelID,
		metrics:         cfg.Metrics,
		logger:          cfg.Logger,
		locks:           newPatientLocks(),
		generateTimeout: cfg.GenerateTimeout,
		storeTimeout:    cfg.StoreTimeout,
	}
}

// HandleMessage resolves one inbound message into one stored reply. On
// success the persisted conversation grows by exactly two turns (patient,
// then normalized admin) and the unstripped structured result is returned so
// the caller can render forms and slot pickers. On any error nothing is
// persisted: the turn is dropped rather than half-recorded.
func (o *Orchestrator) HandleMessage(ctx context.Context, patientID string, req Request) (Result, error) {
	unlock := o.locks.acquire(patientID)
	defer unlock()

	start := time.Now()
	result, err := o.handle(ctx, patientID, req)
	outcome := outcomeLabel(err)
	o.metrics.ObserveChat(outcome, time.Since(start).Seconds())
	if err != nil {
		o.logger.Error("intake turn failed",
			"patient_id", patientID,
			"class", outcome,
			"error", err,
		)
		return nil, err
	}
	return result, nil
}

func (o *Orchestrator) handle(ctx context.Context, patientID string, req Request) (Result, error) {
	loadCtx, cancel := context.WithTimeout(ctx, o.storeTimeout)
	history := o.history.Load(loadCtx, patientID)
	cancel()

	offer, err := o.slots.AvailableSlots(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: slot availability: %v", ErrUpstream, err)
	}

	prompt, err := buildPrompt(history.Conversation, req.PatientMessage, offer)
	if err != nil {
		return nil, err
	}

	genCtx, cancel := context.WithTimeout(ctx, o.generateTimeout)
	defer cancel()
	raw, err := o.gen.Generate(genCtx, llm.Request{
		Model:       o.modelID,
		System:      prompts.System(prompts.LiveAdminAgent),
		Prompt:      prompt,
		Temperature: adminTemperature,
		Schema:      prompts.PreConsultAdminSchema(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	var result Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	action, err := ParseActionType(result.ActionTypeField())
	if err != nil {
		return nil, err
	}

	if action == ActionSendForm {
		result["form_request"] = prompts.BlankPreConsultForm()
	}

	attachments := req.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	form := req.Form
	if form == nil {
		form = map[string]any{}
	}
	history.Conversation = append(history.Conversation, Turn{
		"sender":      SenderPatient,
		"message":     req.PatientMessage,
		"attachments": attachments,
		"form_data":   form,
	})
	history.Conversation = append(history.Conversation, Normalize(result))

	saveCtx, cancel := context.WithTimeout(ctx, o.storeTimeout)
	defer cancel()
	if err := o.history.Save(saveCtx, patientID, history); err != nil {
		return nil, err
	}

	return result, nil
}

// Reset overwrites the patient's history with the fixed greeting turn.
func (o *Orchestrator) Reset(ctx context.Context, patientID string) (History, error) {
	unlock := o.locks.acquire(patientID)
	defer unlock()

	h := History{Conversation: []Turn{{
		"sender":  SenderAdmin,
		"message": Greeting,
	}}}

	saveCtx, cancel := context.WithTimeout(ctx, o.storeTimeout)
	defer cancel()
	if err := o.history.Save(saveCtx, patientID, h); err != nil {
		return History{}, err
	}
	o.metrics.ObserveReset()
	return h, nil
}

// History exposes the underlying store for read-only boundary use.
func (o *Orchestrator) History() *HistoryStore {
	return o.history
}

// buildPrompt combines serialized history, the latest input, and current slot
// data with the fixed instruction block demanding a next-state decision.
func buildPrompt(conversation []Turn, latestMessage string, offer SlotOffer) (string, error) {
	historyJSON, err := json.MarshalIndent(conversation, "", "  ")
	if err != nil {
		return "", fmt.Errorf("intake: marshal history for prompt: %w", err)
	}
	slotsJSON, err := json.MarshalIndent(offer, "", "  ")
	if err != nil {
		return "", fmt.Errorf("intake: marshal slots for prompt: %w", err)
	}
	return fmt.Sprintf(
		"### CONVERSATION HISTORY (JSON) ###\n%s\n\n"+
			"### LATEST USER INPUT ###\n%s\n\n"+
			"### AVAILABLE SLOTS (Use this data if Action is OFFER_SLOTS) ###\n%s\n\n"+
			"### TASK ###\n"+
			"Determine the next state based on the history. Return the JSON response.",
		historyJSON, latestMessage, slotsJSON), nil
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrMalformedOutput):
		return "fallback_malformed"
	case errors.Is(err, ErrStore):
		return "fallback_store"
	case errors.Is(err, ErrUpstream):
		return "fallback_upstream"
	default:
		return "fallback_other"
	}
}
