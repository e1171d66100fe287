package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/medforce/clinic-sim/pkg/logging"
)

// DefaultModelID is the text model used when a request does not name one.
const DefaultModelID = "gemini-2.5-flash-lite"

// Request describes a single generation call. When Schema is set the model is
// constrained to emit JSON conforming to it; the result is still returned as
// the raw string for the caller to decode.
type Request struct {
	Model       string
	System      string
	Prompt      string
	Temperature float32
	Schema      *genai.Schema
	Image       []byte
	ImageMIME   string
}

// Generator is the generation surface the rest of the system depends on.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	GenerateImage(ctx context.Context, prompt string, models []string) ([]byte, error)
}

// GeminiClient implements Generator against the Gemini API.
type GeminiClient struct {
	client  *genai.Client
	modelID string
	logger  *logging.Logger
}

// NewGeminiClient creates a Gemini-backed Generator.
func NewGeminiClient(ctx context.Context, apiKey, modelID string, logger *logging.Logger) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("llm: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = DefaultModelID
	}
	if logger == nil {
		logger = logging.Default()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("llm: failed to create gemini client: %w", err)
	}

	return &GeminiClient{client: client, modelID: modelID, logger: logger}, nil
}

// Generate runs one completion and returns the model's text output.
func (c *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	modelID := req.Model
	if modelID == "" {
		modelID = c.modelID
	}
	model := c.client.GenerativeModel(modelID)

	if req.Temperature >= 0 {
		model.SetTemperature(req.Temperature)
	}
	if req.Schema != nil {
		model.ResponseMIMEType = "application/json"
		model.ResponseSchema = req.Schema
	}
	if strings.TrimSpace(req.System) != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(req.System))
	}

	parts := []genai.Part{genai.Text(req.Prompt)}
	if len(req.Image) > 0 {
		mime := req.ImageMIME
		if mime == "" {
			mime = "image/png"
		}
		parts = append(parts, genai.Blob{MIMEType: mime, Data: req.Image})
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("llm: gemini completion failed: %w", err)
	}

	text, err := firstText(resp)
	if err != nil {
		return "", err
	}
	return text, nil
}

// GenerateImage asks each model in order for an inline image and returns the
// bytes of the first one produced. The two-model sequence is the only retry
// behavior; there is no backoff policy.
func (c *GeminiClient) GenerateImage(ctx context.Context, prompt string, models []string) ([]byte, error) {
	if len(models) == 0 {
		return nil, errors.New("llm: no image models configured")
	}

	for _, modelID := range models {
		model := c.client.GenerativeModel(modelID)
		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			c.logger.Warn("image generation failed, trying next model", "model", modelID, "error", err)
			continue
		}

		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				switch p := part.(type) {
				case genai.Blob:
					return p.Data, nil
				case genai.Text:
					// Usually a refusal or safety response.
					c.logger.Warn("image model returned text instead of image", "model", modelID, "text", string(p))
				}
			}
		}
		c.logger.Warn("image model produced no image part", "model", modelID)
	}

	return nil, errors.New("llm: all image models failed")
}

// Close releases resources held by the Gemini client.
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// firstText concatenates the text parts of the first candidate.
func firstText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("llm: gemini returned no candidates")
	}
	cand := resp.Candidates[0]
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		return "", errors.New("llm: gemini returned empty content")
	}

	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", errors.New("llm: gemini returned no text parts")
	}
	return out, nil
}
