package fields

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/scanforge/scanprep/raster"
)

// VisionConfig selects and authenticates the backing vision model.
type VisionConfig struct {
	// Provider is one of "googleai", "openai" or "ollama".
	Provider string
	// Model names the vision model, e.g. "gemini-1.5-flash".
	Model string
	// APIKey authenticates hosted providers; unused for ollama.
	APIKey string
	// ServerURL points ollama at a non-default server. Optional.
	ServerURL string
}

// VisionExtractor implements Extractor by sending the page image and the
// fixed extraction prompt to a vision LLM.
type VisionExtractor struct {
	model    llms.Model
	provider string
	prompt   string
}

// NewVisionExtractor builds the provider-specific client and wraps it.
func NewVisionExtractor(ctx context.Context, cfg VisionConfig) (*VisionExtractor, error) {
	var model llms.Model
	var err error
	switch strings.ToLower(cfg.Provider) {
	case "googleai", "gemini":
		model, err = googleai.New(ctx,
			googleai.WithAPIKey(cfg.APIKey),
			googleai.WithDefaultModel(cfg.Model))
	case "openai":
		model, err = openai.New(
			openai.WithToken(cfg.APIKey),
			openai.WithModel(cfg.Model))
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.ServerURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.ServerURL))
		}
		model, err = ollama.New(opts...)
	default:
		return nil, fmt.Errorf("fields: unsupported provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("fields: create %s client: %w", cfg.Provider, err)
	}
	return &VisionExtractor{model: model, provider: cfg.Provider, prompt: Prompt}, nil
}

func (e *VisionExtractor) Name() string { return "vision-" + e.provider }

// Extract sends img to the model and parses the structured reply.
func (e *VisionExtractor) Extract(ctx context.Context, img image.Image) (Invoice, error) {
	raw, err := e.ExtractRaw(ctx, img)
	if err != nil {
		return Invoice{}, err
	}
	return ParseResponse(raw), nil
}

// ExtractRaw returns the model's structured text reply verbatim, for callers
// that persist the report as-is.
func (e *VisionExtractor) ExtractRaw(ctx context.Context, img image.Image) (string, error) {
	data, err := raster.EncodePNG(img)
	if err != nil {
		return "", err
	}
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.BinaryPart("image/png", data),
				llms.TextPart(e.prompt),
			},
		},
	}
	resp, err := e.model.GenerateContent(ctx, content)
	if err != nil {
		return "", fmt.Errorf("fields: generate content: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("fields: model returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}
