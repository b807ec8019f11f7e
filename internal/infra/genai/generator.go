// Package genai produces treatment plan text with Gemini.
package genai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/genai"

	"github.com/Sampath5633/Medica-Backend/internal/core/port"
	"github.com/Sampath5633/Medica-Backend/internal/infra/config"
)

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("model returned no text")

type contentModel interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator asks the configured Gemini model for a JSON answer to each prompt.
type Generator struct {
	models  contentModel
	model   string
	timeout time.Duration
	config  *genai.GenerateContentConfig
}

func NewGenerator(ctx context.Context, cfg config.GenAISettings) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("genai api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newGenerator(client.Models, cfg), nil
}

func newGenerator(models contentModel, cfg config.GenAISettings) *Generator {
	gc := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	if cfg.Temperature > 0 {
		gc.Temperature = genai.Ptr(cfg.Temperature)
	}
	if cfg.MaxOutputTokens > 0 {
		gc.MaxOutputTokens = cfg.MaxOutputTokens
	}
	return &Generator{models: models, model: cfg.Model, timeout: cfg.Timeout, config: gc}
}

func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := otel.Tracer("medica/genai").Start(ctx, "genai.generate")
	defer span.End()

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), g.config)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate content failed")
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

var _ port.TextGenerator = (*Generator)(nil)
