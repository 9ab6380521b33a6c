package insight

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/testtube/campus-ledger/internal/core/logger"
)

// ErrGeneratorUnavailable marks transport failures talking to the insight
// service. Read paths surface it immediately rather than retrying.
var ErrGeneratorUnavailable = errors.New("insight generator unavailable")

// Generator turns a structured request into narrative text. The production
// implementation talks to Gemini; tests script this interface.
type Generator interface {
	Generate(ctx context.Context, req *Request) (string, error)
}

type GeminiGenerator struct {
	client *genai.Client
	model  string
	log    logger.Logger
}

// NewGeminiGenerator reads API credentials from the environment, matching the
// genai client's own convention.
func NewGeminiGenerator(ctx context.Context, model string, log logger.Logger) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model, log: log}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, req *Request) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: req.Prompt()}},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneratorUnavailable, err)
	}

	text := resp.Text()
	g.log.Debug("Insight generated",
		logger.StringField("model", g.model),
		logger.IntField("chars", len(text)),
	)

	return ParseResponse(text)
}
