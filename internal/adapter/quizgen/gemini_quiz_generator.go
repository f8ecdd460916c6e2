package quizgen

import (
	"context"
	"fmt"
	"strings"

	"tubequiz/internal/config"
	"tubequiz/internal/domain"
	"tubequiz/internal/logger"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"go.uber.org/zap"
)

// DefaultModel is used when no Gemini model is configured.
const DefaultModel = "gemini-2.5-flash"

// GeminiQuizGenerator implements domain.QuizContentGenerator on top of a
// CompletionClient. The client is created per request so a missing API key
// surfaces as a pipeline failure instead of a startup error.
type GeminiQuizGenerator struct {
	apiKey    string
	modelName string
	newClient domain.CompletionClientFactory
}

// NewGeminiQuizGenerator creates a new GeminiQuizGenerator. A nil factory
// falls back to the langchaingo Google AI client.
func NewGeminiQuizGenerator(cfg config.GeminiConfig, factory domain.CompletionClientFactory) *GeminiQuizGenerator {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	if factory == nil {
		factory = NewGoogleAIClient
	}
	return &GeminiQuizGenerator{
		apiKey:    cfg.APIKey,
		modelName: model,
		newClient: factory,
	}
}

// GenerateQuizContent sends the quiz prompt for transcript and returns the raw model text.
func (g *GeminiQuizGenerator) GenerateQuizContent(ctx context.Context, transcript string) (string, error) {
	l := logger.Get()

	if strings.TrimSpace(g.apiKey) == "" {
		return "", domain.NewQuizCreationError("Missing GEMINI_API_KEY in settings.", nil)
	}

	client, err := g.newClient(ctx, g.apiKey)
	if err != nil {
		l.Error("Failed to create Gemini client", zap.Error(err))
		return "", domain.NewQuizCreationError("Error requesting Gemini completion", err)
	}

	prompt := BuildQuizPrompt(transcript)
	l.Debug("Requesting quiz from Gemini",
		zap.String("model", g.modelName),
		zap.Int("prompt_chars", len(prompt)))

	text, err := client.Complete(ctx, g.modelName, prompt)
	if err != nil {
		l.Error("Gemini completion failed", zap.String("model", g.modelName), zap.Error(err))
		return "", domain.NewQuizCreationError("Error requesting Gemini completion", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", domain.NewQuizCreationError("Gemini returned an empty or invalid response.", nil)
	}

	l.Debug("Gemini response received", zap.Int("response_chars", len(text)))
	return text, nil
}

// googleAIClient adapts langchaingo's Google AI model to domain.CompletionClient.
type googleAIClient struct {
	llm llms.Model
}

// NewGoogleAIClient is the default domain.CompletionClientFactory.
func NewGoogleAIClient(ctx context.Context, apiKey string) (domain.CompletionClient, error) {
	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(DefaultModel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create LangchainGo Google AI client: %w", err)
	}
	return &googleAIClient{llm: llm}, nil
}

func (c *googleAIClient) Complete(ctx context.Context, model, prompt string) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, c.llm, prompt, llms.WithModel(model))
}

var (
	_ domain.QuizContentGenerator = (*GeminiQuizGenerator)(nil)
	_ domain.CompletionClient     = (*googleAIClient)(nil)
)
