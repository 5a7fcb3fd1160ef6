package recommend

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/aayushkdev/vellorun-backend/internal/pkg/config"
)

// Completer sends one prompt to a language model and returns its text reply.
type Completer interface {
	Complete(ctx context.Context, prompt Prompt, model string) (string, error)
}

var (
	_ Completer = (*GeminiCompleter)(nil)
	_ Completer = (*OpenRouterCompleter)(nil)
)

const temperature = 0.2

// GeminiCompleter talks to the Gemini API.
type GeminiCompleter struct {
	client *genai.Client
}

func NewGeminiCompleter(ctx context.Context, apiKey string) (*GeminiCompleter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gemini api key is required", config.ErrConfiguration)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiCompleter{client: client}, nil
}

func (g *GeminiCompleter) Complete(ctx context.Context, prompt Prompt, model string) (string, error) {
	t := float32(temperature)
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt.User), &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: prompt.System}}},
		Temperature:       &t,
	})
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("no valid response received from the model")
	}
	return text, nil
}

// OpenRouterCompleter talks to any OpenAI compatible chat completion API.
type OpenRouterCompleter struct {
	client *openai.Client
}

func NewOpenRouterCompleter(apiKey, baseURL string) (*OpenRouterCompleter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: openrouter api key is required", config.ErrConfiguration)
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenRouterCompleter{client: openai.NewClientWithConfig(cfg)}, nil
}

func (o *OpenRouterCompleter) Complete(ctx context.Context, prompt Prompt, model string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.System},
			{Role: openai.ChatMessageRoleUser, Content: prompt.User},
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errors.New("no valid response received from the model")
	}
	return resp.Choices[0].Message.Content, nil
}

// NewCompleter builds the completer selected by cfg. It returns nil when no
// API key is configured for the chosen provider.
func NewCompleter(ctx context.Context, cfg config.RecommenderConfig, logger *zap.Logger) (Completer, error) {
	if !cfg.Enabled() {
		logger.Warn("Recommendations disabled: no API key for provider", zap.String("provider", cfg.Provider))
		return nil, nil
	}
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiCompleter(ctx, cfg.GeminiAPIKey)
	case config.ProviderOpenRouter:
		return NewOpenRouterCompleter(cfg.OpenRouterAPIKey, cfg.OpenRouterBaseURL)
	default:
		return nil, fmt.Errorf("%w: unknown recommender provider %q", config.ErrConfiguration, cfg.Provider)
	}
}
