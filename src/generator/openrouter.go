package generator

import (
	"context"
	"log/slog"

	"github.com/elee1766/parley/src/orclient"
)

// ChatCompleter is the part of the OpenRouter client the backend uses.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req *orclient.ChatCompletionRequest) (*orclient.ChatCompletionResponse, error)
}

// OpenRouterConfig configures the OpenRouter backend.
type OpenRouterConfig struct {
	Client  ChatCompleter
	Options Options
	Logger  *slog.Logger
}

// OpenRouter generates replies through the OpenRouter chat completions API.
type OpenRouter struct {
	client  ChatCompleter
	options Options
	errs    *orclient.ErrorHandler
	logger  *slog.Logger
}

// NewOpenRouter creates an OpenRouter backend.
func NewOpenRouter(cfg OpenRouterConfig) *OpenRouter {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	logger := cfg.Logger.With("component", "openrouter")
	return &OpenRouter{
		client:  cfg.Client,
		options: cfg.Options.withDefaults(),
		errs:    orclient.NewErrorHandler(logger),
		logger:  logger,
	}
}

// Generate implements Generator.
func (o *OpenRouter) Generate(ctx context.Context, prompt Prompt, modelID string) (string, error) {
	temp := float64(o.options.Temperature)
	topP := float64(o.options.TopP)
	topK := int(o.options.TopK)
	req := &orclient.ChatCompletionRequest{
		Model:       modelID,
		Messages:    chatMessages(prompt),
		Temperature: &temp,
		TopP:        &topP,
		TopK:        &topK,
	}
	if o.options.MaxOutputTokens > 0 {
		maxTokens := int(o.options.MaxOutputTokens)
		req.MaxTokens = &maxTokens
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", o.errs.Wrap(o.errs.Handle(err, "generate", slog.String("model", modelID)), "openrouter chat completion")
	}
	return resp.Choices[0].Message.Content, nil
}

// CountTokens implements Generator. OpenRouter has no counting endpoint.
func (o *OpenRouter) CountTokens(_ context.Context, text string) int {
	return Estimate(text)
}

func chatMessages(prompt Prompt) []*orclient.Message {
	msgs := make([]*orclient.Message, 0, len(prompt.History)+2)
	if prompt.System != "" {
		msgs = append(msgs, &orclient.Message{Role: "system", Content: prompt.System})
	}
	for _, t := range prompt.History {
		role := "user"
		if t.Role == RoleModel {
			role = "assistant"
		}
		msgs = append(msgs, &orclient.Message{Role: role, Content: t.Content})
	}
	return append(msgs, &orclient.Message{Role: "user", Content: prompt.Message})
}

func newOpenRouterClient(apiKey, baseURL string, logger *slog.Logger) *orclient.Client {
	return orclient.NewClient(orclient.Config{
		APIKey:   apiKey,
		BaseURL:  baseURL,
		Logger:   logger,
		SiteName: "parley",
	})
}
