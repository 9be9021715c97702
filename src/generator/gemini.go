package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

// GeminiModel is the API model used when a model id has no alias.
const GeminiModel = "gemini-2.5-pro"

// GeminiAliases maps configured model ids onto Gemini API model names.
var GeminiAliases = map[string]string{
	"gemini-pro":   GeminiModel,
	"gemini-flash": "gemini-2.5-flash",
}

// GeminiConfig configures the Gemini backend.
type GeminiConfig struct {
	APIKey  string
	Options Options
	Logger  *slog.Logger
}

// Gemini generates replies with the Google Gemini API.
type Gemini struct {
	client  *genai.Client
	options Options
	logger  *slog.Logger
}

// NewGemini creates a Gemini backend.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Gemini{
		client:  client,
		options: cfg.Options.withDefaults(),
		logger:  cfg.Logger.With("component", "gemini"),
	}, nil
}

func geminiModelName(modelID string) string {
	if name, ok := GeminiAliases[modelID]; ok {
		return name
	}
	if modelID == "" {
		return GeminiModel
	}
	return modelID
}

// Generate implements Generator.
func (g *Gemini) Generate(ctx context.Context, prompt Prompt, modelID string) (string, error) {
	name := geminiModelName(modelID)

	contents := make([]*genai.Content, 0, len(prompt.History)+1)
	for _, t := range prompt.History {
		role := genai.Role(genai.RoleUser)
		if t.Role == RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(prompt.Message, genai.RoleUser))

	temp := g.options.Temperature
	topP := g.options.TopP
	topK := float32(g.options.TopK)
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temp,
		TopP:            &topP,
		TopK:            &topK,
		MaxOutputTokens: g.options.MaxOutputTokens,
	}
	if prompt.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(prompt.System, genai.RoleUser)
	}

	g.logger.Debug("generating", "model", name, "turns", len(contents))
	res, err := g.client.Models.GenerateContent(ctx, name, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := res.Text()
	if text == "" {
		return "", errors.New("gemini returned empty text")
	}
	return text, nil
}

// CountTokens implements Generator.
func (g *Gemini) CountTokens(ctx context.Context, text string) int {
	res, err := g.client.Models.CountTokens(ctx, GeminiModel,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, nil)
	if err != nil {
		g.logger.Warn("token count failed, using estimate", "error", err)
		return Estimate(text)
	}
	return int(res.TotalTokens)
}
