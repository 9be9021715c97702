package generator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/elee1766/parley/src/model"
)

// Providers understood by the router.
const (
	ProviderGoogle     = "google"
	ProviderOpenRouter = "openrouter"
)

// ModelLookup resolves model ids to their configuration.
type ModelLookup interface {
	Lookup(id string) (model.ModelConfig, bool)
	DefaultModel() (model.ModelConfig, bool)
}

// BackendFactory builds a backend for a model config carrying its own API key.
type BackendFactory func(ctx context.Context, mc model.ModelConfig) (Generator, error)

// RouterConfig configures a Router.
type RouterConfig struct {
	Models   ModelLookup
	Backends map[string]Generator // keyed by provider
	Factory  BackendFactory
	Logger   *slog.Logger
}

// Router dispatches to a backend chosen by the provider of the model config.
// Unknown model ids resolve to the default model.
type Router struct {
	models   ModelLookup
	backends map[string]Generator
	factory  BackendFactory
	logger   *slog.Logger

	mu    sync.Mutex
	keyed map[string]Generator
}

// NewRouter creates a Router.
func NewRouter(cfg RouterConfig) *Router {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	backends := make(map[string]Generator, len(cfg.Backends))
	for k, v := range cfg.Backends {
		if v != nil {
			backends[k] = v
		}
	}
	return &Router{
		models:   cfg.Models,
		backends: backends,
		factory:  cfg.Factory,
		logger:   cfg.Logger.With("component", "generator_router"),
		keyed:    make(map[string]Generator),
	}
}

// Resolve returns the model config used for modelID.
func (r *Router) Resolve(modelID string) (model.ModelConfig, bool) {
	if r.models == nil {
		return model.ModelConfig{ID: modelID, Provider: ProviderGoogle}, modelID != ""
	}
	if mc, ok := r.models.Lookup(modelID); ok {
		return mc, true
	}
	if mc, ok := r.models.DefaultModel(); ok {
		r.logger.Debug("unknown model, using default", "model", modelID, "default", mc.ID)
		return mc, true
	}
	return model.ModelConfig{}, false
}

func (r *Router) backend(ctx context.Context, mc model.ModelConfig) (Generator, error) {
	if mc.APIKey != "" && r.factory != nil {
		key := mc.Provider + "\x00" + mc.APIKey
		r.mu.Lock()
		defer r.mu.Unlock()
		if g, ok := r.keyed[key]; ok {
			return g, nil
		}
		g, err := r.factory(ctx, mc)
		if err != nil {
			return nil, fmt.Errorf("creating %s backend for model %q: %w", mc.Provider, mc.ID, err)
		}
		r.keyed[key] = g
		return g, nil
	}
	if g, ok := r.backends[mc.Provider]; ok {
		return g, nil
	}
	return nil, fmt.Errorf("no %s backend configured for model %q", mc.Provider, mc.ID)
}

// Generate implements Generator.
func (r *Router) Generate(ctx context.Context, prompt Prompt, modelID string) (string, error) {
	mc, ok := r.Resolve(modelID)
	if !ok {
		return "", fmt.Errorf("no model configured for %q", modelID)
	}
	g, err := r.backend(ctx, mc)
	if err != nil {
		return "", err
	}
	r.logger.Debug("routing generation", "model", mc.ID, "provider", mc.Provider)
	return g.Generate(ctx, prompt, mc.ID)
}

// CountTokens implements Generator using the default model's backend.
func (r *Router) CountTokens(ctx context.Context, text string) int {
	mc, ok := r.Resolve("")
	if !ok {
		return Estimate(text)
	}
	g, err := r.backend(ctx, mc)
	if err != nil {
		return Estimate(text)
	}
	return g.CountTokens(ctx, text)
}

// DefaultFactory builds Gemini and OpenRouter backends from a model config's
// own API key.
func DefaultFactory(orBaseURL string, opts Options, logger *slog.Logger) BackendFactory {
	return func(ctx context.Context, mc model.ModelConfig) (Generator, error) {
		switch mc.Provider {
		case ProviderGoogle:
			return NewGemini(ctx, GeminiConfig{APIKey: mc.APIKey, Options: opts, Logger: logger})
		case ProviderOpenRouter:
			return NewOpenRouter(OpenRouterConfig{
				Client:  newOpenRouterClient(mc.APIKey, orBaseURL, logger),
				Options: opts,
				Logger:  logger,
			}), nil
		default:
			return nil, fmt.Errorf("unknown provider %q", mc.Provider)
		}
	}
}
