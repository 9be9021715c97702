package generator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elee1766/parley/src/model"
	"github.com/elee1766/parley/src/orclient"
)

func TestEstimate(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{"héllo wörld", 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Estimate(tt.text), tt.text)
	}
}

func TestPromptText(t *testing.T) {
	p := Prompt{
		System: "You are Ada.",
		History: []Turn{
			{Role: RoleUser, Name: "Sam", Content: "hi"},
			{Role: RoleModel, Content: "hello"},
		},
		Message: "how are you?",
	}
	assert.Equal(t, "You are Ada.\n\nSam: hi\nmodel: hello\nuser: how are you?", p.Text())
}

type fakeCompleter struct {
	req  *orclient.ChatCompletionRequest
	resp *orclient.ChatCompletionResponse
	err  error
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, req *orclient.ChatCompletionRequest) (*orclient.ChatCompletionResponse, error) {
	f.req = req
	return f.resp, f.err
}

func TestOpenRouterGenerate(t *testing.T) {
	fc := &fakeCompleter{resp: &orclient.ChatCompletionResponse{
		Choices: []orclient.Choice{{Message: orclient.Message{Role: "assistant", Content: "done"}}},
	}}
	g := NewOpenRouter(OpenRouterConfig{Client: fc})

	out, err := g.Generate(context.Background(), Prompt{
		System:  "sys",
		History: []Turn{{Role: RoleUser, Content: "q"}, {Role: RoleModel, Content: "a"}},
		Message: "next",
	}, "anthropic/claude-3.5-sonnet")
	require.NoError(t, err)
	assert.Equal(t, "done", out)

	require.NotNil(t, fc.req)
	assert.Equal(t, "anthropic/claude-3.5-sonnet", fc.req.Model)
	roles := make([]string, 0, len(fc.req.Messages))
	for _, m := range fc.req.Messages {
		roles = append(roles, m.Role)
	}
	assert.Equal(t, []string{"system", "user", "assistant", "user"}, roles)
	assert.InDelta(t, 0.7, *fc.req.Temperature, 0.0001)
	assert.Equal(t, 64, *fc.req.TopK)
	assert.Nil(t, fc.req.MaxTokens)
}

func TestOpenRouterGenerateError(t *testing.T) {
	fc := &fakeCompleter{err: &orclient.APIError{StatusCode: 401, Message: "bad key"}}
	g := NewOpenRouter(OpenRouterConfig{Client: fc})

	_, err := g.Generate(context.Background(), Prompt{Message: "x"}, "m")
	var apiErr *orclient.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.IsAuthError())
	assert.Equal(t, Estimate("abcdefgh"), g.CountTokens(context.Background(), "abcdefgh"))
}

func TestOpenRouterOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req orclient.ChatCompletionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(orclient.ChatCompletionResponse{
			Choices: []orclient.Choice{{Message: orclient.Message{Content: "echo " + req.Messages[len(req.Messages)-1].Content}}},
		})
	}))
	defer srv.Close()

	g := NewOpenRouter(OpenRouterConfig{Client: newOpenRouterClient("sk", srv.URL, nil)})
	out, err := g.Generate(context.Background(), Prompt{Message: "ping"}, "m")
	require.NoError(t, err)
	assert.Equal(t, "echo ping", out)
}

type stubLookup struct {
	models []model.ModelConfig
}

func (s stubLookup) Lookup(id string) (model.ModelConfig, bool) {
	for _, m := range s.models {
		if m.ID == id {
			return m, true
		}
	}
	return model.ModelConfig{}, false
}

func (s stubLookup) DefaultModel() (model.ModelConfig, bool) {
	for _, m := range s.models {
		if m.IsDefault {
			return m, true
		}
	}
	return model.ModelConfig{}, false
}

type recordingGen struct {
	name   string
	models []string
	tokens int
	err    error
}

func (g *recordingGen) Generate(_ context.Context, _ Prompt, modelID string) (string, error) {
	g.models = append(g.models, modelID)
	if g.err != nil {
		return "", g.err
	}
	return g.name + ":" + modelID, nil
}

func (g *recordingGen) CountTokens(_ context.Context, _ string) int {
	return g.tokens
}

func TestRouterDispatchesByProvider(t *testing.T) {
	google := &recordingGen{name: "google", tokens: 7}
	or := &recordingGen{name: "openrouter"}
	r := NewRouter(RouterConfig{
		Models: stubLookup{models: []model.ModelConfig{
			{ID: "gemini-pro", Provider: ProviderGoogle, IsDefault: true},
			{ID: "openai/gpt-4o", Provider: ProviderOpenRouter},
		}},
		Backends: map[string]Generator{ProviderGoogle: google, ProviderOpenRouter: or},
	})
	ctx := context.Background()

	tests := []struct {
		modelID string
		want    string
	}{
		{"gemini-pro", "google:gemini-pro"},
		{"openai/gpt-4o", "openrouter:openai/gpt-4o"},
		{"deleted-model", "google:gemini-pro"},
		{"", "google:gemini-pro"},
	}
	for _, tt := range tests {
		out, err := r.Generate(ctx, Prompt{Message: "hi"}, tt.modelID)
		require.NoError(t, err)
		assert.Equal(t, tt.want, out)
	}

	assert.Equal(t, 7, r.CountTokens(ctx, "anything"))
}

func TestRouterMissingBackend(t *testing.T) {
	r := NewRouter(RouterConfig{
		Models: stubLookup{models: []model.ModelConfig{{ID: "x", Provider: ProviderOpenRouter, IsDefault: true}}},
	})
	_, err := r.Generate(context.Background(), Prompt{Message: "hi"}, "x")
	assert.Error(t, err)
	assert.Equal(t, Estimate("abcdefgh"), r.CountTokens(context.Background(), "abcdefgh"))
}

func TestRouterNoModels(t *testing.T) {
	r := NewRouter(RouterConfig{Models: stubLookup{}})
	_, err := r.Generate(context.Background(), Prompt{Message: "hi"}, "x")
	assert.Error(t, err)
	assert.Equal(t, 1, r.CountTokens(context.Background(), "abc"))
}

func TestRouterFactoryCachesPerKey(t *testing.T) {
	built := 0
	r := NewRouter(RouterConfig{
		Models: stubLookup{models: []model.ModelConfig{
			{ID: "a", Provider: ProviderOpenRouter, APIKey: "k1", IsDefault: true},
			{ID: "b", Provider: ProviderOpenRouter, APIKey: "k1"},
			{ID: "c", Provider: ProviderOpenRouter, APIKey: "k2"},
		}},
		Factory: func(_ context.Context, mc model.ModelConfig) (Generator, error) {
			built++
			return &recordingGen{name: mc.APIKey}, nil
		},
	})
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "a"} {
		_, err := r.Generate(ctx, Prompt{}, id)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, built)
}

func TestDefaultFactoryRejectsUnknownProvider(t *testing.T) {
	f := DefaultFactory("", Options{}, nil)
	_, err := f(context.Background(), model.ModelConfig{ID: "x", Provider: "acme", APIKey: "k"})
	assert.Error(t, err)

	g, err := f(context.Background(), model.ModelConfig{ID: "x", Provider: ProviderOpenRouter, APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &OpenRouter{}, g)
}

func TestGeminiModelName(t *testing.T) {
	assert.Equal(t, GeminiModel, geminiModelName("gemini-pro"))
	assert.Equal(t, GeminiModel, geminiModelName(""))
	assert.Equal(t, "gemini-2.0-flash", geminiModelName("gemini-2.0-flash"))

	_, err := NewGemini(context.Background(), GeminiConfig{})
	assert.Error(t, err)
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{Temperature: 0.2}.withDefaults()
	assert.InDelta(t, 0.2, o.Temperature, 0.0001)
	assert.InDelta(t, 0.95, o.TopP, 0.0001)
	assert.Equal(t, int32(64), o.TopK)
}
