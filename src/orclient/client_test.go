package orclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		APIKey:     "sk-test",
		BaseURL:    srv.URL,
		RetryDelay: time.Millisecond,
		SiteName:   "parley",
	})
}

func TestCreateChatCompletion(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "parley", r.Header.Get("X-Title"))

		var req ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "openai/gpt-4o", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)

		_ = json.NewEncoder(w).Encode(ChatCompletionResponse{
			ID:      "gen-1",
			Choices: []Choice{{Message: Message{Role: "assistant", Content: "hello"}}},
			Usage:   Usage{TotalTokens: 12},
		})
	})

	resp, err := c.CreateChatCompletion(context.Background(), &ChatCompletionRequest{
		Model: "openai/gpt-4o",
		Messages: []*Message{
			{Role: "system", Content: "be brief"},
			{Role: "user", Content: "hi"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Choices[0].Message.Content)
	assert.Equal(t, 12, resp.Usage.TotalTokens)
}

func TestCreateChatCompletionRequiresKey(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1"})
	assert.False(t, c.HasAPIKey())
	_, err := c.CreateChatCompletion(context.Background(), &ChatCompletionRequest{Model: "x"})
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestCreateChatCompletionEmptyChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"gen-1","choices":[]}`))
	})
	_, err := c.CreateChatCompletion(context.Background(), &ChatCompletionRequest{Model: "x"})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestCreateChatCompletionAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-ID", "req-9")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"No auth credentials found","code":401}}`))
	})

	_, err := c.CreateChatCompletion(context.Background(), &ChatCompletionRequest{Model: "x"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "401", apiErr.Code)
	assert.Equal(t, "No auth credentials found", apiErr.Message)
	assert.Equal(t, "req-9", apiErr.RequestID)
	assert.True(t, apiErr.IsAuthError())
}

func TestCreateChatCompletionRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	})

	resp, err := c.CreateChatCompletion(context.Background(), &ChatCompletionRequest{Model: "x"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Choices[0].Message.Content)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCreateChatCompletionRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"slow down","code":429}}`))
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	})

	_, err := c.CreateChatCompletion(context.Background(), &ChatCompletionRequest{Model: "x"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCreateChatCompletionServerErrorAfterRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`upstream down`))
	})

	_, err := c.CreateChatCompletion(context.Background(), &ChatCompletionRequest{Model: "x"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "upstream down", apiErr.Message)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestCreateChatCompletionCancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	c.config.RetryDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := c.CreateChatCompletion(ctx, &ChatCompletionRequest{Model: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestListModelsCaches(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		calls.Add(1)
		_, _ = w.Write([]byte(`{"data":[
			{"id":"anthropic/claude-3.5-sonnet","name":"Claude 3.5 Sonnet","context_length":200000},
			{"id":"google/gemini-pro-1.5","name":"Gemini Pro 1.5","context_length":1000000}
		]}`))
	})
	ctx := context.Background()

	models, err := c.ListModels(ctx)
	require.NoError(t, err)
	assert.Len(t, models, 2)

	_, err = c.ListModels(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	m, err := c.GetModelByID(ctx, "google/gemini-pro-1.5")
	require.NoError(t, err)
	assert.Equal(t, 1000000, m.ContextLength)

	m, err = c.FindModelByName(ctx, "sonnet")
	require.NoError(t, err)
	assert.Equal(t, "anthropic/claude-3.5-sonnet", m.ID)

	_, err = c.FindModelByName(ctx, "llama")
	assert.ErrorIs(t, err, ErrModelNotFound)

	c.modelCache.ClearCache()
	_, err = c.ListModels(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}
