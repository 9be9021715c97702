package orclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWireErrorCodeString(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string code", `{"error":{"message":"slow down","code":"rate_limit_exceeded"}}`, "rate_limit_exceeded"},
		{"numeric code", `{"error":{"message":"slow down","code":429}}`, "429"},
		{"fractional code", `{"error":{"message":"odd","code":4.5}}`, "4.5"},
		{"missing code", `{"error":{"message":"down"}}`, ""},
		{"object code", `{"error":{"message":"down","code":{"n":1}}}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal([]byte(tt.body), &resp))
			assert.Equal(t, tt.want, resp.Error.codeString())
		})
	}
}

func TestAPIErrorMessage(t *testing.T) {
	withCode := &APIError{StatusCode: 401, Code: "401", Message: "No auth credentials found"}
	assert.Equal(t, "API error 401 (401): No auth credentials found", withCode.Error())

	bare := &APIError{StatusCode: 502, Message: "<html>bad gateway</html>"}
	assert.Equal(t, "API error 502: <html>bad gateway</html>", bare.Error())
}

func TestAPIErrorMatchesRateLimited(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"status 429", &APIError{StatusCode: http.StatusTooManyRequests}, true},
		{"code from body", &APIError{StatusCode: http.StatusBadRequest, Code: "rate_limit_exceeded"}, true},
		{"wrapped", fmt.Errorf("generate: %w", &APIError{StatusCode: http.StatusTooManyRequests}), true},
		{"after retries", &RetryableError{Err: &APIError{StatusCode: http.StatusTooManyRequests}, AttemptNum: 3, MaxAttempts: 3}, true},
		{"server error", &APIError{StatusCode: http.StatusInternalServerError}, false},
		{"numeric 429 code only", &APIError{StatusCode: http.StatusBadRequest, Code: "429"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, ErrRateLimited))
		})
	}

	assert.False(t, errors.Is(&APIError{StatusCode: http.StatusTooManyRequests}, ErrTimeout))
}

func TestHandleErrorDecodesEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "2")
		w.Header().Set("X-Request-ID", "req-9")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","code":429,"metadata":{"provider_name":"openai"}}}`))
	})
	c.config.RetryCount = 1

	_, err := c.CreateChatCompletion(context.Background(), &ChatCompletionRequest{Model: "openai/gpt-4o"})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrRateLimited)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "429", apiErr.Code)
	assert.Equal(t, "req-9", apiErr.RequestID)
	assert.Equal(t, "openai", apiErr.Details["provider_name"])
	assert.Equal(t, 2.0, apiErr.Details["retry_after"])
	assert.Equal(t, 2*time.Second, GetRetryDelay(err, 1))
}

func TestHandleErrorKeepsUndecodableBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("unauthorized"))
	})

	_, err := c.CreateChatCompletion(context.Background(), &ChatCompletionRequest{Model: "openai/gpt-4o"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "unauthorized", apiErr.Message)
	assert.Empty(t, apiErr.Code)
	assert.True(t, apiErr.IsAuthError())
	assert.False(t, IsRetryable(err))
}

func TestTimeoutError(t *testing.T) {
	err := error(&TimeoutError{Operation: "GET /models", Duration: time.Second, Cause: context.DeadlineExceeded})
	wrapped := fmt.Errorf("list models: %w", err)

	assert.ErrorIs(t, wrapped, ErrTimeout)
	assert.ErrorIs(t, wrapped, context.DeadlineExceeded)
	assert.True(t, IsRetryable(wrapped))
}

func TestRetryableErrorExhausted(t *testing.T) {
	pending := &RetryableError{Err: errors.New("reset"), AttemptNum: 1, MaxAttempts: 3}
	assert.True(t, IsRetryable(pending))

	spent := &RetryableError{Err: errors.New("reset"), AttemptNum: 3, MaxAttempts: 3}
	assert.False(t, IsRetryable(spent))
	assert.EqualError(t, errors.Unwrap(spent), "reset")
}

func TestGetRetryDelayBackoff(t *testing.T) {
	plain := errors.New("reset")
	assert.Equal(t, time.Second, GetRetryDelay(plain, 0))
	assert.Equal(t, 4*time.Second, GetRetryDelay(plain, 3))
	assert.Equal(t, time.Minute, GetRetryDelay(plain, 7))
	assert.Equal(t, time.Minute, GetRetryDelay(plain, 30))

	// retry_after only applies to rate limits
	down := &APIError{StatusCode: http.StatusServiceUnavailable, Details: map[string]interface{}{"retry_after": 9.0}}
	assert.Equal(t, 2*time.Second, GetRetryDelay(down, 2))
}

func TestModelNotFoundSentinel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"id":"openai/gpt-4o","name":"GPT-4o"}]}`))
	})

	_, err := c.FindModelByName(context.Background(), "anthropic/none")
	require.ErrorIs(t, err, ErrModelNotFound)
	assert.False(t, IsRetryable(err))
}
