package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/elee1766/parley/src/config"
	"github.com/elee1766/parley/src/model"
	"github.com/elee1766/parley/src/orclient"
	"github.com/elee1766/parley/src/storage"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain", errors.New("boom"), ExitError},
		{"interrupted", fmt.Errorf("send: %w", context.Canceled), ExitInterrupted},
		{"deadline", context.DeadlineExceeded, ExitTimeout},
		{"unauthenticated", fmt.Errorf("run login: %w", model.ErrUnauthenticated), ExitAuth},
		{"no api key", orclient.ErrNoAPIKey, ExitAuth},
		{"api auth", &orclient.APIError{StatusCode: 401, Message: "bad key"}, ExitAuth},
		{"api server", &orclient.APIError{StatusCode: 500, Message: "down"}, ExitNetwork},
		{"api key code", fmt.Errorf("generate: %w", &orclient.APIError{StatusCode: 403, Code: "invalid_api_key"}), ExitAuth},
		{"api rate limited", &orclient.APIError{StatusCode: 400, Code: "rate_limit_exceeded"}, ExitNetwork},
		{"request timeout", &orclient.TimeoutError{Operation: "POST /chat/completions", Cause: context.DeadlineExceeded}, ExitTimeout},
		{"not found", notFound("agent", "x"), ExitNotFound},
		{"unknown model", fmt.Errorf("info: %w", orclient.ErrModelNotFound), ExitNotFound},
		{"no conversation", model.ErrNoConversation, ExitUsage},
		{"validation", config.ValidationError{Field: "storage.driver", Message: "bad"}, ExitConfig},
		{"schema missing", fmt.Errorf("check schema: %w", storage.ErrSchemaMissing), ExitConfig},
		{"record store disabled", fmt.Errorf("connect: %w", errRecordStoreDisabled), ExitConfig},
		{"remote unavailable", model.ErrRemoteStoreUnavailable, ExitNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestNotFoundWrapsSentinel(t *testing.T) {
	err := notFound("conversation", "abc")
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if want := `conversation "abc"`; err.Error()[:len(want)] != want {
		t.Errorf("unexpected message %q", err.Error())
	}
}
