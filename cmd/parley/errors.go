package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/elee1766/parley/src/config"
	"github.com/elee1766/parley/src/model"
	"github.com/elee1766/parley/src/orclient"
	"github.com/elee1766/parley/src/storage"
)

// Exit codes following standard conventions
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error
	ExitUsage       = 2 // Usage error
	ExitConfig      = 3 // Configuration error
	ExitAuth        = 4 // Authentication error
	ExitNotFound    = 5 // Unknown id
	ExitNetwork     = 6 // Network error
	ExitTimeout     = 7 // Timeout error
	ExitInterrupted = 8 // Interrupted by user
)

// ErrorHandler handles different types of errors and exits with appropriate codes
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleError handles an error and exits with the appropriate code
func (h *ErrorHandler) HandleError(err error) {
	if err == nil {
		return
	}

	h.logger.Debug("command failed", "error", err)
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
	os.Exit(exitCode(err))
}

// exitCode determines the appropriate exit code for an error
func exitCode(err error) int {
	var verr config.ValidationError
	var apiErr *orclient.APIError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, orclient.ErrTimeout):
		return ExitTimeout
	case errors.Is(err, model.ErrUnauthenticated), errors.Is(err, orclient.ErrNoAPIKey):
		return ExitAuth
	case errors.As(err, &apiErr) && apiErr.IsAuthError():
		return ExitAuth
	case errors.Is(err, model.ErrNotFound), errors.Is(err, orclient.ErrModelNotFound):
		return ExitNotFound
	case errors.Is(err, model.ErrNoConversation):
		return ExitUsage
	case errors.As(err, &verr), errors.Is(err, storage.ErrSchemaMissing), errors.Is(err, errRecordStoreDisabled):
		return ExitConfig
	case errors.Is(err, model.ErrRemoteStoreUnavailable), errors.As(err, &apiErr):
		return ExitNetwork
	default:
		return ExitError
	}
}

// FatalError logs a fatal error and exits
func FatalError(logger *slog.Logger, err error) {
	NewErrorHandler(logger).HandleError(err)
}

// notFound reports an unknown id.
func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, model.ErrNotFound)
}
