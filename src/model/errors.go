package model

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated indicates an operation needs a logged in user
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrNotFound indicates a referenced conversation, message or agent is absent
	ErrNotFound = errors.New("not found")

	// ErrNoConversation indicates no conversation is selected
	ErrNoConversation = errors.New("no current conversation")

	// ErrRemoteStoreUnavailable indicates the record store could not be reached
	// or has no schema yet
	ErrRemoteStoreUnavailable = errors.New("remote store unavailable")

	// ErrGenerationFailure indicates the response generator rejected a request
	ErrGenerationFailure = errors.New("generation failed")
)

// GenerationError describes a failed response generation for one agent.
type GenerationError struct {
	AgentID string
	Model   string
	Err     error
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	return fmt.Sprintf("agent %s (model %s): %v", e.AgentID, e.Model, e.Err)
}

// Unwrap returns the underlying error.
func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Is matches ErrGenerationFailure.
func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailure
}
