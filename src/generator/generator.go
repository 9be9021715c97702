// Package generator turns a composed prompt into an agent reply using one of
// the configured model backends.
package generator

import (
	"context"
	"strings"
	"unicode/utf8"
)

// Role is the speaker role of a transcript turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one prior message of the transcript.
type Turn struct {
	Role    Role
	Name    string
	Content string
}

// Prompt is everything a backend needs to produce one reply.
type Prompt struct {
	System  string
	History []Turn
	Message string
}

// Text flattens the prompt into a single document, used for token counting
// and by backends without chat support.
func (p Prompt) Text() string {
	var sb strings.Builder
	if p.System != "" {
		sb.WriteString(p.System)
		sb.WriteString("\n\n")
	}
	for _, t := range p.History {
		name := t.Name
		if name == "" {
			name = string(t.Role)
		}
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(t.Content)
		sb.WriteString("\n")
	}
	sb.WriteString(string(RoleUser))
	sb.WriteString(": ")
	sb.WriteString(p.Message)
	return sb.String()
}

// Generator produces replies and counts tokens.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt, modelID string) (string, error)
	// CountTokens never fails; implementations fall back to Estimate.
	CountTokens(ctx context.Context, text string) int
}

// Estimate is the deterministic token estimate ceil(len/4).
func Estimate(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}

// Options are sampling parameters shared by the backends.
type Options struct {
	Temperature     float32
	TopP            float32
	TopK            int32
	MaxOutputTokens int32
}

// DefaultOptions returns the sampling parameters used when none are configured.
func DefaultOptions() Options {
	return Options{
		Temperature: 0.7,
		TopP:        0.95,
		TopK:        64,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Temperature == 0 {
		o.Temperature = d.Temperature
	}
	if o.TopP == 0 {
		o.TopP = d.TopP
	}
	if o.TopK == 0 {
		o.TopK = d.TopK
	}
	return o
}
