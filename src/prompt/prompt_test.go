package prompt

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elee1766/parley/src/generator"
	"github.com/elee1766/parley/src/knowledge"
	"github.com/elee1766/parley/src/model"
)

func ada() model.Agent {
	return model.Agent{
		ID:           "agent-ada",
		Name:         "Ada",
		Description:  "A careful analyst.",
		Instructions: "Answer with numbers.",
		Tools: []model.Tool{
			{
				Name:        "lookup",
				Description: "Look up a record",
				IsActive:    true,
				Parameters: []model.ToolParameter{
					{Name: "id", Type: "string", Description: "Record id", Required: true},
				},
			},
			{Name: "disabled", Description: "Never shown", IsActive: false},
		},
		KnowledgeBase: []model.KnowledgeItem{
			{ID: "k1", Name: "Prices", Content: "Basic is 5 EUR.", Type: model.KnowledgeText},
			{ID: "k2", Name: "guide.md", Content: "/kb/guide.md", Type: model.KnowledgeFile},
		},
	}
}

func TestSystemPrompt(t *testing.T) {
	got := SystemPrompt(ada())

	assert.True(t, strings.HasPrefix(got, "You are Ada. A careful analyst.\n\nInstructions: Answer with numbers."))
	for _, want := range []string{
		"You have access to the following tools:",
		"Tool: lookup",
		"Description: Look up a record",
		"id: string # Record id",
		"(required: id)",
		"You have access to the following knowledge base:\n- Prices\n- guide.md",
		"Respond in a conversational and helpful manner.",
	} {
		assert.Contains(t, got, want)
	}
	assert.NotContains(t, got, "disabled")
}

func TestSystemPromptMinimal(t *testing.T) {
	got := SystemPrompt(model.Agent{Name: "Bo"})
	assert.Equal(t, "You are Bo.\n\n"+closingSection, got)
}

func TestWithKnowledge(t *testing.T) {
	assert.Equal(t, "hi", WithKnowledge("hi", nil))
	got := WithKnowledge("hi", []NamedText{{Name: "A", Text: "one"}, {Name: "B", Text: "two"}})
	assert.Equal(t, "hi\n\n"+knowledgeLead+"\n--- A ---\none\n---\n\n--- B ---\ntwo\n---\n", got)
}

func TestTurns(t *testing.T) {
	history := []model.Message{
		{Content: "hello all", Sender: model.Sender{ID: "u1", Name: "Sam", Type: model.SenderUser}},
		{Content: "hi Sam", Sender: model.Sender{ID: "agent-ada", Name: "Ada", Type: model.SenderAgent}},
		{Content: "hey", Sender: model.Sender{ID: "agent-bo", Name: "Bo", Type: model.SenderAgent}},
		{Content: "joined", Sender: model.Sender{ID: "system", Name: "System", Type: model.SenderSystem}},
	}
	got := Turns("agent-ada", history)
	require.Len(t, got, 4)

	assert.Equal(t, generator.Turn{Role: generator.RoleUser, Name: "Sam", Content: "hello all"}, got[0])
	assert.Equal(t, generator.Turn{Role: generator.RoleModel, Name: "Ada", Content: "hi Sam"}, got[1])
	assert.Equal(t, generator.Turn{Role: generator.RoleUser, Name: "Bo", Content: "Bo: hey"}, got[2])
	assert.Equal(t, "System: joined", got[3].Content)
}

type failingPolicy struct{}

func (failingPolicy) Select(context.Context, model.Agent, string) ([]model.KnowledgeItem, error) {
	return nil, errors.New("index unavailable")
}

func TestBuild(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/kb/guide.md", []byte("Step one."), 0o644))
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

	b := NewBuilder(Config{Fs: fs, Environment: true, Now: func() time.Time { return now }})
	history := []model.Message{{Content: "earlier", Sender: model.Sender{Type: model.SenderUser}}}

	p := b.Build(context.Background(), ada(), history, "what is the price?")
	assert.Contains(t, p.System, "You are Ada.")
	assert.Contains(t, p.System, "Today's date: 2026-03-04")
	assert.Len(t, p.History, 1)
	assert.True(t, strings.HasPrefix(p.Message, "what is the price?\n\n"+knowledgeLead))
	assert.Contains(t, p.Message, "--- Prices ---\nBasic is 5 EUR.\n---")
	assert.Contains(t, p.Message, "--- guide.md ---\nStep one.\n---")
}

func TestBuildSkipsUnresolvableKnowledge(t *testing.T) {
	b := NewBuilder(Config{Fs: afero.NewMemMapFs()})
	p := b.Build(context.Background(), ada(), nil, "price")
	assert.Contains(t, p.Message, "--- Prices ---")
	assert.NotContains(t, p.Message, "guide.md")
	assert.NotContains(t, p.System, "<env>")
}

func TestBuildPolicies(t *testing.T) {
	ctx := context.Background()

	p := NewBuilder(Config{Policy: knowledge.None{}}).Build(ctx, ada(), nil, "price")
	assert.Equal(t, "price", p.Message)

	p = NewBuilder(Config{Policy: failingPolicy{}}).Build(ctx, ada(), nil, "price")
	assert.Equal(t, "price", p.Message)

	p = NewBuilder(Config{Policy: knowledge.Keyword{TopK: 1}}).Build(ctx, ada(), nil, "prices please")
	assert.Contains(t, p.Message, "--- Prices ---")
}
