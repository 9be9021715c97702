// Package prompt composes the generator prompt for one agent reply: persona,
// instructions, tools, relevant knowledge and the prior transcript.
package prompt

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/afero"

	"github.com/elee1766/parley/src/generator"
	"github.com/elee1766/parley/src/knowledge"
	"github.com/elee1766/parley/src/model"
)

// DefaultMaxKnowledgeBytes caps how much of a knowledge file is inlined.
const DefaultMaxKnowledgeBytes = 64 * 1024

// Config configures a Builder.
type Config struct {
	// Policy picks the knowledge attached to each message. Nil attaches the
	// whole knowledge base.
	Policy knowledge.Policy
	// Fs resolves file knowledge items.
	Fs                afero.Fs
	MaxKnowledgeBytes int64
	// Environment adds the host description to the system prompt.
	Environment bool
	Now         func() time.Time
	Logger      *slog.Logger
}

// Builder composes prompts.
type Builder struct {
	policy   knowledge.Policy
	fs       afero.Fs
	maxBytes int64
	env      bool
	now      func() time.Time
	logger   *slog.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(cfg Config) *Builder {
	if cfg.Policy == nil {
		cfg.Policy = knowledge.All{}
	}
	if cfg.MaxKnowledgeBytes == 0 {
		cfg.MaxKnowledgeBytes = DefaultMaxKnowledgeBytes
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Builder{
		policy:   cfg.Policy,
		fs:       cfg.Fs,
		maxBytes: cfg.MaxKnowledgeBytes,
		env:      cfg.Environment,
		now:      cfg.Now,
		logger:   cfg.Logger.With("component", "prompt"),
	}
}

// Build composes the prompt for agent answering message, given the messages
// that precede it. Knowledge lookup failures are logged and the prompt is
// built without knowledge.
func (b *Builder) Build(ctx context.Context, agent model.Agent, history []model.Message, message string) generator.Prompt {
	system := SystemPrompt(agent)
	if b.env {
		system += "\n\n" + environmentInfo(b.now())
	}

	return generator.Prompt{
		System:  system,
		History: Turns(agent.ID, history),
		Message: WithKnowledge(message, b.knowledge(ctx, agent, message)),
	}
}

func (b *Builder) knowledge(ctx context.Context, agent model.Agent, query string) []NamedText {
	items, err := b.policy.Select(ctx, agent, query)
	if err != nil {
		b.logger.Warn("knowledge selection failed", "agent_id", agent.ID, "error", err)
		return nil
	}
	out := make([]NamedText, 0, len(items))
	for _, item := range items {
		text, err := knowledge.Resolve(b.fs, item, b.maxBytes)
		if err != nil {
			b.logger.Warn("skipping knowledge item", "agent_id", agent.ID, "item_id", item.ID, "error", err)
			continue
		}
		out = append(out, NamedText{Name: item.Name, Text: text})
	}
	return out
}

// Turns converts a transcript into generator turns from the point of view of
// agentID. Its own messages are model turns; everything else is a user turn,
// with other agents and system messages prefixed by the speaker name.
func Turns(agentID string, history []model.Message) []generator.Turn {
	turns := make([]generator.Turn, 0, len(history))
	for _, m := range history {
		turn := generator.Turn{Role: generator.RoleUser, Name: m.Sender.Name, Content: m.Content}
		switch {
		case m.Sender.Type == model.SenderAgent && m.Sender.ID == agentID:
			turn.Role = generator.RoleModel
		case m.Sender.Type != model.SenderUser && m.Sender.Name != "":
			turn.Content = m.Sender.Name + ": " + m.Content
		}
		turns = append(turns, turn)
	}
	return turns
}
