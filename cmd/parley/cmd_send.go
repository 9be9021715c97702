package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/spf13/afero"

	"github.com/elee1766/parley/src/model"
	"github.com/elee1766/parley/src/theme"
)

// SendCmd sends a message to the current conversation
type SendCmd struct {
	Message []string `arg:"" optional:"" help:"Message text; @name tokens mention agents"`
	Mention []string `short:"m" help:"Agent to mention (repeatable)"`
	Task    bool     `short:"t" help:"Send as a task; only mentioned agents (or all when none) reply"`
	File    string   `short:"f" help:"Read the message from a file ('-' for stdin)"`
}

// Run executes the send command
func (c *SendCmd) Run(ctx *kong.Context, cli *CLI) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.close()

	content, err := c.content(s.Fs, os.Stdin)
	if err != nil {
		return err
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("message is empty")
	}

	tokens := append(mentionTokens(content), c.Mention...)
	mentions, unresolved := s.Agents.Resolve(tokens)
	for _, tok := range unresolved {
		s.Logger.Warn("mention does not match an agent", "mention", tok)
	}

	names := s.agentName
	res, err := s.Conversations.SendMessage(s.ctx, content, mentions, c.Task)
	if err != nil {
		return err
	}
	for _, reply := range res.Replies {
		renderMessage(ctx.Stdout, reply, names)
	}
	if len(res.Replies) == 0 {
		fmt.Fprintln(ctx.Stdout, theme.CurrentTheme.Muted().Render("No agent in this conversation replied."))
	}
	if len(res.Failures) > 0 {
		return fmt.Errorf("%d agents failed to reply: %w", len(res.Failures), res.Failures[0])
	}
	return nil
}

func (c *SendCmd) content(fs afero.Fs, stdin io.Reader) (string, error) {
	switch c.File {
	case "":
		return strings.Join(c.Message, " "), nil
	case "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	default:
		data, err := afero.ReadFile(fs, c.File)
		if err != nil {
			return "", fmt.Errorf("failed to read message: %w", err)
		}
		return string(data), nil
	}
}

// mentionTokens extracts @name tokens from message text.
func mentionTokens(content string) []string {
	var out []string
	for _, field := range strings.Fields(content) {
		if !strings.HasPrefix(field, "@") {
			continue
		}
		tok := strings.TrimRight(strings.TrimPrefix(field, "@"), ".,:;!?)")
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// MessageCmd edits messages
type MessageCmd struct {
	Edit   MessageEditCmd   `cmd:"" help:"Replace the text of a message"`
	Delete MessageDeleteCmd `cmd:"" help:"Delete a message"`
}

// MessageEditCmd replaces a message's content
type MessageEditCmd struct {
	ID           string `arg:"" help:"Message id or id prefix"`
	Content      string `arg:"" help:"New text"`
	Conversation string `help:"Conversation id (defaults to the current one)"`
}

// Run executes the message edit command
func (c *MessageEditCmd) Run(ctx *kong.Context, cli *CLI) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.close()

	conv, msg, err := s.message(c.Conversation, c.ID)
	if err != nil {
		return err
	}
	if !s.Conversations.UpdateMessage(conv.ID, msg.ID, model.MessageUpdate{Content: &c.Content}) {
		return notFound("message", c.ID)
	}
	fmt.Fprint(ctx.Stdout, editDiff(msg.Content, c.Content))
	return nil
}

// MessageDeleteCmd deletes a message
type MessageDeleteCmd struct {
	ID           string `arg:"" help:"Message id or id prefix"`
	Conversation string `help:"Conversation id (defaults to the current one)"`
}

// Run executes the message delete command
func (c *MessageDeleteCmd) Run(ctx *kong.Context, cli *CLI) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.close()

	conv, msg, err := s.message(c.Conversation, c.ID)
	if err != nil {
		return err
	}
	if !s.Conversations.DeleteMessage(conv.ID, msg.ID) {
		return notFound("message", c.ID)
	}
	fmt.Fprintf(ctx.Stdout, "Deleted message %s\n", msg.ID)
	return nil
}

// message finds a message by id or unique id prefix.
func (s *session) message(convID, id string) (model.Conversation, model.Message, error) {
	conv, err := s.conversation(convID)
	if err != nil {
		return conv, model.Message{}, err
	}
	found := -1
	for i, m := range conv.Messages {
		if m.ID == id {
			return conv, m, nil
		}
		if strings.HasPrefix(m.ID, id) {
			if found >= 0 {
				return conv, model.Message{}, fmt.Errorf("message id %q is ambiguous", id)
			}
			found = i
		}
	}
	if found < 0 {
		return conv, model.Message{}, notFound("message", id)
	}
	return conv, conv.Messages[found], nil
}
