package main

import (
	"cmp"
	"fmt"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"

	"github.com/elee1766/parley/src/model"
)

// ConversationCmd manages conversations
type ConversationCmd struct {
	New          ConvNewCmd          `cmd:"" help:"Start an empty conversation"`
	Start        ConvStartCmd        `cmd:"" help:"Start a conversation with agents"`
	List         ConvListCmd         `cmd:"" help:"List conversations"`
	Use          ConvUseCmd          `cmd:"" help:"Select the current conversation"`
	Show         ConvShowCmd         `cmd:"" help:"Print a conversation transcript"`
	Delete       ConvDeleteCmd       `cmd:"" help:"Delete a conversation"`
	Participants ConvParticipantsCmd `cmd:"" help:"Replace the agents in a conversation"`
	Rename       ConvRenameCmd       `cmd:"" help:"Rename a conversation"`
}

// ConvNewCmd starts an empty conversation
type ConvNewCmd struct{}

// Run executes the conversation new command
func (c *ConvNewCmd) Run(ctx *kong.Context, cli *CLI) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.close()

	conv := s.Conversations.CreateNew()
	fmt.Fprintf(ctx.Stdout, "Started %q (%s)\n", conv.Title, conv.ID)
	return nil
}

// ConvStartCmd starts a conversation with agents
type ConvStartCmd struct {
	Agents []string `arg:"" help:"Agent ids or names"`
}

// Run executes the conversation start command
func (c *ConvStartCmd) Run(ctx *kong.Context, cli *CLI) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.close()

	if _, err := s.requireUser(); err != nil {
		return err
	}
	ids, err := s.agentIDs(c.Agents)
	if err != nil {
		return err
	}
	conv, err := s.Conversations.Create(ids)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Stdout, "Started %q (%s)\n", conv.Title, conv.ID)
	return nil
}

// ConvListCmd lists conversations
type ConvListCmd struct {
	Format string `help:"Output format (table, json)" default:"table" enum:"table,json"`
}

// Run executes the conversation list command
func (c *ConvListCmd) Run(ctx *kong.Context, cli *CLI) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.close()

	convs := s.Conversations.Conversations()
	slices.SortFunc(convs, func(a, b model.Conversation) int {
		return cmp.Compare(b.UpdatedAt, a.UpdatedAt)
	})
	if c.Format == "json" {
		return printJSON(ctx, convs)
	}

	current := s.Conversations.CurrentID()
	w := tabwriter.NewWriter(ctx.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tID\tTITLE\tAGENTS\tMESSAGES\tUPDATED")
	for _, conv := range convs {
		mark := ""
		if conv.ID == current {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			mark, conv.ID, truncate(conv.Title, cli.Width/3), len(conv.Participants.AgentIDs),
			len(conv.Messages), time.UnixMilli(conv.UpdatedAt).Format(time.DateTime))
	}
	return w.Flush()
}

// ConvUseCmd selects the current conversation
type ConvUseCmd struct {
	ID string `arg:"" help:"Conversation id"`
}

// Run executes the conversation use command
func (c *ConvUseCmd) Run(ctx *kong.Context, cli *CLI) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.close()

	id := s.conversationID(c.ID)
	if !s.Conversations.SetCurrent(id) {
		return notFound("conversation", c.ID)
	}
	fmt.Fprintf(ctx.Stdout, "Using conversation %s\n", id)
	return nil
}

// ConvShowCmd prints a transcript
type ConvShowCmd struct {
	ID     string `arg:"" optional:"" help:"Conversation id (defaults to the current one)"`
	Format string `help:"Output format (text, json)" default:"text" enum:"text,json"`
}

// Run executes the conversation show command
func (c *ConvShowCmd) Run(ctx *kong.Context, cli *CLI) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.close()

	conv, err := s.conversation(c.ID)
	if err != nil {
		return err
	}
	if c.Format == "json" {
		return printJSON(ctx, conv)
	}
	renderTranscript(ctx.Stdout, conv, s.agentName)
	return nil
}

// ConvDeleteCmd deletes a conversation
type ConvDeleteCmd struct {
	ID string `arg:"" help:"Conversation id"`
}

// Run executes the conversation delete command
func (c *ConvDeleteCmd) Run(ctx *kong.Context, cli *CLI) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.close()

	id := s.conversationID(c.ID)
	if !s.Conversations.DeleteConversation(id) {
		return notFound("conversation", c.ID)
	}
	fmt.Fprintf(ctx.Stdout, "Deleted conversation %s\n", id)
	return nil
}

// ConvParticipantsCmd replaces the agents of a conversation
type ConvParticipantsCmd struct {
	Agents []string `arg:"" optional:"" help:"Agent ids or names (none removes every agent)"`
	ID     string   `help:"Conversation id (defaults to the current one)"`
}

// Run executes the conversation participants command
func (c *ConvParticipantsCmd) Run(ctx *kong.Context, cli *CLI) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.close()

	conv, err := s.conversation(c.ID)
	if err != nil {
		return err
	}
	ids, err := s.agentIDs(c.Agents)
	if err != nil {
		return err
	}
	if !s.Conversations.SetParticipants(conv.ID, ids) {
		return notFound("conversation", conv.ID)
	}
	fmt.Fprintf(ctx.Stdout, "%s now has %d agents\n", conv.ID, len(ids))
	return nil
}

// ConvRenameCmd renames a conversation
type ConvRenameCmd struct {
	Title string `arg:"" help:"New title"`
	ID    string `help:"Conversation id (defaults to the current one)"`
}

// Run executes the conversation rename command
func (c *ConvRenameCmd) Run(ctx *kong.Context, cli *CLI) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.close()

	conv, err := s.conversation(c.ID)
	if err != nil {
		return err
	}
	if !s.Conversations.Rename(conv.ID, c.Title) {
		return notFound("conversation", conv.ID)
	}
	fmt.Fprintf(ctx.Stdout, "Renamed %s to %q\n", conv.ID, c.Title)
	return nil
}
