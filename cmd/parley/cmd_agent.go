package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/alecthomas/kong"
	"github.com/spf13/afero"

	"github.com/elee1766/parley/src/knowledge"
	"github.com/elee1766/parley/src/model"
)

// AgentCmd manages agents
type AgentCmd struct {
	Create    AgentCreateCmd    `cmd:"" help:"Create an agent"`
	List      AgentListCmd      `cmd:"" help:"List agents"`
	Show      AgentShowCmd      `cmd:"" help:"Show an agent"`
	Update    AgentUpdateCmd    `cmd:"" help:"Update an agent"`
	Delete    AgentDeleteCmd    `cmd:"" help:"Delete an agent"`
	Knowledge AgentKnowledgeCmd `cmd:"" help:"Manage an agent's knowledge base"`
	Tool      AgentToolCmd      `cmd:"" help:"Manage an agent's tools"`
}

// instructionsSource is shared by create and update.
type instructionsSource struct {
	Instructions     string `help:"System instructions"`
	InstructionsFile string `type:"path" help:"Read system instructions from a file"`
}

func (i instructionsSource) read(fs afero.Fs) (string, bool, error) {
	if i.InstructionsFile != "" {
		data, err := afero.ReadFile(fs, i.InstructionsFile)
		if err != nil {
			return "", false, fmt.Errorf("failed to read instructions: %w", err)
		}
		return string(data), true, nil
	}
	return i.Instructions, i.Instructions != "", nil
}

// AgentCreateCmd creates an agent
type AgentCreateCmd struct {
	Name        string `arg:"" help:"Agent name"`
	Model       string `help:"Model id (empty uses the default model)"`
	Description string `help:"Short description"`
	Avatar      string `help:"Avatar URL"`
	Inactive    bool   `help:"Create the agent inactive"`

	Prompt instructionsSource `embed:""`
}

// Run executes the agent create command
func (c *AgentCreateCmd) Run(ctx *kong.Context, cli *CLI) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.close()

	instructions, _, err := c.Prompt.read(s.Fs)
	if err != nil {
		return err
	}
	a := s.Agents.Create(s.ctx, model.AgentInput{
		Name:         c.Name,
		Avatar:       c.Avatar,
		Model:        c.Model,
		Description:  c.Description,
		Instructions: instructions,
		IsActive:     !c.Inactive,
	})
	fmt.Fprintf(ctx.Stdout, "Created agent %s (%s), %d instruction tokens\n", a.Name, a.ID, a.InstructionTokenCount)
	return nil
}

// AgentListCmd lists agents
type AgentListCmd struct {
	Format string `help:"Output format (table, json)" default:"table" enum:"table,json"`
}

// Run executes the agent list command
func (c *AgentListCmd) Run(ctx *kong.Context, cli *CLI) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.close()

	list := s.Agents.List()
	if c.Format == "json" {
		return printJSON(ctx, list)
	}
	if len(list) == 0 {
		fmt.Fprintln(ctx.Stdout, "No agents. Create one with 'parley agent create NAME'.")
		return nil
	}

	w := tabwriter.NewWriter(ctx.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tMODEL\tACTIVE\tTOKENS\tDESCRIPTION")
	for _, a := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%d\t%s\n",
			a.ID, a.Name, orDefault(a.Model), a.IsActive, a.InstructionTokenCount,
			truncate(a.Description, cli.Width/3))
	}
	return w.Flush()
}

// AgentShowCmd shows an agent
type AgentShowCmd struct {
	Agent  string `arg:"" help:"Agent id or name"`
	Format string `help:"Output format (text, json)" default:"text" enum:"text,json"`
}

// Run executes the agent show command
func (c *AgentShowCmd) Run(ctx *kong.Context, cli *CLI) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.close()

	a, err := s.agent(c.Agent)
	if err != nil {
		return err
	}
	if c.Format == "json" {
		return printJSON(ctx, a)
	}

	fmt.Fprintf(ctx.Stdout, "ID:          %s\n", a.ID)
	fmt.Fprintf(ctx.Stdout, "Name:        %s\n", a.Name)
	fmt.Fprintf(ctx.Stdout, "Model:       %s\n", orDefault(a.Model))
	fmt.Fprintf(ctx.Stdout, "Active:      %t\n", a.IsActive)
	fmt.Fprintf(ctx.Stdout, "Description: %s\n", a.Description)
	fmt.Fprintf(ctx.Stdout, "Tokens:      %d\n", a.InstructionTokenCount)
	if a.Instructions != "" {
		fmt.Fprintf(ctx.Stdout, "\nInstructions:\n%s\n", a.Instructions)
	}
	if len(a.KnowledgeBase) > 0 {
		fmt.Fprintln(ctx.Stdout, "\nKnowledge:")
		for _, k := range a.KnowledgeBase {
			size := len(k.Content)
			if k.Size != nil {
				size = int(*k.Size)
			}
			fmt.Fprintf(ctx.Stdout, "  %s  %-5s %s (%d bytes)\n", k.ID, k.Type, k.Name, size)
		}
	}
	if len(a.Tools) > 0 {
		fmt.Fprintln(ctx.Stdout, "\nTools:")
		for _, t := range a.Tools {
			state := "active"
			if !t.IsActive {
				state = "inactive"
			}
			fmt.Fprintf(ctx.Stdout, "  %s  %s [%s] %s\n", t.ID, t.Name, state, truncate(t.Description, cli.Width/2))
			for _, p := range t.Parameters {
				fmt.Fprintf(ctx.Stdout, "      - %s\n", formatParam(p))
			}
		}
	}
	return nil
}

// AgentUpdateCmd updates an agent
type AgentUpdateCmd struct {
	Agent       string  `arg:"" help:"Agent id or name"`
	Name        *string `help:"New name"`
	Model       *string `help:"New model id"`
	Description *string `help:"New description"`
	Avatar      *string `help:"New avatar URL"`
	Activate    bool    `xor:"active" help:"Mark the agent active"`
	Deactivate  bool    `xor:"active" help:"Mark the agent inactive"`

	Prompt instructionsSource `embed:""`
}

// Run executes the agent update command
func (c *AgentUpdateCmd) Run(ctx *kong.Context, cli *CLI) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.close()

	a, err := s.agent(c.Agent)
	if err != nil {
		return err
	}
	u := model.AgentUpdate{
		Name:        c.Name,
		Model:       c.Model,
		Description: c.Description,
		Avatar:      c.Avatar,
		IsActive:    activeFlag(c.Activate, c.Deactivate),
	}
	instructions, set, err := c.Prompt.read(s.Fs)
	if err != nil {
		return err
	}
	if set {
		u.Instructions = &instructions
	}
	if !s.Agents.Update(s.ctx, a.ID, u) {
		return notFound("agent", a.ID)
	}
	fmt.Fprintf(ctx.Stdout, "Updated agent %s\n", a.ID)
	return nil
}

// AgentDeleteCmd deletes an agent
type AgentDeleteCmd struct {
	Agent string `arg:"" help:"Agent id or name"`
}

// Run executes the agent delete command
func (c *AgentDeleteCmd) Run(ctx *kong.Context, cli *CLI) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.close()

	a, err := s.agent(c.Agent)
	if err != nil {
		return err
	}
	if !s.Agents.Delete(a.ID) {
		return notFound("agent", a.ID)
	}
	fmt.Fprintf(ctx.Stdout, "Deleted agent %s (%s)\n", a.Name, a.ID)
	return nil
}

// AgentKnowledgeCmd manages knowledge items
type AgentKnowledgeCmd struct {
	Add     KnowledgeAddCmd     `cmd:"" help:"Add inline text"`
	AddURL  KnowledgeAddURLCmd  `cmd:"" name:"add-url" help:"Add the text of a web page"`
	AddFile KnowledgeAddFileCmd `cmd:"" name:"add-file" help:"Reference a local file"`
	Remove  KnowledgeRemoveCmd  `cmd:"" help:"Remove a knowledge item"`
}

// KnowledgeAddCmd adds inline text
type KnowledgeAddCmd struct {
	Agent   string `arg:"" help:"Agent id or name"`
	Name    string `arg:"" help:"Item name"`
	Content string `arg:"" help:"Item text"`
}

// Run executes the knowledge add command
func (c *KnowledgeAddCmd) Run(ctx *kong.Context, cli *CLI) error {
	return addKnowledge(ctx, cli, c.Agent, func(*session) (model.KnowledgeItemInput, error) {
		return model.KnowledgeItemInput{Name: c.Name, Content: c.Content, Type: model.KnowledgeText}, nil
	})
}

// KnowledgeAddURLCmd adds a fetched web page
type KnowledgeAddURLCmd struct {
	Agent  string `arg:"" help:"Agent id or name"`
	URL    string `arg:"" help:"Page URL"`
	Format string `help:"Conversion format (markdown, text)" default:"markdown" enum:"markdown,text"`
	Name   string `help:"Item name (defaults to the page title)"`
}

// Run executes the knowledge add-url command
func (c *KnowledgeAddURLCmd) Run(ctx *kong.Context, cli *CLI) error {
	return addKnowledge(ctx, cli, c.Agent, func(s *session) (model.KnowledgeItemInput, error) {
		in, err := knowledge.FromURL(s.ctx, nil, c.URL, c.Format)
		if err != nil {
			return in, err
		}
		if c.Name != "" {
			in.Name = c.Name
		}
		return in, nil
	})
}

// KnowledgeAddFileCmd references a local file
type KnowledgeAddFileCmd struct {
	Agent string `arg:"" help:"Agent id or name"`
	Path  string `arg:"" type:"path" help:"File path"`
}

// Run executes the knowledge add-file command
func (c *KnowledgeAddFileCmd) Run(ctx *kong.Context, cli *CLI) error {
	return addKnowledge(ctx, cli, c.Agent, func(s *session) (model.KnowledgeItemInput, error) {
		return knowledge.FromFile(s.Fs, c.Path)
	})
}

func addKnowledge(ctx *kong.Context, cli *CLI, agent string, build func(*session) (model.KnowledgeItemInput, error)) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.close()

	a, err := s.agent(agent)
	if err != nil {
		return err
	}
	in, err := build(s)
	if err != nil {
		return err
	}
	item, ok := s.Agents.AddKnowledgeItem(a.ID, in)
	if !ok {
		return notFound("agent", a.ID)
	}
	fmt.Fprintf(ctx.Stdout, "Added %s item %q (%s) to %s\n", item.Type, item.Name, item.ID, a.Name)
	return nil
}

// KnowledgeRemoveCmd removes a knowledge item
type KnowledgeRemoveCmd struct {
	Agent string `arg:"" help:"Agent id or name"`
	Item  string `arg:"" help:"Knowledge item id"`
}

// Run executes the knowledge remove command
func (c *KnowledgeRemoveCmd) Run(ctx *kong.Context, cli *CLI) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.close()

	a, err := s.agent(c.Agent)
	if err != nil {
		return err
	}
	if !s.Agents.RemoveKnowledgeItem(a.ID, c.Item) {
		return notFound("knowledge item", c.Item)
	}
	fmt.Fprintf(ctx.Stdout, "Removed knowledge item %s\n", c.Item)
	return nil
}

// AgentToolCmd manages tools
type AgentToolCmd struct {
	Add    ToolAddCmd    `cmd:"" help:"Add a tool"`
	Update ToolUpdateCmd `cmd:"" help:"Update a tool"`
	Remove ToolRemoveCmd `cmd:"" help:"Remove a tool"`
	Import ToolImportCmd `cmd:"" help:"Import tools from an OpenAPI document"`
}

// ToolAddCmd adds a tool
type ToolAddCmd struct {
	Agent       string   `arg:"" help:"Agent id or name"`
	Name        string   `arg:"" help:"Tool name"`
	Description string   `help:"Tool description"`
	Param       []string `short:"p" help:"Parameter as name[!]:type[:description]; a trailing ! marks it required"`
	Script      string   `help:"Script body"`
	Inactive    bool     `help:"Add the tool inactive"`
}

// Run executes the tool add command
func (c *ToolAddCmd) Run(ctx *kong.Context, cli *CLI) error {
	params, err := parseParams(c.Param)
	if err != nil {
		return err
	}
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.close()

	a, err := s.agent(c.Agent)
	if err != nil {
		return err
	}
	t, ok := s.Agents.AddTool(a.ID, model.ToolInput{
		Name:        c.Name,
		Description: c.Description,
		Parameters:  params,
		IsActive:    !c.Inactive,
		Script:      c.Script,
	})
	if !ok {
		return notFound("agent", a.ID)
	}
	fmt.Fprintf(ctx.Stdout, "Added tool %s (%s) to %s\n", t.Name, t.ID, a.Name)
	return nil
}

// ToolUpdateCmd updates a tool
type ToolUpdateCmd struct {
	Agent       string   `arg:"" help:"Agent id or name"`
	Tool        string   `arg:"" help:"Tool id"`
	Name        *string  `help:"New name"`
	Description *string  `help:"New description"`
	Param       []string `short:"p" help:"Replace the parameters (name[!]:type[:description])"`
	Script      *string  `help:"New script body"`
	Activate    bool     `xor:"active" help:"Mark the tool active"`
	Deactivate  bool     `xor:"active" help:"Mark the tool inactive"`
}

// Run executes the tool update command
func (c *ToolUpdateCmd) Run(ctx *kong.Context, cli *CLI) error {
	u := model.ToolUpdate{
		Name:        c.Name,
		Description: c.Description,
		Script:      c.Script,
		IsActive:    activeFlag(c.Activate, c.Deactivate),
	}
	if len(c.Param) > 0 {
		params, err := parseParams(c.Param)
		if err != nil {
			return err
		}
		u.Parameters = &params
	}

	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.close()

	a, err := s.agent(c.Agent)
	if err != nil {
		return err
	}
	if !s.Agents.UpdateTool(a.ID, c.Tool, u) {
		return notFound("tool", c.Tool)
	}
	fmt.Fprintf(ctx.Stdout, "Updated tool %s\n", c.Tool)
	return nil
}

// ToolRemoveCmd removes a tool
type ToolRemoveCmd struct {
	Agent string `arg:"" help:"Agent id or name"`
	Tool  string `arg:"" help:"Tool id"`
}

// Run executes the tool remove command
func (c *ToolRemoveCmd) Run(ctx *kong.Context, cli *CLI) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.close()

	a, err := s.agent(c.Agent)
	if err != nil {
		return err
	}
	if !s.Agents.RemoveTool(a.ID, c.Tool) {
		return notFound("tool", c.Tool)
	}
	fmt.Fprintf(ctx.Stdout, "Removed tool %s\n", c.Tool)
	return nil
}

// ToolImportCmd imports every operation of an OpenAPI document as a tool
type ToolImportCmd struct {
	Agent  string `arg:"" help:"Agent id or name"`
	Source string `arg:"" help:"API base URL (its /openapi.json is fetched) or a local document"`
	DryRun bool   `help:"List the tools without adding them"`
}

// Run executes the tool import command
func (c *ToolImportCmd) Run(ctx *kong.Context, cli *CLI) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.close()

	a, err := s.agent(c.Agent)
	if err != nil {
		return err
	}

	var inputs []model.ToolInput
	if ok, _ := afero.Exists(s.Fs, c.Source); ok {
		data, err := afero.ReadFile(s.Fs, c.Source)
		if err != nil {
			return fmt.Errorf("failed to read OpenAPI document: %w", err)
		}
		inputs, err = s.Tools.Parse(data)
		if err != nil {
			return err
		}
	} else {
		inputs, err = s.Tools.Fetch(s.ctx, c.Source)
		if err != nil {
			return err
		}
	}

	for _, in := range inputs {
		if c.DryRun {
			fmt.Fprintf(ctx.Stdout, "%s  %s\n", in.Name, truncate(in.Description, cli.Width-len(in.Name)-2))
			continue
		}
		t, ok := s.Agents.AddTool(a.ID, in)
		if !ok {
			return notFound("agent", a.ID)
		}
		fmt.Fprintf(ctx.Stdout, "Added tool %s (%s)\n", t.Name, t.ID)
	}
	if !c.DryRun {
		fmt.Fprintf(ctx.Stdout, "Imported %d tools into %s\n", len(inputs), a.Name)
	}
	return nil
}

// parseParams reads parameters written as name[!]:type[:description].
func parseParams(specs []string) ([]model.ToolParameter, error) {
	params := make([]model.ToolParameter, 0, len(specs))
	for _, raw := range specs {
		parts := strings.SplitN(raw, ":", 3)
		name := strings.TrimSpace(parts[0])
		p := model.ToolParameter{Type: "string"}
		if strings.HasSuffix(name, "!") {
			p.Required = true
			name = strings.TrimSuffix(name, "!")
		}
		if name == "" {
			return nil, fmt.Errorf("invalid parameter %q: missing name", raw)
		}
		p.Name = name
		if len(parts) > 1 && parts[1] != "" {
			switch t := strings.ToLower(strings.TrimSpace(parts[1])); t {
			case "string", "number", "boolean", "array", "object":
				p.Type = t
			case "integer":
				p.Type = "number"
			default:
				return nil, fmt.Errorf("invalid parameter %q: unknown type %q", raw, t)
			}
		}
		if len(parts) > 2 {
			p.Description = strings.TrimSpace(parts[2])
		}
		params = append(params, p)
	}
	return params, nil
}

// activeFlag turns an --activate/--deactivate pair into an optional update.
func activeFlag(activate, deactivate bool) *bool {
	switch {
	case activate:
		return model.Ptr(true)
	case deactivate:
		return model.Ptr(false)
	default:
		return nil
	}
}

func orDefault(modelID string) string {
	if modelID == "" {
		return "(default)"
	}
	return modelID
}

func printJSON(ctx *kong.Context, v any) error {
	encoder := json.NewEncoder(ctx.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func formatParam(p model.ToolParameter) string {
	out := p.Name + " (" + p.Type
	if p.Required {
		out += ", required"
	}
	out += ")"
	if p.Description != "" {
		out += ": " + p.Description
	}
	return out
}
