package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/alecthomas/kong"

	"github.com/elee1766/parley/src/model"
	"github.com/elee1766/parley/src/orclient"
)

// ModelCmd manages configured models
type ModelCmd struct {
	List      ModelListCmd      `cmd:"" help:"List configured models"`
	Add       ModelAddCmd       `cmd:"" help:"Configure a model"`
	Remove    ModelRemoveCmd    `cmd:"" help:"Remove a configured model"`
	Default   ModelDefaultCmd   `cmd:"" help:"Set the default model"`
	Available ModelAvailableCmd `cmd:"" help:"List models offered by OpenRouter"`
	Info      ModelInfoCmd      `cmd:"" help:"Show an OpenRouter model"`
}

// ModelListCmd lists configured models
type ModelListCmd struct {
	Format string `help:"Output format (table, json)" default:"table" enum:"table,json"`
}

// Run executes the model list command
func (c *ModelListCmd) Run(ctx *kong.Context, cli *CLI) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.close()

	models := s.Settings.Models()
	if c.Format == "json" {
		return printJSON(ctx, models)
	}
	w := tabwriter.NewWriter(ctx.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tID\tName\tProvider\tKey")
	fmt.Fprintln(w, "\t---\t----\t--------\t---")
	for _, m := range models {
		mark := ""
		if m.IsDefault {
			mark = "*"
		}
		key := "shared"
		if m.APIKey != "" {
			key = "own"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", mark, m.ID, m.Name, m.Provider, key)
	}
	return w.Flush()
}

// ModelAddCmd configures a model
type ModelAddCmd struct {
	ID       string `arg:"" help:"Model id as the provider knows it (e.g. anthropic/claude-3.5-sonnet)"`
	Name     string `help:"Display name (defaults to the id, or the OpenRouter name)"`
	Provider string `default:"openrouter" enum:"google,openrouter" help:"Provider"`
	APIKey   string `name:"model-api-key" help:"API key for this model only"`
	Default  bool   `help:"Make this the default model"`
	Verify   bool   `help:"Check the id against the OpenRouter catalog"`
}

// Run executes the model add command
func (c *ModelAddCmd) Run(ctx *kong.Context, cli *CLI) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.close()

	name := c.Name
	if c.Verify && c.Provider == "openrouter" {
		info, err := s.OpenRouter.GetModelByID(s.ctx, c.ID)
		if err != nil {
			return fmt.Errorf("failed to verify model: %w", err)
		}
		if name == "" {
			name = info.Name
		}
	}
	if name == "" {
		name = c.ID
	}

	m, err := s.Settings.AddModel(model.ModelConfig{
		ID:        c.ID,
		Name:      name,
		Provider:  c.Provider,
		APIKey:    c.APIKey,
		IsDefault: c.Default,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Stdout, "Added model %s (%s)\n", m.ID, m.Provider)
	return nil
}

// ModelRemoveCmd removes a configured model
type ModelRemoveCmd struct {
	ID string `arg:"" help:"Model id"`
}

// Run executes the model remove command
func (c *ModelRemoveCmd) Run(ctx *kong.Context, cli *CLI) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.close()

	if !s.Settings.RemoveModel(c.ID) {
		return notFound("model", c.ID)
	}
	fmt.Fprintf(ctx.Stdout, "Removed model %s\n", c.ID)
	if def, ok := s.Settings.DefaultModel(); ok {
		fmt.Fprintf(ctx.Stdout, "Default model: %s\n", def.ID)
	}
	return nil
}

// ModelDefaultCmd sets the default model
type ModelDefaultCmd struct {
	ID string `arg:"" help:"Model id"`
}

// Run executes the model default command
func (c *ModelDefaultCmd) Run(ctx *kong.Context, cli *CLI) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.close()

	if !s.Settings.SetDefaultModel(c.ID) {
		return notFound("model", c.ID)
	}
	fmt.Fprintf(ctx.Stdout, "Default model: %s\n", c.ID)
	return nil
}

// ModelAvailableCmd lists the OpenRouter catalog
type ModelAvailableCmd struct {
	Search    string `help:"Only models whose id or name contains this text"`
	Format    string `help:"Output format (table, json)" default:"table" enum:"table,json"`
	WithCosts bool   `help:"Include pricing information"`
}

// Run executes the model available command
func (c *ModelAvailableCmd) Run(ctx *kong.Context, cli *CLI) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.close()

	models, err := s.OpenRouter.ListModels(s.ctx)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}
	if c.Search != "" {
		models = filterModels(models, c.Search)
	}
	if c.Format == "json" {
		return printJSON(ctx, models)
	}
	return printModelsTable(ctx, models, c.WithCosts, cli.Width)
}

// ModelInfoCmd shows one OpenRouter model
type ModelInfoCmd struct {
	Model string `arg:"" help:"Model ID or name"`
}

// Run executes the model info command
func (c *ModelInfoCmd) Run(ctx *kong.Context, cli *CLI) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.close()

	m, err := s.OpenRouter.GetModelByID(s.ctx, c.Model)
	if err != nil {
		m, err = s.OpenRouter.FindModelByName(s.ctx, c.Model)
	}
	if err != nil {
		return fmt.Errorf("failed to get model info: %w", err)
	}
	return printModelInfo(ctx, m)
}

func filterModels(models []*orclient.ModelInfo, search string) []*orclient.ModelInfo {
	search = strings.ToLower(search)
	var out []*orclient.ModelInfo
	for _, m := range models {
		if strings.Contains(strings.ToLower(m.ID), search) || strings.Contains(strings.ToLower(m.Name), search) {
			out = append(out, m)
		}
	}
	return out
}

func printModelsTable(ctx *kong.Context, models []*orclient.ModelInfo, withCosts bool, width int) error {
	w := tabwriter.NewWriter(ctx.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	if withCosts {
		fmt.Fprintln(w, "ID\tName\tContext\tPrompt Cost\tCompletion Cost")
		fmt.Fprintln(w, "---\t----\t-------\t-----------\t---------------")
		for _, m := range models {
			promptCost := "N/A"
			completionCost := "N/A"
			if m.Pricing != nil {
				if m.Pricing.Prompt != "" {
					promptCost = m.Pricing.Prompt
				}
				if m.Pricing.Completion != "" {
					completionCost = m.Pricing.Completion
				}
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
				m.ID, truncate(m.Name, width/3), m.ContextLength, promptCost, completionCost)
		}
		return nil
	}

	fmt.Fprintln(w, "ID\tName\tContext Length")
	fmt.Fprintln(w, "---\t----\t--------------")
	for _, m := range models {
		fmt.Fprintf(w, "%s\t%s\t%d\n", m.ID, truncate(m.Name, width/3), m.ContextLength)
	}
	return nil
}

func printModelInfo(ctx *kong.Context, m *orclient.ModelInfo) error {
	w := tabwriter.NewWriter(ctx.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "ID:\t%s\n", m.ID)
	fmt.Fprintf(w, "Name:\t%s\n", m.Name)
	fmt.Fprintf(w, "Description:\t%s\n", m.Description)
	fmt.Fprintf(w, "Context Length:\t%d\n", m.ContextLength)

	if m.Pricing != nil {
		fmt.Fprintln(w, "\nPricing:")
		if m.Pricing.Prompt != "" {
			fmt.Fprintf(w, "  Prompt:\t%s per token\n", m.Pricing.Prompt)
		}
		if m.Pricing.Completion != "" {
			fmt.Fprintf(w, "  Completion:\t%s per token\n", m.Pricing.Completion)
		}
		if m.Pricing.Request != "" {
			fmt.Fprintf(w, "  Request:\t%s per request\n", m.Pricing.Request)
		}
	}

	if m.Architecture != nil {
		fmt.Fprintln(w, "\nArchitecture:")
		if len(m.Architecture.InputModalities) > 0 {
			fmt.Fprintf(w, "  Input:\t%s\n", strings.Join(m.Architecture.InputModalities, ", "))
		}
		if len(m.Architecture.OutputModalities) > 0 {
			fmt.Fprintf(w, "  Output:\t%s\n", strings.Join(m.Architecture.OutputModalities, ", "))
		}
		if m.Architecture.Tokenizer != "" {
			fmt.Fprintf(w, "  Tokenizer:\t%s\n", m.Architecture.Tokenizer)
		}
	}
	return nil
}
