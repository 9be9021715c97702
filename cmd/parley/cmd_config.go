package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/elee1766/parley/src/config"
)

// ConfigCmd manages configuration files
type ConfigCmd struct {
	Init ConfigInitCmd `cmd:"" help:"Write a default configuration file"`
	Show ConfigShowCmd `cmd:"" help:"Print the effective configuration"`
	Path ConfigPathCmd `cmd:"" help:"List the configuration files in load order"`
}

// ConfigInitCmd writes the default configuration
type ConfigInitCmd struct {
	Path  string `arg:"" optional:"" type:"path" help:"Destination (defaults to the user config file)"`
	Force bool   `help:"Overwrite an existing file"`
}

// Run executes the config init command
func (c *ConfigInitCmd) Run(ctx *kong.Context, cli *CLI) error {
	precedence := config.GetConfigPaths()
	path := c.Path
	if path == "" {
		path = precedence.UserConfig
	}
	if _, err := os.Stat(path); err == nil && !c.Force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	loader := config.NewLoader(precedence)
	if err := loader.SaveFile(config.DefaultConfig(), path); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Stdout, "Wrote %s\n", path)
	return nil
}

// ConfigShowCmd prints the effective configuration with secrets masked
type ConfigShowCmd struct{}

// Run executes the config show command
func (c *ConfigShowCmd) Run(ctx *kong.Context, cli *CLI) error {
	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}
	overrideConfigFromCLI(cfg, cli)
	return printJSON(ctx, config.Redacted(cfg))
}

// ConfigPathCmd lists configuration files
type ConfigPathCmd struct{}

// Run executes the config path command
func (c *ConfigPathCmd) Run(ctx *kong.Context, cli *CLI) error {
	p := config.GetConfigPaths()
	if cli.Config != "" {
		p.UserConfig = cli.Config
	}
	for _, entry := range []struct{ kind, path string }{
		{"system", p.SystemConfig},
		{"user", p.UserConfig},
		{"project", p.ProjectConfig},
		{"local", p.LocalConfig},
	} {
		state := "missing"
		if _, err := os.Stat(entry.path); err == nil {
			state = "found"
		}
		fmt.Fprintf(ctx.Stdout, "%-8s %-8s %s\n", entry.kind, state, entry.path)
	}
	fmt.Fprintf(ctx.Stdout, "env      prefix   %s_\n", p.EnvironmentPrefix)
	return nil
}
