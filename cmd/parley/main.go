package main

import (
	"github.com/alecthomas/kong"
)

// CLI represents the main CLI structure
type CLI struct {
	Config   string `short:"c" type:"path" help:"Configuration file (overrides the user config)"`
	APIKey   string `env:"OPENROUTER_API_KEY" help:"OpenRouter API key"`
	BaseURL  string `help:"Custom OpenRouter API base URL"`
	LogLevel string `help:"Log level: debug, info, warn, error (defaults to config)"`
	LogFile  bool   `help:"Write JSON logs to the state directory instead of stderr"`
	Theme    string `default:"dark" enum:"dark,light" help:"Transcript color theme"`
	Width    int    `default:"100" help:"Column width for list views"`

	Login  LoginCmd  `cmd:"" help:"Log in as a local or Google user"`
	Logout LogoutCmd `cmd:"" help:"Log out"`
	Whoami WhoamiCmd `cmd:"" help:"Show the current user"`

	Agent        AgentCmd        `cmd:"" help:"Manage agents"`
	Conversation ConversationCmd `cmd:"" aliases:"conv" help:"Manage conversations"`
	Send         SendCmd         `cmd:"" help:"Send a message to the current conversation"`
	Message      MessageCmd      `cmd:"" help:"Edit or delete messages"`

	Model    ModelCmd    `cmd:"" help:"Manage configured models"`
	Database DatabaseCmd `cmd:"" help:"Manage data sources"`
	Migrate  MigrateCmd  `cmd:"" help:"Record store migrations"`
	Setup    ConfigCmd   `cmd:"" name:"config" help:"Configuration file management"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("parley"),
		kong.Description("Multi-agent conversations from the terminal"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	err := ctx.Run(&cli)
	if err != nil {
		FatalError(createCLILogger(cli.LogLevel), err)
	}
}
