package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

// CLI represents the main CLI structure
type CLI struct {
	LogLevel string `default:"warn" help:"Log level"`

	Run    RunCmd    `cmd:"" help:"Run a cross-chat conversation between two endpoints"`
	Models ModelsCmd `cmd:"" help:"List the models available on an endpoint"`
	Pull   PullCmd   `cmd:"" help:"Download a model to an endpoint"`
	TUI    TUICmd    `cmd:"" help:"Run a conversation interactively"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("crosschat"),
		kong.Description("Relay a multi-turn conversation between two chat endpoints"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	err := ctx.Run(&cli)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
