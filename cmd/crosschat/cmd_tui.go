package main

import (
	"github.com/shanev77/crosschat/src/tui"
)

// TUICmd runs a conversation interactively: model pickers fed from the
// endpoints, live turn display, and cooperative stop. Models left unset
// are picked (or downloaded) inside the session.
type TUICmd struct {
	conversationFlags
}

// Run executes the tui command
func (c *TUICmd) Run(cli *CLI) error {
	return tui.Run(c.toConfig(), createTUILogger(cli.LogLevel))
}
