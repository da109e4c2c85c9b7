// Package command implements the bti subcommands.
package command

import (
	"context"
	"flag"
	"io"
)

// Command is a bti subcommand.
type Command interface {
	Name() string
	// Description is a one-line summary for the command list.
	Description() string
	Usage() string

	// SetupFlags registers the command's flags. It is called once per
	// invocation, before Execute.
	SetupFlags(fs *flag.FlagSet)

	// Execute runs the command with the arguments left after flag parsing.
	Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error
}

// BaseCommand carries the descriptive fields shared by every command.
type BaseCommand struct {
	name        string
	description string
	usage       string
}

// NewBaseCommand returns a BaseCommand.
func NewBaseCommand(name, description, usage string) *BaseCommand {
	return &BaseCommand{name: name, description: description, usage: usage}
}

func (c *BaseCommand) Name() string        { return c.name }
func (c *BaseCommand) Description() string { return c.description }
func (c *BaseCommand) Usage() string       { return c.usage }

// SetupFlags registers no flags.
func (c *BaseCommand) SetupFlags(*flag.FlagSet) {}
