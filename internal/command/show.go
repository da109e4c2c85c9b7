package command

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/joeycumines/bt-inspector/internal/config"
	"github.com/joeycumines/bt-inspector/internal/render"
)

// ShowCommand prints a stored file's graph as an outline.
type ShowCommand struct {
	*BaseCommand
	logFlags
	config   *config.Config
	detached bool
	color    string
}

// NewShowCommand returns the show command.
func NewShowCommand(cfg *config.Config) *ShowCommand {
	return &ShowCommand{
		BaseCommand: NewBaseCommand("show", "Print a behavior file as a tree", "show [--detached] <id|name>"),
		config:      cfg,
	}
}

func (c *ShowCommand) SetupFlags(fs *flag.FlagSet) {
	c.logFlags.setup(fs)
	fs.BoolVar(&c.detached, "detached", c.config.GetCommandBool("show", "detached"), "Also list nodes not connected to the root")
	fs.StringVar(&c.color, "color", "", "Color mode: auto, always, never")
}

func (c *ShowCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) != 1 {
		_, _ = fmt.Fprintf(stderr, "Usage: bti %s\n", c.Usage())
		return fmt.Errorf("expected exactly one file")
	}
	logger, closeLog, err := c.setupLogging(c.config, stderr)
	if err != nil {
		return err
	}
	defer closeLog()
	s, err := openSession(c.config, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	item, err := s.open(ctx, args[0])
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "%s (%s)\n", item.Name, item.ID)
	return render.Graph(stdout, item.Entity.Editor, render.Options{
		Color:    render.ColorEnabled(stdout, colorMode(c.color, c.config)),
		Detached: c.detached,
	})
}

// colorMode resolves the color flag, falling back to the config.
func colorMode(flagValue string, cfg *config.Config) string {
	if flagValue != "" {
		return flagValue
	}
	return config.DefaultSchema().Resolve(cfg, "color")
}
