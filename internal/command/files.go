package command

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/joeycumines/bt-inspector/internal/behavior"
	"github.com/joeycumines/bt-inspector/internal/config"
	"github.com/joeycumines/bt-inspector/internal/inspector"
	"github.com/joeycumines/bt-inspector/internal/protocol"
)

// FilesCommand lists the stored behavior files.
type FilesCommand struct {
	*BaseCommand
	logFlags
	config *config.Config
}

// NewFilesCommand returns the files command.
func NewFilesCommand(cfg *config.Config) *FilesCommand {
	return &FilesCommand{
		BaseCommand: NewBaseCommand("files", "List stored behavior files", "files"),
		config:      cfg,
	}
}

func (c *FilesCommand) SetupFlags(fs *flag.FlagSet) { c.logFlags.setup(fs) }

func (c *FilesCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
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
	if err := s.sync(ctx); err != nil {
		return err
	}

	items := s.inspector.Items()
	if len(items) == 0 {
		_, _ = fmt.Fprintln(stdout, "No behavior files.")
		return nil
	}
	w := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME")
	for _, item := range items {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", item.ID, item.Name)
	}
	return w.Flush()
}

// NewCommand creates a behavior file, empty or built from a tree.
type NewCommand struct {
	*BaseCommand
	logFlags
	config *config.Config
	name   string
	from   string
}

// NewNewCommand returns the new command.
func NewNewCommand(cfg *config.Config) *NewCommand {
	return &NewCommand{
		BaseCommand: NewBaseCommand("new", "Create a behavior file", "new [--name name] [--from tree.yaml]"),
		config:      cfg,
	}
}

func (c *NewCommand) SetupFlags(fs *flag.FlagSet) {
	c.logFlags.setup(fs)
	fs.StringVar(&c.name, "name", "", "File name (default derived from the id)")
	fs.StringVar(&c.from, "from", "", "Build the graph from a YAML behavior tree")
}

func (c *NewCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}
	var tree *behavior.Tree
	if c.from != "" {
		t, err := readTree(c.from)
		if err != nil {
			return err
		}
		tree = &t
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

	id := s.inspector.NewFile()
	item, _ := s.inspector.Item(id)
	if err := s.pump(ctx, func() bool { return item.State == inspector.Editing }); err != nil {
		return err
	}
	if tree != nil {
		st, err := inspector.BuildGraph(*tree)
		if err != nil {
			return fmt.Errorf("build graph from %s: %w", c.from, err)
		}
		if err := s.inspector.Import(id, st); err != nil {
			return err
		}
	}
	if c.name != "" {
		if err := s.inspector.Rename(id, protocol.FileName(c.name)); err != nil {
			return err
		}
	}
	if err := s.save(ctx, item); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "Created %s (%s)\n", item.ID, item.Name)
	return nil
}

func readTree(path string) (behavior.Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return behavior.Tree{}, fmt.Errorf("read tree: %w", err)
	}
	var tree behavior.Tree
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return behavior.Tree{}, fmt.Errorf("parse tree %s: %w", path, err)
	}
	return tree, nil
}
