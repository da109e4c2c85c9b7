package command

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/joeycumines/bt-inspector/internal/config"
)

// HelpCommand lists commands, or describes one.
type HelpCommand struct {
	*BaseCommand
	registry *Registry
}

// NewHelpCommand returns the help command for registry.
func NewHelpCommand(registry *Registry) *HelpCommand {
	return &HelpCommand{
		BaseCommand: NewBaseCommand("help", "Display help information for commands", "help [command]"),
		registry:    registry,
	}
}

func (c *HelpCommand) Execute(_ context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		_, _ = fmt.Fprintln(stdout, "bti - edit, persist and run behavior trees")
		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Usage: bti <command> [options] [args...]")
		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Available commands:")
		w := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
		for _, name := range c.registry.List() {
			if cmd, err := c.registry.Get(name); err == nil {
				_, _ = fmt.Fprintf(w, "  %s\t%s\n", name, cmd.Description())
			}
		}
		_ = w.Flush()
		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Use 'bti help <command>' for more information about a command.")
		return nil
	}

	cmd, err := c.registry.Get(args[0])
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		return err
	}
	_, _ = fmt.Fprintf(stdout, "Command: %s\n", cmd.Name())
	_, _ = fmt.Fprintf(stdout, "Description: %s\n", cmd.Description())
	_, _ = fmt.Fprintf(stdout, "Usage: bti %s\n", cmd.Usage())

	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	var buf bytes.Buffer
	fs.SetOutput(&buf)
	cmd.SetupFlags(fs)
	fs.PrintDefaults()
	if buf.Len() > 0 {
		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Flags:")
		_, _ = fmt.Fprint(stdout, buf.String())
	}
	return nil
}

// VersionCommand prints the version.
type VersionCommand struct {
	*BaseCommand
	version string
}

// NewVersionCommand returns the version command.
func NewVersionCommand(version string) *VersionCommand {
	return &VersionCommand{
		BaseCommand: NewBaseCommand("version", "Display version information", "version"),
		version:     version,
	}
}

func (c *VersionCommand) Execute(_ context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", args)
		return fmt.Errorf("unexpected arguments")
	}
	_, _ = fmt.Fprintf(stdout, "bti version %s\n", c.version)
	return nil
}

// ConfigCommand inspects the loaded configuration.
type ConfigCommand struct {
	*BaseCommand
	config  *config.Config
	showAll bool
}

// NewConfigCommand returns the config command for cfg.
func NewConfigCommand(cfg *config.Config) *ConfigCommand {
	return &ConfigCommand{
		BaseCommand: NewBaseCommand("config", "Show configuration settings", "config [--all] [key | validate | schema]"),
		config:      cfg,
	}
}

func (c *ConfigCommand) SetupFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.showAll, "all", false, "Show all configuration (global and command-specific)")
}

func (c *ConfigCommand) Execute(_ context.Context, args []string, stdout, stderr io.Writer) error {
	schema := config.DefaultSchema()
	switch {
	case len(args) == 0 && c.showAll:
		_, _ = fmt.Fprintln(stdout, "Global configuration:")
		for _, key := range slices.Sorted(maps.Keys(c.config.Global)) {
			_, _ = fmt.Fprintf(stdout, "  %s: %s\n", key, c.config.Global[key])
		}
		for _, section := range slices.Sorted(maps.Keys(c.config.Commands)) {
			_, _ = fmt.Fprintf(stdout, "\n[%s]\n", section)
			opts := c.config.Commands[section]
			for _, key := range slices.Sorted(maps.Keys(opts)) {
				_, _ = fmt.Fprintf(stdout, "  %s: %s\n", key, opts[key])
			}
		}
		return nil

	case len(args) == 0:
		_, _ = fmt.Fprintln(stdout, "Configuration:")
		_, _ = fmt.Fprintln(stdout, "  config <key>      - Show the effective value of a key")
		_, _ = fmt.Fprintln(stdout, "  config --all      - Show all configuration")
		_, _ = fmt.Fprintln(stdout, "  config validate   - Validate configuration")
		_, _ = fmt.Fprintln(stdout, "  config schema     - Show configuration schema")
		return nil

	case args[0] == "schema":
		_, _ = fmt.Fprint(stdout, schema.FormatHelp())
		return nil

	case args[0] == "validate":
		issues := config.ValidateConfig(c.config, schema)
		if len(issues) == 0 {
			_, _ = fmt.Fprintln(stdout, "Configuration is valid.")
			return nil
		}
		for _, issue := range issues {
			_, _ = fmt.Fprintf(stderr, "  %s\n", issue)
		}
		return fmt.Errorf("configuration has %d issue(s)", len(issues))

	case len(args) == 1:
		key := args[0]
		if schema.Lookup("", key) == nil {
			if _, ok := c.config.GetGlobalOption(key); !ok {
				_, _ = fmt.Fprintf(stdout, "Configuration key '%s' not found\n", key)
				return nil
			}
		}
		_, _ = fmt.Fprintf(stdout, "%s: %s\n", key, schema.Resolve(c.config, key))
		return nil

	default:
		_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", args[1:])
		return fmt.Errorf("unexpected arguments")
	}
}
