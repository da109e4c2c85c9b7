package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joeycumines/bt-inspector/internal/command"
	"github.com/joeycumines/bt-inspector/internal/config"
)

const version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		// A broken config file should not block commands like help.
		_, _ = fmt.Fprintf(stderr, "Warning: %v\n", err)
		cfg = config.NewConfig()
	}
	return newRegistry(cfg).Run(ctx, args, stdout, stderr)
}

func newRegistry(cfg *config.Config) *command.Registry {
	registry := command.NewRegistry()
	registry.Register(command.NewHelpCommand(registry))
	registry.Register(command.NewVersionCommand(version))
	registry.Register(command.NewConfigCommand(cfg))
	registry.Register(command.NewFilesCommand(cfg))
	registry.Register(command.NewNewCommand(cfg))
	registry.Register(command.NewShowCommand(cfg))
	registry.Register(command.NewRunCommand(cfg))
	registry.Register(command.NewWatchCommand(cfg))
	return registry
}
