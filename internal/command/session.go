package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joeycumines/bt-inspector/internal/behavior"
	"github.com/joeycumines/bt-inspector/internal/config"
	"github.com/joeycumines/bt-inspector/internal/inspector"
	"github.com/joeycumines/bt-inspector/internal/logging"
	"github.com/joeycumines/bt-inspector/internal/metrics"
	"github.com/joeycumines/bt-inspector/internal/protocol"
	"github.com/joeycumines/bt-inspector/internal/runner"
	"github.com/joeycumines/bt-inspector/internal/store"
)

// maxSteps bounds how many lockstep updates a command waits for a reply.
const maxSteps = 64

// session wires an inspector to an in-process runner over a protocol pipe,
// backed by the configured file store.
type session struct {
	inspector *inspector.Inspector
	runner    *runner.Runner
	metrics   *metrics.Registry
	logger    *slog.Logger
}

func openSession(cfg *config.Config, logger *slog.Logger) (*session, error) {
	dir, err := config.StoreDir(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve store directory: %w", err)
	}
	st, err := store.OpenFileSystemStore(dir)
	if err != nil {
		return nil, err
	}
	reg := metrics.NewRegistry()
	client, server := protocol.NewPipe()
	return &session{
		inspector: inspector.NewInspector(client, inspector.WithLogger(logging.Component(logger, "inspector"))),
		runner:    runner.New(server, st, runner.WithLogger(logging.Component(logger, "runner")), runner.WithMetrics(reg)),
		metrics:   reg,
		logger:    logger,
	}, nil
}

func (s *session) Close() error {
	return s.runner.Close()
}

// pump alternates runner and inspector updates until done holds.
func (s *session) pump(ctx context.Context, done func() bool) error {
	for range maxSteps {
		if err := s.runner.Update(ctx); err != nil {
			return err
		}
		s.inspector.Update()
		if done() {
			return nil
		}
	}
	return errors.New("timed out waiting for the backend")
}

// sync makes the inspector aware of every stored file.
func (s *session) sync(ctx context.Context) error {
	return s.pump(ctx, func() bool { return true })
}

// find resolves ref to a file, matching ids first, then unique names.
func (s *session) find(ref string) (*inspector.Item, error) {
	if item, ok := s.inspector.Item(protocol.FileID(ref)); ok {
		return item, nil
	}
	var match *inspector.Item
	for _, item := range s.inspector.Items() {
		if string(item.Name) != ref {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("file name %q is ambiguous; use the id", ref)
		}
		match = item
	}
	if match == nil {
		return nil, fmt.Errorf("file %q not found", ref)
	}
	return match, nil
}

// open selects a stored file and waits for it to load.
func (s *session) open(ctx context.Context, ref string) (*inspector.Item, error) {
	if err := s.sync(ctx); err != nil {
		return nil, err
	}
	item, err := s.find(ref)
	if err != nil {
		return nil, err
	}
	if err := s.inspector.Select(item.ID); err != nil {
		return nil, err
	}
	if err := s.pump(ctx, func() bool { return item.State == inspector.Editing || item.State == inspector.New }); err != nil {
		return nil, fmt.Errorf("load %s: %w", item.ID, err)
	}
	if item.State != inspector.Editing {
		return nil, fmt.Errorf("load %s: %w", item.ID, item.Err)
	}
	return item, nil
}

// save persists an editing file and waits for the acknowledgement.
func (s *session) save(ctx context.Context, item *inspector.Item) error {
	if err := s.inspector.Save(item.ID); err != nil {
		return err
	}
	if err := s.pump(ctx, func() bool { return item.State == inspector.Editing || item.State == inspector.New }); err != nil {
		return fmt.Errorf("save %s: %w", item.ID, err)
	}
	if item.Err != nil {
		return fmt.Errorf("save %s: %w", item.ID, item.Err)
	}
	return nil
}

// rootStatus is the displayed state of the tree's top node, if any.
func rootStatus(item *inspector.Item) (behavior.Status, bool) {
	if item.Entity == nil {
		return behavior.Idle, false
	}
	g := item.Entity.Editor.Graph
	child, ok := inspector.RootChild(g)
	if !ok {
		return behavior.Idle, false
	}
	n, err := g.Node(child)
	if err != nil || n.UserData.State == nil {
		return behavior.Idle, false
	}
	return *n.UserData.State, true
}
