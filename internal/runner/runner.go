// Package runner is the backend side of the protocol: it persists behavior
// files and executes behavior trees, streaming telemetry back to the
// inspector.
package runner

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/joeycumines/bt-inspector/internal/metrics"
	"github.com/joeycumines/bt-inspector/internal/protocol"
	"github.com/joeycumines/bt-inspector/internal/store"
)

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithMetrics sets the metrics registry. The default is a fresh one.
func WithMetrics(m *metrics.Registry) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithClock sets the time source used to advance timed behaviors.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithBlackboard seeds the variables visible to guard conditions in every
// tree. The map is copied per tree.
func WithBlackboard(vars map[string]any) Option {
	return func(r *Runner) { r.vars = maps.Clone(vars) }
}

// Runner serves one protocol.Server. It is not safe for concurrent use; drive
// it from a single goroutine with Update or Serve.
type Runner struct {
	server  *protocol.Server
	store   store.Store
	metrics *metrics.Registry
	logger  *slog.Logger
	now     func() time.Time
	vars    map[string]any

	trees     map[protocol.FileID]*runningTree
	announced bool
}

type runningTree struct {
	exec *execTree
	last time.Time
}

// New returns a runner persisting files in s.
func New(server *protocol.Server, s store.Store, opts ...Option) *Runner {
	r := &Runner{
		server: server,
		store:  s,
		logger: slog.Default(),
		now:    time.Now,
		trees:  make(map[protocol.FileID]*runningTree),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.metrics == nil {
		r.metrics = metrics.NewRegistry()
	}
	return r
}

// Metrics returns the runner's registry.
func (r *Runner) Metrics() *metrics.Registry { return r.metrics }

// Running returns the ids of trees that have not been stopped, sorted.
func (r *Runner) Running() []protocol.FileID {
	ids := slices.Collect(maps.Keys(r.trees))
	slices.Sort(ids)
	return ids
}

// Serve calls Update every interval, and handles requests as soon as they
// arrive in between, until ctx is done.
func (r *Runner) Serve(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("runner: invalid tick interval %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := r.Update(ctx); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.server.Ready():
			r.handleMessages()
		case <-ticker.C:
			if err := r.Update(ctx); err != nil {
				return err
			}
		}
	}
}

// Update is one cooperative step: announce the stored files on the first
// call, handle every pending request, then tick each running tree once.
func (r *Runner) Update(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !r.announced {
		r.announced = true
		r.announce()
	}
	r.handleMessages()

	start := r.now()
	ticked := 0
	for _, id := range r.Running() {
		t := r.trees[id]
		now := r.now()
		dt := now.Sub(t.last)
		t.last = now
		if !t.exec.tickOnce(dt) {
			continue
		}
		ticked++
		telemetry := t.exec.telemetry()
		r.metrics.TelemetryNodes.Observe(float64(telemetry.Len()))
		r.send(protocol.Telemetry{ID: id, Telemetry: telemetry})
		if t.exec.done {
			r.logger.Info("[Runner] Tree completed", "id", id, "status", t.exec.final)
			r.metrics.RecordTreeResult(t.exec.final.String())
		}
	}
	r.metrics.RecordUpdate(ticked, r.now().Sub(start))
	return nil
}

func (r *Runner) handleMessages() {
	for _, m := range r.server.TryRecvAll() {
		r.metrics.RecordMessage("in", m.Kind())
		r.handle(m)
	}
}

func (r *Runner) handle(m protocol.ClientMessage) {
	switch m := m.(type) {
	case protocol.ListFiles:
		r.announce()

	case protocol.LoadFile:
		start := r.now()
		data, err := r.store.Load(m.ID)
		r.metrics.RecordStoreOperation("load", err, r.now().Sub(start))
		if err != nil {
			r.logger.Warn("[Runner] Load failed", "id", m.ID, "error", err)
			return
		}
		r.send(protocol.File{ID: m.ID, Data: data})

	case protocol.SaveFile:
		start := r.now()
		err := r.store.Save(m.ID, m.Name, m.Data)
		r.metrics.RecordStoreOperation("save", err, r.now().Sub(start))
		if err != nil {
			r.logger.Error("[Runner] Save failed", "id", m.ID, "name", m.Name, "error", err)
			return
		}
		r.send(protocol.FileSaved{ID: m.ID})

	case protocol.Run:
		exec, err := newExecTree(m.Behavior, r.vars, r.logger.With("id", m.ID), func(error) {
			r.metrics.GuardErrorsTotal.Inc()
		})
		if err != nil {
			// Stopped returns the client to editing.
			r.logger.Error("[Runner] Cannot run tree", "id", m.ID, "error", err)
			r.send(protocol.Stopped{ID: m.ID})
			return
		}
		if _, ok := r.trees[m.ID]; ok {
			r.logger.Info("[Runner] Restarting tree", "id", m.ID)
		}
		r.trees[m.ID] = &runningTree{exec: exec, last: r.now()}
		r.metrics.RunningTrees.Set(float64(len(r.trees)))
		r.send(protocol.Started{ID: m.ID})

	case protocol.Stop:
		if _, ok := r.trees[m.ID]; !ok {
			r.logger.Debug("[Runner] Stop for a tree that is not running", "id", m.ID)
		}
		delete(r.trees, m.ID)
		r.metrics.RunningTrees.Set(float64(len(r.trees)))
		r.send(protocol.Stopped{ID: m.ID})

	default:
		r.logger.Warn("[Runner] Unhandled message", "kind", m.Kind())
	}
}

func (r *Runner) announce() {
	start := r.now()
	files, err := r.store.List()
	r.metrics.RecordStoreOperation("list", err, r.now().Sub(start))
	if err != nil {
		r.logger.Error("[Runner] Listing files failed", "error", err)
		return
	}
	slices.SortFunc(files, func(a, b protocol.FileEntry) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	r.send(protocol.FileNames{Files: files})
}

func (r *Runner) send(m protocol.ServerMessage) {
	r.metrics.RecordMessage("out", m.Kind())
	r.server.Send(m)
}

// Close stops every tree and closes the store.
func (r *Runner) Close() error {
	clear(r.trees)
	r.metrics.RunningTrees.Set(0)
	if err := r.store.Close(); err != nil && !errors.Is(err, store.ErrClosed) {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}
