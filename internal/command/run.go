package command

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joeycumines/bt-inspector/internal/behavior"
	"github.com/joeycumines/bt-inspector/internal/config"
	"github.com/joeycumines/bt-inspector/internal/inspector"
	"github.com/joeycumines/bt-inspector/internal/render"
)

// RunCommand executes a stored behavior file until its root completes, then
// prints the final graph.
type RunCommand struct {
	*BaseCommand
	logFlags
	config      *config.Config
	timeout     time.Duration
	metricsAddr string
	color       string
}

// NewRunCommand returns the run command.
func NewRunCommand(cfg *config.Config) *RunCommand {
	return &RunCommand{
		BaseCommand: NewBaseCommand("run", "Run a behavior file until it completes", "run [--timeout d] [--metrics-addr addr] <id|name>"),
		config:      cfg,
	}
}

func (c *RunCommand) SetupFlags(fs *flag.FlagSet) {
	c.logFlags.setup(fs)
	var timeout time.Duration
	if v, ok := c.config.GetCommandOption("run", "timeout"); ok {
		timeout, _ = time.ParseDuration(v)
	}
	fs.DurationVar(&c.timeout, "timeout", timeout, "Stop the tree after this long (0 waits forever)")
	fs.StringVar(&c.metricsAddr, "metrics-addr", config.DefaultSchema().Resolve(c.config, "metrics.addr"), "Serve Prometheus metrics on this address while running")
	fs.StringVar(&c.color, "color", "", "Color mode: auto, always, never")
}

func (c *RunCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) != 1 {
		_, _ = fmt.Fprintf(stderr, "Usage: bti %s\n", c.Usage())
		return fmt.Errorf("expected exactly one file")
	}
	schema := config.DefaultSchema()
	runnerInterval, err := schema.ResolveDuration(c.config, "runner.tick-interval")
	if err != nil {
		return err
	}
	inspectorInterval, err := schema.ResolveDuration(c.config, "inspector.tick-interval")
	if err != nil {
		return err
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
	if err := s.inspector.Run(item.ID); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.runner.Serve(ctx, runnerInterval)
	})

	if c.metricsAddr != "" {
		srv := &http.Server{
			Addr:              c.metricsAddr,
			Handler:           metricsMux(s),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("[Runner] Serving metrics", "addr", c.metricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	opts := render.Options{Color: render.ColorEnabled(stdout, colorMode(c.color, c.config))}
	g.Go(func() error {
		defer cancel()
		return c.drive(ctx, s, item, inspectorInterval, stdout, opts)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func metricsMux(s *session) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metrics.Handler())
	return mux
}

// drive steps the inspector until the tree has finished, or the timeout has
// expired, and the runner has confirmed the stop.
func (c *RunCommand) drive(ctx context.Context, s *session, item *inspector.Item, interval time.Duration, stdout io.Writer, opts render.Options) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var deadline <-chan time.Time
	if c.timeout > 0 {
		timer := time.NewTimer(c.timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	var (
		started, stopping, timedOut bool
		final                       = behavior.Idle
	)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			deadline = nil
			timedOut = true
		case <-ticker.C:
		}
		s.inspector.Update()

		switch item.State {
		case inspector.Running:
			started = true
			if stopping {
				continue
			}
			status, _ := rootStatus(item)
			if status != behavior.Success && status != behavior.Failure && !timedOut {
				continue
			}
			final = status
			_, _ = fmt.Fprintf(stdout, "%s (%s)\n", item.Name, item.ID)
			if err := render.Graph(stdout, item.Entity.Editor, opts); err != nil {
				return err
			}
			if err := s.inspector.Stop(item.ID); err != nil {
				return err
			}
			stopping = true

		case inspector.Editing:
			if item.Err != nil {
				return item.Err
			}
			if !started {
				return fmt.Errorf("runner refused to start %s", item.ID)
			}
			if timedOut && final != behavior.Success && final != behavior.Failure {
				_, _ = fmt.Fprintf(stdout, "Stopped after %s\n", c.timeout)
				return nil
			}
			_, _ = fmt.Fprintf(stdout, "Result: %s\n", final)
			return nil
		}
	}
}
