package command

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/joeycumines/bt-inspector/internal/config"
	"github.com/joeycumines/bt-inspector/internal/inspector"
	"github.com/joeycumines/bt-inspector/internal/render"
)

// WatchCommand runs a behavior file in a terminal UI that redraws the graph
// as telemetry arrives.
type WatchCommand struct {
	*BaseCommand
	logFlags
	config *config.Config
	color  string
}

// NewWatchCommand returns the watch command.
func NewWatchCommand(cfg *config.Config) *WatchCommand {
	return &WatchCommand{
		BaseCommand: NewBaseCommand("watch", "Run a behavior file with a live view", "watch <id|name>"),
		config:      cfg,
	}
}

func (c *WatchCommand) SetupFlags(fs *flag.FlagSet) {
	c.logFlags.setup(fs)
	fs.StringVar(&c.color, "color", "", "Color mode: auto, always, never")
}

func (c *WatchCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
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

	// The UI owns the terminal, so logs only go to a configured file.
	logger, closeLog, err := c.setupLogging(c.config, io.Discard)
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

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.runner.Serve(ctx, runnerInterval)
	})

	m := newWatchModel(s, item, inspectorInterval, render.Options{
		Color: render.ColorEnabled(stdout, colorMode(c.color, c.config)),
	})
	g.Go(func() error {
		defer cancel()
		p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithOutput(stdout))
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return err
		}
		return m.err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

type watchTickMsg time.Time

// watchModel is the bubbletea model for the watch command. It is the only
// user of the session's inspector while the program runs.
type watchModel struct {
	session  *session
	item     *inspector.Item
	interval time.Duration
	opts     render.Options

	err      error
	quitting bool
}

func newWatchModel(s *session, item *inspector.Item, interval time.Duration, opts render.Options) *watchModel {
	return &watchModel{session: s, item: item, interval: interval, opts: opts}
}

func (m *watchModel) Init() tea.Cmd {
	if err := m.session.inspector.Run(m.item.ID); err != nil {
		m.err = err
		return tea.Quit
	}
	return m.tick()
}

func (m *watchModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return watchTickMsg(t) })
}

func (m *watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, m.settle()
		case "s":
			if m.item.State == inspector.Running {
				m.stop()
			}
		case "r":
			if m.item.State == inspector.Editing {
				m.err = nil
				if err := m.session.inspector.Run(m.item.ID); err != nil {
					m.err = err
				}
			}
		}
		return m, nil

	case watchTickMsg:
		m.session.inspector.Update()
		if m.item.Err != nil {
			m.err = m.item.Err
		}
		if cmd := m.settle(); cmd != nil {
			return m, cmd
		}
		return m, m.tick()
	}
	return m, nil
}

// settle stops a running tree once the user has asked to quit, and quits
// when nothing is left running.
func (m *watchModel) settle() tea.Cmd {
	if !m.quitting {
		return nil
	}
	switch m.item.State {
	case inspector.Running:
		m.stop()
	case inspector.Editing:
		return tea.Quit
	}
	return nil
}

func (m *watchModel) stop() {
	if err := m.session.inspector.Stop(m.item.ID); err != nil {
		m.err = err
	}
}

func (m *watchModel) View() string {
	var b strings.Builder
	_, _ = fmt.Fprintf(&b, "%s (%s) %s\n\n", m.item.Name, m.item.ID, m.item.State)
	if m.item.Entity != nil {
		if err := render.Graph(&b, m.item.Entity.Editor, m.opts); err != nil {
			_, _ = fmt.Fprintf(&b, "render: %v\n", err)
		}
	}
	if m.err != nil {
		_, _ = fmt.Fprintf(&b, "\nerror: %v\n", m.err)
	}
	b.WriteString("\nr run · s stop · q quit\n")
	return b.String()
}
