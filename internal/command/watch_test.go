package command

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/bt-inspector/internal/behavior"
	"github.com/joeycumines/bt-inspector/internal/inspector"
	"github.com/joeycumines/bt-inspector/internal/logging"
	"github.com/joeycumines/bt-inspector/internal/render"
)

// stepWatch advances the runner and the model in lockstep until done holds,
// returning the last command the model produced.
func stepWatch(t *testing.T, s *session, m *watchModel, done func(tea.Cmd) bool) {
	t.Helper()
	ctx := context.Background()
	for range maxSteps {
		require.NoError(t, s.runner.Update(ctx))
		_, cmd := m.Update(watchTickMsg(time.Now()))
		if done(cmd) {
			return
		}
	}
	t.Fatal("model did not settle")
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestWatchModel(t *testing.T) {
	cfg := storeConfig(t)
	r := newTestRegistry(cfg)
	_, _, err := run(t, r, "new", "--name", "greeter", "--from", writeTree(t, sampleTree))
	require.NoError(t, err)

	s, err := openSession(cfg, logging.Discard())
	require.NoError(t, err)
	defer s.Close()
	item, err := s.open(context.Background(), "greeter")
	require.NoError(t, err)

	m := newWatchModel(s, item, time.Millisecond, render.Options{})
	require.NotNil(t, m.Init())
	require.Equal(t, inspector.Run, item.State)

	stepWatch(t, s, m, func(tea.Cmd) bool {
		status, ok := rootStatus(item)
		return ok && status == behavior.Success
	})
	view := m.View()
	require.Contains(t, view, "greeter ("+string(item.ID)+") Running")
	require.Contains(t, view, `hello [action debug("hi", fired=1)] success`)
	require.Contains(t, view, "r run · s stop · q quit")

	// Stop, then run again.
	_, cmd := m.Update(key("s"))
	require.Nil(t, cmd)
	stepWatch(t, s, m, func(tea.Cmd) bool { return item.State == inspector.Editing })
	_, _ = m.Update(key("r"))
	require.Equal(t, inspector.Run, item.State)
	stepWatch(t, s, m, func(tea.Cmd) bool { return item.State == inspector.Running })

	// Quitting stops the tree first.
	_, cmd = m.Update(key("q"))
	require.Nil(t, cmd)
	require.Equal(t, inspector.Stop, item.State)
	stepWatch(t, s, m, isQuit)
	require.Equal(t, inspector.Editing, item.State)
	require.NoError(t, m.err)
}

func TestWatchModel_NoRootChild(t *testing.T) {
	cfg := storeConfig(t)
	r := newTestRegistry(cfg)
	_, _, err := run(t, r, "new", "--name", "empty")
	require.NoError(t, err)

	s, err := openSession(cfg, logging.Discard())
	require.NoError(t, err)
	defer s.Close()
	item, err := s.open(context.Background(), "empty")
	require.NoError(t, err)

	m := newWatchModel(s, item, time.Millisecond, render.Options{})
	m.Init()
	_, _ = m.Update(watchTickMsg(time.Now()))
	require.ErrorIs(t, m.err, inspector.ErrNoRootChild)
	require.Contains(t, m.View(), "error: ")

	_, cmd := m.Update(key("q"))
	require.True(t, isQuit(cmd))
}
