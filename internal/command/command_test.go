package command

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joeycumines/bt-inspector/internal/config"
)

func newTestRegistry(cfg *config.Config) *Registry {
	r := NewRegistry()
	r.Register(NewHelpCommand(r))
	r.Register(NewVersionCommand("1.2.3"))
	r.Register(NewConfigCommand(cfg))
	r.Register(NewFilesCommand(cfg))
	r.Register(NewNewCommand(cfg))
	r.Register(NewShowCommand(cfg))
	r.Register(NewRunCommand(cfg))
	r.Register(NewWatchCommand(cfg))
	return r
}

func run(t *testing.T, r *Registry, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := r.Run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

// storeConfig points the file store at a temp dir and keeps logs quiet.
func storeConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("BTI_STORE_DIR", t.TempDir())
	t.Setenv("BTI_LOG_LEVEL", "error")
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	cfg := config.NewConfig()
	cfg.SetGlobalOption("color", "never")
	cfg.SetGlobalOption("runner.tick-interval", "5ms")
	cfg.SetGlobalOption("inspector.tick-interval", "5ms")
	return cfg
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(config.NewConfig())
	require.Equal(t, []string{"config", "files", "help", "new", "run", "show", "version", "watch"}, r.List())

	_, err := r.Get("nope")
	require.ErrorIs(t, err, ErrUnknownCommand)

	_, stderr, err := run(t, r, "nope")
	require.ErrorIs(t, err, ErrUnknownCommand)
	require.Contains(t, stderr, "Unknown command: nope")
}

func TestHelp(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(config.NewConfig())
	for _, args := range [][]string{nil, {"--help"}, {"help"}} {
		stdout, _, err := run(t, r, args...)
		require.NoError(t, err)
		require.Contains(t, stdout, "bti - edit, persist and run behavior trees")
		require.Contains(t, stdout, "Available commands:")
		require.Contains(t, stdout, "  run ")
	}

	stdout, _, err := run(t, r, "help", "run")
	require.NoError(t, err)
	require.Contains(t, stdout, "Command: run")
	require.Contains(t, stdout, "Flags:")
	require.Contains(t, stdout, "-timeout")
	require.Contains(t, stdout, "-metrics-addr")

	_, _, err = run(t, r, "help", "nope")
	require.ErrorIs(t, err, ErrUnknownCommand)

	// -h on a subcommand prints usage and is not an error.
	_, stderr, err := run(t, r, "show", "-h")
	require.NoError(t, err)
	require.Contains(t, stderr, "Usage: bti show")
}

func TestVersion(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(config.NewConfig())
	stdout, _, err := run(t, r, "version")
	require.NoError(t, err)
	require.Equal(t, "bti version 1.2.3\n", stdout)

	_, _, err = run(t, r, "version", "extra")
	require.Error(t, err)
}

// unsetEnv removes keys for the duration of the test. An empty value still
// counts as set when options are resolved.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestConfigCommand(t *testing.T) {
	unsetEnv(t, "BTI_LOG_LEVEL", "BTI_LOG_FILE")
	cfg := config.NewConfig()
	cfg.SetGlobalOption("color", "never")
	cfg.SetCommandOption("run", "timeout", "10s")
	r := newTestRegistry(cfg)

	stdout, _, err := run(t, r, "config", "color")
	require.NoError(t, err)
	require.Equal(t, "color: never\n", stdout)

	stdout, _, err = run(t, r, "config", "runner.tick-interval")
	require.NoError(t, err)
	require.Equal(t, "runner.tick-interval: 100ms\n", stdout)

	stdout, _, err = run(t, r, "config", "nope")
	require.NoError(t, err)
	require.Equal(t, "Configuration key 'nope' not found\n", stdout)

	stdout, _, err = run(t, r, "config", "--all")
	require.NoError(t, err)
	require.Equal(t, "Global configuration:\n  color: never\n\n[run]\n  timeout: 10s\n", stdout)

	stdout, _, err = run(t, r, "config", "validate")
	require.NoError(t, err)
	require.Equal(t, "Configuration is valid.\n", stdout)

	stdout, _, err = run(t, r, "config", "schema")
	require.NoError(t, err)
	require.Contains(t, stdout, "Global Options:")

	cfg.SetGlobalOption("log.max-files", "many")
	_, stderr, err := run(t, r, "config", "validate")
	require.ErrorContains(t, err, "1 issue(s)")
	require.Contains(t, stderr, "log.max-files")
}

func TestResolveLogConfig(t *testing.T) {
	unsetEnv(t, "BTI_LOG_LEVEL", "BTI_LOG_FILE")
	cfg := config.NewConfig()

	lc, err := resolveLogConfig("", "", cfg)
	require.NoError(t, err)
	require.Equal(t, slog.LevelInfo, lc.level)
	require.Equal(t, "text", lc.format)
	require.Nil(t, lc.logFile)

	cfg.SetGlobalOption("log.level", "warn")
	cfg.SetGlobalOption("log.format", "json")
	lc, err = resolveLogConfig("", "", cfg)
	require.NoError(t, err)
	require.Equal(t, slog.LevelWarn, lc.level)
	require.Equal(t, "json", lc.format)

	// Flags win over the config.
	path := filepath.Join(t.TempDir(), "bti.log")
	lc, err = resolveLogConfig(path, "debug", cfg)
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, lc.level)
	require.NotNil(t, lc.logFile)
	_, err = lc.logFile.Write([]byte("hello\n"))
	require.NoError(t, err)
	require.NoError(t, lc.logFile.Close())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "hello\n", string(data))

	_, err = resolveLogConfig("", "loud", cfg)
	require.Error(t, err)
}

const sampleTree = `label: main
behavior:
  kind: sequencer
children:
  - label: hello
    behavior:
      kind: debug
      debug:
        message: hi
  - label: done
    behavior:
      kind: succeeder
`

func writeTree(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tree.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFilesNewShow(t *testing.T) {
	r := newTestRegistry(storeConfig(t))

	stdout, _, err := run(t, r, "files")
	require.NoError(t, err)
	require.Equal(t, "No behavior files.\n", stdout)

	stdout, _, err = run(t, r, "new", "--name", "empty")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(stdout, "Created "), stdout)
	require.True(t, strings.HasSuffix(stdout, " (empty)\n"), stdout)

	stdout, _, err = run(t, r, "new", "--name", "greeter", "--from", writeTree(t, sampleTree))
	require.NoError(t, err)
	require.Contains(t, stdout, "(greeter)")

	stdout, _, err = run(t, r, "files")
	require.NoError(t, err)
	require.Contains(t, stdout, "ID")
	require.Contains(t, stdout, "empty")
	require.Contains(t, stdout, "greeter")

	stdout, _, err = run(t, r, "show", "greeter")
	require.NoError(t, err)
	require.Contains(t, stdout, `Root
└── main [composite sequencer]
    ├── hello [action debug("hi", fired=0)]
    └── done [decorator succeeder]
`)

	stdout, _, err = run(t, r, "show", "empty")
	require.NoError(t, err)
	require.Contains(t, stdout, "Root\n(no behavior connected)\n")

	_, _, err = run(t, r, "show", "missing")
	require.ErrorContains(t, err, `file "missing" not found`)
	_, _, err = run(t, r, "show")
	require.Error(t, err)
}

func TestNew_BadTree(t *testing.T) {
	r := newTestRegistry(storeConfig(t))

	_, _, err := run(t, r, "new", "--from", writeTree(t, "label: x\nbehavior:\n  kind: debug\nchildren:\n  - label: y\n    behavior:\n      kind: debug\n"))
	require.Error(t, err)

	_, _, err = run(t, r, "new", "--from", filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "read tree")
}

func TestRun(t *testing.T) {
	r := newTestRegistry(storeConfig(t))

	_, _, err := run(t, r, "new", "--name", "greeter", "--from", writeTree(t, sampleTree))
	require.NoError(t, err)

	stdout, _, err := run(t, r, "run", "greeter")
	require.NoError(t, err)
	require.Contains(t, stdout, `Root
└── main [composite sequencer] success
    ├── hello [action debug("hi", fired=1)] success
    └── done [decorator succeeder] success
`)
	require.True(t, strings.HasSuffix(stdout, "Result: success\n"), stdout)

	// The stored file is untouched by the run.
	stdout, _, err = run(t, r, "show", "greeter")
	require.NoError(t, err)
	require.Contains(t, stdout, `hello [action debug("hi", fired=0)]`)
}

func TestRun_Timeout(t *testing.T) {
	r := newTestRegistry(storeConfig(t))

	tree := "label: pause\nbehavior:\n  kind: wait\n  wait:\n    duration: 1h\n"
	_, _, err := run(t, r, "new", "--name", "slow", "--from", writeTree(t, tree))
	require.NoError(t, err)

	stdout, _, err := run(t, r, "run", "--timeout", "50ms", "slow")
	require.NoError(t, err)
	require.Contains(t, stdout, "└── pause [action wait(")
	require.True(t, strings.HasSuffix(stdout, "Stopped after 50ms\n"), stdout)
}

func TestRun_NoRootChild(t *testing.T) {
	r := newTestRegistry(storeConfig(t))

	_, _, err := run(t, r, "new", "--name", "empty")
	require.NoError(t, err)
	_, _, err = run(t, r, "run", "empty")
	require.Error(t, err)
}
