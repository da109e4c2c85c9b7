package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sampleConfig = `# bti configuration
color never
log.level debug
runner.tick-interval 250ms

[run]
timeout 30s

[show]
detached yes
`

func TestLoadFromReader(t *testing.T) {
	t.Parallel()

	c, err := LoadFromReader(strings.NewReader(sampleConfig))
	require.NoError(t, err)
	require.False(t, c.HasWarnings(), c.Warnings)

	v, ok := c.GetGlobalOption("color")
	require.True(t, ok)
	require.Equal(t, "never", v)
	require.Equal(t, 250*time.Millisecond, c.GetDuration("runner.tick-interval"))

	v, ok = c.GetCommandOption("run", "timeout")
	require.True(t, ok)
	require.Equal(t, "30s", v)
	v, ok = c.GetCommandOption("show", "detached")
	require.True(t, ok)
	require.Equal(t, "yes", v)

	// Section lookups fall back to globals.
	v, ok = c.GetCommandOption("run", "log.level")
	require.True(t, ok)
	require.Equal(t, "debug", v)
	_, ok = c.GetCommandOption("run", "missing")
	require.False(t, ok)
}

func TestLoadFromReader_Warnings(t *testing.T) {
	t.Parallel()

	c, err := LoadFromReader(strings.NewReader("bogus 1\nlog.max-files many\n[run]\ntimeout soon\nshiny yes\n"))
	require.NoError(t, err)
	require.Equal(t, []string{
		`global option "log.max-files": expected int, got "many"`,
		`option "timeout" in [run]: expected duration, got "soon"`,
		`unknown global option: "bogus" (value: "1")`,
		`unknown option for command "run": "shiny" (value: "yes")`,
	}, c.Warnings)
}

func TestLoadFromPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c, err := LoadFromPath(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	require.Empty(t, c.Global)

	path := filepath.Join(dir, "config")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))
	c, err = LoadFromPath(path)
	require.NoError(t, err)
	require.Equal(t, "debug", c.Global["log.level"])

	link := filepath.Join(dir, "link")
	if err := os.Symlink(path, link); err == nil {
		_, err = LoadFromPath(link)
		require.ErrorContains(t, err, "symlink")
	}
}

func TestGetters(t *testing.T) {
	t.Parallel()

	c := NewConfig()
	c.SetGlobalOption("flag", "on")
	c.SetGlobalOption("n", "7")
	c.SetGlobalOption("bad", "x")
	c.SetCommandOption("show", "detached", "true")

	require.True(t, c.GetBool("flag"))
	require.False(t, c.GetBool("bad"))
	require.False(t, c.GetBool("unset"))
	require.Equal(t, 7, c.GetInt("n"))
	require.Equal(t, 0, c.GetInt("bad"))
	require.Equal(t, time.Duration(0), c.GetDuration("bad"))
	require.Equal(t, "true", c.Commands["show"]["detached"])
	require.True(t, c.GetCommandBool("show", "detached"))
	require.True(t, c.GetCommandBool("run", "flag"))
	require.False(t, c.GetCommandBool("show", "unset"))
}

func TestSchemaResolve(t *testing.T) {
	s := DefaultSchema()
	c := NewConfig()

	require.Equal(t, "info", s.Resolve(c, "log.level"))
	require.Equal(t, "info", s.Resolve(nil, "log.level"))
	c.SetGlobalOption("log.level", "warn")
	require.Equal(t, "warn", s.Resolve(c, "log.level"))
	t.Setenv("BTI_LOG_LEVEL", "error")
	require.Equal(t, "error", s.Resolve(c, "log.level"))

	d, err := s.ResolveDuration(c, "runner.tick-interval")
	require.NoError(t, err)
	require.Equal(t, 100*time.Millisecond, d)
	n, err := s.ResolveInt(c, "log.max-files")
	require.NoError(t, err)
	require.Equal(t, 5, n)

	c.SetGlobalOption("log.max-files", "lots")
	_, err = s.ResolveInt(c, "log.max-files")
	require.Error(t, err)
	require.Equal(t, "", s.Resolve(c, "not.an.option"))
}

func TestSchema(t *testing.T) {
	t.Parallel()

	s := DefaultSchema()
	require.Equal(t, []string{"run", "show"}, s.Sections())
	require.True(t, s.IsKnown("", "store.dir"))
	require.True(t, s.IsKnown("run", "store.dir"))
	require.True(t, s.IsKnown("run", "timeout"))
	require.False(t, s.IsKnown("", "timeout"))
	require.Equal(t, TypeDuration, s.Lookup("run", "timeout").Type)

	help := s.FormatHelp()
	require.Contains(t, help, "Global Options:")
	require.Contains(t, help, "[run] Options:")
	require.Contains(t, help, "env: BTI_STORE_DIR")
	require.Contains(t, help, "type: duration, default: 100ms")

	s.Register(Option{Key: "color", Default: "always"})
	require.Equal(t, "always", s.Lookup("", "color").Default)
}

func TestValidateType(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		typ   OptionType
		value string
		ok    bool
	}{
		{TypeString, "anything", true},
		{TypeBool, "off", true},
		{TypeBool, "maybe", false},
		{TypeInt, "-3", true},
		{TypeInt, "3.5", false},
		{TypeDuration, "1m30s", true},
		{TypeDuration, "90", false},
		{"mystery", "x", false},
	} {
		err := validateType(tc.typ, tc.value)
		if tc.ok {
			require.NoError(t, err, "%s %q", tc.typ, tc.value)
		} else {
			require.Error(t, err, "%s %q", tc.typ, tc.value)
		}
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("BTI_CONFIG", "/tmp/custom-bti-config")
	p, err := GetConfigPath()
	require.NoError(t, err)
	require.Equal(t, "/tmp/custom-bti-config", p)

	t.Setenv("BTI_CONFIG", "")
	t.Setenv("HOME", "/home/tester")
	p, err = GetConfigPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join("/home/tester", ".bt-inspector", "config"), p)
}

func TestStoreDir(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	t.Setenv("BTI_STORE_DIR", "")
	c := NewConfig()

	// An empty env override still counts as set, so fall back to the default.
	dir, err := StoreDir(c)
	require.NoError(t, err)
	require.Equal(t, filepath.Join("/home/tester", ".bt-inspector", "files"), dir)

	t.Setenv("BTI_STORE_DIR", "/srv/bti")
	dir, err = StoreDir(c)
	require.NoError(t, err)
	require.Equal(t, "/srv/bti", dir)
}
