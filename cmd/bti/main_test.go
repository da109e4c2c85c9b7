package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRun_Version(t *testing.T) {
	t.Setenv("BTI_CONFIG", filepath.Join(t.TempDir(), "config"))

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"version"}, &stdout, &stderr))
	require.Equal(t, "bti version "+version+"\n", stdout.String())
	require.Empty(t, stderr.String())
}

func TestRun_Help(t *testing.T) {
	t.Setenv("BTI_CONFIG", filepath.Join(t.TempDir(), "config"))

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), nil, &stdout, &stderr))
	for _, name := range []string{"config", "files", "help", "new", "run", "show", "version", "watch"} {
		require.Contains(t, stdout.String(), "  "+name+" ")
	}
}

func TestRun_Unknown(t *testing.T) {
	t.Setenv("BTI_CONFIG", filepath.Join(t.TempDir(), "config"))

	var stdout, stderr bytes.Buffer
	require.Error(t, run(context.Background(), []string{"bogus"}, &stdout, &stderr))
	require.Contains(t, stderr.String(), "Unknown command: bogus")
}
