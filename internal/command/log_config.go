package command

import (
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/joeycumines/bt-inspector/internal/config"
	"github.com/joeycumines/bt-inspector/internal/logging"
)

// logConfig is the resolved logging setup for a command.
type logConfig struct {
	level   slog.Level
	format  string
	logFile io.WriteCloser // nil logs to stderr
}

// logFlags are the logging flags shared by commands that talk to the store.
type logFlags struct {
	file  string
	level string
}

func (f *logFlags) setup(fs *flag.FlagSet) {
	fs.StringVar(&f.file, "log-file", "", "Write logs to this file (rotated)")
	fs.StringVar(&f.level, "log-level", "", "Log level: debug, info, warn, error")
}

// resolveLogConfig resolves logging from flags, then the config (including
// its environment overrides), then defaults. The caller closes logFile.
func resolveLogConfig(flagPath, flagLevel string, cfg *config.Config) (logConfig, error) {
	schema := config.DefaultSchema()
	var lc logConfig

	levelStr := flagLevel
	if levelStr == "" {
		levelStr = schema.Resolve(cfg, "log.level")
	}
	level, err := logging.ParseLevel(levelStr)
	if err != nil {
		return lc, err
	}
	lc.level = level
	lc.format = schema.Resolve(cfg, "log.format")

	path := flagPath
	if path == "" {
		path = schema.Resolve(cfg, "log.file")
	}
	if path == "" {
		return lc, nil
	}

	maxSizeMB, err := schema.ResolveInt(cfg, "log.max-size-mb")
	if err != nil {
		return lc, err
	}
	if maxSizeMB <= 0 {
		maxSizeMB = logging.DefaultMaxSizeMB
	}
	maxFiles, err := schema.ResolveInt(cfg, "log.max-files")
	if err != nil {
		return lc, err
	}
	if maxFiles < 0 {
		maxFiles = logging.DefaultMaxFiles
	}
	w, err := logging.OpenRotatingFile(path, maxSizeMB, maxFiles)
	if err != nil {
		return lc, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	lc.logFile = w
	return lc, nil
}

// setupLogging installs the resolved logger as the slog default. The returned
// function closes the log file, if any.
func (f *logFlags) setupLogging(cfg *config.Config, stderr io.Writer) (*slog.Logger, func(), error) {
	lc, err := resolveLogConfig(f.file, f.level, cfg)
	if err != nil {
		return nil, nil, err
	}
	var w io.Writer = stderr
	closeFn := func() {}
	if lc.logFile != nil {
		w = lc.logFile
		closeFn = func() { _ = lc.logFile.Close() }
	}
	logger, err := logging.Init(w, lc.level, lc.format)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return logger, closeFn, nil
}
