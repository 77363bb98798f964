package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"

	"fontana/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level            string
	Format           string
	OutputPaths      []string
	ErrorOutputPaths []string
	Development      bool
	// Color forces ANSI level colors on console output. When false, color is
	// enabled only if every output is a terminal.
	Color bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	levelVar := new(slog.LevelVar)
	levelVar.Set(parseLevel(opts.Level))

	outputs := opts.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}
	errOutputs := opts.ErrorOutputPaths
	if len(errOutputs) == 0 {
		errOutputs = []string{"stderr"}
	}
	out, err := openSinks(append(append([]string(nil), outputs...), errOutputs...))
	if err != nil {
		return nil, err
	}

	addSource := opts.Development || levelVar.Level() <= slog.LevelDebug

	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "console":
		handler = newConsoleHandler(out.writer(), levelVar, addSource, opts.Color || out.terminal)
	case "json":
		handler = newJSONHandler(out.writer(), levelVar, addSource)
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
	return slog.New(handler), nil
}

// NewFromConfig creates a logger from the [logging] section, teeing into
// fontana.log under the log directory when one is configured.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info"})
	}

	opts := Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format}
	if cfg.Paths.LogDir != "" {
		if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
		logPath := filepath.Join(cfg.Paths.LogDir, "fontana.log")
		opts.OutputPaths = []string{"stdout", logPath}
		opts.ErrorOutputPaths = []string{"stderr", logPath}
	}
	return New(opts)
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	switch name := strings.ToLower(strings.TrimSpace(level)); name {
	case "warning":
		return slog.LevelWarn
	case "":
		return slog.LevelInfo
	default:
		if err := l.UnmarshalText([]byte(name)); err != nil {
			return slog.LevelInfo
		}
		return l
	}
}

// sinks is the set of destinations a logger writes to.
type sinks struct {
	writers  []io.Writer
	terminal bool
}

func (s sinks) writer() io.Writer {
	if len(s.writers) == 1 {
		return s.writers[0]
	}
	return io.MultiWriter(s.writers...)
}

// openSinks resolves "stdout", "stderr" and file paths, skipping repeats.
// terminal is true only when every destination is a terminal.
func openSinks(paths []string) (sinks, error) {
	out := sinks{terminal: true}
	seen := make(map[string]bool, len(paths))
	for _, raw := range paths {
		path := strings.TrimSpace(raw)
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true

		var f *os.File
		switch path {
		case "stdout":
			f = os.Stdout
		case "stderr":
			f = os.Stderr
		default:
			opened, err := openLogFile(path)
			if err != nil {
				return sinks{}, err
			}
			out.writers = append(out.writers, opened)
			out.terminal = false
			continue
		}
		out.writers = append(out.writers, f)
		out.terminal = out.terminal && isTerminal(f)
	}
	if len(out.writers) == 0 {
		return sinks{writers: []io.Writer{os.Stdout}, terminal: isTerminal(os.Stdout)}, nil
	}
	return out, nil
}

func openLogFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return f, nil
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
