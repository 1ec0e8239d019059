package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/wire"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"

	"github.com/trebuchet-org/payrail/internal/domain/config"
)

var LoggingSet = wire.NewSet(
	NewLogger,
)

// NewLogger creates a new logger based on runtime configuration
func NewLogger(cfg *config.RuntimeConfig) *slog.Logger {
	level := ParseLevel(os.Getenv("PAYRAIL_LOG_LEVEL"), slog.LevelWarn)
	if cfg.Debug {
		level = slog.LevelDebug
	}
	return newLogger(os.Stderr, level, isTerminal(os.Stderr))
}

// ParseLevel maps a level name to a slog level, falling back to def
func ParseLevel(val string, def slog.Level) slog.Level {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return def
	}
}

func newLogger(w io.Writer, level slog.Level, color bool) *slog.Logger {
	handler := tint.NewHandler(w, &tint.Options{
		Level:     level,
		AddSource: level == slog.LevelDebug,
		NoColor:   !color,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Remove time for cleaner output
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			// Shorten source paths
			if a.Key == slog.SourceKey {
				if source, ok := a.Value.Any().(*slog.Source); ok {
					source.File = shortPath(source.File)
				}
			}
			return a
		},
	})
	return slog.New(handler)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// shortPath returns the path relative to the module, or the last two elements
func shortPath(file string) string {
	if idx := strings.Index(file, "payrail/"); idx != -1 {
		return file[idx+len("payrail/"):]
	}
	dir, name := filepath.Split(file)
	if dir == "" {
		return name
	}
	return filepath.Join(filepath.Base(dir), name)
}
