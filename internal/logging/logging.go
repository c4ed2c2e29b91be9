package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config controls where logs go and what gets through.
type Config struct {
	// Level is the minimum level written (debug, info, warn, error).
	Level string
	// FilePath locates the JSON log file.
	FilePath string
	// MaxSizeMB caps the live file before rotation kicks in.
	MaxSizeMB int
	// MaxFiles caps how many rotated copies survive.
	MaxFiles int
	// WriteToStderr mirrors every line to stderr, for interactive runs.
	WriteToStderr bool
}

// DefaultConfig is the file-plus-stderr setup interactive commands use.
func DefaultConfig() Config {
	return Config{
		Level:         "info",
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: true,
	}
}

// DebugConfig is DefaultConfig with the threshold lowered to debug.
func DebugConfig() Config {
	cfg := DefaultConfig()
	cfg.Level = "debug"
	return cfg
}

// Setup builds a JSON slog logger per cfg. The returned cleanup syncs
// and closes the log file and must run before exit or trailing lines
// can be lost.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	if err := EnsureLogDir(); err != nil {
		return nil, nil, err
	}

	writer, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
	if err != nil {
		return nil, nil, err
	}

	var output io.Writer = writer
	if cfg.WriteToStderr {
		output = io.MultiWriter(writer, os.Stderr)
	}

	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	})

	cleanup := func() {
		_ = writer.Sync()
		_ = writer.Close()
	}

	return slog.New(handler), cleanup, nil
}

// SetupDefault installs a debug-level logger as the process default and
// returns its cleanup.
func SetupDefault() (func(), error) {
	logger, cleanup, err := Setup(DebugConfig())
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)
	return cleanup, nil
}

var levelNames = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// parseLevel maps a level name to slog.Level, defaulting unknown names
// to info rather than failing: a typo in config should not silence or
// flood the log.
func parseLevel(level string) slog.Level {
	if lvl, ok := levelNames[strings.ToLower(level)]; ok {
		return lvl
	}
	return slog.LevelInfo
}

// LevelFromString is parseLevel for callers outside the package; the
// log viewer uses it to compare entry levels against its threshold.
func LevelFromString(level string) slog.Level {
	return parseLevel(level)
}
