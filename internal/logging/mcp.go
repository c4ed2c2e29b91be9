package logging

import (
	"log/slog"
	"os"
)

// SetupMCPMode installs the process-default logger for stdio MCP
// serving. Stdout carries JSON-RPC exclusively and clients treat
// stderr noise as a broken handshake, so everything goes to the log
// file and nothing else. Level is fixed at debug: the file is the only
// diagnostic channel a detached server has.
//
// SYMDEX_LOG_PATH overrides the file location. The override is read
// here rather than from config because this runs before config loads,
// so config failures are themselves loggable.
func SetupMCPMode() (func(), error) {
	cfg := Config{
		Level:         "debug",
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: false,
	}
	if path := os.Getenv("SYMDEX_LOG_PATH"); path != "" {
		cfg.FilePath = path
	}

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)

	slog.Info("MCP mode logging initialized",
		slog.String("log_file", cfg.FilePath),
		slog.String("level", cfg.Level),
		slog.Bool("stderr_disabled", true))

	return cleanup, nil
}
