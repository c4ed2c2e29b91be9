// Package cmd provides the CLI commands for symdex.
package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/codenav/symdex/internal/config"
	"github.com/codenav/symdex/internal/engine"
	"github.com/codenav/symdex/internal/index"
	"github.com/codenav/symdex/internal/logging"
	"github.com/codenav/symdex/internal/manifest"
	"github.com/codenav/symdex/internal/profiling"
	"github.com/codenav/symdex/pkg/version"
)

// Profiling flags
var (
	profileCPU   string
	profileMem   string
	profileTrace string
	profiler     = profiling.NewProfiler()
	cpuCleanup   func()
	traceCleanup func()
)

// Debug logging flag, read by setupLogging.
var debugMode bool

// NewRootCmd creates the root command for the symdex CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "symdex",
		Short: "Symbol name index for fast code navigation",
		Long: `symdex indexes fully-qualified symbol names extracted from build
artifacts and answers the partial, camel-case queries IDE-style
"go to symbol" features send.

Feed it *.symbols.jsonl dumps with 'symdex index', query from the
terminal with 'symdex search', or plug it into an AI coding
assistant with 'symdex serve'.`,
		Version: version.Version,
	}

	cmd.SetVersionTemplate("symdex version {{.Version}}\n")

	// Profiling flags, mostly for chasing slow bulk ingests
	cmd.PersistentFlags().StringVar(&profileCPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileMem, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profileTrace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Log at debug level")

	cmd.PersistentPreRunE = startProfiling
	cmd.PersistentPostRunE = stopProfiling

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newBoostCmd())
	cmd.AddCommand(newRemoveCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startProfiling starts CPU and trace profiling if the flags are set.
func startProfiling(_ *cobra.Command, _ []string) error {
	var err error

	if profileCPU != "" {
		cpuCleanup, err = profiler.StartCPU(profileCPU)
		if err != nil {
			return fmt.Errorf("failed to start CPU profile: %w", err)
		}
	}

	if profileTrace != "" {
		traceCleanup, err = profiler.StartTrace(profileTrace)
		if err != nil {
			if cpuCleanup != nil {
				cpuCleanup()
			}
			return fmt.Errorf("failed to start trace: %w", err)
		}
	}

	return nil
}

// stopProfiling stops profiling and writes the memory profile if requested.
func stopProfiling(_ *cobra.Command, _ []string) error {
	if cpuCleanup != nil {
		cpuCleanup()
		cpuCleanup = nil
	}

	if traceCleanup != nil {
		traceCleanup()
		traceCleanup = nil
	}

	if profileMem != "" {
		if err := profiler.WriteHeap(profileMem); err != nil {
			return fmt.Errorf("failed to write memory profile: %w", err)
		}
	}

	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig resolves the project root from dir and loads the
// configuration for it.
func loadConfig(dir string) (*config.Config, string, error) {
	root, err := config.FindProjectRoot(dir)
	if err != nil {
		root = dir
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, "", fmt.Errorf("load config: %w", err)
	}
	return cfg, root, nil
}

// setupLogging starts file logging per the config. Commands own stdout
// and stderr for their terminal output; log records go to the file only.
func setupLogging(cfg *config.Config) (func(), error) {
	logCfg := logging.Config{
		Level:         cfg.Log.Level,
		FilePath:      cfg.Log.Path,
		MaxSizeMB:     cfg.Log.MaxSizeMB,
		MaxFiles:      cfg.Log.MaxFiles,
		WriteToStderr: false,
	}
	if logCfg.FilePath == "" {
		logCfg.FilePath = logging.DefaultLogPath()
	}
	if debugMode {
		logCfg.Level = "debug"
	}

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return nil, fmt.Errorf("setup logging: %w", err)
	}
	slog.SetDefault(logger)
	return cleanup, nil
}

// services bundles the handles behind every index-touching command.
type services struct {
	cfg *config.Config
	eng *engine.BleveEngine
	svc *index.Service
	man *manifest.Manifest
}

// openServices opens the engine, index service, and manifest the config
// points at.
func openServices(cfg *config.Config) (*services, error) {
	eng, err := engine.NewBleveEngine(cfg.Paths.IndexDir, engine.WithLogger(slog.Default()))
	if err != nil {
		return nil, fmt.Errorf("open index at %s: %w", cfg.Paths.IndexDir, err)
	}

	svc, err := index.NewService(eng,
		index.WithLogger(slog.Default()),
		index.WithCacheSize(cfg.Search.CacheSize),
		index.WithMaxBoost(cfg.Search.MaxBoost),
	)
	if err != nil {
		_ = eng.Shutdown()
		return nil, fmt.Errorf("create index service: %w", err)
	}

	man, err := manifest.Open(cfg.ManifestPath())
	if err != nil {
		_ = svc.Shutdown()
		return nil, fmt.Errorf("open manifest: %w", err)
	}

	// A corruption rebuild leaves the index empty while the manifest
	// still claims every dump is indexed, which would make the stale
	// check skip them all. Clearing the file records forces the next
	// ingest to repopulate from scratch.
	if eng.Rebuilt() {
		slog.Warn("index_rebuilt_reindex_needed",
			slog.String("path", cfg.Paths.IndexDir))
		if err := man.ClearFiles(context.Background()); err != nil {
			_ = man.Close()
			_ = svc.Shutdown()
			return nil, fmt.Errorf("reset manifest after index rebuild: %w", err)
		}
	}

	return &services{cfg: cfg, eng: eng, svc: svc, man: man}, nil
}

// Close releases the manifest, the service, and the engine under it.
func (s *services) Close() {
	_ = s.man.Close()
	_ = s.svc.Shutdown()
}
