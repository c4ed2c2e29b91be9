package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/codenav/symdex/internal/output"
	"github.com/codenav/symdex/internal/schema"
)

func newRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <file>...",
		Short: "Remove dump files from the index",
		Long: `Remove every indexed symbol originating from the given dump files
and drop their manifest records. All removals from one invocation
land in a single commit.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(cmd.Context(), cmd, args)
		},
	}
	return cmd
}

func runRemove(ctx context.Context, cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(".")
	if err != nil {
		return err
	}

	cleanup, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	out := output.New(cmd.OutOrStdout())

	sv, err := openServices(cfg)
	if err != nil {
		return err
	}
	defer sv.Close()

	// Dumps are indexed under their absolute path, so removal resolves
	// arguments the same way.
	files := make([]schema.FileRef, 0, len(args))
	paths := make([]string, 0, len(args))
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", arg, err)
		}
		files = append(files, schema.FileRef{URI: abs})
		paths = append(paths, abs)
	}

	if err := sv.svc.Remove(ctx, files); err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	if err := sv.svc.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	for _, path := range paths {
		if err := sv.man.RemoveFile(ctx, path); err != nil {
			return fmt.Errorf("drop manifest record %s: %w", path, err)
		}
	}

	slog.Info("dumps_removed", slog.Int("files", len(paths)))
	out.Successf("Removed %d dumps from the index", len(paths))
	return nil
}
