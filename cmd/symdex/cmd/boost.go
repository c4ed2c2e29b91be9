package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/codenav/symdex/internal/extract"
	"github.com/codenav/symdex/internal/output"
	"github.com/codenav/symdex/internal/schema"
)

func newBoostCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "boost <fqn>",
		Short: "Record a selection to raise a symbol's ranking",
		Long: `Record that a symbol was selected and re-persist its dump file with
a boost. Every selection raises the stored ranking multiplier of the
file's symbols by a quarter, up to the configured cap, so frequently
visited code surfaces first in later searches.

Editor integrations call this when the user jumps to a symbol; the
interactive picker of 'symdex search --pick' does the same on
confirmation.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoost(cmd.Context(), cmd, args[0])
		},
	}
	return cmd
}

func runBoost(ctx context.Context, cmd *cobra.Command, fqn string) error {
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

	return recordSelection(ctx, out, sv, fqn)
}

// recordSelection notes the pick in the manifest and re-persists the
// symbol's dump file with boost enabled. Provenance comes from the
// manifest's indexed dumps; a fqn found in none of them keeps its
// selection recorded but gets no boost.
func recordSelection(ctx context.Context, out *output.Writer, sv *services, fqn string) error {
	if err := sv.man.RecordSelection(ctx, fqn); err != nil {
		return err
	}

	records, err := sv.man.Files(ctx)
	if err != nil {
		return err
	}

	reader := extract.NewReader(extract.WithLogger(slog.Default()))
	for _, rec := range records {
		symbols, err := reader.ReadFile(rec.Path)
		if err != nil {
			slog.Warn("boost_dump_unreadable",
				slog.String("file", rec.Path),
				slog.String("error", err.Error()))
			continue
		}
		if !containsFqn(symbols, fqn) {
			continue
		}

		if err := sv.svc.Persist(ctx, symbols, true, true); err != nil {
			return fmt.Errorf("boost %s: %w", rec.Path, err)
		}

		slog.Info("selection_boosted",
			slog.String("fqn", fqn),
			slog.String("file", rec.Path),
			slog.Int("symbols", len(symbols)))
		out.Successf("Boosted %s (%d symbols in %s)", fqn, len(symbols), filepath.Base(rec.Path))
		return nil
	}

	slog.Debug("selection_without_provenance", slog.String("fqn", fqn))
	out.Warningf("No indexed dump contains %s; selection recorded without a boost", fqn)
	return nil
}

func containsFqn(symbols []schema.SourceSymbolInfo, fqn string) bool {
	for _, sym := range symbols {
		if sym.FQN == fqn {
			return true
		}
	}
	return false
}
