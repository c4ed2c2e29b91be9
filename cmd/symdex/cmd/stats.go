package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Long:  `Display document, dump file, and selection counters for the index.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd.Context(), cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

// StatsOutput is the JSON output format for index stats.
type StatsOutput struct {
	IndexDir   string           `json:"index_dir"`
	Docs       uint64           `json:"docs"`
	Files      int              `json:"files"`
	Symbols    int              `json:"symbols"`
	Selections int              `json:"selections"`
	TopPicks   []StatsSelection `json:"top_picks,omitempty"`
}

// StatsSelection is one fqn's selection count.
type StatsSelection struct {
	Fqn   string `json:"fqn"`
	Count int    `json:"count"`
}

func runStats(ctx context.Context, cmd *cobra.Command, jsonOutput bool) error {
	cfg, _, err := loadConfig(".")
	if err != nil {
		return err
	}

	cleanup, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	sv, err := openServices(cfg)
	if err != nil {
		return err
	}
	defer sv.Close()

	docs, err := sv.eng.DocCount()
	if err != nil {
		return fmt.Errorf("count documents: %w", err)
	}
	stats, err := sv.man.Stats(ctx)
	if err != nil {
		return err
	}
	top, err := sv.man.Selections(ctx, 5)
	if err != nil {
		return err
	}

	out := &StatsOutput{
		IndexDir:   cfg.Paths.IndexDir,
		Docs:       docs,
		Files:      stats.Files,
		Symbols:    stats.Symbols,
		Selections: stats.Selections,
	}
	for _, sel := range top {
		out.TopPicks = append(out.TopPicks, StatsSelection{Fqn: sel.FQN, Count: sel.Count})
	}

	if jsonOutput {
		return printStatsJSON(cmd, out)
	}
	return printStatsFormatted(cmd, out)
}

func printStatsJSON(cmd *cobra.Command, out *StatsOutput) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printStatsFormatted(cmd *cobra.Command, out *StatsOutput) error {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w, "Index Statistics")
	fmt.Fprintln(w, "================")
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Index:      %s\n", out.IndexDir)
	fmt.Fprintf(w, "Documents:  %d\n", out.Docs)
	fmt.Fprintf(w, "Dump files: %d\n", out.Files)
	fmt.Fprintf(w, "Symbols:    %d\n", out.Symbols)
	fmt.Fprintf(w, "Selections: %d\n", out.Selections)

	if len(out.TopPicks) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Most Selected:")
		for i, sel := range out.TopPicks {
			fmt.Fprintf(w, "  %d. %s (%d)\n", i+1, sel.Fqn, sel.Count)
		}
	}

	return nil
}
