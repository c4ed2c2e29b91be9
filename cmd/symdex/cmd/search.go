package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codenav/symdex/internal/output"
	"github.com/codenav/symdex/internal/schema"
	"github.com/codenav/symdex/internal/ui"
)

func newSearchCmd() *cobra.Command {
	var (
		max     int
		kind    string
		jsonOut bool
		pick    bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the symbol index",
		Long: `Search indexed symbols by partial or camel-case name.

Queries match the way IDE "go to symbol" boxes do: "HaMa" finds
HashMap, "OrdSer" finds OrderService, and a lower-case prefix
matches package segments. Classes and methods are searched by
default; --kind class restricts matches to classes.

With --pick the results open in an interactive list. Confirming a
symbol prints its fqn and raises its ranking for future queries.
Without a terminal --pick falls back to plain output.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, args, max, kind, jsonOut, pick)
		},
	}

	cmd.Flags().IntVar(&max, "max", 0, "Maximum results (default from config)")
	cmd.Flags().StringVar(&kind, "kind", "symbol", "What to match: class or symbol")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output results as JSON")
	cmd.Flags().BoolVar(&pick, "pick", false, "Pick a result interactively")
	cmd.MarkFlagsMutuallyExclusive("json", "pick")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, args []string, max int, kind string, jsonOut, pick bool) error {
	cfg, _, err := loadConfig(".")
	if err != nil {
		return err
	}

	cleanup, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	out := output.New(cmd.OutOrStdout(), output.WithJSON(jsonOut))

	sv, err := openServices(cfg)
	if err != nil {
		return err
	}
	defer sv.Close()

	if max <= 0 {
		max = cfg.Search.MaxResults
	}
	query := strings.Join(args, " ")

	var entries []schema.FqnIndex
	switch kind {
	case "class":
		classes, err := sv.svc.SearchClasses(ctx, query, max)
		if err != nil {
			return fmt.Errorf("search classes: %w", err)
		}
		entries = make([]schema.FqnIndex, len(classes))
		for i, class := range classes {
			entries[i] = class
		}
	case "symbol":
		entries, err = sv.svc.SearchClassesMethods(ctx, strings.Fields(query), max)
		if err != nil {
			return fmt.Errorf("search symbols: %w", err)
		}
	default:
		return fmt.Errorf("unknown --kind %q (want class or symbol)", kind)
	}

	if jsonOut {
		return printSearchJSON(out, entries)
	}

	if pick && len(entries) > 0 {
		done, err := pickSymbol(ctx, out, sv, entries)
		if done || err != nil {
			return err
		}
	}

	printSearchResults(out, query, entries)
	return nil
}

// pickSymbol opens the interactive list. It reports done=false when the
// terminal cannot host the picker so the caller falls back to plain
// output.
func pickSymbol(ctx context.Context, out *output.Writer, sv *services, entries []schema.FqnIndex) (bool, error) {
	picker, err := ui.NewPicker(os.Stdout)
	if err != nil {
		slog.Debug("picker_unavailable", slog.String("error", err.Error()))
		return false, nil
	}

	sym, err := picker.Run(entries)
	if errors.Is(err, ui.ErrCanceled) {
		return true, nil
	}
	if err != nil {
		return true, err
	}

	out.Line(sym.FQN())
	return true, recordSelection(ctx, out, sv, sym.FQN())
}

// searchResult is one entry of the --json output.
type searchResult struct {
	Fqn  string `json:"fqn"`
	Kind string `json:"kind"`
}

func printSearchJSON(out *output.Writer, entries []schema.FqnIndex) error {
	results := make([]searchResult, 0, len(entries))
	for _, entry := range entries {
		results = append(results, searchResult{
			Fqn:  entry.FQN(),
			Kind: entry.Kind().Label(),
		})
	}
	return out.EmitJSON(results)
}

func printSearchResults(out *output.Writer, query string, entries []schema.FqnIndex) {
	if len(entries) == 0 {
		out.Statusf("🔍", "No symbols match %q", query)
		return
	}

	out.Statusf("🔍", "%d results for %q", len(entries), query)
	out.Newline()
	for i, entry := range entries {
		out.Linef("%d. %s %s", i+1, entry.FQN(), out.Dim("("+entry.Kind().Label()+")"))
	}
}
