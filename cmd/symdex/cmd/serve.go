package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/codenav/symdex/internal/logging"
	"github.com/codenav/symdex/internal/mcp"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the index to AI assistants over MCP stdio",
		Long: `Run the MCP server over stdio.

Stdout carries JSON-RPC exclusively; all diagnostics go to the log
file. Register the binary with an MCP client such as Claude Code or
Cursor to expose the search_classes, search_symbols and index_status
tools:

  claude mcp add symdex -- symdex serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := verifyStdinForMCP(); err != nil {
				return err
			}
			return runServe(ctx)
		},
	}
	return cmd
}

// verifyStdinForMCP refuses to serve on an interactive terminal: the
// stdio transport expects an MCP client on the other end of the pipe.
func verifyStdinForMCP() error {
	if isatty.IsTerminal(os.Stdin.Fd()) {
		return fmt.Errorf("serve speaks MCP over stdio and expects a client on stdin\n" +
			"Register it with your MCP client instead, e.g.:\n" +
			"  claude mcp add symdex -- symdex serve")
	}
	return nil
}

func runServe(ctx context.Context) error {
	// MCP-safe logging first: nothing may write to stdout or stderr
	// from here on.
	cleanup, err := logging.SetupMCPMode()
	if err != nil {
		return err
	}
	defer cleanup()

	cfg, _, err := loadConfig(".")
	if err != nil {
		slog.Error("config_load_failed", slog.String("error", err.Error()))
		return err
	}

	sv, err := openServices(cfg)
	if err != nil {
		slog.Error("services_open_failed", slog.String("error", err.Error()))
		return err
	}
	defer sv.Close()

	srv, err := mcp.NewServer(sv.svc, sv.man, cfg)
	if err != nil {
		return err
	}
	srv.SetDocCounter(sv.eng)

	return srv.Serve(ctx)
}
