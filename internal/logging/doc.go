// Package logging provides file-based logging with size rotation for symdex.
// Logs are structured JSON written to ~/.symdex/logs/symdex.log so they can
// be filtered and followed with `symdex logs`.
//
// Interactive commands log to stderr and, with --debug, to the log file as
// well. The MCP server (`symdex serve`) logs ONLY to the file: its stdout
// and stderr belong to the stdio transport.
package logging
