package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/codenav/symdex/internal/config"
	"github.com/codenav/symdex/internal/manifest"
	"github.com/codenav/symdex/internal/schema"
	"github.com/codenav/symdex/pkg/version"
)

// SymbolSearcher is the slice of the index service the server queries.
type SymbolSearcher interface {
	SearchClasses(ctx context.Context, query string, max int) ([]schema.ClassIndex, error)
	SearchClassesMethods(ctx context.Context, terms []string, max int) ([]schema.FqnIndex, error)
}

// StatsSource aggregates manifest counters for the index_status tool.
type StatsSource interface {
	Stats(ctx context.Context) (manifest.Stats, error)
}

// DocCounter reports the engine document count.
type DocCounter interface {
	DocCount() (uint64, error)
}

// Server is the MCP server for symdex.
// It bridges AI clients (Claude Code, Cursor) with the symbol index.
type Server struct {
	mcp    *mcp.Server
	svc    SymbolSearcher
	ledger StatsSource
	config *config.Config
	logger *slog.Logger

	// Engine doc counter (optional, set via SetDocCounter)
	docs DocCounter

	mu sync.RWMutex
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// NewServer creates a new MCP server over the given search service and
// manifest.
func NewServer(svc SymbolSearcher, ledger StatsSource, cfg *config.Config) (*Server, error) {
	if svc == nil {
		return nil, errors.New("search service is required")
	}
	if ledger == nil {
		return nil, errors.New("manifest is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}

	s := &Server{
		svc:    svc,
		ledger: ledger,
		config: cfg,
		logger: slog.Default(),
	}

	// Create MCP server with implementation info
	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "symdex",
			Version: version.Version,
		},
		nil, // ServerOptions - capabilities are inferred from registered tools
	)

	// Register tools
	s.registerTools()

	return s, nil
}

// SetDocCounter sets the engine doc counter for the index_status tool.
// When unset, index_status reports the index as unavailable.
func (s *Server) SetDocCounter(dc DocCounter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = dc
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return "symdex", version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return []ToolInfo{
		{
			Name:        "search_classes",
			Description: searchClassesDescription,
		},
		{
			Name:        "search_symbols",
			Description: searchSymbolsDescription,
		},
		{
			Name:        "index_status",
			Description: indexStatusDescription,
		},
	}
}

// Tool descriptions shared by registration and ListTools.
const (
	searchClassesDescription = "Find classes by name. Matches camel-case fragments (OrdServ finds OrderService) and dotted package prefixes. Returns fully-qualified class names ranked by relevance, with nested and generated classes ranked last."

	searchSymbolsDescription = "Find classes and methods by name. Each term is searched independently and a symbol keeps its best per-term score. Use for go-to-symbol style lookups when the kind is not known up front."

	indexStatusDescription = "Check whether the symbol index is ready and how many documents, dump files and symbols it holds. Use before searching to verify the index is populated."
)

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	s.logger.Debug("Registering MCP tools")

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_classes",
		Description: searchClassesDescription,
	}, s.mcpSearchClassesHandler)
	s.logger.Debug("Registered tool", slog.String("name", "search_classes"))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_symbols",
		Description: searchSymbolsDescription,
	}, s.mcpSearchSymbolsHandler)
	s.logger.Debug("Registered tool", slog.String("name", "search_symbols"))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_status",
		Description: indexStatusDescription,
	}, s.mcpIndexStatusHandler)
	s.logger.Debug("Registered tool", slog.String("name", "index_status"))

	s.logger.Info("MCP tools registered", slog.Int("count", 3))
}

// mcpSearchClassesHandler is the MCP SDK handler for the search_classes tool.
func (s *Server) mcpSearchClassesHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchClassesInput) (
	*mcp.CallToolResult,
	SearchClassesOutput,
	error,
) {
	start := time.Now()
	requestID := generateRequestID()

	// Validate query
	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchClassesOutput{}, NewInvalidParamsError("query parameter is required and must be a non-empty string")
	}

	max := s.clampMax(input.Max)

	s.logger.Info("search_classes started",
		slog.String("request_id", requestID),
		slog.String("query", input.Query),
		slog.Int("max", max))

	classes, err := s.svc.SearchClasses(ctx, input.Query, max)
	duration := time.Since(start)

	if err != nil {
		s.logger.Error("search_classes failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return nil, SearchClassesOutput{}, MapError(err)
	}

	s.logger.Info("search_classes completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
		slog.Int("result_count", len(classes)))

	return nil, SearchClassesOutput{Classes: classResults(classes)}, nil
}

// mcpSearchSymbolsHandler is the MCP SDK handler for the search_symbols tool.
func (s *Server) mcpSearchSymbolsHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchSymbolsInput) (
	*mcp.CallToolResult,
	SearchSymbolsOutput,
	error,
) {
	start := time.Now()
	requestID := generateRequestID()

	// Validate terms, dropping whitespace-only entries
	terms := make([]string, 0, len(input.Terms))
	for _, term := range input.Terms {
		if strings.TrimSpace(term) != "" {
			terms = append(terms, term)
		}
	}
	if len(terms) == 0 {
		return nil, SearchSymbolsOutput{}, NewInvalidParamsError("terms parameter is required and must contain at least one non-empty term")
	}

	max := s.clampMax(input.Max)

	s.logger.Info("search_symbols started",
		slog.String("request_id", requestID),
		slog.Int("terms", len(terms)),
		slog.Int("max", max))

	entries, err := s.svc.SearchClassesMethods(ctx, terms, max)
	duration := time.Since(start)

	if err != nil {
		s.logger.Error("search_symbols failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return nil, SearchSymbolsOutput{}, MapError(err)
	}

	s.logger.Info("search_symbols completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
		slog.Int("result_count", len(entries)))

	return nil, SearchSymbolsOutput{Symbols: symbolResults(entries)}, nil
}

// mcpIndexStatusHandler is the MCP SDK handler for the index_status tool.
func (s *Server) mcpIndexStatusHandler(ctx context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (
	*mcp.CallToolResult,
	*IndexStatusOutput,
	error,
) {
	output, err := s.indexStatus(ctx)
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, output, nil
}

// indexStatus builds the index_status response from the manifest and
// the engine doc count.
func (s *Server) indexStatus(ctx context.Context) (*IndexStatusOutput, error) {
	start := time.Now()
	requestID := generateRequestID()

	s.logger.Info("index_status started",
		slog.String("request_id", requestID))

	stats, err := s.ledger.Stats(ctx)
	if err != nil {
		s.logger.Error("index_status failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return nil, err
	}

	output := &IndexStatusOutput{
		Version:    version.Version,
		Status:     "unavailable",
		Files:      stats.Files,
		Symbols:    stats.Symbols,
		Selections: stats.Selections,
	}

	s.mu.RLock()
	counter := s.docs
	s.mu.RUnlock()

	if counter != nil {
		if docs, err := counter.DocCount(); err == nil {
			output.Docs = docs
			if docs > 0 {
				output.Status = "ready"
			} else {
				output.Status = "empty"
			}
		}
	}

	s.logger.Info("index_status completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", time.Since(start)),
		slog.String("status", output.Status),
		slog.Uint64("docs", output.Docs))

	return output, nil
}

// clampMax resolves the result window: unset falls back to the
// configured default, and anything above the hard cap is cut down.
func (s *Server) clampMax(requested int) int {
	def := s.config.Search.MaxResults
	if def <= 0 {
		def = 10
	}
	return clampLimit(requested, def, 1, maxResultsLimit)
}

// Serve runs the server over the stdio transport until the context is
// canceled. Stdout is owned by JSON-RPC for the duration; logging must
// already be in MCP mode.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("Starting MCP server",
		slog.String("transport", "stdio"))

	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && err != context.Canceled {
		s.logger.Error("MCP server stopped with error",
			slog.String("error", err.Error()))
	} else {
		s.logger.Info("MCP server stopped gracefully")
	}
	return err
}

// Close releases server resources.
func (s *Server) Close() error {
	// The MCP server doesn't have a Close method - it stops when context is canceled
	return nil
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
