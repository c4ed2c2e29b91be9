package mcp

import (
	"github.com/codenav/symdex/internal/schema"
)

// maxResultsLimit is the hard cap on results per tool call. AI clients
// never need more than a page of candidates.
const maxResultsLimit = 100

// classResults converts class entries to the wire output format.
func classResults(classes []schema.ClassIndex) []ClassResult {
	results := make([]ClassResult, 0, len(classes))
	for _, class := range classes {
		results = append(results, ClassResult{Fqn: class.Fqn})
	}
	return results
}

// symbolResults converts mixed entries to the wire output format.
func symbolResults(entries []schema.FqnIndex) []SymbolResult {
	results := make([]SymbolResult, 0, len(entries))
	for _, entry := range entries {
		results = append(results, SymbolResult{
			Fqn:  entry.FQN(),
			Kind: entry.Kind().Label(),
		})
	}
	return results
}

// clampLimit ensures limit is within bounds.
func clampLimit(limit, defaultVal, min, max int) int {
	if limit <= 0 {
		return defaultVal
	}
	if limit < min {
		return min
	}
	if limit > max {
		return max
	}
	return limit
}
