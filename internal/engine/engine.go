// Package engine defines the narrow full-text engine contract the
// index service builds on, and its Bleve-backed implementation.
//
// The contract is five operations (put, delete, commit, search,
// shutdown) plus a boost-lookup helper. Writes stage into a pending
// batch and become durable and searchable at commit; committed readers
// are never blocked by writer activity.
package engine

import (
	"context"

	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/codenav/symdex/internal/schema"
)

// Term is an exact-match key on a keyword-analyzed field, used for
// bulk deletion.
type Term struct {
	Field string
	Value string
}

// Hit is one scored search result. Fields holds the stored fields
// requested by the engine (fqn, TYPE, boost).
type Hit struct {
	ID     string
	Score  float64
	Fields map[string]interface{}
}

// Engine is the contract over the full-text store.
type Engine interface {
	// Put stages documents for insertion. When commit is set the
	// staged batch is flushed before returning.
	Put(ctx context.Context, docs []schema.Document, commit bool) error

	// Delete stages removal of every committed document matching the
	// given exact field terms. When commit is set the staged batch is
	// flushed before returning.
	Delete(ctx context.Context, terms []Term, commit bool) error

	// Commit flushes all staged writes durably. Fails with
	// ErrCodeStoreMissing when the backing store vanished.
	Commit(ctx context.Context) error

	// Search executes q and returns up to limit hits ordered by
	// boost-adjusted score descending, ID ascending on ties.
	Search(ctx context.Context, q query.Query, limit int) ([]Hit, error)

	// GetBoosts returns the stored boost for each given fqn present
	// in the index. Absent fqns are omitted from the result.
	GetBoosts(ctx context.Context, fqns []string) (map[string]float64, error)

	// Shutdown releases the underlying store. Staged, uncommitted
	// writes are discarded.
	Shutdown() error
}
