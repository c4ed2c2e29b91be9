package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/codenav/symdex/internal/engine"
	symerrors "github.com/codenav/symdex/internal/errors"
	"github.com/codenav/symdex/internal/schema"
)

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// Service coordinates persist, remove, commit and search operations.
// It holds no locks of its own; the engine is the sole arbiter of
// concurrent-write safety.
type Service struct {
	engine   engine.Engine
	logger   *slog.Logger
	cache    *resultsCache
	maxBoost float64
}

// Option configures the service.
type Option func(*Service)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCacheSize enables the search results cache with the given
// capacity. Zero or negative disables caching.
func WithCacheSize(size int) Option {
	return func(s *Service) {
		s.cache = newResultsCache(size)
	}
}

// WithMaxBoost caps accumulated selection boosts. Defaults to
// DefaultMaxBoost.
func WithMaxBoost(max float64) Option {
	return func(s *Service) {
		if max > 0 {
			s.maxBoost = max
		}
	}
}

// NewService creates the index service over the given engine.
func NewService(eng engine.Engine, opts ...Option) (*Service, error) {
	if eng == nil {
		return nil, fmt.Errorf("%w: engine", ErrNilDependency)
	}

	s := &Service{
		engine:   eng,
		logger:   slog.Default(),
		maxBoost: DefaultMaxBoost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Persist filters symbols to the indexable subset, applies the penalty
// policy as each document's boost, and stages the batch. With boost
// set, every document's stored boost instead grows by a flat step on
// top of its current value, capped at the configured maximum. The
// current value is read from the last committed document; staged but
// uncommitted boosts are not visible, so callers that want selections
// to accumulate must commit between boosted persists. With commit set
// the batch is flushed before returning.
func (s *Service) Persist(ctx context.Context, symbols []schema.SourceSymbolInfo, commit, boost bool) error {
	entries := s.eligibleEntries(symbols)

	stored := map[string]float64{}
	if boost && len(entries) > 0 {
		fqns := make([]string, len(entries))
		for i, entry := range entries {
			fqns[i] = entry.FQN()
		}
		var err error
		stored, err = s.engine.GetBoosts(ctx, fqns)
		if err != nil {
			return err
		}
	}

	docs := make([]schema.Document, 0, len(entries))
	for _, entry := range entries {
		b := Penalty(entry.FQN())
		if boost {
			if current, ok := stored[entry.FQN()]; ok {
				b = current
			}
			b += boostStep
			if b > s.maxBoost {
				b = s.maxBoost
			}
		}

		doc, err := schema.ToDocument(entry, b)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}

	if err := s.engine.Put(ctx, docs, commit); err != nil {
		return err
	}

	s.cache.purge()
	return nil
}

// Commit flushes staged writes durably. A vanished backing store is
// logged at warn level and reported as success; everything else
// propagates.
func (s *Service) Commit(ctx context.Context) error {
	if err := s.engine.Commit(ctx); err != nil {
		if !symerrors.HasCode(err, symerrors.ErrCodeStoreMissing) {
			return err
		}
		s.logger.Warn("commit_store_missing", slog.String("error", err.Error()))
	}

	s.cache.purge()
	return nil
}

// Remove stages deletion of every document originating from the given
// files. Deletions stay invisible until the next commit, so a reindex
// can land removal and fresh inserts in one durability boundary.
func (s *Service) Remove(ctx context.Context, files []schema.FileRef) error {
	if len(files) == 0 {
		return nil
	}

	terms := make([]engine.Term, 0, len(files))
	for _, file := range files {
		terms = append(terms, engine.Term{Field: schema.FieldFile, Value: file.URI})
	}

	if err := s.engine.Delete(ctx, terms, false); err != nil {
		return err
	}

	s.cache.purge()
	return nil
}

// Shutdown releases the underlying engine.
func (s *Service) Shutdown() error {
	return s.engine.Shutdown()
}

// eligibleEntries applies the indexing filter: records with an empty
// fqn are dropped, synthetic classes are indexed only when decompiled
// metadata is available, and records of unknown kind are logged and
// skipped.
func (s *Service) eligibleEntries(symbols []schema.SourceSymbolInfo) []schema.FqnIndex {
	entries := make([]schema.FqnIndex, 0, len(symbols))
	for _, sym := range symbols {
		if sym.FQN == "" {
			continue
		}
		if isClassKind(sym.Kind) && sym.Synthetic && !sym.Decompiled {
			continue
		}

		entry, err := sym.Entry()
		if err != nil {
			s.logger.Warn("symbol_skipped",
				slog.String("fqn", sym.FQN),
				slog.String("kind", string(sym.Kind)),
				slog.String("error", err.Error()))
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

func isClassKind(kind schema.SymbolKind) bool {
	return kind == schema.SymbolKindClass || kind == schema.SymbolKindTypeAlias
}
