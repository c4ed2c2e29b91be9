package index

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/codenav/symdex/internal/engine"
	"github.com/codenav/symdex/internal/query"
	"github.com/codenav/symdex/internal/schema"
)

// SearchClasses returns up to max class entries ranked for the query.
// Methods and fields never appear in the result.
func (s *Service) SearchClasses(ctx context.Context, rawQuery string, max int) ([]schema.ClassIndex, error) {
	if max <= 0 {
		return []schema.ClassIndex{}, nil
	}

	key := cacheKey{query: rawQuery, max: max, kind: cacheKindClasses}
	if cached, ok := s.cache.get(key); ok {
		return cached.([]schema.ClassIndex), nil
	}

	hits, err := s.engine.Search(ctx, query.Classes(rawQuery), max)
	if err != nil {
		return nil, err
	}

	results := make([]schema.ClassIndex, 0, len(hits))
	seen := make(map[string]struct{}, len(hits))
	for _, hit := range hits {
		entry, err := schema.FromFields(hit.ID, hit.Fields)
		if err != nil {
			return nil, err
		}
		class, ok := entry.(schema.ClassIndex)
		if !ok {
			continue
		}
		if _, dup := seen[class.Fqn]; dup {
			continue
		}
		seen[class.Fqn] = struct{}{}

		results = append(results, class)
		if len(results) == max {
			break
		}
	}

	s.cache.put(key, results)
	return results, nil
}

// SearchClassesMethods runs one class-or-method query per term
// concurrently and merges them disjunction-max style: each document
// keeps its best single-term score, ordered by merged score descending
// with fqn as the tie-break.
func (s *Service) SearchClassesMethods(ctx context.Context, terms []string, max int) ([]schema.FqnIndex, error) {
	if max <= 0 || len(terms) == 0 {
		return []schema.FqnIndex{}, nil
	}

	key := cacheKey{query: strings.Join(terms, "\x1f"), max: max, kind: cacheKindClassesMethods}
	if cached, ok := s.cache.get(key); ok {
		return cached.([]schema.FqnIndex), nil
	}

	queries := query.ClassesMethodsPerTerm(terms)
	perTerm := make([][]engine.Hit, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		g.Go(func() error {
			hits, err := s.engine.Search(gctx, q, max)
			if err != nil {
				return err
			}
			perTerm[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	best := make(map[string]engine.Hit)
	for _, hits := range perTerm {
		for _, hit := range hits {
			if current, ok := best[hit.ID]; !ok || hit.Score > current.Score {
				best[hit.ID] = hit
			}
		}
	}

	merged := make([]engine.Hit, 0, len(best))
	for _, hit := range best {
		merged = append(merged, hit)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].ID < merged[j].ID
	})

	results := make([]schema.FqnIndex, 0, len(merged))
	for _, hit := range merged {
		entry, err := schema.FromFields(hit.ID, hit.Fields)
		if err != nil {
			return nil, err
		}
		if entry.Kind() == schema.KindField {
			continue
		}

		results = append(results, entry)
		if len(results) == max {
			break
		}
	}

	s.cache.put(key, results)
	return results, nil
}
