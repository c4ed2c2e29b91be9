package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codenav/symdex/internal/engine"
	symerrors "github.com/codenav/symdex/internal/errors"
	"github.com/codenav/symdex/internal/schema"
)

func classHit(fqn string, score float64) engine.Hit {
	return engine.Hit{ID: fqn, Score: score, Fields: map[string]interface{}{
		schema.FieldFQN:   fqn,
		schema.FieldType:  string(schema.KindClass),
		schema.FieldBoost: 1.0,
	}}
}

func methodHit(fqn string, score float64) engine.Hit {
	return engine.Hit{ID: fqn, Score: score, Fields: map[string]interface{}{
		schema.FieldFQN:   fqn,
		schema.FieldType:  string(schema.KindMethod),
		schema.FieldBoost: 1.0,
	}}
}

func fieldHit(fqn string, score float64) engine.Hit {
	return engine.Hit{ID: fqn, Score: score, Fields: map[string]interface{}{
		schema.FieldFQN:   fqn,
		schema.FieldType:  string(schema.KindField),
		schema.FieldBoost: 1.0,
	}}
}

func fqnsOf(results []schema.FqnIndex) []string {
	fqns := make([]string, len(results))
	for i, r := range results {
		fqns[i] = r.FQN()
	}
	return fqns
}

func TestService_SearchClasses_DeduplicatesByName(t *testing.T) {
	// Given an engine returning the same name twice
	fake := &fakeEngine{searchHits: func(int) []engine.Hit {
		return []engine.Hit{
			classHit("com.example.Foo", 3.0),
			classHit("com.example.Foo", 1.0),
			classHit("com.example.Bar", 0.5),
		}
	}}
	svc, err := NewService(fake)
	require.NoError(t, err)

	// When searching
	results, err := svc.SearchClasses(context.Background(), "Foo", 10)

	// Then each name appears once, first hit wins
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "com.example.Foo", results[0].Fqn)
	assert.Equal(t, "com.example.Bar", results[1].Fqn)
}

func TestService_SearchClasses_DropsNonClassHits(t *testing.T) {
	// Given an engine leaking a method hit into a class search
	fake := &fakeEngine{searchHits: func(int) []engine.Hit {
		return []engine.Hit{
			methodHit("com.example.Foo.bar", 5.0),
			classHit("com.example.Foo", 1.0),
		}
	}}
	svc, err := NewService(fake)
	require.NoError(t, err)

	// When searching
	results, err := svc.SearchClasses(context.Background(), "Foo", 10)

	// Then only the class entry survives
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "com.example.Foo", results[0].Fqn)
}

func TestService_SearchClasses_CapsAtMax(t *testing.T) {
	fake := &fakeEngine{searchHits: func(int) []engine.Hit {
		return []engine.Hit{
			classHit("com.example.A", 5.0),
			classHit("com.example.B", 4.0),
			classHit("com.example.C", 3.0),
		}
	}}
	svc, err := NewService(fake)
	require.NoError(t, err)

	results, err := svc.SearchClasses(context.Background(), "com", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestService_SearchClasses_PropagatesEngineFailure(t *testing.T) {
	fake := &fakeEngine{searchErr: symerrors.New(symerrors.ErrCodeSearchFailed, "segment unreadable", nil)}
	svc, err := NewService(fake)
	require.NoError(t, err)

	_, err = svc.SearchClasses(context.Background(), "Foo", 10)
	require.Error(t, err)
	assert.True(t, symerrors.HasCode(err, symerrors.ErrCodeSearchFailed))
}

func TestService_Search_NonPositiveMaxShortCircuits(t *testing.T) {
	// Given an engine that would fail if consulted
	fake := &fakeEngine{searchErr: symerrors.InternalError("must not be called", nil)}
	svc, err := NewService(fake)
	require.NoError(t, err)
	ctx := context.Background()

	// When searching with a non-positive limit or no terms
	classes, err := svc.SearchClasses(ctx, "Foo", 0)
	require.NoError(t, err)
	assert.Empty(t, classes)

	symbols, err := svc.SearchClassesMethods(ctx, []string{"Foo"}, -1)
	require.NoError(t, err)
	assert.Empty(t, symbols)

	symbols, err = svc.SearchClassesMethods(ctx, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, symbols)

	// Then the engine was never consulted
	assert.Zero(t, fake.searchCount())
}

func TestService_SearchClassesMethods_MergesByBestScore(t *testing.T) {
	// Given two per-term result sets sharing one document. Which
	// goroutine receives which set is scheduling-dependent; the merge
	// is symmetric, so the outcome is the same either way.
	perCall := map[int][]engine.Hit{
		1: {
			classHit("com.example.UserService", 3.0),
			methodHit("com.example.UserService.find", 1.0),
		},
		2: {
			classHit("com.example.UserService", 1.5),
			classHit("com.example.UserRepo", 2.0),
		},
	}
	fake := &fakeEngine{searchHits: func(call int) []engine.Hit { return perCall[call] }}
	svc, err := NewService(fake)
	require.NoError(t, err)

	// When searching two terms
	results, err := svc.SearchClassesMethods(context.Background(), []string{"UserService", "find"}, 10)

	// Then each document keeps its best single-term score
	require.NoError(t, err)
	assert.Equal(t, []string{
		"com.example.UserService",
		"com.example.UserRepo",
		"com.example.UserService.find",
	}, fqnsOf(results))
	assert.Equal(t, 2, fake.searchCount())
}

func TestService_SearchClassesMethods_TieBreaksByName(t *testing.T) {
	// Given two documents with identical scores
	fake := &fakeEngine{searchHits: func(int) []engine.Hit {
		return []engine.Hit{
			classHit("com.example.Zeta", 2.0),
			classHit("com.example.Alpha", 2.0),
		}
	}}
	svc, err := NewService(fake)
	require.NoError(t, err)

	// When searching
	results, err := svc.SearchClassesMethods(context.Background(), []string{"example"}, 10)

	// Then ties order by name
	require.NoError(t, err)
	assert.Equal(t, []string{"com.example.Alpha", "com.example.Zeta"}, fqnsOf(results))
}

func TestService_SearchClassesMethods_DropsFieldEntries(t *testing.T) {
	// Given an engine leaking a field hit
	fake := &fakeEngine{searchHits: func(int) []engine.Hit {
		return []engine.Hit{
			fieldHit("com.example.Foo.size", 5.0),
			classHit("com.example.Foo", 1.0),
		}
	}}
	svc, err := NewService(fake)
	require.NoError(t, err)

	// When searching
	results, err := svc.SearchClassesMethods(context.Background(), []string{"Foo"}, 10)

	// Then the field entry is dropped
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, schema.KindClass, results[0].Kind())
}

func TestService_SearchClassesMethods_CapsAfterMerge(t *testing.T) {
	fake := &fakeEngine{searchHits: func(int) []engine.Hit {
		return []engine.Hit{
			classHit("com.example.A", 5.0),
			classHit("com.example.B", 4.0),
			methodHit("com.example.A.run", 3.0),
		}
	}}
	svc, err := NewService(fake)
	require.NoError(t, err)

	results, err := svc.SearchClassesMethods(context.Background(), []string{"A"}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"com.example.A", "com.example.B"}, fqnsOf(results))
}

func TestService_SearchClassesMethods_PropagatesEngineFailure(t *testing.T) {
	fake := &fakeEngine{searchErr: symerrors.New(symerrors.ErrCodeSearchFailed, "segment unreadable", nil)}
	svc, err := NewService(fake)
	require.NoError(t, err)

	_, err = svc.SearchClassesMethods(context.Background(), []string{"a", "b"}, 10)
	require.Error(t, err)
	assert.True(t, symerrors.HasCode(err, symerrors.ErrCodeSearchFailed))
}

func TestService_SearchClassesMethods_FindsClassesAndMethods(t *testing.T) {
	// Given a real engine with a class, its method and its field
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Persist(ctx, []schema.SourceSymbolInfo{
		classSym("com.example.OrderService", "file:///src/OrderService.java"),
		methodSym("com.example.OrderService.submit", "file:///src/OrderService.java"),
		fieldSym("com.example.OrderService.retries", "file:///src/OrderService.java"),
	}, true, false))

	// When searching terms covering the class and the method
	results, err := svc.SearchClassesMethods(ctx, []string{"OrderService", "submit"}, 10)

	// Then classes and methods come back, fields never
	require.NoError(t, err)
	fqns := fqnsOf(results)
	assert.Contains(t, fqns, "com.example.OrderService")
	assert.Contains(t, fqns, "com.example.OrderService.submit")
	assert.NotContains(t, fqns, "com.example.OrderService.retries")
}

func TestService_SearchCache_ReusedUntilWrite(t *testing.T) {
	// Given a cached query answered once
	fake := &fakeEngine{searchHits: func(int) []engine.Hit {
		return []engine.Hit{classHit("com.example.Foo", 1.0)}
	}}
	svc, err := NewService(fake, WithCacheSize(16))
	require.NoError(t, err)
	ctx := context.Background()

	first, err := svc.SearchClasses(ctx, "Foo", 10)
	require.NoError(t, err)
	require.Equal(t, 1, fake.searchCount())

	// When repeating it
	second, err := svc.SearchClasses(ctx, "Foo", 10)
	require.NoError(t, err)

	// Then the engine is not consulted again
	assert.Equal(t, 1, fake.searchCount())
	assert.Equal(t, first, second)

	// When any write lands
	require.NoError(t, svc.Commit(ctx))

	// Then the next search goes back to the engine
	_, err = svc.SearchClasses(ctx, "Foo", 10)
	require.NoError(t, err)
	assert.Equal(t, 2, fake.searchCount())
}

func TestService_SearchCache_PurgedOnEveryWrite(t *testing.T) {
	ctx := context.Background()
	writes := []struct {
		name string
		op   func(svc *Service) error
	}{
		{name: "persist", op: func(svc *Service) error {
			return svc.Persist(ctx, []schema.SourceSymbolInfo{
				classSym("com.example.New", "file:///src/New.java"),
			}, false, false)
		}},
		{name: "commit", op: func(svc *Service) error {
			return svc.Commit(ctx)
		}},
		{name: "remove", op: func(svc *Service) error {
			return svc.Remove(ctx, []schema.FileRef{{URI: "file:///src/Old.java"}})
		}},
	}

	for _, tt := range writes {
		t.Run(tt.name, func(t *testing.T) {
			// Given a warmed cache
			fake := &fakeEngine{searchHits: func(int) []engine.Hit {
				return []engine.Hit{classHit("com.example.Foo", 1.0)}
			}}
			svc, err := NewService(fake, WithCacheSize(16))
			require.NoError(t, err)

			_, err = svc.SearchClasses(ctx, "Foo", 10)
			require.NoError(t, err)
			_, err = svc.SearchClasses(ctx, "Foo", 10)
			require.NoError(t, err)
			require.Equal(t, 1, fake.searchCount())

			// When the write lands
			require.NoError(t, tt.op(svc))

			// Then the cache is cold again
			_, err = svc.SearchClasses(ctx, "Foo", 10)
			require.NoError(t, err)
			assert.Equal(t, 2, fake.searchCount())
		})
	}
}

func TestService_SearchCache_KeyedByQueryMaxAndKind(t *testing.T) {
	// Given a cached service
	fake := &fakeEngine{searchHits: func(int) []engine.Hit {
		return []engine.Hit{classHit("com.example.Foo", 1.0)}
	}}
	svc, err := NewService(fake, WithCacheSize(16))
	require.NoError(t, err)
	ctx := context.Background()

	// When varying the limit and the search kind for one query string
	_, err = svc.SearchClasses(ctx, "Foo", 5)
	require.NoError(t, err)
	_, err = svc.SearchClasses(ctx, "Foo", 10)
	require.NoError(t, err)
	_, err = svc.SearchClassesMethods(ctx, []string{"Foo"}, 5)
	require.NoError(t, err)

	// Then each combination is its own cache entry
	assert.Equal(t, 3, fake.searchCount())
}

func TestService_SearchCache_DisabledSizeMeansNoMemoization(t *testing.T) {
	// Given a service with caching disabled
	fake := &fakeEngine{searchHits: func(int) []engine.Hit {
		return []engine.Hit{classHit("com.example.Foo", 1.0)}
	}}
	svc, err := NewService(fake, WithCacheSize(0))
	require.NoError(t, err)
	ctx := context.Background()

	// When repeating a query
	_, err = svc.SearchClasses(ctx, "Foo", 10)
	require.NoError(t, err)
	_, err = svc.SearchClasses(ctx, "Foo", 10)
	require.NoError(t, err)

	// Then every search reaches the engine
	assert.Equal(t, 2, fake.searchCount())
}
