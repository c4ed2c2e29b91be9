package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/blevesearch/bleve/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	symerrors "github.com/codenav/symdex/internal/errors"
	"github.com/codenav/symdex/internal/query"
	"github.com/codenav/symdex/internal/schema"
)

func newTestEngine(t *testing.T) *BleveEngine {
	t.Helper()
	e, err := NewBleveEngine("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Shutdown() })
	return e
}

func classDoc(t *testing.T, fqn, file string, boost float64) schema.Document {
	t.Helper()
	doc, err := schema.ToDocument(schema.ClassIndex{Fqn: fqn, File: schema.NewFileRef(file)}, boost)
	require.NoError(t, err)
	return doc
}

func methodDoc(t *testing.T, fqn, file string) schema.Document {
	t.Helper()
	doc, err := schema.ToDocument(schema.MethodIndex{Fqn: fqn, File: schema.NewFileRef(file)}, 1.0)
	require.NoError(t, err)
	return doc
}

func TestBleveEngine_PutAndSearch_FindsClassByName(t *testing.T) {
	// Given: a committed class document
	e := newTestEngine(t)
	docs := []schema.Document{classDoc(t, "com.example.Foo", "file:///f1", 1.0)}
	require.NoError(t, e.Put(context.Background(), docs, true))

	// When: searching the class query for the bare name
	hits, err := e.Search(context.Background(), query.Classes("Foo"), 10)
	require.NoError(t, err)

	// Then: the class is found and round-trips through the schema
	require.Len(t, hits, 1)
	assert.Equal(t, "com.example.Foo", hits[0].ID)
	assert.Greater(t, hits[0].Score, 0.0)

	entry, err := schema.FromFields(hits[0].ID, hits[0].Fields)
	require.NoError(t, err)
	assert.Equal(t, schema.KindClass, entry.Kind())
	assert.Equal(t, "com.example.Foo", entry.FQN())
	assert.Nil(t, entry.SourceFile())
}

func TestBleveEngine_Search_FindsSynonymForms(t *testing.T) {
	// Given: an indexed HashMap class
	e := newTestEngine(t)
	docs := []schema.Document{classDoc(t, "com.example.HashMap", "file:///f1", 1.0)}
	require.NoError(t, e.Put(context.Background(), docs, true))

	// Then: every synonym form resolves to the same document
	for _, term := range []string{"HM", "c.e.HashMap", "hashmap", "HashMap"} {
		t.Run(term, func(t *testing.T) {
			hits, err := e.Search(context.Background(), query.Classes(term), 10)
			require.NoError(t, err)
			require.NotEmpty(t, hits, "term %q should match", term)
			assert.Equal(t, "com.example.HashMap", hits[0].ID)
		})
	}
}

func TestBleveEngine_Search_CamelWildcardMatchesHumps(t *testing.T) {
	// Given: an indexed HashMap class
	e := newTestEngine(t)
	docs := []schema.Document{classDoc(t, "com.example.HashMap", "file:///f1", 1.0)}
	require.NoError(t, e.Put(context.Background(), docs, true))

	// When: querying with aligned camel humps ("HaMa" -> "Ha*Ma*")
	hits, err := e.Search(context.Background(), query.Classes("HaMa"), 10)
	require.NoError(t, err)

	// Then: the wildcard clause matches the humped identifier
	require.Len(t, hits, 1)
	assert.Equal(t, "com.example.HashMap", hits[0].ID)
}

func TestBleveEngine_StagedWrites_InvisibleUntilCommit(t *testing.T) {
	// Given: a staged, uncommitted document
	e := newTestEngine(t)
	docs := []schema.Document{classDoc(t, "com.example.Foo", "file:///f1", 1.0)}
	require.NoError(t, e.Put(context.Background(), docs, false))

	// Then: searches do not see it
	hits, err := e.Search(context.Background(), query.Classes("Foo"), 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	// When: committing
	require.NoError(t, e.Commit(context.Background()))

	// Then: the document becomes visible
	hits, err = e.Search(context.Background(), query.Classes("Foo"), 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestBleveEngine_Delete_RemovesAllDocumentsOfFile(t *testing.T) {
	// Given: documents from two files
	e := newTestEngine(t)
	docs := []schema.Document{
		classDoc(t, "com.example.Foo", "file:///f1", 1.0),
		methodDoc(t, "com.example.Foo.run", "file:///f1"),
		classDoc(t, "com.example.Bar", "file:///f2", 1.0),
	}
	require.NoError(t, e.Put(context.Background(), docs, true))

	// When: deleting by the first file's exact term
	terms := []Term{{Field: schema.FieldFile, Value: "file:///f1"}}
	require.NoError(t, e.Delete(context.Background(), terms, true))

	// Then: only the second file's document remains
	hits, err := e.Search(context.Background(), bleve.NewMatchAllQuery(), 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "com.example.Bar", hits[0].ID)
}

func TestBleveEngine_Delete_StagedUntilCommit(t *testing.T) {
	// Given: a committed document and a staged delete
	e := newTestEngine(t)
	docs := []schema.Document{classDoc(t, "com.example.Foo", "file:///f1", 1.0)}
	require.NoError(t, e.Put(context.Background(), docs, true))
	terms := []Term{{Field: schema.FieldFile, Value: "file:///f1"}}
	require.NoError(t, e.Delete(context.Background(), terms, false))

	// Then: the document is still visible before commit
	hits, err := e.Search(context.Background(), query.Classes("Foo"), 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	// When: committing the staged delete
	require.NoError(t, e.Commit(context.Background()))

	// Then: the document is gone
	hits, err = e.Search(context.Background(), query.Classes("Foo"), 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestBleveEngine_Search_AppliesStoredBoost(t *testing.T) {
	// Given: two symmetrical classes, one carrying a higher boost
	e := newTestEngine(t)
	docs := []schema.Document{
		classDoc(t, "com.alpha.Foo", "file:///f1", 1.0),
		classDoc(t, "com.betas.Foo", "file:///f2", 2.0),
	}
	require.NoError(t, e.Put(context.Background(), docs, true))

	// When: searching a term both match equally
	hits, err := e.Search(context.Background(), query.BoostedPrefix("Foo"), 10)
	require.NoError(t, err)

	// Then: the boosted document ranks first
	require.Len(t, hits, 2)
	assert.Equal(t, "com.betas.Foo", hits[0].ID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestBleveEngine_GetBoosts_ReturnsOnlyStoredFqns(t *testing.T) {
	// Given: two committed documents with distinct boosts
	e := newTestEngine(t)
	docs := []schema.Document{
		classDoc(t, "com.example.Foo", "file:///f1", 1.0),
		classDoc(t, "com.example.Bar", "file:///f1", 1.5),
	}
	require.NoError(t, e.Put(context.Background(), docs, true))

	// When: fetching boosts including an unknown fqn
	boosts, err := e.GetBoosts(context.Background(),
		[]string{"com.example.Foo", "com.example.Bar", "com.example.Missing"})
	require.NoError(t, err)

	// Then: known fqns map to their stored boost, unknown are absent
	assert.Equal(t, map[string]float64{
		"com.example.Foo": 1.0,
		"com.example.Bar": 1.5,
	}, boosts)
}

func TestBleveEngine_Search_TrimsToLimit(t *testing.T) {
	e := newTestEngine(t)
	docs := make([]schema.Document, 0, 5)
	for i := 0; i < 5; i++ {
		fqn := fmt.Sprintf("com.example.Foo%d", i)
		docs = append(docs, classDoc(t, fqn, "file:///f1", 1.0))
	}
	require.NoError(t, e.Put(context.Background(), docs, true))

	hits, err := e.Search(context.Background(), query.Classes("Foo"), 2)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestBleveEngine_Search_ZeroLimitReturnsNothing(t *testing.T) {
	e := newTestEngine(t)
	hits, err := e.Search(context.Background(), query.Classes("Foo"), 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestBleveEngine_Shutdown_IsIdempotentAndFinal(t *testing.T) {
	// Given: a shut-down engine
	e := newTestEngine(t)
	require.NoError(t, e.Shutdown())

	// Then: shutting down again is a no-op
	require.NoError(t, e.Shutdown())

	// And: every operation reports the engine closed
	err := e.Put(context.Background(), nil, false)
	assert.Error(t, err)
	err = e.Commit(context.Background())
	assert.Error(t, err)
	_, err = e.Search(context.Background(), query.Classes("x"), 1)
	assert.Error(t, err)
}

func TestBleveEngine_DiskIndex_SurvivesReopen(t *testing.T) {
	// Given: an on-disk index with one committed document
	path := filepath.Join(t.TempDir(), "index.bleve")
	e, err := NewBleveEngine(path)
	require.NoError(t, err)
	docs := []schema.Document{classDoc(t, "com.example.Foo", "file:///f1", 1.0)}
	require.NoError(t, e.Put(context.Background(), docs, true))
	require.NoError(t, e.Shutdown())

	// When: reopening the same path
	e2, err := NewBleveEngine(path)
	require.NoError(t, err)
	defer func() { _ = e2.Shutdown() }()

	// Then: the document survived and no rebuild happened
	assert.False(t, e2.Rebuilt())
	hits, err := e2.Search(context.Background(), query.Classes("Foo"), 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestBleveEngine_CorruptIndex_ClearedAndRebuilt(t *testing.T) {
	// Given: an on-disk index whose meta file got truncated
	path := filepath.Join(t.TempDir(), "index.bleve")
	e, err := NewBleveEngine(path)
	require.NoError(t, err)
	docs := []schema.Document{classDoc(t, "com.example.Foo", "file:///f1", 1.0)}
	require.NoError(t, e.Put(context.Background(), docs, true))
	require.NoError(t, e.Shutdown())

	require.NoError(t, os.WriteFile(filepath.Join(path, "index_meta.json"), nil, 0o644))

	// When: reopening
	e2, err := NewBleveEngine(path)
	require.NoError(t, err)
	defer func() { _ = e2.Shutdown() }()

	// Then: the index was cleared and recreated empty
	assert.True(t, e2.Rebuilt())
	count, err := e2.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestBleveEngine_Lock_RejectsSecondOpen(t *testing.T) {
	// Given: an open on-disk engine
	path := filepath.Join(t.TempDir(), "index.bleve")
	e, err := NewBleveEngine(path)
	require.NoError(t, err)
	defer func() { _ = e.Shutdown() }()

	// When: a second engine opens the same path
	_, err = NewBleveEngine(path)

	// Then: the open is rejected as locked
	require.Error(t, err)
	assert.True(t, symerrors.HasCode(err, symerrors.ErrCodeIndexLocked))
	assert.True(t, symerrors.IsRetryable(err))
}

func TestBleveEngine_Lock_ReleasedOnShutdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.bleve")
	e, err := NewBleveEngine(path)
	require.NoError(t, err)
	require.NoError(t, e.Shutdown())

	// Lock released, second open succeeds.
	e2, err := NewBleveEngine(path)
	require.NoError(t, err)
	_ = e2.Shutdown()
}

func TestIsStoreMissing(t *testing.T) {
	assert.False(t, isStoreMissing(nil))
	assert.True(t, isStoreMissing(os.ErrNotExist))
	assert.True(t, isStoreMissing(fmt.Errorf("wrapped: %w", os.ErrNotExist)))
	assert.True(t, isStoreMissing(fmt.Errorf("open /x/y: no such file or directory")))
	assert.False(t, isStoreMissing(fmt.Errorf("permission denied")))
}

func TestFileLock_TryLockAndUnlock(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "index.bleve.lock")

	l := NewFileLock(lockPath)
	acquired, err := l.TryLock()
	require.NoError(t, err)
	require.True(t, acquired)
	assert.True(t, l.IsLocked())
	assert.Equal(t, lockPath, l.Path())

	// A second lock on the same path is refused while held.
	l2 := NewFileLock(lockPath)
	acquired, err = l2.TryLock()
	require.NoError(t, err)
	assert.False(t, acquired)

	// Unlock is idempotent and frees the path.
	require.NoError(t, l.Unlock())
	require.NoError(t, l.Unlock())
	acquired, err = l2.TryLock()
	require.NoError(t, err)
	assert.True(t, acquired)
	_ = l2.Unlock()
}
