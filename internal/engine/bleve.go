package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/codenav/symdex/internal/analysis"
	symerrors "github.com/codenav/symdex/internal/errors"
	"github.com/codenav/symdex/internal/schema"
)

const (
	// searchOversample widens the request window so boost-adjusted
	// re-ranking has candidates beyond the raw top-N.
	searchOversample = 3

	// maxSearchWindow bounds the oversampled window.
	maxSearchWindow = 1000
)

// hitFields are the stored fields retrieved with every hit. The file
// field is write-only and never requested.
var hitFields = []string{schema.FieldFQN, schema.FieldType, schema.FieldBoost}

// BleveEngine implements Engine on a Bleve index.
type BleveEngine struct {
	mu      sync.RWMutex
	index   bleve.Index
	pending *bleve.Batch
	path    string
	lock    *FileLock
	logger  *slog.Logger
	rebuilt bool
	closed  bool
}

var _ Engine = (*BleveEngine)(nil)

// Option configures a BleveEngine.
type Option func(*BleveEngine)

// WithLogger sets the logger used for recovery and commit diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *BleveEngine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewBleveEngine opens or creates the index at path. An empty path
// creates an in-memory index for testing. A corrupt on-disk index is
// cleared and recreated; Rebuilt reports when that happened so callers
// can trigger reindexing. The index directory is guarded by a
// cross-process file lock for the lifetime of the engine.
func NewBleveEngine(path string, opts ...Option) (*BleveEngine, error) {
	e := &BleveEngine{
		path:   path,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	indexMapping, err := createIndexMapping()
	if err != nil {
		return nil, symerrors.InternalError("failed to create index mapping", err)
	}

	if path == "" {
		idx, err := bleve.NewMemOnly(indexMapping)
		if err != nil {
			return nil, symerrors.StorageError("failed to create in-memory index", err)
		}
		e.index = idx
		return e, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, symerrors.StorageError(fmt.Sprintf("failed to create index directory for %s", path), err)
	}

	e.lock = NewFileLock(path + ".lock")
	acquired, err := e.lock.TryLock()
	if err != nil {
		return nil, symerrors.StorageError("failed to acquire index lock", err)
	}
	if !acquired {
		return nil, symerrors.New(symerrors.ErrCodeIndexLocked,
			fmt.Sprintf("index at %s is locked by another process", path), nil).
			WithSuggestion("Stop the other symdex process or point at a different index directory.")
	}

	idx, rebuilt, err := openOrRecover(path, indexMapping, e.logger)
	if err != nil {
		_ = e.lock.Unlock()
		return nil, err
	}

	e.index = idx
	e.rebuilt = rebuilt
	return e, nil
}

// createIndexMapping builds the index mapping: fqn through the synonym
// analyzer, file and TYPE as keywords, boost stored but not indexed.
func createIndexMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()

	if err := analysis.AddToMapping(indexMapping); err != nil {
		return nil, fmt.Errorf("failed to add fqn analyzer: %w", err)
	}

	docMapping := bleve.NewDocumentMapping()

	fqnField := bleve.NewTextFieldMapping()
	fqnField.Analyzer = analysis.AnalyzerName
	fqnField.Store = true
	docMapping.AddFieldMappingsAt(schema.FieldFQN, fqnField)

	// Deletion key only: exact match, never tokenized.
	fileField := bleve.NewTextFieldMapping()
	fileField.Analyzer = keyword.Name
	fileField.Store = true
	fileField.IncludeInAll = false
	docMapping.AddFieldMappingsAt(schema.FieldFile, fileField)

	typeField := bleve.NewTextFieldMapping()
	typeField.Analyzer = keyword.Name
	typeField.Store = true
	typeField.IncludeInAll = false
	docMapping.AddFieldMappingsAt(schema.FieldType, typeField)

	boostField := bleve.NewNumericFieldMapping()
	boostField.Store = true
	boostField.Index = false
	boostField.IncludeInAll = false
	docMapping.AddFieldMappingsAt(schema.FieldBoost, boostField)

	indexMapping.DefaultMapping = docMapping
	return indexMapping, nil
}

// validateIndexIntegrity checks a Bleve index directory before opening.
// Returns nil if the index is absent (it will be created) or healthy.
func validateIndexIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	metaPath := filepath.Join(path, "index_meta.json")
	info, err := os.Stat(metaPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("index_meta.json missing (corrupted index)")
	}
	if err != nil {
		return fmt.Errorf("cannot stat index_meta.json: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("index_meta.json is empty (corrupted)")
	}

	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("cannot read index_meta.json: %w", err)
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}

	return nil
}

// isCorruptionError checks if an error indicates Bleve index corruption.
func isCorruptionError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "unexpected end of JSON") ||
		strings.Contains(errStr, "error parsing mapping JSON") ||
		strings.Contains(errStr, "failed to load segment") ||
		strings.Contains(errStr, "error opening bolt") ||
		errors.Is(err, bleve.ErrorIndexMetaCorrupt)
}

// isStoreMissing reports whether err indicates the on-disk store
// disappeared out from under us (deleted or moved mid-run).
func isStoreMissing(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrNotExist) {
		return true
	}
	return strings.Contains(err.Error(), "no such file or directory")
}

// openOrRecover opens the index at path, clearing and recreating it
// when corruption is detected. The second return reports a rebuild.
func openOrRecover(path string, im *mapping.IndexMappingImpl, logger *slog.Logger) (bleve.Index, bool, error) {
	rebuilt := false

	if validErr := validateIndexIntegrity(path); validErr != nil {
		logger.Warn("index_corrupted",
			slog.String("path", path),
			slog.String("error", validErr.Error()))

		if removeErr := os.RemoveAll(path); removeErr != nil {
			return nil, false, symerrors.New(symerrors.ErrCodeCorruptIndex,
				fmt.Sprintf("index corrupted at %s and cannot be cleared", path), removeErr)
		}
		logger.Info("index_cleared",
			slog.String("path", path),
			slog.String("reason", "corruption detected, reindex required"))
		rebuilt = true
	}

	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		idx, err = bleve.New(path, im)
	} else if err != nil && isCorruptionError(err) {
		logger.Warn("index_open_failed",
			slog.String("path", path),
			slog.String("error", err.Error()))

		if removeErr := os.RemoveAll(path); removeErr != nil {
			return nil, false, symerrors.New(symerrors.ErrCodeCorruptIndex,
				fmt.Sprintf("index corrupted at %s and cannot be cleared", path), removeErr)
		}
		rebuilt = true
		idx, err = bleve.New(path, im)
	}
	if err != nil {
		return nil, rebuilt, symerrors.StorageError(fmt.Sprintf("failed to open index at %s", path), err)
	}

	return idx, rebuilt, nil
}

// Rebuilt reports whether a corrupt index was cleared and recreated at
// open time. When true the index starts empty and needs reindexing.
func (e *BleveEngine) Rebuilt() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rebuilt
}

// Path returns the index directory, empty for in-memory engines.
func (e *BleveEngine) Path() string {
	return e.path
}

// Put implements Engine.
func (e *BleveEngine) Put(ctx context.Context, docs []schema.Document, commit bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return symerrors.StorageError("engine is shut down", nil)
	}

	batch := e.pendingLocked()
	for _, doc := range docs {
		if err := batch.Index(doc.ID, doc.Fields()); err != nil {
			return symerrors.New(symerrors.ErrCodeIndexFailed,
				fmt.Sprintf("failed to stage document %q", doc.ID), err)
		}
	}

	if commit {
		return e.flushLocked()
	}
	return nil
}

// Delete implements Engine.
func (e *BleveEngine) Delete(ctx context.Context, terms []Term, commit bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return symerrors.StorageError("engine is shut down", nil)
	}

	batch := e.pendingLocked()
	for _, term := range terms {
		ids, err := e.matchingIDsLocked(ctx, term)
		if err != nil {
			return err
		}
		for _, id := range ids {
			batch.Delete(id)
		}
	}

	if commit {
		return e.flushLocked()
	}
	return nil
}

// Commit implements Engine.
func (e *BleveEngine) Commit(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return symerrors.StorageError("engine is shut down", nil)
	}

	return e.flushLocked()
}

// Search implements Engine.
func (e *BleveEngine) Search(ctx context.Context, q query.Query, limit int) ([]Hit, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return nil, symerrors.StorageError("engine is shut down", nil)
	}
	if limit <= 0 {
		return []Hit{}, nil
	}

	window := limit * searchOversample
	if window > maxSearchWindow {
		window = maxSearchWindow
	}

	req := bleve.NewSearchRequest(q)
	req.Size = window
	req.Fields = hitFields

	res, err := e.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, symerrors.New(symerrors.ErrCodeSearchFailed, "search failed", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, hit := range res.Hits {
		hits = append(hits, Hit{
			ID:     hit.ID,
			Score:  hit.Score * schema.BoostOf(hit.Fields),
			Fields: hit.Fields,
		})
	}

	// Stored boosts shuffle the engine ordering, so re-rank before
	// trimming the oversampled window back down.
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}

	return hits, nil
}

// GetBoosts implements Engine.
func (e *BleveEngine) GetBoosts(ctx context.Context, fqns []string) (map[string]float64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return nil, symerrors.StorageError("engine is shut down", nil)
	}

	boosts := make(map[string]float64, len(fqns))
	if len(fqns) == 0 {
		return boosts, nil
	}

	q := bleve.NewDocIDQuery(fqns)
	req := bleve.NewSearchRequest(q)
	req.Size = len(fqns)
	req.Fields = []string{schema.FieldBoost}

	res, err := e.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, symerrors.New(symerrors.ErrCodeSearchFailed, "boost lookup failed", err)
	}

	for _, hit := range res.Hits {
		boosts[hit.ID] = schema.BoostOf(hit.Fields)
	}
	return boosts, nil
}

// DocCount returns the number of committed documents.
func (e *BleveEngine) DocCount() (uint64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return 0, symerrors.StorageError("engine is shut down", nil)
	}
	return e.index.DocCount()
}

// Shutdown implements Engine.
func (e *BleveEngine) Shutdown() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	e.pending = nil

	err := e.index.Close()
	if e.lock != nil {
		if unlockErr := e.lock.Unlock(); unlockErr != nil && err == nil {
			err = unlockErr
		}
	}
	if err != nil {
		return symerrors.StorageError("failed to shut down engine", err)
	}
	return nil
}

// pendingLocked returns the staging batch, creating it on first use.
// Caller holds the write lock.
func (e *BleveEngine) pendingLocked() *bleve.Batch {
	if e.pending == nil {
		e.pending = e.index.NewBatch()
	}
	return e.pending
}

// flushLocked executes and resets the pending batch. Caller holds the
// write lock.
func (e *BleveEngine) flushLocked() error {
	if e.pending == nil || e.pending.Size() == 0 {
		return nil
	}

	batch := e.pending
	e.pending = nil

	if err := e.index.Batch(batch); err != nil {
		if isStoreMissing(err) {
			return symerrors.New(symerrors.ErrCodeStoreMissing,
				fmt.Sprintf("index store at %s vanished during commit", e.path), err)
		}
		return symerrors.New(symerrors.ErrCodeIndexFailed, "failed to commit batch", err)
	}
	return nil
}

// matchingIDsLocked resolves the IDs of committed documents carrying
// the exact term. Staged, uncommitted writes are not visible here.
func (e *BleveEngine) matchingIDsLocked(ctx context.Context, term Term) ([]string, error) {
	docCount, err := e.index.DocCount()
	if err != nil {
		return nil, symerrors.StorageError("failed to count documents", err)
	}
	if docCount == 0 {
		return nil, nil
	}

	q := bleve.NewTermQuery(term.Value)
	q.SetField(term.Field)

	req := bleve.NewSearchRequest(q)
	req.Size = int(docCount)
	req.Fields = []string{}

	res, err := e.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, symerrors.New(symerrors.ErrCodeSearchFailed,
			fmt.Sprintf("failed to resolve documents for %s=%q", term.Field, term.Value), err)
	}

	ids := make([]string, len(res.Hits))
	for i, hit := range res.Hits {
		ids[i] = hit.ID
	}
	return ids, nil
}
