package index

import (
	"context"

	"github.com/codenav/symdex/internal/async"
	"github.com/codenav/symdex/internal/schema"
)

// PersistAsync runs Persist on a background goroutine.
func (s *Service) PersistAsync(ctx context.Context, symbols []schema.SourceSymbolInfo, commit, boost bool) *async.Task[struct{}] {
	return async.GoErr(func() error {
		return s.Persist(ctx, symbols, commit, boost)
	})
}

// CommitAsync runs Commit on a background goroutine.
func (s *Service) CommitAsync(ctx context.Context) *async.Task[struct{}] {
	return async.GoErr(func() error {
		return s.Commit(ctx)
	})
}

// RemoveAsync runs Remove on a background goroutine.
func (s *Service) RemoveAsync(ctx context.Context, files []schema.FileRef) *async.Task[struct{}] {
	return async.GoErr(func() error {
		return s.Remove(ctx, files)
	})
}

// SearchClassesAsync runs SearchClasses on a background goroutine.
func (s *Service) SearchClassesAsync(ctx context.Context, query string, max int) *async.Task[[]schema.ClassIndex] {
	return async.Go(func() ([]schema.ClassIndex, error) {
		return s.SearchClasses(ctx, query, max)
	})
}

// SearchClassesMethodsAsync runs SearchClassesMethods on a background
// goroutine.
func (s *Service) SearchClassesMethodsAsync(ctx context.Context, terms []string, max int) *async.Task[[]schema.FqnIndex] {
	return async.Go(func() ([]schema.FqnIndex, error) {
		return s.SearchClassesMethods(ctx, terms, max)
	})
}

// ShutdownAsync runs Shutdown on a background goroutine.
func (s *Service) ShutdownAsync() *async.Task[struct{}] {
	return async.GoErr(s.Shutdown)
}
