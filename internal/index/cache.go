package index

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Search-kind discriminators for cache keys.
const (
	cacheKindClasses        = "classes"
	cacheKindClassesMethods = "classes_methods"
)

// cacheKey identifies one memoized search.
type cacheKey struct {
	query string
	max   int
	kind  string
}

// resultsCache memoizes search results until the next write. Search
// results are immutable slices, so sharing them between callers is
// safe as long as callers treat them as read-only.
type resultsCache struct {
	lru *lru.Cache[cacheKey, any]
}

// newResultsCache returns a cache holding up to size entries, or nil
// when size disables caching.
func newResultsCache(size int) *resultsCache {
	if size <= 0 {
		return nil
	}
	cache, err := lru.New[cacheKey, any](size)
	if err != nil {
		// lru.New only fails on non-positive size.
		return nil
	}
	return &resultsCache{lru: cache}
}

func (c *resultsCache) get(key cacheKey) (any, bool) {
	if c == nil {
		return nil, false
	}
	return c.lru.Get(key)
}

func (c *resultsCache) put(key cacheKey, value any) {
	if c == nil {
		return
	}
	c.lru.Add(key, value)
}

// purge drops every entry. Called on any write so readers never see
// results older than the latest commit attempt.
func (c *resultsCache) purge() {
	if c == nil {
		return
	}
	c.lru.Purge()
}
