package api

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/signalsfoundry/meshlink-planner/core"
)

// ResultCache memoises estimation summaries keyed by the normalised
// request. Cached summaries are copied on the way in and out so callers may
// modify what they receive.
type ResultCache struct {
	lru *lru.Cache
}

// NewResultCache returns a cache holding up to size summaries. A size of
// zero or less returns nil, which behaves as a disabled cache.
func NewResultCache(size int) (*ResultCache, error) {
	if size <= 0 {
		return nil, nil
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create result cache: %w", err)
	}
	return &ResultCache{lru: c}, nil
}

// Get returns a copy of the summary cached under key.
func (c *ResultCache) Get(key string) (*core.EstimationSummary, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	return cloneSummary(v.(*core.EstimationSummary)), true
}

// Add stores a copy of s under key.
func (c *ResultCache) Add(key string, s *core.EstimationSummary) {
	if c == nil || s == nil {
		return
	}
	c.lru.Add(key, cloneSummary(s))
}

// Len reports the number of cached summaries.
func (c *ResultCache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

// Purge drops every cached summary.
func (c *ResultCache) Purge() {
	if c == nil {
		return
	}
	c.lru.Purge()
}

// cacheKey identifies a request after normalisation. Two requests with the
// same key produce identical summaries.
func cacheKey(entry string, mode core.Mode, p core.LinkParameters) string {
	return fmt.Sprintf("%s|%s|%+v", entry, mode, p)
}

func cloneSummary(s *core.EstimationSummary) *core.EstimationSummary {
	out := *s
	out.Results = append([]core.MCSResult(nil), s.Results...)
	return &out
}
