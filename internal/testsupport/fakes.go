package testsupport

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"
)

// FakeClock records sleeps instead of blocking.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
	// OnSleep runs after the clock advances; useful to cancel a context
	// between batches.
	OnSleep func(n int)
}

// NewFakeClock starts a clock at a fixed instant.
func NewFakeClock() *FakeClock {
	return &FakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep advances the clock by d without blocking.
func (c *FakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	n := len(c.sleeps)
	hook := c.OnSleep
	c.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	return ctx.Err()
}

// Sleeps returns every requested pause in order.
func (c *FakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.sleeps)
}

// FakeFinder answers link lookups from a table keyed by a substring of the
// query. Queries matching Fail return an error.
type FakeFinder struct {
	Links map[string]string
	Fail  map[string]error

	mu      sync.Mutex
	queries []string
}

func (f *FakeFinder) FindLink(ctx context.Context, query string) (string, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	for key, err := range f.Fail {
		if strings.Contains(query, key) {
			return "", err
		}
	}
	for key, link := range f.Links {
		if strings.Contains(query, key) {
			return link, nil
		}
	}
	return "", nil
}

// Queries returns every query received, sorted.
func (f *FakeFinder) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := slices.Clone(f.queries)
	slices.Sort(out)
	return out
}

// SortedKeys returns the map keys in lexical order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
