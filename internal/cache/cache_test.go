// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/adlibrary/pkg/types"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type staleCache interface {
	Cache
	StaleReader
}

func backends(t *testing.T, clk *clock) map[string]staleCache {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return map[string]staleCache{
		"memory": NewMemory().WithClock(clk.Now),
		"sqlite": s.WithClock(clk.Now),
	}
}

func sample() []types.CanonicalRecord {
	return []types.CanonicalRecord{{
		Key:             types.IDKey("a1"),
		AnalysisID:      "a1",
		DisplayTitle:    "Analysis - LAUNCH",
		NormalizedTitle: "LAUNCH",
		Timestamp:       t0,
		PDFURL:          "https://cdn/a1.pdf",
		SourceCount:     2,
		Origins:         []string{"analysis-history", "artifact-store"},
		Inputs:          map[string]any{"brandName": "Acme"},
	}}
}

func TestCacheLifecycle(t *testing.T) {
	ctx := context.Background()
	clk := &clock{now: t0}

	for name, c := range backends(t, clk) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := c.Get(ctx, "u1")
			require.NoError(t, err)
			assert.False(t, ok, "empty cache misses")

			require.NoError(t, c.Set(ctx, "u1", sample(), time.Minute))

			e, ok, err := c.Get(ctx, "u1")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, sample(), e.Records)
			assert.True(t, t0.Equal(e.StoredAt))
			assert.True(t, t0.Add(time.Minute).Equal(e.ExpiresAt))

			_, ok, _ = c.Get(ctx, "u2")
			assert.False(t, ok, "entries are per user")

			require.NoError(t, c.Invalidate(ctx, "u1"))
			_, ok, _ = c.Get(ctx, "u1")
			assert.False(t, ok)
			_, ok, _ = c.GetStale(ctx, "u1")
			assert.False(t, ok, "invalidation removes stale data too")

			require.NoError(t, c.Invalidate(ctx, "never-set"))
		})
	}
}

func TestCacheExpiryKeepsStale(t *testing.T) {
	ctx := context.Background()
	clk := &clock{now: t0}

	for name, c := range backends(t, clk) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, c.Set(ctx, "u-"+name, sample(), time.Minute))
			clk.Advance(2 * time.Minute)
			defer clk.Advance(-2 * time.Minute)

			_, ok, err := c.Get(ctx, "u-"+name)
			require.NoError(t, err)
			assert.False(t, ok, "expired entries miss")

			e, ok, err := c.GetStale(ctx, "u-"+name)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Len(t, e.Records, 1)
			assert.False(t, e.Fresh(clk.Now()))
		})
	}
}

func TestCacheEmptyListIsAHit(t *testing.T) {
	ctx := context.Background()
	clk := &clock{now: t0}

	for name, c := range backends(t, clk) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, c.Set(ctx, "empty", nil, time.Minute))
			e, ok, err := c.Get(ctx, "empty")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Empty(t, e.Records)
		})
	}
}

func TestMemorySetCopiesSlice(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	recs := sample()
	require.NoError(t, m.Set(ctx, "u1", recs, time.Minute))
	recs[0].PDFURL = "mutated"

	e, ok, _ := m.Get(ctx, "u1")
	require.True(t, ok)
	assert.Equal(t, "https://cdn/a1.pdf", e.Records[0].PDFURL)
}

func TestMemoryGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Set(ctx, "u1", sample(), time.Minute))

	e, ok, _ := m.Get(ctx, "u1")
	require.True(t, ok)
	e.Records[0].PDFURL = ""
	e.Records[0].Inputs["brandName"] = "Other"
	e.Records[0].Origins[0] = "mutated"

	stale, ok, _ := m.GetStale(ctx, "u1")
	require.True(t, ok)
	stale.Records[0].Inputs["extra"] = 1

	again, ok, _ := m.Get(ctx, "u1")
	require.True(t, ok)
	assert.Equal(t, sample(), again.Records)
}

func TestMemorySetCopiesMaps(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	recs := sample()
	recs[0].Inputs["nested"] = map[string]any{"k": 1}
	require.NoError(t, m.Set(ctx, "u1", recs, time.Minute))
	recs[0].Inputs["nested"].(map[string]any)["k"] = 2

	e, ok, _ := m.Get(ctx, "u1")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"k": 1}, e.Records[0].Inputs["nested"])
}

func TestSQLitePersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "u1", sample(), time.Hour))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	e, ok, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "LAUNCH", e.Records[0].NormalizedTitle)
}

func TestNew(t *testing.T) {
	tests := []struct {
		backend types.CacheBackend
		want    any
	}{
		{types.CacheMemory, &Memory{}},
		{"", &Memory{}},
		{types.CacheNone, Nop{}},
		{types.CacheSQLite, &SQLite{}},
	}
	for _, tt := range tests {
		t.Run(string(tt.backend), func(t *testing.T) {
			c, closeFn, err := New(types.CacheConfig{Backend: tt.backend, Path: filepath.Join(t.TempDir(), "c.db")})
			require.NoError(t, err)
			defer closeFn()
			assert.IsType(t, tt.want, c)
		})
	}

	_, _, err := New(types.CacheConfig{Backend: "redis"})
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestNopNeverHits(t *testing.T) {
	ctx := context.Background()
	var c Cache = Nop{}
	require.NoError(t, c.Set(ctx, "u1", sample(), time.Hour))
	_, ok, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.Invalidate(ctx, "u1"))
}
