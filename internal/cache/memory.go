// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/pdiddy/adlibrary/pkg/types"
)

// Memory is an in-process Cache.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

// NewMemory returns an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]Entry), now: time.Now}
}

// WithClock replaces the time source. Intended for tests.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) Get(_ context.Context, userID string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[userID]
	if !ok || !e.Fresh(m.now()) {
		return Entry{}, false, nil
	}
	return e.clone(), true, nil
}

func (m *Memory) GetStale(_ context.Context, userID string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[userID]
	if !ok {
		return Entry{}, false, nil
	}
	return e.clone(), true, nil
}

func (m *Memory) Set(_ context.Context, userID string, records []types.CanonicalRecord, ttl time.Duration) error {
	now := m.now()
	stored := cloneRecords(records)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[userID] = Entry{Records: stored, StoredAt: now, ExpiresAt: now.Add(ttl)}
	return nil
}

func (m *Memory) Invalidate(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, userID)
	return nil
}

// clone returns a copy of e that shares no mutable state with the cache.
func (e Entry) clone() Entry {
	e.Records = cloneRecords(e.Records)
	return e
}

func cloneRecords(records []types.CanonicalRecord) []types.CanonicalRecord {
	if records == nil {
		return nil
	}
	out := make([]types.CanonicalRecord, len(records))
	for i, r := range records {
		r.Inputs = cloneMap(r.Inputs)
		r.Results = cloneMap(r.Results)
		r.Origins = slices.Clone(r.Origins)
		out[i] = r
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue copies the container types produced by JSON decoding.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = cloneValue(x)
		}
		return out
	}
	return v
}
