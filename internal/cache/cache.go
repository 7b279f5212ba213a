// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache stores reconciled record lists per user so repeated reads
// within a TTL skip the source round trip. Entries outlive their TTL and
// remain readable as stale data for the total-outage fallback until they
// are invalidated or replaced.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/adlibrary/pkg/types"
)

// Entry is one cached reconciled list.
type Entry struct {
	Records   []types.CanonicalRecord `json:"records" yaml:"records"`
	StoredAt  time.Time               `json:"stored_at" yaml:"stored_at"`
	ExpiresAt time.Time               `json:"expires_at" yaml:"expires_at"`
}

// Fresh reports whether the entry is still within its TTL at now.
func (e Entry) Fresh(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// Cache is a TTL read-through store keyed by user id.
type Cache interface {
	// Get returns the entry only while it is fresh.
	Get(ctx context.Context, userID string) (Entry, bool, error)
	Set(ctx context.Context, userID string, records []types.CanonicalRecord, ttl time.Duration) error
	Invalidate(ctx context.Context, userID string) error
}

// StaleReader returns an entry regardless of its TTL.
type StaleReader interface {
	GetStale(ctx context.Context, userID string) (Entry, bool, error)
}

// ErrUnknownBackend is returned by New for an unrecognized backend name.
var ErrUnknownBackend = errors.New("unknown cache backend")

// New builds the cache selected by cfg.Backend along with a function that
// releases its resources.
func New(cfg types.CacheConfig) (Cache, func() error, error) {
	switch cfg.Backend {
	case types.CacheMemory, "":
		return NewMemory(), func() error { return nil }, nil
	case types.CacheSQLite:
		s, err := OpenSQLite(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case types.CacheNone:
		return Nop{}, func() error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) (Entry, bool, error) { return Entry{}, false, nil }

func (Nop) Set(context.Context, string, []types.CanonicalRecord, time.Duration) error { return nil }

func (Nop) Invalidate(context.Context, string) error { return nil }
