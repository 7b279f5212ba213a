// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source fetches raw analysis records for a user from every
// configured record store and gathers them into one working set.
//
// Sources are queried concurrently. A source that fails or times out
// contributes no records and is reported in the Collection; it never
// prevents the other sources from completing.
package source

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/pdiddy/adlibrary/pkg/types"
)

// Source names. They double as the Origin of every record a source
// returns and as the fixture subdirectory name.
const (
	ArtifactStore   = "artifact-store"
	LegacyFiles     = "legacy-files"
	AnalysisHistory = "analysis-history"
)

// Names lists the production sources in collection order.
var Names = []string{ArtifactStore, LegacyFiles, AnalysisHistory}

// DefaultTimeout bounds a single source fetch when none is configured.
const DefaultTimeout = 15 * time.Second

// Source returns the raw records one store holds for a user. Implementations
// must be safe for concurrent use.
type Source interface {
	Name() string
	Fetch(ctx context.Context, userID string) ([]types.SourceRecord, error)
}

// Outcome is the result of querying one source.
type Outcome struct {
	Source   string
	Records  []types.SourceRecord
	Err      error
	Duration time.Duration
	// Shared is true when the fetch was coalesced with a concurrent
	// request for the same user.
	Shared bool
}

// Collection holds one Outcome per source, in source order.
type Collection struct {
	Outcomes []Outcome
}

// Failures returns the outcomes whose fetch failed.
func (c Collection) Failures() []Outcome {
	var out []Outcome
	for _, o := range c.Outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

// AllFailed reports whether every source failed. An empty collection has
// not failed.
func (c Collection) AllFailed() bool {
	return len(c.Outcomes) > 0 && len(c.Failures()) == len(c.Outcomes)
}

// Records flattens the successful outcomes into one working set in source
// order, dropping legacy listing entries that shadow an artifact-store entry.
// It returns the number of shadowed records removed.
func (c Collection) Records() ([]types.SourceRecord, int) {
	var primary []types.SourceRecord
	for _, o := range c.Outcomes {
		if o.Source == ArtifactStore && o.Err == nil {
			primary = append(primary, o.Records...)
		}
	}

	var out []types.SourceRecord
	shadowed := 0
	for _, o := range c.Outcomes {
		if o.Err != nil {
			continue
		}
		recs := o.Records
		if o.Source == LegacyFiles {
			var n int
			recs, n = DropShadowed(primary, recs)
			shadowed += n
		}
		out = append(out, recs...)
	}
	return out, shadowed
}

// DropShadowed removes from secondary every record whose SourceID or
// StoragePath also appears in primary. Both listings are views over the
// same file store, so such a record is the same document seen twice.
func DropShadowed(primary, secondary []types.SourceRecord) ([]types.SourceRecord, int) {
	ids := make(map[string]bool, len(primary))
	paths := make(map[string]bool, len(primary))
	for _, r := range primary {
		if r.SourceID != "" {
			ids[r.SourceID] = true
		}
		if r.StoragePath != "" {
			paths[r.StoragePath] = true
		}
	}

	out := make([]types.SourceRecord, 0, len(secondary))
	for _, r := range secondary {
		if (r.SourceID != "" && ids[r.SourceID]) || (r.StoragePath != "" && paths[r.StoragePath]) {
			continue
		}
		out = append(out, r)
	}
	return out, len(secondary) - len(out)
}

// Collector queries a fixed set of sources concurrently.
type Collector struct {
	sources []Source
	timeout time.Duration
	flight  singleflight.Group
}

// NewCollector returns a Collector over sources. A non-positive timeout
// uses DefaultTimeout.
func NewCollector(timeout time.Duration, sources ...Source) *Collector {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Collector{sources: sources, timeout: timeout}
}

// Collect fetches from every source and waits for all of them. Each fetch
// is bounded by the collector timeout; failures are recorded in the
// returned Collection rather than returned as an error.
//
// A fetch shared with a concurrent Collect for the same user runs detached
// from either caller's cancellation. Cancelling ctx abandons the wait for
// this caller only.
func (c *Collector) Collect(ctx context.Context, userID string) Collection {
	outcomes := make([]Outcome, len(c.sources))

	var g errgroup.Group
	for i, s := range c.sources {
		g.Go(func() error {
			outcomes[i] = c.fetch(ctx, s, userID)
			return nil
		})
	}
	_ = g.Wait()

	return Collection{Outcomes: outcomes}
}

func (c *Collector) fetch(ctx context.Context, s Source, userID string) Outcome {
	start := time.Now()
	ch := c.flight.DoChan(s.Name()+"\x00"+userID, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return safeFetch(fctx, s, userID)
	})

	o := Outcome{Source: s.Name()}
	select {
	case res := <-ch:
		o.Shared = res.Shared
		if res.Err != nil {
			o.Err = res.Err
		} else {
			o.Records, _ = res.Val.([]types.SourceRecord)
		}
	case <-ctx.Done():
		o.Err = fmt.Errorf("source %s: %w", s.Name(), ctx.Err())
	}
	o.Duration = time.Since(start)
	return o
}

// safeFetch converts a panicking source into an error so it cannot take
// down sibling fetches.
func safeFetch(ctx context.Context, s Source, userID string) (recs []types.SourceRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			recs = nil
			err = fmt.Errorf("source %s panicked: %v", s.Name(), r)
		}
	}()

	recs, err = s.Fetch(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("source %s: %w", s.Name(), ctxErr)
	}
	for i := range recs {
		if recs[i].Origin == "" {
			recs[i].Origin = s.Name()
		}
	}
	return recs, nil
}
