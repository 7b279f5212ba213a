// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline produces a user's reconciled analysis library: it
// collects raw records from every source, reconciles them, and caches the
// result until it expires or a mutation invalidates it.
//
// A run succeeds as long as at least one source answered. When every
// source fails, the last cached list is served as stale data; only when
// none exists does the run return ErrAllSourcesFailed.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/adlibrary/internal/cache"
	"github.com/pdiddy/adlibrary/internal/metrics"
	"github.com/pdiddy/adlibrary/internal/reconcile"
	"github.com/pdiddy/adlibrary/internal/source"
	"github.com/pdiddy/adlibrary/pkg/types"
)

// ErrAllSourcesFailed is returned when no source answered and there is no
// cached list to fall back on.
var ErrAllSourcesFailed = errors.New("all sources failed")

// Collector gathers raw records for a user. *source.Collector satisfies it.
type Collector interface {
	Collect(ctx context.Context, userID string) source.Collection
}

// SourceError describes one failed source in a run.
type SourceError struct {
	Source string `json:"source" yaml:"source"`
	Error  string `json:"error" yaml:"error"`
}

// Output is the result of one run.
type Output struct {
	RunID        string                  `json:"run_id" yaml:"run_id"`
	UserID       string                  `json:"user_id" yaml:"user_id"`
	Records      []types.CanonicalRecord `json:"records" yaml:"records"`
	Stats        reconcile.Stats         `json:"stats" yaml:"stats"`
	Shadowed     int                     `json:"shadowed,omitempty" yaml:"shadowed,omitempty"`
	SourceErrors []SourceError           `json:"source_errors,omitempty" yaml:"source_errors,omitempty"`

	// FromCache is set when Records came from the cache.
	FromCache bool `json:"from_cache" yaml:"from_cache"`

	// Stale is set when every source failed and an expired list was served.
	Stale bool `json:"stale,omitempty" yaml:"stale,omitempty"`

	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
}

// Options configures a Pipeline. The zero value runs without a cache,
// metrics or logging and uses the default match window.
type Options struct {
	MatchWindow time.Duration
	CacheTTL    time.Duration
	Cache       cache.Cache
	Metrics     *metrics.Recorder
	Logger      *zap.Logger
	// Now overrides the clock. Intended for tests.
	Now func() time.Time
}

// Pipeline runs reconciliation for one user at a time. It is safe for
// concurrent use; concurrent runs for the same user share source fetches.
type Pipeline struct {
	collector Collector
	window    time.Duration
	ttl       time.Duration
	cache     cache.Cache
	metrics   *metrics.Recorder
	log       *zap.Logger
	now       func() time.Time

	mu          sync.Mutex
	generations map[string]uint64
}

// New returns a Pipeline over collector.
func New(collector Collector, opts Options) *Pipeline {
	p := &Pipeline{
		collector:   collector,
		window:      opts.MatchWindow,
		ttl:         opts.CacheTTL,
		cache:       opts.Cache,
		metrics:     opts.Metrics,
		log:         opts.Logger,
		now:         opts.Now,
		generations: make(map[string]uint64),
	}
	if p.cache == nil {
		p.cache = cache.Nop{}
	}
	if p.log == nil {
		p.log = zap.NewNop()
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Run returns the user's reconciled list, from cache when a fresh entry
// exists.
func (p *Pipeline) Run(ctx context.Context, userID string) (Output, error) {
	e, ok, err := p.cache.Get(ctx, userID)
	if err != nil {
		p.log.Warn("cache read failed", zap.String("user", userID), zap.Error(err))
	}
	if ok {
		p.metrics.Run(metrics.RunCached)
		return cachedOutput(userID, e, false), nil
	}
	return p.Refresh(ctx, userID)
}

// Refresh recomputes the user's list from the sources, bypassing any
// cached entry, and stores the result.
func (p *Pipeline) Refresh(ctx context.Context, userID string) (Output, error) {
	runID := uuid.NewString()
	log := p.log.With(zap.String("run", runID), zap.String("user", userID))
	gen := p.generation(userID)
	start := p.now()

	coll := p.collector.Collect(ctx, userID)

	var sourceErrs []SourceError
	for _, o := range coll.Outcomes {
		p.metrics.Source(o.Source, o.Duration, o.Err)
		if o.Err != nil {
			log.Warn("source failed",
				zap.String("source", o.Source),
				zap.Bool("shared", o.Shared),
				zap.Error(o.Err))
			sourceErrs = append(sourceErrs, SourceError{Source: o.Source, Error: o.Err.Error()})
		}
	}

	if coll.AllFailed() {
		return p.fallback(ctx, log, runID, userID, sourceErrs)
	}

	raw, shadowed := coll.Records()
	res := reconcile.Reconcile(raw, reconcile.Options{MatchWindow: p.window, Now: start})

	p.metrics.Dropped("shadowed", shadowed)
	p.metrics.Dropped("incomplete", res.Stats.Incomplete)
	p.metrics.Dropped("duplicate", res.Stats.Duplicates)
	p.metrics.Reconciled(len(res.Records))
	p.metrics.Run(metrics.RunFresh)

	log.Debug("reconciled",
		zap.Int("input", res.Stats.Input),
		zap.Int("shadowed", shadowed),
		zap.Int("skipped", res.Stats.Skipped),
		zap.Int("groups", res.Stats.Groups),
		zap.Int("incomplete", res.Stats.Incomplete),
		zap.Int("duplicates", res.Stats.Duplicates),
		zap.Int("output", res.Stats.Output))

	p.store(ctx, log, userID, gen, res.Records)

	return Output{
		RunID:        runID,
		UserID:       userID,
		Records:      res.Records,
		Stats:        res.Stats,
		Shadowed:     shadowed,
		SourceErrors: sourceErrs,
		GeneratedAt:  start,
	}, nil
}

// Invalidate drops the user's cached list. A run already in flight for the
// user will not cache its result.
func (p *Pipeline) Invalidate(ctx context.Context, userID string) error {
	p.mu.Lock()
	p.generations[userID]++
	p.mu.Unlock()

	if err := p.cache.Invalidate(ctx, userID); err != nil {
		return fmt.Errorf("invalidating cache for %s: %w", userID, err)
	}
	return nil
}

// Cached returns whatever is cached for the user, fresh or not.
func (p *Pipeline) Cached(ctx context.Context, userID string) (cache.Entry, bool, error) {
	if sr, ok := p.cache.(cache.StaleReader); ok {
		return sr.GetStale(ctx, userID)
	}
	return p.cache.Get(ctx, userID)
}

func (p *Pipeline) generation(userID string) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generations[userID]
}

func (p *Pipeline) store(ctx context.Context, log *zap.Logger, userID string, gen uint64, records []types.CanonicalRecord) {
	if p.generation(userID) != gen {
		log.Debug("skipping cache write, invalidated during run")
		return
	}
	if err := p.cache.Set(ctx, userID, records, p.ttl); err != nil {
		log.Warn("cache write failed", zap.Error(err))
	}
}

func (p *Pipeline) fallback(ctx context.Context, log *zap.Logger, runID, userID string, errs []SourceError) (Output, error) {
	if sr, ok := p.cache.(cache.StaleReader); ok {
		e, found, err := sr.GetStale(ctx, userID)
		if err != nil {
			log.Warn("stale cache read failed", zap.Error(err))
		}
		if found {
			log.Warn("all sources failed, serving stale list", zap.Time("stored_at", e.StoredAt))
			p.metrics.Run(metrics.RunStale)
			out := cachedOutput(userID, e, true)
			out.RunID = runID
			out.SourceErrors = errs
			return out, nil
		}
	}

	p.metrics.Run(metrics.RunFailed)
	log.Error("all sources failed")
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Source + ": " + e.Error
	}
	return Output{RunID: runID, UserID: userID, SourceErrors: errs},
		fmt.Errorf("%w: %s", ErrAllSourcesFailed, strings.Join(msgs, "; "))
}

func cachedOutput(userID string, e cache.Entry, stale bool) Output {
	return Output{
		UserID:      userID,
		Records:     e.Records,
		Stats:       reconcile.Stats{Output: len(e.Records)},
		FromCache:   true,
		Stale:       stale,
		GeneratedAt: e.StoredAt,
	}
}
