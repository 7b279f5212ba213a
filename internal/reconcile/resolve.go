// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import (
	"time"

	"github.com/pdiddy/adlibrary/pkg/types"
)

// legacyPartition is a group of records without an analysis id.
type legacyPartition struct {
	key    types.MergeKey
	latest time.Time
}

// Resolver assigns merge keys. It remembers the legacy partitions minted
// so far so that later records can join them; a Resolver is scoped to a
// single reconciliation pass.
type Resolver struct {
	window     time.Duration
	now        time.Time
	partitions []*legacyPartition
}

// NewResolver returns a Resolver using window for timestamp matching.
// now stands in for missing timestamps when minting a key's date.
func NewResolver(window time.Duration, now time.Time) *Resolver {
	if window <= 0 {
		window = types.DefaultMatchWindow
	}
	return &Resolver{window: window, now: now}
}

// Resolve returns the key for rec. An analysis id always wins and never
// joins a legacy partition. Records without one join the first legacy
// partition whose title is identical, or whose title overlaps and whose
// latest timestamp is within the match window; otherwise a new legacy
// key is minted.
func (r *Resolver) Resolve(rec types.SourceRecord) types.MergeKey {
	if rec.AnalysisID != "" {
		return types.IDKey(rec.AnalysisID)
	}

	title := Normalize(rec.DisplayTitle)

	if p := r.match(title, rec.Timestamp); p != nil {
		if rec.Timestamp.After(p.latest) {
			p.latest = rec.Timestamp
		}
		return p.key
	}

	ts := rec.Timestamp
	if ts.IsZero() {
		ts = r.now
	}
	p := &legacyPartition{
		key:    types.LegacyKey(title, types.DateOnly(ts)),
		latest: rec.Timestamp,
	}
	r.partitions = append(r.partitions, p)
	return p.key
}

func (r *Resolver) match(title string, ts time.Time) *legacyPartition {
	for _, p := range r.partitions {
		if p.key.Title == title {
			return p
		}
	}
	for _, p := range r.partitions {
		if WithinWindow(ts, p.latest, r.window) && titlesOverlap(title, p.key.Title) {
			return p
		}
	}
	return nil
}
