// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reconcile turns overlapping raw listings of analysis artifacts
// into one deduplicated list of canonical records.
//
// A pass runs in five steps: records outside the analysis categories are
// dropped, every record gets a merge key (an analysis id, or a normalized
// title plus calendar date for legacy records), records sharing a key are
// merged, records without any artifact URL are dropped, and a final
// deduplication enforces uniqueness across the whole list. The pass is
// pure: inputs are never modified and the same input always yields the
// same output.
package reconcile

import (
	"sort"
	"time"

	"github.com/pdiddy/adlibrary/pkg/types"
)

// Options tunes a reconciliation pass.
type Options struct {
	// MatchWindow bounds timestamp-based legacy matching (default 5m).
	MatchWindow time.Duration

	// Now is the reconciliation start instant, used for records that carry
	// no timestamp. Zero means time.Now().
	Now time.Time
}

// Stats counts what happened during a pass.
type Stats struct {
	Input      int `json:"input" yaml:"input"`
	Skipped    int `json:"skipped" yaml:"skipped"`
	Groups     int `json:"groups" yaml:"groups"`
	Incomplete int `json:"incomplete" yaml:"incomplete"`
	Duplicates int `json:"duplicates" yaml:"duplicates"`
	Output     int `json:"output" yaml:"output"`
}

// Result holds the canonical records of one pass and its statistics.
type Result struct {
	Records []types.CanonicalRecord
	Stats   Stats
}

// Reconcile runs one full pass over raw.
func Reconcile(raw []types.SourceRecord, opts Options) Result {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	stats := Stats{Input: len(raw)}

	working := make([]types.SourceRecord, 0, len(raw))
	for _, r := range raw {
		if !r.Category.Reconcilable() {
			stats.Skipped++
			continue
		}
		working = append(working, r)
	}
	sortChronologically(working)

	resolver := NewResolver(opts.MatchWindow, now)
	var keys []types.MergeKey
	groups := make(map[types.MergeKey][]types.SourceRecord)
	for _, r := range working {
		k := resolver.Resolve(r)
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], r)
	}
	stats.Groups = len(keys)

	merged := make([]types.CanonicalRecord, 0, len(keys))
	for _, k := range keys {
		merged = append(merged, Merge(k, groups[k], now))
	}

	complete, incomplete := FilterComplete(merged)
	stats.Incomplete = incomplete

	out, dups := Dedupe(complete)
	stats.Duplicates = dups
	stats.Output = len(out)

	return Result{Records: out, Stats: stats}
}

// sortChronologically orders records oldest first so that key resolution
// does not depend on the order sources delivered them in. Undated records
// go last; ties keep input order.
func sortChronologically(records []types.SourceRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		ti, tj := records[i].Timestamp, records[j].Timestamp
		switch {
		case ti.IsZero():
			return false
		case tj.IsZero():
			return true
		default:
			return ti.Before(tj)
		}
	})
}
