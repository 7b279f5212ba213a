// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import (
	"sort"
	"time"

	"github.com/pdiddy/adlibrary/pkg/types"
)

// Merge folds all records sharing key into one canonical record. records
// must be non-empty. now is the reconciliation start instant and becomes
// the timestamp only when no contributor carries one.
//
// Records are ranked newest first (input order breaks ties, undated
// records rank last). The top-ranked record supplies the title and wins
// every Inputs/Results key it has; lower-ranked records only fill gaps.
// PDF and media locators are resolved independently, each from the
// highest-ranked record that has one, so a canonical record can end up
// with both even when no single source record did.
func Merge(key types.MergeKey, records []types.SourceRecord, now time.Time) types.CanonicalRecord {
	ranked := rankByRecency(records)
	mostRecent := ranked[0]

	out := types.CanonicalRecord{
		Key:         key,
		SourceCount: len(records),
		Timestamp:   latestTimestamp(records, now),
		Inputs:      mergeMaps(ranked, func(r types.SourceRecord) map[string]any { return r.Inputs }),
		Results:     mergeMaps(ranked, func(r types.SourceRecord) map[string]any { return r.Results }),
		PDFURL:      firstNonEmpty(ranked, func(r types.SourceRecord) string { return r.PDFURL }),
		MediaURL:    firstNonEmpty(ranked, func(r types.SourceRecord) string { return r.MediaURL }),
		Origins:     origins(records),
	}
	if key.IsID() {
		out.AnalysisID = key.AnalysisID
	}

	out.NormalizedTitle = Normalize(mostRecent.DisplayTitle)
	if out.NormalizedTitle == "" {
		// The top record may be an untitled media upload; borrow the
		// newest title any contributor has.
		out.NormalizedTitle = firstNonEmpty(ranked, func(r types.SourceRecord) string {
			return Normalize(r.DisplayTitle)
		})
	}
	out.DisplayTitle = DisplayTitle(out.NormalizedTitle)

	return out
}

// rankByRecency returns a copy of records ordered newest first. The sort
// is stable so equal timestamps keep input order.
func rankByRecency(records []types.SourceRecord) []types.SourceRecord {
	ranked := make([]types.SourceRecord, len(records))
	copy(ranked, records)
	sort.SliceStable(ranked, func(i, j int) bool {
		ti, tj := ranked[i].Timestamp, ranked[j].Timestamp
		switch {
		case ti.IsZero():
			return false
		case tj.IsZero():
			return true
		default:
			return ti.After(tj)
		}
	})
	return ranked
}

func latestTimestamp(records []types.SourceRecord, now time.Time) time.Time {
	var latest time.Time
	for _, r := range records {
		if r.Timestamp.After(latest) {
			latest = r.Timestamp
		}
	}
	if latest.IsZero() {
		return now
	}
	return latest
}

// mergeMaps shallow-merges the maps selected from ranked records. Earlier
// records take precedence; later ones only add keys not yet present.
// Source maps are never modified.
func mergeMaps(ranked []types.SourceRecord, pick func(types.SourceRecord) map[string]any) map[string]any {
	var out map[string]any
	for _, r := range ranked {
		m := pick(r)
		if len(m) == 0 {
			continue
		}
		if out == nil {
			out = make(map[string]any, len(m))
		}
		for k, v := range m {
			if _, ok := out[k]; !ok {
				out[k] = v
			}
		}
	}
	return out
}

func firstNonEmpty(ranked []types.SourceRecord, pick func(types.SourceRecord) string) string {
	for _, r := range ranked {
		if v := pick(r); v != "" {
			return v
		}
	}
	return ""
}

func origins(records []types.SourceRecord) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range records {
		if r.Origin == "" || seen[r.Origin] {
			continue
		}
		seen[r.Origin] = true
		out = append(out, r.Origin)
	}
	sort.Strings(out)
	return out
}
