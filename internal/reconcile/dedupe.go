// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import "github.com/pdiddy/adlibrary/pkg/types"

// legacyIdentity is the composite key enforced across legacy records.
type legacyIdentity struct {
	title string
	date  string
}

// Dedupe removes residual collisions and reports how many records it
// removed. Id-backed records are unique by analysis id; on a repeat the
// record built from more sources wins, else the first. Legacy records are
// unique by normalized title and calendar date; on a collision a record
// with a URL beats one without, else the first wins. Id-backed records
// come first in the output, each group in first-seen order.
func Dedupe(records []types.CanonicalRecord) ([]types.CanonicalRecord, int) {
	var idBacked, legacy []types.CanonicalRecord
	byID := make(map[string]int)
	byLegacy := make(map[legacyIdentity]int)

	for _, r := range records {
		if r.AnalysisID != "" {
			if idx, ok := byID[r.AnalysisID]; ok {
				if r.SourceCount > idBacked[idx].SourceCount {
					idBacked[idx] = r
				}
				continue
			}
			byID[r.AnalysisID] = len(idBacked)
			idBacked = append(idBacked, r)
			continue
		}

		k := legacyIdentity{title: r.NormalizedTitle, date: types.DateOnly(r.Timestamp)}
		if idx, ok := byLegacy[k]; ok {
			if r.HasURL() && !legacy[idx].HasURL() {
				legacy[idx] = r
			}
			continue
		}
		byLegacy[k] = len(legacy)
		legacy = append(legacy, r)
	}

	out := make([]types.CanonicalRecord, 0, len(idBacked)+len(legacy))
	out = append(out, idBacked...)
	out = append(out, legacy...)
	return out, len(records) - len(out)
}
