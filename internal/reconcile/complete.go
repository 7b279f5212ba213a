// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import "github.com/pdiddy/adlibrary/pkg/types"

// FilterComplete drops records that have neither a PDF nor a media
// locator and reports how many were dropped. Such records are analyses
// whose artifacts have not finished uploading; dropping them is expected
// and is not an error.
func FilterComplete(records []types.CanonicalRecord) ([]types.CanonicalRecord, int) {
	kept := make([]types.CanonicalRecord, 0, len(records))
	for _, r := range records {
		if !r.HasURL() {
			continue
		}
		kept = append(kept, r)
	}
	return kept, len(records) - len(kept)
}
