// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import (
	"strings"
	"time"
)

// TitlePrefix is prepended to normalized titles for display and stripped
// again by Normalize.
const TitlePrefix = "Analysis - "

// untitled is shown when a record has no usable title.
const untitled = "Untitled"

// Normalize returns the comparison form of a display title: the
// "Analysis - " prefix is stripped, underscores become spaces, whitespace
// runs collapse to one space, and the result is trimmed and upper-cased.
// Normalize(Normalize(s)) == Normalize(s) for every s.
func Normalize(title string) string {
	s := strings.TrimSpace(title)
	for {
		trimmed := stripPrefix(s)
		if trimmed == s {
			break
		}
		s = trimmed
	}
	s = strings.ReplaceAll(s, "_", " ")
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// stripPrefix removes one leading display prefix, case-insensitively and
// tolerant of the separator variations that survive normalization
// ("ANALYSIS - X", "Analysis_-_X").
func stripPrefix(s string) string {
	folded := strings.ToUpper(strings.Join(strings.Fields(strings.ReplaceAll(s, "_", " ")), " "))
	const p = "ANALYSIS - "
	if folded == strings.TrimSpace(p) {
		return ""
	}
	if !strings.HasPrefix(folded, p) {
		return s
	}
	return strings.TrimSpace(folded[len(p):])
}

// DisplayTitle re-prefixes a normalized title for presentation.
func DisplayTitle(normalized string) string {
	if normalized == "" {
		return TitlePrefix + untitled
	}
	return TitlePrefix + normalized
}

// WithinWindow reports whether a and b are strictly less than window
// apart. Records without a timestamp never match by time.
func WithinWindow(a, b time.Time, window time.Duration) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d < window
}

// titlesOverlap reports whether either normalized title contains the other.
// An empty title overlaps nothing; untitled records only match exactly.
func titlesOverlap(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
