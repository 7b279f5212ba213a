// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import (
	"testing"
	"testing/quick"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "Launch", "LAUNCH"},
		{"prefix stripped", "Analysis - Summer Sale", "SUMMER SALE"},
		{"underscores", "SALE_AD", "SALE AD"},
		{"underscores and spaces agree", "SALE AD", "SALE AD"},
		{"whitespace runs", "  big \t  promo\n ad ", "BIG PROMO AD"},
		{"prefix only", "Analysis - ", ""},
		{"double prefix", "Analysis - Analysis - X", "X"},
		{"upper-cased prefix", "ANALYSIS - x", "X"},
		{"prefix inside title kept", "My Analysis - X", "MY ANALYSIS - X"},
		{"underscore prefix", "Analysis_-_Estee_AD_3", "ESTEE AD 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.title))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	f := func(s string) bool {
		once := Normalize(s)
		return Normalize(once) == once
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 2000}); err != nil {
		t.Error(err)
	}

	for _, s := range []string{"Analysis - ", "analysis -  analysis - _x_", "__", " _ Analysis - _ "} {
		once := Normalize(s)
		assert.Equal(t, once, Normalize(once), "input %q", s)
	}
}

func TestDisplayTitle(t *testing.T) {
	assert.Equal(t, "Analysis - LAUNCH", DisplayTitle("LAUNCH"))
	assert.Equal(t, "Analysis - Untitled", DisplayTitle(""))
	assert.Equal(t, "LAUNCH", Normalize(DisplayTitle("LAUNCH")))
}

func TestWithinWindow(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		a, b time.Time
		want bool
	}{
		{"same instant", base, base, true},
		{"two minutes", base, base.Add(2 * time.Minute), true},
		{"reversed", base.Add(2 * time.Minute), base, true},
		{"boundary is exclusive", base, base.Add(5 * time.Minute), false},
		{"ten minutes", base, base.Add(10 * time.Minute), false},
		{"zero a", time.Time{}, base, false},
		{"zero b", base, time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WithinWindow(tt.a, tt.b, 5*time.Minute))
		})
	}
}

func TestTitlesOverlap(t *testing.T) {
	assert.True(t, titlesOverlap("SALE AD", "SALE"))
	assert.True(t, titlesOverlap("SALE", "SALE AD"))
	assert.False(t, titlesOverlap("SALE AD", "PROMO"))
	assert.False(t, titlesOverlap("", "PROMO"))
	assert.False(t, titlesOverlap("", ""))
}
