// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the adlibrary
// reconciliation pipeline: raw source records, merge keys, canonical
// records, and configuration.
package types

import (
	"fmt"
	"time"
)

// Category discriminates analysis artifacts from unrelated files.
type Category string

const (
	CategoryAnalysisReport Category = "analysis-report"
	CategoryUploadedMedia  Category = "uploaded-media"
	CategoryOther          Category = "other"
)

// Reconcilable reports whether records of this category take part in
// reconciliation. Files outside analysis reports and their uploaded media
// are listed by the sources but never displayed in the library.
func (c Category) Reconcilable() bool {
	return c == CategoryAnalysisReport || c == CategoryUploadedMedia
}

// SourceRecord is one raw record as received from a single source. Every
// field except Category is optional.
type SourceRecord struct {
	// Category discriminates analysis artifacts from other files.
	Category Category `json:"category" yaml:"category"`

	// AnalysisID is the stable identifier assigned by the analysis pipeline.
	AnalysisID string `json:"analysis_id,omitempty" yaml:"analysis_id,omitempty"`

	// DisplayTitle is the human title, possibly prefixed ("Analysis - X").
	DisplayTitle string `json:"display_title,omitempty" yaml:"display_title,omitempty"`

	// Timestamp is the creation or update instant. The zero value means the
	// source supplied no parseable timestamp.
	Timestamp time.Time `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`

	// PDFURL locates the generated report document.
	PDFURL string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`

	// MediaURL locates the uploaded preview media.
	MediaURL string `json:"media_url,omitempty" yaml:"media_url,omitempty"`

	// Inputs describes the analysis configuration. Opaque to reconciliation.
	Inputs map[string]any `json:"inputs,omitempty" yaml:"inputs,omitempty"`

	// Results holds the computed scores. Opaque to reconciliation.
	Results map[string]any `json:"results,omitempty" yaml:"results,omitempty"`

	// Origin names the source that produced this record.
	Origin string `json:"origin,omitempty" yaml:"origin,omitempty"`

	// SourceID is the document identifier inside the originating source.
	SourceID string `json:"source_id,omitempty" yaml:"source_id,omitempty"`

	// StoragePath is the blob path backing the record's artifact, if any.
	StoragePath string `json:"storage_path,omitempty" yaml:"storage_path,omitempty"`
}

// HasURL reports whether the record carries at least one artifact locator.
func (r SourceRecord) HasURL() bool {
	return r.PDFURL != "" || r.MediaURL != ""
}

// KeyKind distinguishes identifier-backed keys from legacy title keys.
type KeyKind string

const (
	KeyKindID     KeyKind = "id"
	KeyKindLegacy KeyKind = "legacy"
)

// MergeKey groups SourceRecords that describe the same logical analysis.
// An id key is sealed: no record joins it by title similarity alone.
type MergeKey struct {
	Kind       KeyKind `json:"kind" yaml:"kind"`
	AnalysisID string  `json:"analysis_id,omitempty" yaml:"analysis_id,omitempty"`
	Title      string  `json:"title,omitempty" yaml:"title,omitempty"`
	Date       string  `json:"date,omitempty" yaml:"date,omitempty"`
}

// IDKey returns the sealed key for an analysis identifier.
func IDKey(analysisID string) MergeKey {
	return MergeKey{Kind: KeyKindID, AnalysisID: analysisID}
}

// LegacyKey returns the key for a record without an identifier.
// title must already be normalized; date is formatted as YYYY-MM-DD.
func LegacyKey(title, date string) MergeKey {
	return MergeKey{Kind: KeyKindLegacy, Title: title, Date: date}
}

// IsID reports whether the key is identifier-backed.
func (k MergeKey) IsID() bool { return k.Kind == KeyKindID }

// String renders the key for logs and map lookups.
func (k MergeKey) String() string {
	if k.IsID() {
		return "id:" + k.AnalysisID
	}
	return fmt.Sprintf("legacy:%s|%s", k.Title, k.Date)
}

// CanonicalRecord is the merge result for one key. Records are never
// mutated after a run returns them.
type CanonicalRecord struct {
	Key MergeKey `json:"key" yaml:"key"`

	// AnalysisID is set only for id-backed records.
	AnalysisID string `json:"analysis_id,omitempty" yaml:"analysis_id,omitempty"`

	// DisplayTitle is the prefixed title shown to users.
	DisplayTitle string `json:"display_title" yaml:"display_title"`

	// NormalizedTitle is the comparison form of the most recent title.
	NormalizedTitle string `json:"normalized_title" yaml:"normalized_title"`

	// Timestamp is the latest instant among contributing records.
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`

	PDFURL   string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`
	MediaURL string `json:"media_url,omitempty" yaml:"media_url,omitempty"`

	Inputs  map[string]any `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Results map[string]any `json:"results,omitempty" yaml:"results,omitempty"`

	// SourceCount is the number of raw records folded into this one.
	SourceCount int `json:"source_count" yaml:"source_count"`

	// Origins lists the distinct sources that contributed, sorted.
	Origins []string `json:"origins,omitempty" yaml:"origins,omitempty"`
}

// HasURL reports whether the record has a usable artifact locator.
func (r CanonicalRecord) HasURL() bool {
	return r.PDFURL != "" || r.MediaURL != ""
}

// DateOnly formats t as a UTC calendar date (YYYY-MM-DD).
func DateOnly(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}
