// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/adlibrary/internal/reconcile"
	"github.com/pdiddy/adlibrary/pkg/types"
)

func sampleOutput() Output {
	return Output{
		RunID:  "run-1",
		UserID: "u1",
		Records: []types.CanonicalRecord{
			{
				Key: types.IDKey("a1"), AnalysisID: "a1",
				DisplayTitle: "Analysis - LAUNCH", NormalizedTitle: "LAUNCH",
				Timestamp: t0, PDFURL: "https://cdn/a1.pdf", SourceCount: 2,
			},
			{
				Key:          types.LegacyKey("SALE AD", "2025-03-02"),
				DisplayTitle: "Analysis - SALE AD", NormalizedTitle: "SALE AD",
				Timestamp: t0.Add(24 * time.Hour), MediaURL: "https://cdn/sale.png", SourceCount: 1,
			},
		},
		Stats:        reconcile.Stats{Input: 5, Incomplete: 1, Duplicates: 1, Output: 2},
		SourceErrors: []SourceError{{Source: "legacy-files", Error: "timeout"}},
		GeneratedAt:  t0,
	}
}

func TestFormatTable(t *testing.T) {
	var buf bytes.Buffer
	FormatTable(sampleOutput(), &buf)
	got := buf.String()

	assert.Contains(t, got, "Analysis ID")
	assert.Contains(t, got, "(legacy)")
	assert.Contains(t, got, "2 analyses (1 duplicates removed) (1 without artifacts hidden)")
	assert.Less(t, strings.Index(got, "SALE AD"), strings.Index(got, "LAUNCH"), "newest first")
}

func TestFormatTableStaleAndEmpty(t *testing.T) {
	out := sampleOutput()
	out.Stale = true
	out.FromCache = true
	var buf bytes.Buffer
	FormatTable(out, &buf)
	assert.Contains(t, buf.String(), "[stale, cached 2025-03-01 12:00]")

	buf.Reset()
	FormatTable(Output{}, &buf)
	assert.Equal(t, "No analyses found.\n", buf.String())
}

func TestFormatTableDoesNotReorderRecords(t *testing.T) {
	out := sampleOutput()
	FormatTable(out, &bytes.Buffer{})
	assert.Equal(t, "a1", out.Records[0].AnalysisID)
}

func TestFormatWarnings(t *testing.T) {
	var buf bytes.Buffer
	FormatWarnings(sampleOutput(), &buf)
	assert.Equal(t, "warning: source legacy-files failed: timeout\n", buf.String())
}

func TestFormatJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatJSON(sampleOutput(), &buf))

	var decoded Output
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	require.Len(t, decoded.Records, 2)
	assert.Equal(t, types.KeyKindLegacy, decoded.Records[1].Key.Kind)
	assert.Contains(t, buf.String(), `"source_errors"`)
}

func TestFormatYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatYAML(sampleOutput(), &buf))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "u1", decoded["user_id"])
	records, ok := decoded["records"].([]any)
	require.True(t, ok)
	assert.Len(t, records, 2)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ééé...", truncate("éééééééé", 6))
}
