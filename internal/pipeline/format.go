// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/adlibrary/pkg/types"
)

var (
	headerColor = color.New(color.Bold)
	warnColor   = color.New(color.FgYellow)
	dimColor    = color.New(color.Faint)
)

// FormatTable writes the records newest first as a fixed-width table.
func FormatTable(out Output, w io.Writer) {
	if len(out.Records) == 0 {
		fmt.Fprintln(w, "No analyses found.")
		return
	}

	headerColor.Fprintf(w, "%-10s  %-44s  %-3s  %-5s  %-7s  %s\n",
		"Date", "Title", "PDF", "Media", "Sources", "Analysis ID")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for _, r := range newestFirst(out.Records) {
		id := r.AnalysisID
		if id == "" {
			id = dimColor.Sprint("(legacy)")
		}
		fmt.Fprintf(w, "%-10s  %-44s  %-3s  %-5s  %-7d  %s\n",
			types.DateOnly(r.Timestamp), truncate(r.DisplayTitle, 44),
			mark(r.PDFURL), mark(r.MediaURL), r.SourceCount, id)
	}

	fmt.Fprintf(w, "\n%d analyses", len(out.Records))
	if d := out.Stats.Duplicates + out.Shadowed; d > 0 {
		fmt.Fprintf(w, " (%d duplicates removed)", d)
	}
	if out.Stats.Incomplete > 0 {
		fmt.Fprintf(w, " (%d without artifacts hidden)", out.Stats.Incomplete)
	}
	switch {
	case out.Stale:
		warnColor.Fprintf(w, " [stale, cached %s]", out.GeneratedAt.Format("2006-01-02 15:04"))
	case out.FromCache:
		dimColor.Fprint(w, " [cached]")
	}
	fmt.Fprintln(w)
}

// FormatWarnings writes one line per failed source.
func FormatWarnings(out Output, w io.Writer) {
	for _, e := range out.SourceErrors {
		warnColor.Fprintf(w, "warning: source %s failed: %s\n", e.Source, e.Error)
	}
}

// FormatJSON writes the whole Output as indented JSON.
func FormatJSON(out Output, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// FormatYAML writes the whole Output as YAML.
func FormatYAML(out Output, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	enc.SetIndent(2)
	return enc.Encode(out)
}

// newestFirst returns a copy of records sorted by timestamp descending.
func newestFirst(records []types.CanonicalRecord) []types.CanonicalRecord {
	sorted := make([]types.CanonicalRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})
	return sorted
}

func mark(url string) string {
	if url == "" {
		return "-"
	}
	return "yes"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
