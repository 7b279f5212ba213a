// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/tidwall/gjson"

	"github.com/pdiddy/adlibrary/pkg/types"
)

// ErrMalformedListing is returned when a source response is not JSON.
var ErrMalformedListing = errors.New("malformed listing")

// timestampFields are tried in order until one yields a time.
var timestampFields = []string{"timestamp", "createdAt", "updatedAt", "uploadTimestamp"}

// historyMediaFields are tried in order for the history preview locator.
var historyMediaFields = []string{"mediaUrl", "uploadedImageUrl", "file_url", "imageData", "base64Image"}

const scorecardMarker = "_Scorecards"

// millisThreshold separates epoch seconds from epoch milliseconds. Epoch
// seconds pass 1e11 only in the year 5138.
const millisThreshold = 1e11

// maxEpochMillis is the largest millisecond count representable as a
// time.Time in nanoseconds.
const maxEpochMillis = math.MaxInt64 / 1e6

// listing returns the array under key, or the document itself when the
// response is a bare array.
func listing(body []byte, key string) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, ErrMalformedListing
	}
	root := gjson.ParseBytes(body)
	if root.IsArray() {
		return root, nil
	}
	if arr := root.Get(key); arr.IsArray() {
		return arr, nil
	}
	return gjson.Result{}, nil
}

// decodeFiles converts a file listing into SourceRecords.
func decodeFiles(body []byte, origin string) ([]types.SourceRecord, error) {
	files, err := listing(body, "files")
	if err != nil {
		return nil, err
	}

	var out []types.SourceRecord
	files.ForEach(func(_, f gjson.Result) bool {
		if f.IsObject() {
			out = append(out, fileRecord(f, origin))
		}
		return true
	})
	return out, nil
}

func fileRecord(f gjson.Result, origin string) types.SourceRecord {
	name := f.Get("fileName").String()
	fileType := f.Get("fileType").String()

	r := types.SourceRecord{
		Category:     categorize(f.Get("fileCategory").String(), fileType),
		AnalysisID:   f.Get("analysisId").String(),
		DisplayTitle: fileTitle(name, f.Get("analysisInputs.adTitle").String()),
		Timestamp:    timestampOf(f),
		PDFURL:       f.Get("pdfUrl").String(),
		MediaURL:     f.Get("mediaUrl").String(),
		Inputs:       objectMap(f.Get("analysisInputs")),
		Results:      objectMap(f.Get("analysisResults")),
		Origin:       origin,
		SourceID:     f.Get("id").String(),
		StoragePath:  f.Get("storagePath").String(),
	}

	if u := f.Get("url").String(); u != "" {
		isPDF := strings.EqualFold(fileType, "application/pdf") ||
			strings.HasSuffix(strings.ToLower(name), ".pdf") ||
			strings.Contains(u, "/analysis-reports/") ||
			strings.Contains(u, ".pdf")
		switch {
		case isPDF && r.PDFURL == "":
			r.PDFURL = u
		case !isPDF && r.MediaURL == "":
			r.MediaURL = u
		}
	}
	return r
}

// decodeHistory converts an analysis-history listing into SourceRecords.
func decodeHistory(body []byte, origin string) ([]types.SourceRecord, error) {
	entries, err := listing(body, "analysis_history")
	if err != nil {
		return nil, err
	}

	var out []types.SourceRecord
	entries.ForEach(func(_, h gjson.Result) bool {
		if h.IsObject() {
			out = append(out, historyRecord(h, origin))
		}
		return true
	})
	return out, nil
}

func historyRecord(h gjson.Result, origin string) types.SourceRecord {
	id := h.Get("artifact_id").String()

	title := h.Get("adTitle").String()
	if title == "" {
		title = h.Get("messageIntent").String()
	}

	category := types.CategoryAnalysisReport
	if c := h.Get("fileCategory").String(); c != "" {
		category = categorize(c, "")
	}

	return types.SourceRecord{
		Category:     category,
		AnalysisID:   id,
		DisplayTitle: title,
		Timestamp:    timestampOf(h),
		PDFURL:       h.Get("pdfUrl").String(),
		MediaURL:     historyMedia(h),
		Inputs:       historyInputs(h),
		Results:      objectMap(h.Get("ai_analysis_results")),
		Origin:       origin,
		SourceID:     id,
		StoragePath:  h.Get("storagePath").String(),
	}
}

func historyMedia(h gjson.Result) string {
	for _, field := range historyMediaFields {
		v := h.Get(field).String()
		if v == "" {
			continue
		}
		if (field == "imageData" || field == "base64Image") && !strings.HasPrefix(v, "data:") {
			return "data:image/jpeg;base64," + v
		}
		return v
	}
	return ""
}

// historyInputs maps history fields onto the analysis input names used by
// file listings. Absent fields are omitted.
func historyInputs(h gjson.Result) map[string]any {
	fields := []struct{ from, to string }{
		{"adTitle", "adTitle"},
		{"messageIntent", "messageIntent"},
		{"funnelStage", "funnelStage"},
		{"channels", "selectedChannels"},
		{"successful_models", "selectedFeatures"},
		{"brandName", "brandName"},
	}

	var out map[string]any
	for _, f := range fields {
		v := h.Get(f.from)
		if !v.Exists() || v.Type == gjson.Null {
			continue
		}
		if out == nil {
			out = make(map[string]any)
		}
		out[f.to] = v.Value()
	}
	return out
}

// categorize maps a listing's category and MIME type onto a Category.
func categorize(fileCategory, fileType string) types.Category {
	switch fileCategory {
	case "analysis-report":
		return types.CategoryAnalysisReport
	case "uploaded_ad", "uploaded-media":
		return types.CategoryUploadedMedia
	}

	ft := strings.ToLower(fileType)
	switch {
	case strings.Contains(ft, "ad_image"), strings.Contains(ft, "ad_video"):
		return types.CategoryUploadedMedia
	case ft == "application/pdf":
		return types.CategoryAnalysisReport
	}
	return types.CategoryOther
}

// fileTitle derives a title from a file listing entry.
func fileTitle(name, adTitle string) string {
	if i := strings.Index(name, scorecardMarker+"_"); i > 0 {
		return strings.TrimSpace(name[:i])
	}
	if strings.HasPrefix(name, "Analysis - ") {
		return name
	}
	if adTitle != "" {
		return adTitle
	}
	return name
}

// timestampOf returns the first parseable timestamp field, or the zero time.
func timestampOf(r gjson.Result) time.Time {
	for _, field := range timestampFields {
		if t := parseTimestamp(r.Get(field)); !t.IsZero() {
			return t
		}
	}
	return time.Time{}
}

// parseTimestamp accepts date strings, epoch seconds or milliseconds, and
// {_seconds,_nanoseconds} objects. Anything else is the zero time.
func parseTimestamp(v gjson.Result) time.Time {
	switch {
	case v.Type == gjson.Number:
		return fromEpoch(v.Float())
	case v.Type == gjson.String:
		s := strings.TrimSpace(v.String())
		if s == "" {
			return time.Time{}
		}
		t, err := dateparse.ParseIn(s, time.UTC)
		if err != nil {
			return time.Time{}
		}
		return t.UTC()
	case v.IsObject():
		secs := v.Get("_seconds")
		if !secs.Exists() {
			secs = v.Get("seconds")
		}
		if secs.Type != gjson.Number {
			return time.Time{}
		}
		nanos := v.Get("_nanoseconds")
		if !nanos.Exists() {
			nanos = v.Get("nanoseconds")
		}
		return time.Unix(secs.Int(), nanos.Int()).UTC()
	}
	return time.Time{}
}

func fromEpoch(n float64) time.Time {
	if n <= 0 || n > maxEpochMillis {
		return time.Time{}
	}
	if n >= millisThreshold {
		return time.UnixMilli(int64(n)).UTC()
	}
	sec := int64(n)
	return time.Unix(sec, int64((n-float64(sec))*1e9)).UTC()
}

func objectMap(v gjson.Result) map[string]any {
	if !v.IsObject() {
		return nil
	}
	m, ok := v.Value().(map[string]any)
	if !ok || len(m) == 0 {
		return nil
	}
	return m
}
