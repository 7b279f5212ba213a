// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/pdiddy/adlibrary/internal/httputil"
	"github.com/pdiddy/adlibrary/pkg/types"
)

// Getter fetches a JSON document. *httputil.Client satisfies it.
type Getter interface {
	GetJSON(ctx context.Context, url string) ([]byte, error)
}

// endpoint builds {base}/{path}/{userID} with an optional query.
func endpoint(base, path, userID string, query url.Values) string {
	u := strings.TrimRight(base, "/") + "/" + path + "/" + url.PathEscape(userID)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// ArtifactStoreSource lists the analysis reports held in the current
// artifact store.
type ArtifactStoreSource struct {
	BaseURL string
	Client  Getter
}

func (s *ArtifactStoreSource) Name() string { return ArtifactStore }

func (s *ArtifactStoreSource) Fetch(ctx context.Context, userID string) ([]types.SourceRecord, error) {
	u := endpoint(s.BaseURL, "get-user-files", userID, url.Values{"fileCategory": {"analysis-report"}})
	body, err := s.Client.GetJSON(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ArtifactStore, err)
	}
	recs, err := decodeFiles(body, ArtifactStore)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ArtifactStore, err)
	}
	return recs, nil
}

// LegacyFileSource lists every file the user owns in the legacy file
// metadata store. Non-analysis files come back as CategoryOther.
type LegacyFileSource struct {
	BaseURL string
	Client  Getter
}

func (s *LegacyFileSource) Name() string { return LegacyFiles }

func (s *LegacyFileSource) Fetch(ctx context.Context, userID string) ([]types.SourceRecord, error) {
	body, err := s.Client.GetJSON(ctx, endpoint(s.BaseURL, "get-user-files", userID, nil))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", LegacyFiles, err)
	}
	recs, err := decodeFiles(body, LegacyFiles)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", LegacyFiles, err)
	}
	return recs, nil
}

// AnalysisHistorySource lists the user's analysis run log.
type AnalysisHistorySource struct {
	BaseURL string
	Client  Getter
}

func (s *AnalysisHistorySource) Name() string { return AnalysisHistory }

func (s *AnalysisHistorySource) Fetch(ctx context.Context, userID string) ([]types.SourceRecord, error) {
	body, err := s.Client.GetJSON(ctx, endpoint(s.BaseURL, "get-user-analysis-history", userID, nil))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", AnalysisHistory, err)
	}
	recs, err := decodeHistory(body, AnalysisHistory)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", AnalysisHistory, err)
	}
	return recs, nil
}

// NewHTTPSources returns the three production sources sharing one
// rate-limited client. Per-fetch deadlines come from the Collector.
func NewHTTPSources(cfg types.SourceConfig, token string) []Source {
	client := httputil.NewClient(nil, cfg.RateLimit, cfg.MaxRetries, cfg.UserAgent, token)
	return []Source{
		&ArtifactStoreSource{BaseURL: cfg.BaseURL, Client: client},
		&LegacyFileSource{BaseURL: cfg.BaseURL, Client: client},
		&AnalysisHistorySource{BaseURL: cfg.BaseURL, Client: client},
	}
}
