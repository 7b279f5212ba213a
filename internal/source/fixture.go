// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/adlibrary/pkg/types"
)

// ErrInvalidUser is returned for user ids that cannot name a fixture file.
var ErrInvalidUser = errors.New("invalid user id")

// fixtureFile is the on-disk layout of {dir}/{source}/{user}.yaml.
type fixtureFile struct {
	// Error, when set, makes the fixture fail with this message.
	Error   string               `yaml:"error,omitempty"`
	Records []types.SourceRecord `yaml:"records"`
}

// FixtureSource serves records from YAML files, standing in for one of the
// production sources in offline runs and tests.
type FixtureSource struct {
	Dir        string
	SourceName string
}

// NewFixtureSources returns one FixtureSource per production source name.
func NewFixtureSources(dir string) []Source {
	out := make([]Source, len(Names))
	for i, name := range Names {
		out[i] = &FixtureSource{Dir: dir, SourceName: name}
	}
	return out
}

func (s *FixtureSource) Name() string { return s.SourceName }

// Fetch reads the user's fixture. A missing file means the user has no
// records in this source.
func (s *FixtureSource) Fetch(ctx context.Context, userID string) ([]types.SourceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if userID == "" || userID == "." || userID == ".." || strings.ContainsAny(userID, `/\`) {
		return nil, fmt.Errorf("%s: %w: %q", s.SourceName, ErrInvalidUser, userID)
	}

	path := filepath.Join(s.Dir, s.SourceName, userID+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: reading %s: %w", s.SourceName, path, err)
	}

	var f fixtureFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%s: parsing %s: %w", s.SourceName, path, err)
	}
	if f.Error != "" {
		return nil, fmt.Errorf("%s: %s", s.SourceName, f.Error)
	}

	for i := range f.Records {
		f.Records[i].Origin = s.SourceName
		if f.Records[i].Category == "" {
			f.Records[i].Category = types.CategoryAnalysisReport
		}
	}
	return f.Records, nil
}
