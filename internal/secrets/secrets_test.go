// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  Set
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, BackendAPIToken, "  tok_abc123  \n")
				writeFile(t, dir, "nats-token", "n_xyz")
				return dir
			},
			want: Set{BackendAPIToken: "tok_abc123", "nats-token": "n_xyz"},
		},
		{
			name: "returns empty set for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: Set{},
		},
		{
			name: "skips empty files",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, BackendAPIToken, "valid")
				writeFile(t, dir, "empty-key", "")
				writeFile(t, dir, "whitespace-only", "   \n\t  ")
				return dir
			},
			want: Set{BackendAPIToken: "valid"},
		},
		{
			name: "skips dotfiles and subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden-key", "secret")
				writeFile(t, dir, BackendAPIToken, "real")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: Set{BackendAPIToken: "real"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.setup(t), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadNotADirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "plain", "x")

	_, err := Load(filepath.Join(dir, "plain"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading secrets directory")
}

func TestLoadUnreadableFileIsLogged(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read files regardless of mode")
	}
	dir := t.TempDir()
	writeFile(t, dir, BackendAPIToken, "tok")
	require.NoError(t, os.Chmod(filepath.Join(dir, BackendAPIToken), 0o000))

	core, logs := observer.New(zap.WarnLevel)
	got, err := Load(dir, zap.New(core))
	require.NoError(t, err)
	assert.Empty(t, got)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "could not read secret", logs.All()[0].Message)
}

func TestSetOr(t *testing.T) {
	s := Set{BackendAPIToken: "from-file"}
	assert.Equal(t, "explicit", s.Or(BackendAPIToken, "explicit"))
	assert.Equal(t, "from-file", s.Or(BackendAPIToken, ""))
	assert.Empty(t, s.Or("missing", ""))
}

func TestSetNames(t *testing.T) {
	s := Set{"b": "2", "a": "1"}
	assert.Equal(t, []string{"a", "b"}, s.Names())
	assert.Empty(t, Set{}.Names())
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
