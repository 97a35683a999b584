package workload

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardRelease(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "test_repo_one")
	second := filepath.Join(dir, "test_venv_two")
	require.NoError(t, os.MkdirAll(filepath.Join(first, "nested"), 0o755))
	require.NoError(t, os.MkdirAll(second, 0o755))

	guard := NewGuard(zerolog.Nop())
	guard.Add(first)
	guard.Add(second)
	guard.Release()

	assert.NoDirExists(t, first)
	assert.NoDirExists(t, second)

	// Idempotent: a second Release has nothing left to do.
	guard.Release()
}

func TestGuardReleaseMissingPath(t *testing.T) {
	guard := NewGuard(zerolog.Nop())
	guard.Add(filepath.Join(t.TempDir(), "never_created"))
	guard.Release()
}

func TestIsEphemeralArtifact(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"test_repo_3f9a", true},
		{"test_venv_3f9a", true},
		{"pandas_venv_pandas_load", false},
		{"test_repository", false},
		{"data.csv", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsEphemeralArtifact(tt.name), "name %q", tt.name)
	}
}
