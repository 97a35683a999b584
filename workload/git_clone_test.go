package workload

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfwatch/fsload/types"
)

func gitCloneDef(params types.ParamMap) types.TestDefinition {
	return types.TestDefinition{
		Name:   "clone_linux",
		Type:   types.TestTypeGitClone,
		Params: params,
	}
}

// countEntriesWithPrefix counts directory entries whose name starts with
// prefix, for asserting artifact cleanup.
func countEntriesWithPrefix(t *testing.T, dir, prefix string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	n := 0
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), prefix) {
			n++
		}
	}
	return n
}

func TestGitCloneRun(t *testing.T) {
	target := t.TempDir()
	// The fake receives: clone <url> <dir>.
	gitBin := writeScript(t, t.TempDir(), "git", `mkdir -p "$3/.git"`+"\n")

	w, err := New(gitCloneDef(types.ParamMap{
		"repository_url": "https://example.com/linux.git",
		"git_binary":     gitBin,
	}))
	require.NoError(t, err)
	assert.False(t, w.RequiresSetup())

	elapsed, err := w.Run(context.Background(), Env{TargetPath: target, Log: zerolog.Nop()})
	require.NoError(t, err)
	assert.Greater(t, elapsed, time.Duration(0))

	assert.Zero(t, countEntriesWithPrefix(t, target, "test_repo_"), "clone directory should be removed")
}

func TestGitCloneRunFailure(t *testing.T) {
	target := t.TempDir()
	gitBin := writeScript(t, t.TempDir(), "git", "echo 'fatal: repository not found' >&2\nexit 128\n")

	w, err := New(gitCloneDef(types.ParamMap{
		"repository_url": "https://example.com/missing.git",
		"git_binary":     gitBin,
	}))
	require.NoError(t, err)

	_, err = w.Run(context.Background(), Env{TargetPath: target, Log: zerolog.Nop()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fatal: repository not found")

	assert.Zero(t, countEntriesWithPrefix(t, target, "test_repo_"))
}

func TestGitCloneRunIncompleteClone(t *testing.T) {
	target := t.TempDir()
	// Exits cleanly but never writes .git, as a truncated clone would.
	gitBin := writeScript(t, t.TempDir(), "git", `mkdir -p "$3"`+"\n")

	w, err := New(gitCloneDef(types.ParamMap{
		"repository_url": "https://example.com/linux.git",
		"git_binary":     gitBin,
	}))
	require.NoError(t, err)

	_, err = w.Run(context.Background(), Env{TargetPath: target, Log: zerolog.Nop()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not properly cloned")
}

func TestNewGitCloneValidation(t *testing.T) {
	_, err := New(gitCloneDef(types.ParamMap{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repository_url")

	_, err = New(gitCloneDef(types.ParamMap{
		"repository_url": "https://example.com/linux.git",
		"timeout":        "sometime",
	}))
	require.Error(t, err)
}
