package workload

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfwatch/fsload/types"
)

// writeScript writes an executable shell script used as a fake binary.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake binaries are shell scripts")
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestBuiltinTypesRegistered(t *testing.T) {
	for _, typ := range []types.TestType{
		types.TestTypeGitClone,
		types.TestTypeVirtualenvInstall,
		types.TestTypePandasLoad,
	} {
		assert.True(t, Registered(typ), "type %q should be registered", typ)
	}

	names := Types()
	assert.Contains(t, names, string(types.TestTypeGitClone))
	assert.IsIncreasing(t, names)
}

func TestRegisterDuplicatePanics(t *testing.T) {
	factory := func(def types.TestDefinition) (Workload, error) { return nil, nil }

	Register(types.TestType("workload_test_dup"), factory)
	assert.Panics(t, func() {
		Register(types.TestType("workload_test_dup"), factory)
	})

	assert.Panics(t, func() {
		Register(types.TestType("workload_test_nil"), nil)
	})
}

func TestNewUnknownType(t *testing.T) {
	_, err := New(types.TestDefinition{Name: "mystery", Type: types.TestType("teleport")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown test type")
}

func TestNewWrapsFactoryError(t *testing.T) {
	_, err := New(types.TestDefinition{
		Name:   "broken",
		Type:   types.TestTypeGitClone,
		Params: types.ParamMap{},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `test "broken"`)
}

func TestRunCommandTimeout(t *testing.T) {
	bin := writeScript(t, t.TempDir(), "slow", "sleep 5\n")

	start := time.Now()
	err := runCommand(50*time.Millisecond, bin)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out after")
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRunCommandCapturesStderr(t *testing.T) {
	bin := writeScript(t, t.TempDir(), "grumpy", "echo 'disk on fire' >&2\nexit 3\n")

	err := runCommand(time.Minute, bin)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestRunCommandSuccess(t *testing.T) {
	bin := writeScript(t, t.TempDir(), "ok", "exit 0\n")
	require.NoError(t, runCommand(time.Minute, bin))
}

func TestVenvBinPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		assert.Equal(t, filepath.Join("venv", "Scripts", "pip.exe"), venvBinPath("venv", "pip"))
		return
	}
	assert.Equal(t, filepath.Join("venv", "bin", "pip"), venvBinPath("venv", "pip"))
}
