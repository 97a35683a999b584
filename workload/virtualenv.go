package workload

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/perfwatch/fsload/types"
)

const (
	// Creating an empty venv is cheap; it writes a fixed directory tree.
	defaultVenvCreateTimeout = time.Minute
	// Installing packages includes dependency resolution and network I/O.
	defaultInstallTimeout = 5 * time.Minute
)

func init() {
	Register(types.TestTypeVirtualenvInstall, newVirtualenvInstall)
}

// virtualenvInstall provisions an ephemeral Python environment under the
// target path and installs a package list into it, exercising directory
// creation, many small file writes and dependency resolution. The
// environment is removed on every exit path. The measured window spans
// environment creation through install completion.
type virtualenvInstall struct {
	name           string
	packages       []string
	pythonBin      string
	installTimeout time.Duration
}

func newVirtualenvInstall(def types.TestDefinition) (Workload, error) {
	packages, err := def.Params.StringList("packages")
	if err != nil {
		return nil, err
	}
	if len(packages) == 0 {
		return nil, fmt.Errorf("parameter %q must name at least one package", "packages")
	}
	pythonBin, err := def.Params.OptionalString("python_binary", "python3")
	if err != nil {
		return nil, err
	}
	installTimeout, err := def.Params.Duration("timeout", defaultInstallTimeout)
	if err != nil {
		return nil, err
	}
	return &virtualenvInstall{
		name:           def.Name,
		packages:       packages,
		pythonBin:      pythonBin,
		installTimeout: installTimeout,
	}, nil
}

func (v *virtualenvInstall) RequiresSetup() bool { return false }

func (v *virtualenvInstall) Setup(ctx context.Context, env Env) error { return nil }

func (v *virtualenvInstall) Run(ctx context.Context, env Env) (time.Duration, error) {
	venvDir := filepath.Join(env.TargetPath, "test_venv_"+uuid.NewString())

	guard := NewGuard(env.Log)
	guard.Add(venvDir)
	defer guard.Release()

	start := time.Now()

	if err := runCommand(defaultVenvCreateTimeout, v.pythonBin, "-m", "venv", venvDir); err != nil {
		return 0, fmt.Errorf("virtual environment creation: %w", err)
	}

	args := append([]string{"install"}, v.packages...)
	if err := runCommand(v.installTimeout, venvBinPath(venvDir, "pip"), args...); err != nil {
		return 0, fmt.Errorf("package installation: %w", err)
	}

	return time.Since(start), nil
}
