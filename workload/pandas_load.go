package workload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/perfwatch/fsload/types"
)

// defaultImportTimeout bounds the measured cold-start import.
const defaultImportTimeout = 30 * time.Second

func init() {
	Register(types.TestTypePandasLoad, newPandasLoad)
}

// pandasLoad measures the cold-start cost of importing a heavy package in a
// fresh process. The package is installed once, during setup, into a
// persistent environment under the target path; only the import is timed.
// Importing pandas scans large numbers of files on disk, which is the
// filesystem cost of interest. The persistent environment is exempt from
// cleanup and survives for the life of the run.
type pandasLoad struct {
	name          string
	pkg           string
	pythonBin     string
	importTimeout time.Duration
}

func newPandasLoad(def types.TestDefinition) (Workload, error) {
	pkg, err := def.Params.OptionalString("package", "pandas")
	if err != nil {
		return nil, err
	}
	pythonBin, err := def.Params.OptionalString("python_binary", "python3")
	if err != nil {
		return nil, err
	}
	importTimeout, err := def.Params.Duration("timeout", defaultImportTimeout)
	if err != nil {
		return nil, err
	}
	return &pandasLoad{
		name:          def.Name,
		pkg:           pkg,
		pythonBin:     pythonBin,
		importTimeout: importTimeout,
	}, nil
}

func (p *pandasLoad) RequiresSetup() bool { return true }

// venvDir is the persistent per-test environment path. It embeds the test
// name so two pandas_load definitions never collide.
func (p *pandasLoad) venvDir(env Env) string {
	return filepath.Join(env.TargetPath, "pandas_venv_"+p.name)
}

// Setup provisions the persistent environment and installs the package.
// It runs exactly once per process lifetime and is never part of a measured
// duration. A leftover environment from a previous run is re-provisioned
// from scratch so a half-installed package cannot skew measurements.
func (p *pandasLoad) Setup(ctx context.Context, env Env) error {
	venvDir := p.venvDir(env)

	if err := os.RemoveAll(venvDir); err != nil {
		return fmt.Errorf("removing stale environment %s: %w", venvDir, err)
	}

	if err := runCommand(defaultVenvCreateTimeout, p.pythonBin, "-m", "venv", venvDir); err != nil {
		return fmt.Errorf("virtual environment creation: %w", err)
	}

	if err := runCommand(defaultInstallTimeout, venvBinPath(venvDir, "pip"), "install", p.pkg); err != nil {
		// Leave no partial environment behind; a later Run must not find it.
		if rmErr := os.RemoveAll(venvDir); rmErr != nil {
			env.Log.Warn().Err(rmErr).Str("path", venvDir).Msg("failed to remove partial environment")
		}
		return fmt.Errorf("%s installation: %w", p.pkg, err)
	}

	env.Log.Info().Str("path", venvDir).Str("package", p.pkg).Msg("setup completed: persistent environment provisioned")
	return nil
}

func (p *pandasLoad) Run(ctx context.Context, env Env) (time.Duration, error) {
	venvDir := p.venvDir(env)
	pythonPath := venvBinPath(venvDir, "python")

	if _, err := os.Stat(pythonPath); err != nil {
		return 0, fmt.Errorf("persistent environment not found at %s, setup may have failed: %w", venvDir, err)
	}

	start := time.Now()
	if err := runCommand(p.importTimeout, pythonPath, "-c", "import "+p.pkg); err != nil {
		return 0, fmt.Errorf("%s import: %w", p.pkg, err)
	}
	return time.Since(start), nil
}
