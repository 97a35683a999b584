package workload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/perfwatch/fsload/types"
)

// defaultCloneTimeout bounds a single clone; a hung remote must not wedge
// the loop forever. Overridable per definition via the "timeout" parameter.
const defaultCloneTimeout = 5 * time.Minute

func init() {
	Register(types.TestTypeGitClone, newGitClone)
}

// gitClone clones a remote repository into a uniquely named subdirectory of
// the target path, exercising directory creation, recursive writes and
// many-small-file I/O. The clone directory is removed on every exit path.
type gitClone struct {
	name    string
	repoURL string
	timeout time.Duration
	gitBin  string
}

func newGitClone(def types.TestDefinition) (Workload, error) {
	repoURL, err := def.Params.String("repository_url")
	if err != nil {
		return nil, err
	}
	timeout, err := def.Params.Duration("timeout", defaultCloneTimeout)
	if err != nil {
		return nil, err
	}
	gitBin, err := def.Params.OptionalString("git_binary", "git")
	if err != nil {
		return nil, err
	}
	return &gitClone{
		name:    def.Name,
		repoURL: repoURL,
		timeout: timeout,
		gitBin:  gitBin,
	}, nil
}

func (g *gitClone) RequiresSetup() bool { return false }

func (g *gitClone) Setup(ctx context.Context, env Env) error { return nil }

func (g *gitClone) Run(ctx context.Context, env Env) (time.Duration, error) {
	cloneDir := filepath.Join(env.TargetPath, "test_repo_"+uuid.NewString())

	guard := NewGuard(env.Log)
	guard.Add(cloneDir)
	defer guard.Release()

	start := time.Now()
	if err := runCommand(g.timeout, g.gitBin, "clone", g.repoURL, cloneDir); err != nil {
		return 0, fmt.Errorf("git clone of %s: %w", g.repoURL, err)
	}
	elapsed := time.Since(start)

	if _, err := os.Stat(filepath.Join(cloneDir, ".git")); err != nil {
		return 0, fmt.Errorf("repository was not properly cloned: %w", err)
	}

	return elapsed, nil
}
