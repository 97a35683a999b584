package workload

import (
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Guard tracks ephemeral artifact paths created by a workload and removes
// them on every exit path. Paths are registered before the timed operation
// begins; Release is best-effort and idempotent, and removal failures are
// logged without altering the test's own outcome. Setup-once persistent
// state is never registered with a Guard.
type Guard struct {
	log zerolog.Logger

	mu    sync.Mutex
	paths []string
}

// NewGuard returns an empty cleanup guard.
func NewGuard(log zerolog.Logger) *Guard {
	return &Guard{log: log}
}

// Add registers an artifact path for removal.
func (g *Guard) Add(path string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.paths = append(g.paths, path)
}

// Release removes all registered paths recursively. Intended to run
// deferred; calling it more than once is safe.
func (g *Guard) Release() {
	g.mu.Lock()
	paths := g.paths
	g.paths = nil
	g.mu.Unlock()

	for _, p := range paths {
		if err := os.RemoveAll(p); err != nil {
			g.log.Warn().Err(err).Str("path", p).Msg("failed to clean up test artifact")
			continue
		}
		g.log.Debug().Str("path", p).Msg("cleaned up test artifact")
	}
}

// ArtifactPrefixes are the directory name prefixes of ephemeral artifacts.
// A sweep removes leftovers matching these from crashed prior runs.
var ArtifactPrefixes = []string{"test_repo_", "test_venv_"}

// IsEphemeralArtifact reports whether a directory name looks like an
// ephemeral test artifact. Persistent setup-once state (pandas_venv_*) never
// matches.
func IsEphemeralArtifact(name string) bool {
	for _, prefix := range ArtifactPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
