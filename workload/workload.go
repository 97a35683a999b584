// Package workload implements the filesystem workload types the service can
// execute, and the type registry the resolver validates definitions against.
package workload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/perfwatch/fsload/types"
)

// Env carries the per-process execution environment shared by all workloads.
type Env struct {
	// TargetPath is the filesystem path under test. Every workload operates
	// inside its own uniquely named subpath of it.
	TargetPath string
	Log        zerolog.Logger
}

// Workload is one executable test type. Run performs the filesystem
// operation under test and returns the measured duration. Setup is invoked
// exactly once per process lifetime, before the first iteration, and only
// when RequiresSetup reports true.
type Workload interface {
	Run(ctx context.Context, env Env) (time.Duration, error)
	RequiresSetup() bool
	Setup(ctx context.Context, env Env) error
}

// Factory builds a Workload from a test definition, validating the
// definition's parameters. Factories run once, at resolve time.
type Factory func(def types.TestDefinition) (Workload, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[types.TestType]Factory)
)

// Register makes a workload type available to the resolver. It panics when
// the type is already registered, mirroring database/sql driver registration.
func Register(t types.TestType, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if f == nil {
		panic("workload: Register factory is nil")
	}
	if _, dup := registry[t]; dup {
		panic(fmt.Sprintf("workload: Register called twice for type %q", t))
	}
	registry[t] = f
}

// Registered reports whether a factory exists for the given type.
func Registered(t types.TestType) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[t]
	return ok
}

// Types returns the sorted list of registered type names.
func Types() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for t := range registry {
		out = append(out, string(t))
	}
	sort.Strings(out)
	return out
}

// New builds the workload for a test definition, or fails when the
// definition's type is unknown or its parameters are malformed.
func New(def types.TestDefinition) (Workload, error) {
	registryMu.RLock()
	f, ok := registry[def.Type]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown test type %q (registered: %s)", def.Type, strings.Join(Types(), ", "))
	}
	w, err := f(def)
	if err != nil {
		return nil, fmt.Errorf("test %q: %w", def.Name, err)
	}
	return w, nil
}

// runCommand executes a subprocess under its own timeout. The timeout
// context is derived from context.Background() on purpose: a process-level
// interrupt never force-terminates an in-flight measured operation, only the
// per-operation bound does.
func runCommand(timeout time.Duration, name string, arg ...string) error {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, arg...)
	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%s timed out after %v", name, timeout)
	}
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s failed: %s", name, msg)
		}
		return fmt.Errorf("%s failed: %w", name, err)
	}
	return nil
}

// venvBinPath returns the path of an executable inside a virtualenv,
// accounting for the venv layout difference on Windows.
func venvBinPath(venvDir, name string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(venvDir, "Scripts", name+".exe")
	}
	return filepath.Join(venvDir, "bin", name)
}
