// Package runner drives the sequential execution of the resolved test set:
// one-time setup of the types that need it, then one timed execution per
// test per iteration, with per-test fault isolation and guaranteed artifact
// cleanup between iterations.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/perfwatch/fsload/metrics"
	"github.com/perfwatch/fsload/registry"
	"github.com/perfwatch/fsload/sink"
	"github.com/perfwatch/fsload/types"
	"github.com/perfwatch/fsload/workload"
)

// SetupError marks a failed one-time provisioning. It is process-fatal:
// a setup-once test type that cannot be provisioned cannot meaningfully run
// later.
type SetupError struct {
	Test string
	Err  error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("setup failed for test %q: %v", e.Test, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// IterationResult captures one full pass over the enabled test set.
type IterationResult struct {
	RunID    string
	Results  []*types.Result
	Duration time.Duration
	Stats    Stats
	// Interrupted is set when cancellation stopped the iteration before all
	// tests ran. The in-flight test always completes and is recorded.
	Interrupted bool
}

// Stats tracks execution counts for one iteration.
type Stats struct {
	Total  int
	Passed int
	Failed int
}

// Config holds configuration for creating a new Runner.
type Config struct {
	Registry   *registry.Registry
	Sink       sink.ResultSink
	TargetPath string
	SetupID    string
	Hostname   string
	Log        zerolog.Logger
}

// Runner owns the per-iteration execution of the resolved tests.
type Runner struct {
	entries  []registry.Entry
	sink     sink.ResultSink
	env      workload.Env
	setupID  string
	hostname string
	log      zerolog.Logger

	ready     map[string]bool
	setupDone bool
}

// NewRunner creates a new runner instance.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if cfg.Sink == nil {
		return nil, errors.New("result sink is required")
	}
	if cfg.TargetPath == "" {
		return nil, errors.New("target path is required")
	}
	if cfg.SetupID == "" {
		return nil, errors.New("setup id is required")
	}

	r := &Runner{
		entries:  cfg.Registry.Entries(),
		sink:     cfg.Sink,
		setupID:  cfg.SetupID,
		hostname: cfg.Hostname,
		log:      cfg.Log,
		env: workload.Env{
			TargetPath: cfg.TargetPath,
			Log:        cfg.Log,
		},
		ready: make(map[string]bool, len(cfg.Registry.Entries())),
	}

	for _, e := range r.entries {
		r.ready[e.Definition.Name] = !e.Workload.RequiresSetup()
	}

	return r, nil
}

// EnsureTargetPath creates the target path if needed and verifies it is
// writable with a scratch file.
func (r *Runner) EnsureTargetPath() error {
	if err := os.MkdirAll(r.env.TargetPath, 0o755); err != nil {
		return fmt.Errorf("creating target path %s: %w", r.env.TargetPath, err)
	}

	probe := filepath.Join(r.env.TargetPath, fmt.Sprintf("test_write_%d", time.Now().Unix()))
	if err := os.WriteFile(probe, []byte("test"), 0o644); err != nil {
		return fmt.Errorf("target path %s not writable: %w", r.env.TargetPath, err)
	}
	if err := os.Remove(probe); err != nil {
		return fmt.Errorf("removing write probe: %w", err)
	}

	r.log.Info().Str("path", r.env.TargetPath).Msg("target path verified")
	return nil
}

// SweepArtifacts removes ephemeral artifact directories left under the
// target path by crashed prior runs. Persistent setup-once state is never
// swept. Failures are logged only.
func (r *Runner) SweepArtifacts() {
	items, err := os.ReadDir(r.env.TargetPath)
	if err != nil {
		r.log.Warn().Err(err).Msg("error during artifact sweep")
		return
	}

	for _, item := range items {
		if !item.IsDir() || !workload.IsEphemeralArtifact(item.Name()) {
			continue
		}
		path := filepath.Join(r.env.TargetPath, item.Name())
		if err := os.RemoveAll(path); err != nil {
			r.log.Warn().Err(err).Str("path", path).Msg("failed to sweep artifact")
			continue
		}
		r.log.Debug().Str("path", path).Msg("swept leftover artifact")
	}
}

// SetupAll runs the one-time provisioning of every setup-once test type.
// Each type is set up exactly once per process lifetime, before the first
// iteration; setup time is never part of a measured duration. Any failure
// aborts the run.
func (r *Runner) SetupAll(ctx context.Context) error {
	if r.setupDone {
		return nil
	}

	for _, e := range r.entries {
		name := e.Definition.Name
		if !e.Workload.RequiresSetup() {
			continue
		}

		r.log.Info().Str("test", name).Msg("running one-time setup")
		if err := e.Workload.Setup(ctx, r.env); err != nil {
			return &SetupError{Test: name, Err: err}
		}
		r.ready[name] = true
		r.log.Info().Str("test", name).Msg("setup completed")
	}

	r.setupDone = true
	return nil
}

// RunIteration executes every resolved test once, in definition order,
// recording exactly one result per test regardless of failures. A failing
// test never prevents later tests from running. Cancellation is honored
// between tests only: the in-flight test finishes, its cleanup and record
// write complete, then the iteration stops.
func (r *Runner) RunIteration(ctx context.Context) (*IterationResult, error) {
	if !r.setupDone {
		return nil, errors.New("SetupAll must run before the first iteration")
	}

	start := time.Now()
	iter := &IterationResult{
		RunID:   uuid.New().String(),
		Results: make([]*types.Result, 0, len(r.entries)),
	}

	r.log.Info().Str("run_id", iter.RunID).Msg("starting test loop iteration")

	for _, e := range r.entries {
		if ctx.Err() != nil {
			r.log.Info().Str("run_id", iter.RunID).Msg("interrupt received, stopping iteration at test boundary")
			iter.Interrupted = true
			break
		}

		result := r.runOne(e, iter.RunID)
		r.record(result)

		iter.Results = append(iter.Results, result)
		iter.Stats.Total++
		if result.Success {
			iter.Stats.Passed++
		} else {
			iter.Stats.Failed++
		}
	}

	// Leftovers here mean a workload's own guard failed; sweep them so the
	// next iteration starts from a clean target path.
	r.SweepArtifacts()

	iter.Duration = time.Since(start)
	metrics.RecordIteration(iter.Duration)
	return iter, nil
}

// runOne executes a single test, converting any error or panic into a
// failed result. The duration is always populated: on failure it reflects
// time until the failure was detected, from the same monotonic clock.
func (r *Runner) runOne(e registry.Entry, runID string) *types.Result {
	name := e.Definition.Name
	result := &types.Result{
		RunID:     runID,
		SetupID:   r.setupID,
		Hostname:  r.hostname,
		TestName:  name,
		StartTime: time.Now(),
	}

	r.log.Info().Str("test", name).Str("type", string(e.Definition.Type)).Msg("starting test")

	start := time.Now()
	duration, err := r.invoke(e)
	if err != nil {
		result.Duration = time.Since(start)
		result.Err = err
		r.log.Error().Err(err).Str("test", name).Msg("test failed")
	} else {
		result.Duration = duration
		result.Success = true
		r.log.Info().Str("test", name).Float64("seconds", duration.Seconds()).Msg("test completed")
	}

	metrics.RecordTest(r.setupID, name, result.Success, result.Duration)
	return result
}

// invoke calls the workload, turning a panic into an error so one broken
// test type cannot terminate the loop.
func (r *Runner) invoke(e registry.Entry) (duration time.Duration, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("test panicked: %v", rec)
		}
	}()

	if !r.ready[e.Definition.Name] {
		return 0, errors.New("test is not ready: setup has not completed")
	}

	return e.Workload.Run(context.Background(), r.env)
}

// recordTimeout bounds a single result write.
const recordTimeout = 30 * time.Second

// record hands the result to the sink. A storage failure is logged and the
// record dropped; the execution already happened and cannot be repeated.
// The write runs under its own context so an interrupt mid-iteration never
// loses the in-flight test's record.
func (r *Runner) record(result *types.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	if err := r.sink.Record(ctx, result); err != nil {
		r.log.Error().Err(err).Str("test", result.TestName).Msg("failed to persist test result")
		metrics.RecordErrorDetails("storage", err)
	}
}
