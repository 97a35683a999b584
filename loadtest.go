// Package loadtest wires the resolved test set, the execution loop and the
// result sink into a long-running benchmark service.
package loadtest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/perfwatch/fsload/registry"
	"github.com/perfwatch/fsload/runner"
	"github.com/perfwatch/fsload/sink"
)

// iterationRunner is the loop-facing surface of runner.Runner.
type iterationRunner interface {
	EnsureTargetPath() error
	SweepArtifacts()
	SetupAll(ctx context.Context) error
	RunIteration(ctx context.Context) (*runner.IterationResult, error)
}

// service runs filesystem load tests on a fixed interval.
type service struct {
	ctx      context.Context
	config   *Config
	version  string
	registry *registry.Registry
	runner   iterationRunner
	sink     sink.ResultSink
	result   *runner.IterationResult

	running atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup

	shutdownCallback func(error) // Callback to signal application shutdown
}

// New assembles the service: resolves the test set, connects the result
// sink and builds the runner. Every configuration problem surfaces here,
// before the loop starts.
func New(ctx context.Context, config *Config, version string, shutdownCallback func(error)) (*service, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	config.Log.Debug().
		Str("targetPath", config.TargetPath).
		Str("testConfig", config.TestConfigFile).
		Str("setupID", config.SetupID).
		Dur("runInterval", config.RunInterval).
		Bool("runOnce", config.RunOnce).
		Msg("creating load test service")

	reg, err := registry.NewRegistry(registry.Config{
		Log:            config.Log,
		TestConfigFile: config.TestConfigFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}

	resultSink, err := newSink(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create result sink: %w", err)
	}

	testRunner, err := runner.NewRunner(runner.Config{
		Registry:   reg,
		Sink:       resultSink,
		TargetPath: config.TargetPath,
		SetupID:    config.SetupID,
		Hostname:   config.Hostname,
		Log:        config.Log,
	})
	if err != nil {
		_ = resultSink.Close()
		return nil, fmt.Errorf("failed to create runner: %w", err)
	}

	return &service{
		ctx:              ctx,
		config:           config,
		version:          version,
		registry:         reg,
		runner:           testRunner,
		sink:             resultSink,
		done:             make(chan struct{}),
		shutdownCallback: shutdownCallback,
	}, nil
}

// newSink connects the Postgres result store, or falls back to a log-only
// sink when no database host is configured.
func newSink(ctx context.Context, config *Config) (sink.ResultSink, error) {
	if config.DB.Host == "" {
		return sink.NewLogSink(config.Log), nil
	}
	return sink.NewPostgresSink(ctx, config.DB, config.Log)
}

// Start verifies the environment, runs one-time setup, executes an
// immediate iteration and then keeps iterating at the configured interval
// until stopped.
func (s *service) Start(ctx context.Context) error {
	s.ctx = ctx
	s.done = make(chan struct{})
	s.running.Store(true)

	if s.config.RunOnce {
		s.config.Log.Info().Msg("starting fsload in run-once mode")
	} else {
		s.config.Log.Info().Dur("interval", s.config.RunInterval).Msg("starting fsload in continuous mode")
	}

	if err := s.runner.EnsureTargetPath(); err != nil {
		return NewRuntimeError(err)
	}
	s.runner.SweepArtifacts()

	if err := s.runner.SetupAll(ctx); err != nil {
		return NewRuntimeError(err)
	}

	if err := s.runIteration(ctx); err != nil {
		return NewRuntimeError(err)
	}

	if s.config.RunOnce {
		s.config.Log.Info().Msg("iteration completed, exiting (run-once mode)")
		go func() {
			s.shutdownCallback(nil)
		}()
		return nil
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.config.Log.Debug().Dur("interval", s.config.RunInterval).Msg("starting periodic test loop goroutine")

		for {
			select {
			case <-time.After(s.nextWait()):
				if !s.running.Load() {
					s.config.Log.Debug().Msg("service stopped, exiting test loop")
					return
				}

				if err := s.runIteration(ctx); err != nil {
					s.config.Log.Error().Err(err).Msg("error running iteration")
				}

			case <-s.done:
				s.config.Log.Debug().Msg("done signal received, stopping test loop")
				return

			case <-ctx.Done():
				s.config.Log.Debug().Msg("context canceled, stopping test loop")
				s.running.Store(false)
				return
			}
		}
	}()

	s.config.Log.Debug().Msg("fsload started successfully")
	return nil
}

// nextWait compensates for iteration duration so iterations start on the
// configured cadence. An overrunning iteration starts the next one
// immediately, with a warning.
func (s *service) nextWait() time.Duration {
	if s.result == nil {
		return s.config.RunInterval
	}
	wait := s.config.RunInterval - s.result.Duration
	if wait < 0 {
		s.config.Log.Warn().
			Dur("interval", s.config.RunInterval).
			Dur("iteration", s.result.Duration).
			Msg("iteration took longer than configured interval")
		return 0
	}
	return wait
}

// runIteration runs one pass over the enabled tests and reports the results.
func (s *service) runIteration(ctx context.Context) error {
	result, err := s.runner.RunIteration(ctx)
	if err != nil {
		return err
	}
	s.result = result

	s.printResultsTable(result)
	s.config.Log.Info().
		Str("run_id", result.RunID).
		Int("total", result.Stats.Total).
		Int("passed", result.Stats.Passed).
		Int("failed", result.Stats.Failed).
		Msg("iteration completed")
	return nil
}

// Stop stops the load test service.
func (s *service) Stop(ctx context.Context) error {
	s.config.Log.Info().Msg("stopping fsload")

	if !s.running.Load() {
		s.config.Log.Debug().Msg("service already stopped, nothing to do")
		return nil
	}

	// Update running state first to prevent new iterations
	s.running.Store(false)

	s.config.Log.Debug().Msg("sending done signal to goroutines")
	close(s.done)

	if err := s.sink.Close(); err != nil {
		s.config.Log.Warn().Err(err).Msg("error closing result sink")
	}

	s.config.Log.Info().Msg("fsload stopped successfully")
	return nil
}

// Stopped returns true if the service is stopped.
func (s *service) Stopped() bool {
	return !s.running.Load()
}

// WaitForShutdown blocks until all goroutines have terminated.
func (s *service) WaitForShutdown(ctx context.Context) error {
	s.config.Log.Debug().Msg("waiting for all goroutines to terminate")

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.config.Log.Debug().Msg("all goroutines terminated successfully")
		return nil
	case <-ctx.Done():
		s.config.Log.Warn().Err(ctx.Err()).Msg("timed out waiting for goroutines to terminate")
		return ctx.Err()
	}
}

// printResultsTable prints the iteration's results to the console.
func (s *service) printResultsTable(result *runner.IterationResult) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(fmt.Sprintf("Filesystem Load Test Results (%s)", formatDuration(result.Duration)))

	t.AppendHeader(table.Row{"Test", "Start", "Duration", "Status", "Error"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Error", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, r := range result.Results {
		t.AppendRow(table.Row{
			r.TestName,
			r.StartTime.Format(time.TimeOnly),
			formatDuration(r.Duration),
			getResultString(r.Success),
			firstErrorLine(r.Err),
		})
	}

	if result.Stats.Failed == 0 {
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	} else {
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}

	t.AppendFooter(table.Row{
		"TOTAL",
		"",
		formatDuration(result.Duration),
		fmt.Sprintf("%d/%d passed", result.Stats.Passed, result.Stats.Total),
		"",
	})

	t.Render()
}

// firstErrorLine keeps the table readable: one line, bounded length.
func firstErrorLine(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if idx := strings.Index(msg, "\n"); idx != -1 {
		msg = msg[:idx]
	}
	if len(msg) > 80 {
		msg = msg[:70] + "..."
	}
	return msg
}

// getResultString returns a string representing the test result
func getResultString(success bool) string {
	if success {
		return "✓ pass"
	}
	return "✗ fail"
}

// formatDuration formats a duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
