// Package sink persists one structured record per test execution. The
// durable store is the contract with the external dashboard; this package
// only ever appends to it.
package sink

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/perfwatch/fsload/types"
)

// ResultSink records one result per test execution. Each Record call is a
// single, independent write attempt: no buffering, batching or retrying.
type ResultSink interface {
	Record(ctx context.Context, result *types.Result) error
	Close() error
}

// StorageError wraps a failed write to the durable store. The execution
// loop logs it and moves on; the in-memory execution already completed and
// cannot be safely repeated.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %v", e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// LogSink writes results to the log only. It is the fallback when no
// database is configured, so the service can be exercised against a
// filesystem without a dashboard behind it.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink returns a sink that emits each result as a log event.
func NewLogSink(log zerolog.Logger) *LogSink {
	log.Warn().Msg("no database configured; results will not be persisted")
	return &LogSink{log: log}
}

func (s *LogSink) Record(ctx context.Context, result *types.Result) error {
	evt := s.log.Info().
		Str("setup_id", result.SetupID).
		Str("hostname", result.Hostname).
		Str("test_name", result.TestName).
		Time("start_time", result.StartTime).
		Float64("execution_time_seconds", result.ExecutionSeconds()).
		Bool("success", result.Success)
	if result.Err != nil {
		evt = evt.Str("error_message", result.ErrorMessage())
	}
	evt.Msg("test result (not persisted)")
	return nil
}

func (s *LogSink) Close() error { return nil }
