// Package types holds the data model shared by the registry, the workloads,
// the runner and the result sink.
package types

import (
	"fmt"
	"time"
)

// TestType identifies a workload implementation in the type registry.
type TestType string

const (
	TestTypeGitClone          TestType = "git_clone"
	TestTypeVirtualenvInstall TestType = "virtualenv_install"
	TestTypePandasLoad        TestType = "pandas_load"
)

// TestDefinition is a named, configured instance of a workload type.
// Definitions are immutable once loaded; parameter validation happens once,
// when the definition is resolved, not at use time.
type TestDefinition struct {
	Name   string
	Type   TestType
	Params ParamMap
}

// ParamMap is the raw, type-specific parameter mapping of a test definition
// as decoded from YAML. Workload factories convert it into typed fields.
type ParamMap map[string]any

// String returns the string parameter for key, or an error if it is absent
// or not a string.
func (p ParamMap) String(key string) (string, error) {
	v, ok := p[key]
	if !ok {
		return "", fmt.Errorf("missing required parameter %q", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("parameter %q must be a non-empty string", key)
	}
	return s, nil
}

// OptionalString returns the string parameter for key, or fallback when the
// key is absent.
func (p ParamMap) OptionalString(key, fallback string) (string, error) {
	if _, ok := p[key]; !ok {
		return fallback, nil
	}
	return p.String(key)
}

// StringList returns the string-list parameter for key.
func (p ParamMap) StringList(key string) ([]string, error) {
	v, ok := p[key]
	if !ok {
		return nil, fmt.Errorf("missing required parameter %q", key)
	}
	raw, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("parameter %q must be a list of strings", key)
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok || s == "" {
			return nil, fmt.Errorf("parameter %q must be a list of non-empty strings", key)
		}
		out = append(out, s)
	}
	return out, nil
}

// Duration returns the duration parameter for key, or fallback when the key
// is absent. Plain numbers are interpreted as seconds (the format the
// original config files used); strings are parsed with time.ParseDuration.
func (p ParamMap) Duration(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := p[key]
	if !ok {
		return fallback, nil
	}
	switch n := v.(type) {
	case int:
		return time.Duration(n) * time.Second, nil
	case float64:
		return time.Duration(n * float64(time.Second)), nil
	case string:
		d, err := time.ParseDuration(n)
		if err != nil {
			return 0, fmt.Errorf("parameter %q: %w", key, err)
		}
		return d, nil
	default:
		return 0, fmt.Errorf("parameter %q must be a duration string or a number of seconds", key)
	}
}

// Result captures the outcome of a single test execution. It is the durable
// contract consumed by the dashboard; the sink maps it onto one
// load_test_results row.
type Result struct {
	// ID is the database identity assigned by the sink on a successful
	// write. Companion fio_metrics rows reference it as test_result_id.
	ID int64

	RunID     string
	SetupID   string
	Hostname  string
	TestName  string
	StartTime time.Time     // wall clock, zone-aware, record keeping only
	Duration  time.Duration // monotonic-clock delta, ≥ 0 even on failure
	Success   bool
	Err       error // populated only when Success is false
}

// ExecutionSeconds returns the measured duration as fractional seconds,
// clamped at zero.
func (r *Result) ExecutionSeconds() float64 {
	if r.Duration < 0 {
		return 0
	}
	return r.Duration.Seconds()
}

// ErrorMessage returns the failure detail, or "" for successful executions.
func (r *Result) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
