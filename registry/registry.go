// Package registry resolves the configured test definitions into executable
// workloads. All validation happens here, once, at startup: an unknown test
// name, an unknown test type or a malformed parameter is surfaced
// immediately instead of silently producing empty iterations.
package registry

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/perfwatch/fsload/types"
	"github.com/perfwatch/fsload/workload"
)

// Config contains registry configuration.
type Config struct {
	Log zerolog.Logger
	// TestConfigFile is the YAML file holding test_definitions and
	// enabled_tests.
	TestConfigFile string
}

// Entry pairs a resolved test definition with its constructed workload.
// Entries preserve the enabled_tests order, which is the execution order
// within each iteration.
type Entry struct {
	Definition types.TestDefinition
	Workload   workload.Workload
}

// Registry holds the resolved, ordered test set for this run.
type Registry struct {
	config  Config
	entries []Entry
}

// testConfig mirrors the YAML test config file.
type testConfig struct {
	EnabledTests    []string                 `yaml:"enabled_tests"`
	TestDefinitions map[string]testDefConfig `yaml:"test_definitions"`
}

type testDefConfig struct {
	Type   string         `yaml:"type"`
	Params types.ParamMap `yaml:",inline"`
}

// NewRegistry loads the test config file and resolves every enabled test.
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.TestConfigFile == "" {
		return nil, fmt.Errorf("test config file is required")
	}

	r := &Registry{config: cfg}
	if err := r.loadTests(cfg.TestConfigFile); err != nil {
		return nil, err
	}

	cfg.Log.Debug().Int("tests", len(r.entries)).Msg("registry loaded")
	return r, nil
}

func (r *Registry) loadTests(path string) error {
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}

	if len(cfg.EnabledTests) == 0 {
		return fmt.Errorf("no tests enabled in %s", path)
	}

	entries := make([]Entry, 0, len(cfg.EnabledTests))
	for _, name := range cfg.EnabledTests {
		defCfg, ok := cfg.TestDefinitions[name]
		if !ok {
			return fmt.Errorf("enabled test %q not found in test_definitions", name)
		}
		if defCfg.Type == "" {
			return fmt.Errorf("test %q has no type", name)
		}

		def := types.TestDefinition{
			Name:   name,
			Type:   types.TestType(defCfg.Type),
			Params: defCfg.Params,
		}

		w, err := workload.New(def)
		if err != nil {
			return err
		}

		entries = append(entries, Entry{Definition: def, Workload: w})
	}

	r.entries = entries
	return nil
}

// Entries returns the resolved tests in execution order.
func (r *Registry) Entries() []Entry {
	return r.entries
}

// GetConfig returns the registry configuration.
func (r *Registry) GetConfig() Config {
	return r.config
}

// loadConfig reads and parses the YAML test config file.
func loadConfig(path string) (*testConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading test config file: %w", err)
	}

	var cfg testConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing test config file: %w", err)
	}

	return &cfg, nil
}
