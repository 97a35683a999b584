package loadtest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/perfwatch/fsload/flags"
	"github.com/perfwatch/fsload/sink"
)

// Config holds the application configuration
type Config struct {
	TargetPath     string        // Filesystem path under test
	TestConfigFile string        // YAML file with test_definitions and enabled_tests
	SetupID        string        // Names the deployment/host group under test
	Hostname       string        // Names the executing machine
	RunInterval    time.Duration // Interval between loop iterations
	RunOnce        bool          // Indicates if the service should exit after one iteration
	LogFile        string        // Rotating log file path, empty disables file logging
	DB             sink.PGConfig // Result store connection parameters
	Log            zerolog.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log zerolog.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	cfg := &Config{
		TargetPath:     ctx.String(flags.TargetPath.Name),
		TestConfigFile: ctx.String(flags.TestConfig.Name),
		SetupID:        ctx.String(flags.SetupID.Name),
		Hostname:       ctx.String(flags.Hostname.Name),
		RunInterval:    ctx.Duration(flags.RunInterval.Name),
		LogFile:        ctx.String(flags.LogFile.Name),
		DB: sink.PGConfig{
			Host:     ctx.String(flags.DBHost.Name),
			Port:     ctx.Int(flags.DBPort.Name),
			Database: ctx.String(flags.DBName.Name),
			User:     ctx.String(flags.DBUser.Name),
			Password: ctx.String(flags.DBPassword.Name),
			SSLMode:  ctx.String(flags.DBSSLMode.Name),
		},
		Log: log,
	}
	cfg.RunOnce = cfg.RunInterval == 0

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize resolves paths and defaults and validates the assembled config.
func (c *Config) normalize() error {
	if c.TargetPath == "" {
		return errors.New("target path is required")
	}
	if c.TestConfigFile == "" {
		return errors.New("test config file is required")
	}
	if c.SetupID == "" {
		return errors.New("setup id is required")
	}
	if c.RunInterval < 0 {
		return fmt.Errorf("run interval must not be negative, got %v", c.RunInterval)
	}

	absTarget, err := filepath.Abs(c.TargetPath)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path for target path '%s': %w", c.TargetPath, err)
	}
	c.TargetPath = absTarget

	absTests, err := filepath.Abs(c.TestConfigFile)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path for test config '%s': %w", c.TestConfigFile, err)
	}
	c.TestConfigFile = absTests

	if c.Hostname == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return fmt.Errorf("failed to determine hostname: %w", err)
		}
		c.Hostname = hostname
	}

	return nil
}
