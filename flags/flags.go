// Package flags defines the CLI surface of fsload. Every flag has an
// FSLOAD_-prefixed environment variable fallback.
package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

const EnvVarPrefix = "FSLOAD"

// prefixEnvVars prepends the service prefix to an env var name.
func prefixEnvVars(name string) []string {
	return []string{EnvVarPrefix + "_" + name}
}

var (
	TargetPath = &cli.StringFlag{
		Name:     "target-path",
		Value:    "",
		Required: true,
		EnvVars:  prefixEnvVars("TARGET_PATH"),
		Usage:    "Filesystem path under test; all ephemeral artifacts are created beneath it",
	}
	TestConfig = &cli.StringFlag{
		Name:     "tests",
		Value:    "",
		Required: true,
		EnvVars:  prefixEnvVars("TESTS"),
		Usage:    "Path to test config file (eg. 'tests.yaml') with test_definitions and enabled_tests",
	}
	SetupID = &cli.StringFlag{
		Name:     "setup-id",
		Value:    "",
		Required: true,
		EnvVars:  prefixEnvVars("SETUP_ID"),
		Usage:    "Identifier of the deployment/host group under test, stamped on every record",
	}
	RunInterval = &cli.DurationFlag{
		Name:    "run-interval",
		Value:   0,
		EnvVars: prefixEnvVars("RUN_INTERVAL"),
		Usage:   "Interval between loop iterations (e.g. '5m'). Set to 0 or omit for run-once mode.",
	}
	Hostname = &cli.StringFlag{
		Name:    "hostname",
		Value:   "",
		EnvVars: prefixEnvVars("HOSTNAME"),
		Usage:   "Hostname stamped on every record; defaults to the OS hostname",
	}
	LogLevel = &cli.StringFlag{
		Name:    "log-level",
		Value:   "info",
		EnvVars: prefixEnvVars("LOG_LEVEL"),
		Usage:   "Log level (trace, debug, info, warn, error)",
	}
	LogFile = &cli.StringFlag{
		Name:    "log-file",
		Value:   "",
		EnvVars: prefixEnvVars("LOG_FILE"),
		Usage:   "Path of the rotating log file; empty disables file logging",
	}
	DBHost = &cli.StringFlag{
		Name:    "db-host",
		Value:   "",
		EnvVars: prefixEnvVars("DB_HOST"),
		Usage:   "PostgreSQL host for the result store; empty disables persistence",
	}
	DBPort = &cli.IntFlag{
		Name:    "db-port",
		Value:   5432,
		EnvVars: prefixEnvVars("DB_PORT"),
		Usage:   "PostgreSQL port",
	}
	DBName = &cli.StringFlag{
		Name:    "db-name",
		Value:   "",
		EnvVars: prefixEnvVars("DB_NAME"),
		Usage:   "PostgreSQL database name",
	}
	DBUser = &cli.StringFlag{
		Name:    "db-user",
		Value:   "",
		EnvVars: prefixEnvVars("DB_USER"),
		Usage:   "PostgreSQL user",
	}
	DBPassword = &cli.StringFlag{
		Name:    "db-password",
		Value:   "",
		EnvVars: prefixEnvVars("DB_PASSWORD"),
		Usage:   "PostgreSQL password; prefer the env var or a .pgpass file",
	}
	DBSSLMode = &cli.StringFlag{
		Name:    "db-sslmode",
		Value:   "disable",
		EnvVars: prefixEnvVars("DB_SSLMODE"),
		Usage:   "PostgreSQL sslmode",
	}
)

var requiredFlags = []cli.Flag{
	TargetPath,
	TestConfig,
	SetupID,
}

var optionalFlags = []cli.Flag{
	RunInterval,
	Hostname,
	LogLevel,
	LogFile,
	DBHost,
	DBPort,
	DBName,
	DBUser,
	DBPassword,
	DBSSLMode,
}

var Flags []cli.Flag

func init() {
	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return nil
}
