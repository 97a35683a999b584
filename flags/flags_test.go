package flags

import (
	"flag"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// TestOptionalFlagsDontSetRequired asserts that all flags deemed optional are
// actually optional.
func TestOptionalFlagsDontSetRequired(t *testing.T) {
	for _, flag := range optionalFlags {
		reqFlag, ok := flag.(cli.RequiredFlag)
		require.True(t, ok)
		require.False(t, reqFlag.IsRequired(), "optional flag %s is marked required", flag.Names()[0])
	}
}

// TestUniqueFlags asserts that no flag names or env vars collide.
func TestUniqueFlags(t *testing.T) {
	seenCLI := make(map[string]struct{})
	seenEnv := make(map[string]struct{})
	for _, flag := range Flags {
		name := flag.Names()[0]
		if _, ok := seenCLI[name]; ok {
			t.Errorf("duplicate flag %s", name)
		}
		seenCLI[name] = struct{}{}

		envFlag, ok := flag.(interface{ GetEnvVars() []string })
		require.True(t, ok, "flag %s does not expose env vars", name)
		for _, envVar := range envFlag.GetEnvVars() {
			if _, ok := seenEnv[envVar]; ok {
				t.Errorf("duplicate env var %s", envVar)
			}
			seenEnv[envVar] = struct{}{}
		}
	}
}

// TestHasEnvVar asserts that every flag has exactly one env var fallback.
func TestHasEnvVar(t *testing.T) {
	for _, flag := range Flags {
		flag := flag
		flagName := flag.Names()[0]

		t.Run(flagName, func(t *testing.T) {
			envFlagGetter, ok := flag.(interface{ GetEnvVars() []string })
			require.True(t, ok, "must be able to cast the flag to an EnvVar interface")
			envFlags := envFlagGetter.GetEnvVars()
			require.Len(t, envFlags, 1, "flags should have exactly one env var")
		})
	}
}

// TestEnvVarFormat asserts the env var of each flag is derived from its name.
func TestEnvVarFormat(t *testing.T) {
	for _, flag := range Flags {
		flag := flag
		flagName := flag.Names()[0]

		t.Run(flagName, func(t *testing.T) {
			envFlagGetter, ok := flag.(interface{ GetEnvVars() []string })
			require.True(t, ok, "must be able to cast the flag to an EnvVar interface")
			envFlags := envFlagGetter.GetEnvVars()

			expectedEnvVar := EnvVarPrefix + "_" + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
			require.Equal(t, expectedEnvVar, envFlags[0])
		})
	}
}

// TestRequiredFlagsSetRequired asserts the required set is marked required.
func TestRequiredFlagsSetRequired(t *testing.T) {
	for _, flag := range requiredFlags {
		reqFlag, ok := flag.(cli.RequiredFlag)
		require.True(t, ok)
		require.True(t, reqFlag.IsRequired(), "required flag %s is not marked required", flag.Names()[0])
	}
}

func TestCheckRequired(t *testing.T) {
	newContext := func(args ...string) *cli.Context {
		set := flag.NewFlagSet("fsload-test", flag.ContinueOnError)
		set.String("target-path", "", "")
		set.String("tests", "", "")
		set.String("setup-id", "", "")
		require.NoError(t, set.Parse(args))
		return cli.NewContext(nil, set, nil)
	}

	t.Run("all required present", func(t *testing.T) {
		ctx := newContext("--target-path", "/mnt/bench", "--tests", "tests.yaml", "--setup-id", "rig-1")
		require.NoError(t, CheckRequired(ctx))
	})

	for _, missing := range []string{"target-path", "tests", "setup-id"} {
		t.Run(fmt.Sprintf("missing %s", missing), func(t *testing.T) {
			var args []string
			for name, value := range map[string]string{
				"target-path": "/mnt/bench",
				"tests":       "tests.yaml",
				"setup-id":    "rig-1",
			} {
				if name == missing {
					continue
				}
				args = append(args, "--"+name, value)
			}
			err := CheckRequired(newContext(args...))
			require.Error(t, err)
			assert.Contains(t, err.Error(), missing)
		})
	}
}
