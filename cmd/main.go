package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	loadtest "github.com/perfwatch/fsload"
	"github.com/perfwatch/fsload/exitcodes"
	"github.com/perfwatch/fsload/flags"
	"github.com/perfwatch/fsload/logging"
	"github.com/perfwatch/fsload/service"
)

var (
	Version   = "v0.3.0"
	GitCommit = ""
	GitDate   = ""
)

// shutdownTimeout bounds the drain of in-flight goroutines on exit.
const shutdownTimeout = 30 * time.Second

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "fsload"
	app.Usage = "Filesystem Load Test Service"
	app.Description = "fsload runs recurring filesystem workloads against a target path and records their timings"
	app.Flags = flags.Flags
	app.Action = run
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			if loadtest.IsRuntimeError(err) {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.RuntimeErr))
			} else {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.Failure))
			}
		}
	}

	if err := app.Run(os.Args); err != nil {
		// ExitErrHandler already reported; this is a safety net.
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitcodes.Failure)
	}
}

func run(ctx *cli.Context) error {
	logger := logging.InitLogger(ctx.String(flags.LogLevel.Name), ctx.String(flags.LogFile.Name))

	cfg, err := loadtest.NewConfig(ctx, logger)
	if err != nil {
		return loadtest.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	// Interrupts are honored cooperatively, at test boundaries.
	sigCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Sidecar healthz and metrics servers.
	svc := service.New()
	svc.Start(sigCtx)
	defer svc.Shutdown()

	shutdownCh := make(chan error, 1)
	app, err := loadtest.New(sigCtx, cfg, Version, func(err error) {
		shutdownCh <- err
	})
	if err != nil {
		return loadtest.NewRuntimeError(fmt.Errorf("failed to create service: %w", err))
	}

	if err := app.Start(sigCtx); err != nil {
		return err
	}

	var runErr error
	select {
	case runErr = <-shutdownCh:
		// Run-once completed, or the service requested shutdown.
	case <-sigCtx.Done():
		logger.Info().Msg("received interrupt signal, stopping test loop")
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		logger.Warn().Err(err).Msg("error stopping service")
	}
	if err := app.WaitForShutdown(stopCtx); err != nil {
		logger.Warn().Err(err).Msg("shutdown did not complete cleanly")
	}

	return runErr
}
