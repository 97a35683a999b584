// Package logging builds the service logger: console output, multiplexed
// with an optional rotating log file.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logMaxSizeMB  = 50
	logMaxBackups = 3
	logMaxAgeDays = 28
)

// InitLogger creates the service logger. Output goes to the console
// (human-readable on a TTY, JSON otherwise) and, when logFile is non-empty,
// to a rotating file as well. The global zerolog logger is configured to
// match so package-level log calls share the same formatting.
func InitLogger(level string, logFile string) zerolog.Logger {
	writer := selectOutput()
	if logFile != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    logMaxSizeMB,
			MaxBackups: logMaxBackups,
			MaxAge:     logMaxAgeDays,
		}
		writer = zerolog.MultiLevelWriter(writer, fileWriter)
	}

	logger := zerolog.New(writer).Level(selectLevel(level)).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

// selectLevel parses the configured level name, defaulting to info.
func selectLevel(level string) zerolog.Level {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}

// selectOutput picks console formatting for TTYs and JSON everywhere else.
func selectOutput() io.Writer {
	if term.IsTerminal(int(os.Stderr.Fd())) && os.Getenv("NO_COLOR") == "" {
		return zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.Kitchen,
		}
	}
	return os.Stderr
}
