// Package logging wires log/slog for every grainfsm package: a
// charmbracelet/log-backed text handler for interactive use, a plain
// slog.JSONHandler for machine-readable output, both driven by the same
// level string so callers never import charmbracelet/log directly.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// SetupHandlerText configures a charmbracelet/log-backed text handler
// at logLevel, writing to writer (os.Stderr if nil).
func SetupHandlerText(logLevel string, writer io.Writer) slog.Handler {
	if writer == nil {
		writer = os.Stderr
	}

	reportCaller := false
	reportTimestamp := false
	lvl := log.InfoLevel
	switch strings.ToLower(logLevel) {
	case "trace":
		reportCaller = true
		reportTimestamp = true
		lvl = log.DebugLevel
	case "debug":
		reportTimestamp = true
		lvl = log.DebugLevel
	case "info":
		lvl = log.InfoLevel
	case "warn", "warning":
		lvl = log.WarnLevel
	case "error":
		lvl = log.ErrorLevel
	}

	return log.NewWithOptions(writer, log.Options{
		ReportTimestamp: reportTimestamp,
		ReportCaller:    reportCaller,
		Level:           lvl,
	})
}

// SetupHandlerJSON configures a plain slog.JSONHandler at logLevel,
// writing to writer (os.Stdout if nil).
func SetupHandlerJSON(logLevel string, writer io.Writer) slog.Handler {
	if writer == nil {
		writer = os.Stdout
	}

	reportCaller := false
	var level slog.Level

	switch strings.ToLower(logLevel) {
	case "trace":
		reportCaller = true
		level = slog.LevelDebug
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	return slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level:     level,
		AddSource: reportCaller,
	})
}

// SetupLogger installs a text-handler logger at logLevel as slog's
// package default, for callers (cmd/grainfsmctl) that don't construct
// their own *slog.Logger graph.
func SetupLogger(logLevel string) {
	slog.SetDefault(slog.New(SetupHandlerText(logLevel, nil)))
}

// ForComponent returns a logger scoped under group, the convention
// every grainfsm package constructor follows when none is supplied
// explicitly (e.g. registry.New, eventlog.New).
func ForComponent(group string) *slog.Logger {
	return slog.Default().WithGroup(group)
}
