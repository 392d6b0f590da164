// Package logging provides the diagnostics reporter shared by every pixeldiff
// package. A nil *Reporter is valid and discards everything.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Verbosity levels
const (
	VerbosityError = iota
	VerbosityWarning
	VerbosityInfo
	VerbosityDebug
	VerbosityTrace
)

// LevelTrace is below slog.LevelDebug and only shown at VerbosityTrace.
const LevelTrace = slog.LevelDebug - 4

// Reporter writes leveled diagnostics to a console stream and, once
// SetupLogger has been called, to a log file as well.
type Reporter struct {
	mu        sync.Mutex
	console   io.Writer
	logFile   *os.File
	verbosity int
	logger    *slog.Logger
}

// New creates a Reporter writing to w. Messages above verbosity are dropped.
func New(w io.Writer, verbosity int) *Reporter {
	r := &Reporter{console: w, verbosity: verbosity}
	r.rebuild()
	return r
}

// Discard returns a Reporter that drops all output.
func Discard() *Reporter {
	return New(io.Discard, VerbosityError)
}

// LevelFor maps a verbosity (0-4) onto an slog level.
func LevelFor(verbosity int) slog.Level {
	switch {
	case verbosity <= VerbosityError:
		return slog.LevelError
	case verbosity == VerbosityWarning:
		return slog.LevelWarn
	case verbosity == VerbosityInfo:
		return slog.LevelInfo
	case verbosity == VerbosityDebug:
		return slog.LevelDebug
	}
	return LevelTrace
}

func (r *Reporter) rebuild() {
	var w io.Writer = r.console
	if r.logFile != nil {
		w = io.MultiWriter(r.console, r.logFile)
	}
	r.logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: LevelFor(r.verbosity)}))
}

// SetupLogger additionally appends all messages to the file at logFilePath.
func (r *Reporter) SetupLogger(logFilePath string) error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.logFile != nil {
		return nil
	}

	f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	r.logFile = f
	r.rebuild()
	r.logger.Info("pixeldiff log started", "at", time.Now().Format(time.RFC3339))
	return nil
}

// Close closes the log file, if any.
func (r *Reporter) Close() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.logFile != nil {
		r.logger.Info("pixeldiff log closed", "at", time.Now().Format(time.RFC3339))
		r.logFile.Close()
		r.logFile = nil
		r.rebuild()
	}
}

// Verbosity returns the configured verbosity.
func (r *Reporter) Verbosity() int {
	if r == nil {
		return VerbosityError
	}
	return r.verbosity
}

func (r *Reporter) logf(level slog.Level, format string, args ...any) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger.Log(context.Background(), level, fmt.Sprintf(format, args...))
}

// TraceLog logs per-pixel or per-entry detail.
func (r *Reporter) TraceLog(format string, args ...any) {
	r.logf(LevelTrace, format, args...)
}

// DebugLog logs a debug message.
func (r *Reporter) DebugLog(format string, args ...any) {
	r.logf(slog.LevelDebug, format, args...)
}

// LogInfo logs an information message.
func (r *Reporter) LogInfo(format string, args ...any) {
	r.logf(slog.LevelInfo, format, args...)
}

// LogWarning logs a warning message.
func (r *Reporter) LogWarning(format string, args ...any) {
	r.logf(slog.LevelWarn, format, args...)
}

// LogError logs an error message.
func (r *Reporter) LogError(format string, args ...any) {
	r.logf(slog.LevelError, format, args...)
}

// LogImageProcessed logs the outcome of processing one image.
func (r *Reporter) LogImageProcessed(path string, success bool, errMsg string) {
	if success {
		r.logf(slog.LevelDebug, "PROCESSED: %s", path)
	} else {
		r.logf(slog.LevelWarn, "FAILED: %s - Error: %s", path, errMsg)
	}
}
