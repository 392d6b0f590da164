package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLevelFor(t *testing.T) {
	tests := []struct {
		verbosity int
		want      slog.Level
	}{
		{-1, slog.LevelError},
		{0, slog.LevelError},
		{1, slog.LevelWarn},
		{2, slog.LevelInfo},
		{3, slog.LevelDebug},
		{4, LevelTrace},
		{9, LevelTrace},
	}
	for _, tt := range tests {
		if got := LevelFor(tt.verbosity); got != tt.want {
			t.Errorf("LevelFor(%d) = %v, want %v", tt.verbosity, got, tt.want)
		}
	}
}

func TestReporterFiltersByVerbosity(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, VerbosityWarning)
	r.DebugLog("hidden %d", 1)
	r.LogInfo("hidden too")
	r.LogWarning("shown %s", "warning")
	r.LogError("shown error")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("output contains filtered messages: %q", out)
	}
	if !strings.Contains(out, "shown warning") || !strings.Contains(out, "shown error") {
		t.Errorf("output missing messages: %q", out)
	}
}

func TestNilReporter(t *testing.T) {
	var r *Reporter
	r.LogError("nothing happens")
	r.LogImageProcessed("a.png", false, "bad")
	if err := r.SetupLogger("unused"); err != nil {
		t.Errorf("SetupLogger on nil = %v", err)
	}
	r.Close()
	if r.Verbosity() != VerbosityError {
		t.Errorf("Verbosity() = %d", r.Verbosity())
	}
}

func TestSetupLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pixeldiff.log")
	r := New(&bytes.Buffer{}, VerbosityDebug)
	if err := r.SetupLogger(path); err != nil {
		t.Fatal(err)
	}
	r.LogImageProcessed("b.png", false, "decode failed")
	r.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "FAILED: b.png - Error: decode failed") {
		t.Errorf("log file = %q", data)
	}
}
