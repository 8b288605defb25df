package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestStdLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelWarning, false)

	log.Debug("comp", "hidden %d", 1)
	log.Info("comp", "hidden %d", 2)
	log.Warning("comp", "shown %d", 3)
	log.Error("comp", "shown %d", 4)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("expected debug/info suppressed at LevelWarning, got %q", out)
	}
	if !strings.Contains(out, "WARNING|comp|shown 3") {
		t.Fatalf("missing warning line, got %q", out)
	}
	if !strings.Contains(out, "ERROR|comp|shown 4") {
		t.Fatalf("missing error line, got %q", out)
	}
}

func TestStdLoggerDefaultsToStderr(t *testing.T) {
	log := New(nil, LevelInfo, false)
	if log.out == nil {
		t.Fatal("expected a non-nil default writer")
	}
}

func TestNoOpDiscardsEverything(t *testing.T) {
	log := NoOp()
	// Must not panic and must be silently inert; nothing to assert on
	// output since there is no sink.
	log.Error("comp", "x")
	log.Warning("comp", "x")
	log.Info("comp", "x")
	log.Debug("comp", "x")
	log.Trace("comp", "x")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"error":   LevelError,
		"warning": LevelWarning,
		"warn":    LevelWarning,
		"info":    LevelInfo,
		"debug":   LevelDebug,
		"trace":   LevelTrace,
		"bogus":   LevelInfo,
		"":        LevelInfo,
	}
	for name, want := range tests {
		if got := ParseLevel(name); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", name, got, want)
		}
	}
}
