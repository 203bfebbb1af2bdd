package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{" warn ", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"info", LevelInfo},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLogger_LevelGate(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "test", LevelWarn)

	l.Debug("hidden debug")
	l.Info("hidden info")
	l.Warn("shown warn", "image", "Sheet1#1")
	l.Error("shown error")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("messages below level were written: %q", out)
	}
	if !strings.Contains(out, "[WARN] shown warn image=Sheet1#1") {
		t.Errorf("warn line missing or malformed: %q", out)
	}
	if !strings.Contains(out, "[ERROR] shown error") {
		t.Errorf("error line missing: %q", out)
	}
	if !strings.Contains(out, "[test] ") {
		t.Errorf("prefix missing: %q", out)
	}
}

func TestLogger_OddKeyValues(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "", LevelDebug)
	l.Info("msg", "a", 1, "dangling")

	if !strings.Contains(buf.String(), "a=1 dangling=?") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "root", LevelDebug).With("pipeline")
	l.Debug("x")

	if !strings.Contains(buf.String(), "[root/pipeline] ") {
		t.Errorf("child prefix missing: %q", buf.String())
	}
}

func TestDiscard(t *testing.T) {
	l := Discard()
	if l.Enabled(LevelError) {
		t.Error("Discard logger should not enable any level")
	}
	l.Error("nothing")
}
