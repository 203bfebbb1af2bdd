package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/ironsheep/sheet-redact/internal/config"
	"github.com/ironsheep/sheet-redact/internal/patterns"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, exitOK},
		{"config", &configError{errors.New("bad flag")}, exitConfig},
		{"wrapped config", fmt.Errorf("setup: %w", &configError{errors.New("bad")}), exitConfig},
		{"patterns", &patterns.ConfigError{Pattern: "(", Err: errors.New("missing )")}, exitConfig},
		{"runtime", errors.New("disk full"), exitFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func parseMaskFlags(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	f := &maskFlags{}
	bindMaskFlags(cmd, f)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return loadConfig(cmd, f.apply)
}

func TestMaskFlags_Override(t *testing.T) {
	t.Setenv(config.EnvPadding, "12")
	t.Setenv(config.EnvLang, "deu")

	cfg, err := parseMaskFlags(t,
		"--mask-padding=9",
		"--on-error=skip",
		"--no-legacy-bridge",
		"--sheets=Data,Logs",
		"--ocr-timeout=5s",
		"--headers=Cookie,Host",
	)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Padding != 9 {
		t.Errorf("Padding: got %d, want 9 (flag beats env)", cfg.Padding)
	}
	if cfg.Lang != "deu" {
		t.Errorf("Lang: got %s, want deu from env", cfg.Lang)
	}
	if cfg.OnError != config.PolicySkip {
		t.Errorf("OnError: got %s", cfg.OnError)
	}
	if cfg.LegacyBridge {
		t.Error("expected legacy bridge disabled")
	}
	if len(cfg.Sheets) != 2 || cfg.Sheets[1] != "Logs" {
		t.Errorf("Sheets: got %v", cfg.Sheets)
	}
	if cfg.OCRTimeout != 5*time.Second {
		t.Errorf("OCRTimeout: got %s", cfg.OCRTimeout)
	}
	if len(cfg.Headers) != 2 {
		t.Errorf("Headers: got %v", cfg.Headers)
	}
}

func TestMaskFlags_Invalid(t *testing.T) {
	tests := [][]string{
		{"--on-error=retry"},
		{"--concurrency=0"},
		{"--mask-padding=-1"},
		{"--ocr-backend=cloud"},
	}
	for _, args := range tests {
		t.Run(args[0], func(t *testing.T) {
			_, err := parseMaskFlags(t, args...)
			if exitCode(err) != exitConfig {
				t.Errorf("expected a config error, got %v", err)
			}
		})
	}
}

func TestBuildRegistry(t *testing.T) {
	dir := t.TempDir()
	headersFile := filepath.Join(dir, "headers.txt")
	writeFile(t, headersFile, "# extra\nX-Session\n")
	patternsFile := filepath.Join(dir, "patterns.json")
	writeFile(t, patternsFile, `["sk-[A-Za-z0-9]{8,}"]`)

	cfg := config.Default()
	cfg.Headers = []string{"Cookie"}
	cfg.HeadersFile = headersFile
	cfg.PatternsFile = patternsFile

	reg, err := buildRegistry(cfg)
	if err != nil {
		t.Fatalf("buildRegistry failed: %v", err)
	}
	if reg.Len() != 3 {
		t.Errorf("expected 3 patterns, got %d (%v)", reg.Len(), reg.Names())
	}
	if len(reg.Match("key sk-abcdefgh12")) != 1 {
		t.Error("expected the file regex to match")
	}
}

func TestRunMask_RequiresInput(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{})
	err := root.ExecuteContext(context.Background())
	if exitCode(err) != exitConfig {
		t.Errorf("expected a config error, got %v", err)
	}
}

func TestDefaultOutputPath(t *testing.T) {
	tests := []struct{ in, want string }{
		{"report.xlsx", "report_masked.xlsx"},
		{filepath.Join("dir", "old.xls"), filepath.Join("dir", "old_masked.xls")},
	}
	for _, tt := range tests {
		if got := defaultOutputPath(tt.in); got != tt.want {
			t.Errorf("defaultOutputPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
