// Package config builds the immutable run configuration for sheet-redact.
//
// Values come from three layers, later layers winning: built-in defaults,
// environment variables (optionally loaded from a .env file), and command-line
// flags applied by the caller. Once a Config has been validated it is shared
// read-only by every pipeline worker.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrorPolicy selects how a per-image failure is handled.
type ErrorPolicy string

const (
	// PolicyPassthrough keeps the original image, optionally flagged with a warning border.
	PolicyPassthrough ErrorPolicy = "passthrough"
	// PolicySkip removes the failed image from the output workbook.
	PolicySkip ErrorPolicy = "skip"
	// PolicyFail aborts the run without writing output.
	PolicyFail ErrorPolicy = "fail"
)

// ParseErrorPolicy validates a policy name.
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch p := ErrorPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyPassthrough, PolicySkip, PolicyFail:
		return p, nil
	default:
		return "", fmt.Errorf("unknown error policy %q (want skip, fail or passthrough)", s)
	}
}

// Environment variable names.
const (
	EnvPrefix        = "SHEET_REDACT_"
	EnvLang          = EnvPrefix + "LANG"
	EnvPadding       = EnvPrefix + "MASK_PADDING"
	EnvMaskColor     = EnvPrefix + "MASK_COLOR"
	EnvTesseract     = EnvPrefix + "TESSERACT_CMD"
	EnvTessdata      = EnvPrefix + "TESSDATA_PREFIX"
	EnvOCRBackend    = EnvPrefix + "OCR_BACKEND"
	EnvOCRTimeout    = EnvPrefix + "OCR_TIMEOUT"
	EnvConcurrency   = EnvPrefix + "CONCURRENCY"
	EnvOnError       = EnvPrefix + "ON_ERROR"
	EnvMinConfidence = EnvPrefix + "MIN_CONFIDENCE"
	EnvSoffice       = EnvPrefix + "SOFFICE"
	EnvLegacyBridge  = EnvPrefix + "LEGACY_BRIDGE"
	EnvAuditDSN      = EnvPrefix + "AUDIT_DSN"
	EnvRedisURL      = EnvPrefix + "REDIS_URL"
	EnvQueue         = EnvPrefix + "QUEUE"
)

// Config holds every setting a run needs. Treat it as read-only after Validate.
type Config struct {
	// Sheets limits processing to the named sheets. Empty means every sheet.
	Sheets []string

	// Pattern sources.
	Headers          []string
	HeadersFile      string
	Patterns         []string
	PatternsFile     string
	IncludeDefaults  bool
	RequireSeparator bool

	// OCR.
	Lang           string
	OCRBackend     string
	TesseractPath  string
	TessdataPrefix string
	OCRTimeout     time.Duration

	// Detection and masking.
	MinConfidence float64
	Padding       int
	MaskColor     string
	MarkFailures  bool

	// Orchestration.
	Concurrency int
	OnError     ErrorPolicy

	// Legacy .xls bridge.
	LegacyBridge bool
	SofficePath  string

	// Reporting and batch mode.
	ReportPath string
	AuditDSN   string
	RedisURL   string
	Queue      string
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Lang:          "eng",
		OCRBackend:    "auto",
		OCRTimeout:    60 * time.Second,
		Padding:       4,
		MaskColor:     "#000000",
		MarkFailures:  true,
		Concurrency:   runtime.NumCPU(),
		OnError:       PolicyPassthrough,
		LegacyBridge:  true,
		SofficePath:   "soffice",
		RedisURL:      "redis://localhost:6379/0",
		Queue:         "sheet-redact",
		MinConfidence: 0,
	}
}

// Load reads an optional .env file and applies environment overrides on top
// of Default. envFiles defaults to ".env"; a missing file is not an error.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	cfg := Default()
	cfg.Lang = getEnvOrDefault(EnvLang, cfg.Lang)
	cfg.Padding = getEnvAsIntOrDefault(EnvPadding, cfg.Padding)
	cfg.MaskColor = getEnvOrDefault(EnvMaskColor, cfg.MaskColor)
	cfg.TesseractPath = getEnvOrDefault(EnvTesseract, cfg.TesseractPath)
	cfg.TessdataPrefix = getEnvOrDefault(EnvTessdata, cfg.TessdataPrefix)
	cfg.OCRBackend = getEnvOrDefault(EnvOCRBackend, cfg.OCRBackend)
	cfg.OCRTimeout = getEnvAsDurationOrDefault(EnvOCRTimeout, cfg.OCRTimeout)
	cfg.Concurrency = getEnvAsIntOrDefault(EnvConcurrency, cfg.Concurrency)
	cfg.MinConfidence = getEnvAsFloatOrDefault(EnvMinConfidence, cfg.MinConfidence)
	cfg.SofficePath = getEnvOrDefault(EnvSoffice, cfg.SofficePath)
	cfg.LegacyBridge = getEnvAsBoolOrDefault(EnvLegacyBridge, cfg.LegacyBridge)
	cfg.AuditDSN = getEnvOrDefault(EnvAuditDSN, cfg.AuditDSN)
	cfg.RedisURL = getEnvOrDefault(EnvRedisURL, cfg.RedisURL)
	cfg.Queue = getEnvOrDefault(EnvQueue, cfg.Queue)

	if v := os.Getenv(EnvOnError); v != "" {
		p, err := ParseErrorPolicy(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvOnError, err)
		}
		cfg.OnError = p
	}

	return cfg, nil
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Lang) == "" {
		errs = append(errs, errors.New("OCR language must not be empty"))
	}
	if c.Padding < 0 {
		errs = append(errs, fmt.Errorf("mask padding must be >= 0, got %d", c.Padding))
	}
	if c.Concurrency < 1 || c.Concurrency > 256 {
		errs = append(errs, fmt.Errorf("concurrency must be between 1 and 256, got %d", c.Concurrency))
	}
	if c.OCRTimeout <= 0 {
		errs = append(errs, fmt.Errorf("OCR timeout must be positive, got %s", c.OCRTimeout))
	}
	if c.MinConfidence < 0 || c.MinConfidence > 100 {
		errs = append(errs, fmt.Errorf("min confidence must be between 0 and 100, got %g", c.MinConfidence))
	}
	if _, err := ParseErrorPolicy(string(c.OnError)); err != nil {
		errs = append(errs, err)
	}
	switch c.OCRBackend {
	case "auto", "library", "command":
	default:
		errs = append(errs, fmt.Errorf("unknown OCR backend %q (want auto, library or command)", c.OCRBackend))
	}
	if c.LegacyBridge && c.SofficePath == "" {
		errs = append(errs, errors.New("legacy bridge enabled but no office binary configured"))
	}

	return errors.Join(errs...)
}

// AllSheets reports whether every sheet should be processed.
func (c *Config) AllSheets() bool {
	if len(c.Sheets) == 0 {
		return true
	}
	for _, s := range c.Sheets {
		if strings.EqualFold(s, "all") {
			return true
		}
	}
	return false
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDurationOrDefault accepts Go durations ("90s") or bare seconds ("90").
func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
