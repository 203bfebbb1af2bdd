package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ironsheep/sheet-redact/internal/config"
	"github.com/ironsheep/sheet-redact/internal/logging"
	"github.com/ironsheep/sheet-redact/internal/ocr"
	"github.com/ironsheep/sheet-redact/internal/patterns"
)

// engineFlags are shared by every command that runs OCR.
type engineFlags struct {
	lang          string
	tesseractCmd  string
	ocrBackend    string
	ocrTimeout    time.Duration
	minConfidence float64
}

// patternFlags are shared by every command that detects sensitive text.
type patternFlags struct {
	headers          []string
	headersFile      string
	includeDefaults  bool
	patterns         []string
	patternsFile     string
	requireSeparator bool
}

type maskFlags struct {
	engineFlags
	patternFlags

	input          string
	output         string
	sheets         []string
	maskPadding    int
	maskColor      string
	concurrency    int
	onError        string
	markFailures   bool
	noLegacyBridge bool
	soffice        string
	dumpJSON       string
	auditDSN       string
}

func bindEngineFlags(cmd *cobra.Command, f *engineFlags) {
	fs := cmd.Flags()
	fs.StringVar(&f.lang, "lang", "eng", "Tesseract language, e.g. eng or eng+deu")
	fs.StringVar(&f.tesseractCmd, "tesseract-cmd", "", "Path to the tesseract executable (default: auto-detect)")
	fs.StringVar(&f.ocrBackend, "ocr-backend", "auto", "OCR backend: auto, library or command")
	fs.DurationVar(&f.ocrTimeout, "ocr-timeout", 60*time.Second, "Maximum OCR time per image")
	fs.Float64Var(&f.minConfidence, "min-confidence", 0, "Ignore matches whose words all score below this (0-100)")
}

func bindPatternFlags(cmd *cobra.Command, f *patternFlags) {
	fs := cmd.Flags()
	fs.StringSliceVar(&f.headers, "headers", nil, "Comma-separated header names to mask")
	fs.StringVar(&f.headersFile, "headers-file", "", "File with header names (JSON list or one per line)")
	fs.BoolVar(&f.includeDefaults, "include-default-headers", false, "Add the built-in header list to --headers")
	fs.StringArrayVar(&f.patterns, "patterns", nil, "Regular expression to mask (repeatable)")
	fs.StringVar(&f.patternsFile, "patterns-file", "", "JSON file with regular expressions")
	fs.BoolVar(&f.requireSeparator, "require-separator", false, "Only match headers followed by ':' or '='")
}

func bindMaskFlags(cmd *cobra.Command, f *maskFlags) {
	bindEngineFlags(cmd, &f.engineFlags)
	bindPatternFlags(cmd, &f.patternFlags)

	fs := cmd.Flags()
	fs.StringVarP(&f.input, "input", "i", "", "Input workbook (.xlsx, .xlsm or .xls)")
	fs.StringVarP(&f.output, "output", "o", "", "Output workbook (default: <input>_masked.<ext>)")
	fs.StringSliceVar(&f.sheets, "sheets", nil, `Sheets to process, comma-separated, or "all"`)
	fs.IntVar(&f.maskPadding, "mask-padding", 4, "Pixels added around each masked region")
	fs.StringVar(&f.maskColor, "mask-color", "#000000", "Mask fill color (hex or name)")
	fs.IntVar(&f.concurrency, "concurrency", 0, "Images processed in parallel (default: number of CPUs)")
	fs.StringVar(&f.onError, "on-error", "passthrough", "Failed image policy: passthrough, skip or fail")
	fs.BoolVar(&f.markFailures, "mark-failures", true, "Draw a warning border on images kept after a failure")
	fs.BoolVar(&f.noLegacyBridge, "no-legacy-bridge", false, "Refuse .xls input instead of converting it")
	fs.StringVar(&f.soffice, "soffice", "soffice", "Office executable used to convert .xls files")
	fs.StringVar(&f.dumpJSON, "dump-json", "", "Write a JSON report of every image to this path")
	fs.StringVar(&f.auditDSN, "audit-dsn", "", "Postgres URL for the audit trail")
}

// loadConfig reads the environment and applies the flags the user set.
func loadConfig(cmd *cobra.Command, apply func(changed func(string) bool, cfg *config.Config) error) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, &configError{err}
	}
	if err := apply(cmd.Flags().Changed, cfg); err != nil {
		return nil, &configError{err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &configError{err}
	}
	return cfg, nil
}

func (f *engineFlags) apply(changed func(string) bool, cfg *config.Config) {
	if changed("lang") {
		cfg.Lang = f.lang
	}
	if changed("tesseract-cmd") {
		cfg.TesseractPath = f.tesseractCmd
	}
	if changed("ocr-backend") {
		cfg.OCRBackend = f.ocrBackend
	}
	if changed("ocr-timeout") {
		cfg.OCRTimeout = f.ocrTimeout
	}
	if changed("min-confidence") {
		cfg.MinConfidence = f.minConfidence
	}
}

func (f *patternFlags) apply(changed func(string) bool, cfg *config.Config) {
	cfg.Headers = f.headers
	cfg.HeadersFile = f.headersFile
	cfg.IncludeDefaults = f.includeDefaults
	cfg.Patterns = f.patterns
	cfg.PatternsFile = f.patternsFile
	if changed("require-separator") {
		cfg.RequireSeparator = f.requireSeparator
	}
}

func (f *maskFlags) apply(changed func(string) bool, cfg *config.Config) error {
	f.engineFlags.apply(changed, cfg)
	f.patternFlags.apply(changed, cfg)

	cfg.Sheets = f.sheets
	if changed("mask-padding") {
		cfg.Padding = f.maskPadding
	}
	if changed("mask-color") {
		cfg.MaskColor = f.maskColor
	}
	if changed("concurrency") {
		cfg.Concurrency = f.concurrency
	}
	if changed("on-error") {
		p, err := config.ParseErrorPolicy(f.onError)
		if err != nil {
			return err
		}
		cfg.OnError = p
	}
	if changed("mark-failures") {
		cfg.MarkFailures = f.markFailures
	}
	if changed("no-legacy-bridge") {
		cfg.LegacyBridge = !f.noLegacyBridge
	}
	if changed("soffice") {
		cfg.SofficePath = f.soffice
	}
	if changed("dump-json") {
		cfg.ReportPath = f.dumpJSON
	}
	if changed("audit-dsn") {
		cfg.AuditDSN = f.auditDSN
	}
	return nil
}

// buildRegistry compiles the pattern set from flags, files and defaults.
func buildRegistry(cfg *config.Config) (*patterns.Registry, error) {
	headers := append([]string{}, cfg.Headers...)
	if cfg.HeadersFile != "" {
		fromFile, err := patterns.LoadHeaders(cfg.HeadersFile)
		if err != nil {
			return nil, err
		}
		headers = append(headers, fromFile...)
	}

	regexes := patterns.RegexSpecs(cfg.Patterns)
	if cfg.PatternsFile != "" {
		fromFile, err := patterns.LoadRegexes(cfg.PatternsFile)
		if err != nil {
			return nil, err
		}
		regexes = append(regexes, fromFile...)
	}

	return patterns.Compile(patterns.Options{
		Headers:          headers,
		Regexes:          regexes,
		IncludeDefaults:  cfg.IncludeDefaults,
		RequireSeparator: cfg.RequireSeparator,
	})
}

func buildEngine(cfg *config.Config) (ocr.Engine, error) {
	opts := ocr.DefaultOptions()
	opts.Backend = cfg.OCRBackend
	opts.BinaryPath = cfg.TesseractPath
	opts.TessdataPrefix = cfg.TessdataPrefix
	opts.MaxInFlight = cfg.Concurrency
	eng, err := ocr.New(opts)
	if err != nil {
		return nil, &configError{fmt.Errorf("ocr backend: %w", err)}
	}
	return eng, nil
}

func newLogger() *logging.Logger {
	return logging.New("sheet-redact")
}
