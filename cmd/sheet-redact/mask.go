package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ironsheep/sheet-redact/internal/config"
	"github.com/ironsheep/sheet-redact/internal/logging"
	"github.com/ironsheep/sheet-redact/internal/pipeline"
	"github.com/ironsheep/sheet-redact/internal/report"
)

func runMask(cmd *cobra.Command, f *maskFlags) error {
	cfg, err := loadConfig(cmd, f.apply)
	if err != nil {
		return err
	}
	if f.input == "" {
		return &configError{errors.New("--input is required")}
	}
	if _, err := os.Stat(f.input); err != nil {
		return fmt.Errorf("input workbook: %w", err)
	}
	output := f.output
	if output == "" {
		output = defaultOutputPath(f.input)
	}
	if sameFile(f.input, output) {
		return &configError{errors.New("output must differ from input")}
	}

	logger := newLogger()
	summary, err := maskWorkbook(cmd.Context(), cfg, f.input, output, logger)
	if summary != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d images, %d masked, %d clean, %d failed, %d regions -> %s\n",
			f.input, len(summary.Outcomes),
			summary.Count(pipeline.StatusMasked),
			summary.Count(pipeline.StatusClean),
			summary.Count(pipeline.StatusFailed)+summary.Count(pipeline.StatusSkipped),
			summary.Redactions(), output)
	}
	return err
}

// maskWorkbook runs one workbook end to end, including reporting. It is
// shared by the mask command and the queue worker.
func maskWorkbook(ctx context.Context, cfg *config.Config, input, output string, logger *logging.Logger) (*pipeline.Summary, error) {
	reg, err := buildRegistry(cfg)
	if err != nil {
		return nil, err
	}
	eng, err := buildEngine(cfg)
	if err != nil {
		return nil, err
	}
	orch, err := pipeline.New(cfg, nil, eng, reg, logger.With("pipeline"))
	if err != nil {
		return nil, &configError{err}
	}

	summary, runErr := orch.Run(ctx, input, output)
	if summary == nil {
		return nil, runErr
	}
	// Reports are written for canceled runs too; the output is valid.
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return summary, runErr
	}

	rep := report.New(summary, reg.Names())
	if cfg.ReportPath != "" {
		if err := report.WriteJSON(cfg.ReportPath, rep); err != nil {
			return summary, err
		}
		logger.Info("wrote report", "path", cfg.ReportPath, "run", rep.RunID)
	}
	if cfg.AuditDSN != "" {
		if err := writeAudit(context.WithoutCancel(ctx), cfg.AuditDSN, rep); err != nil {
			logger.Warn("audit trail not written", "error", err)
		}
	}
	return summary, runErr
}

func writeAudit(ctx context.Context, dsn string, rep *report.Report) error {
	sink, err := report.NewPostgresSink(ctx, dsn)
	if err != nil {
		return err
	}
	defer sink.Close()
	if err := sink.EnsureSchema(ctx); err != nil {
		return err
	}
	return sink.Record(ctx, rep)
}

func defaultOutputPath(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_masked" + ext
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return absA == absB
}
