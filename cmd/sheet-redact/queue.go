package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ironsheep/sheet-redact/internal/config"
	"github.com/ironsheep/sheet-redact/internal/pipeline"
	"github.com/ironsheep/sheet-redact/internal/queue"
)

type workerFlags struct {
	maskFlags
	redisURL string
	queue    string
}

func (f *workerFlags) apply(changed func(string) bool, cfg *config.Config) error {
	if err := f.maskFlags.apply(changed, cfg); err != nil {
		return err
	}
	if changed("redis-url") {
		cfg.RedisURL = f.redisURL
	}
	if changed("queue") {
		cfg.Queue = f.queue
	}
	return nil
}

func bindQueueFlags(cmd *cobra.Command, redisURL, queueName *string) {
	cmd.Flags().StringVar(redisURL, "redis-url", "redis://localhost:6379/0", "Redis URL")
	cmd.Flags().StringVar(queueName, "queue", "sheet-redact", "Queue name")
}

func newWorkerCmd() *cobra.Command {
	f := &workerFlags{}
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Process queued masking jobs from Redis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f.apply)
			if err != nil {
				return err
			}
			logger := newLogger()

			status, err := queue.NewRedisStatus(cmd.Context(), cfg.RedisURL, cfg.Queue)
			if err != nil {
				return err
			}
			defer status.Close()

			run := func(ctx context.Context, p queue.MaskPayload) (*pipeline.Summary, error) {
				jobCfg := *cfg
				if len(p.Sheets) > 0 {
					jobCfg.Sheets = p.Sheets
				}
				if p.ReportPath != "" {
					jobCfg.ReportPath = p.ReportPath
				}
				return maskWorkbook(ctx, &jobCfg, p.Input, p.Output, logger.With(p.JobID))
			}

			w, err := queue.NewWorker(cfg, queue.NewHandler(run, status, logger.With("jobs")), logger.With("worker"))
			if err != nil {
				return err
			}
			return w.Run()
		},
	}
	bindMaskFlags(cmd, &f.maskFlags)
	bindQueueFlags(cmd, &f.redisURL, &f.queue)
	return cmd
}

type enqueueFlags struct {
	input    string
	output   string
	sheets   []string
	report   string
	redisURL string
	queue    string
}

func (f *enqueueFlags) apply(changed func(string) bool, cfg *config.Config) error {
	if changed("redis-url") {
		cfg.RedisURL = f.redisURL
	}
	if changed("queue") {
		cfg.Queue = f.queue
	}
	return nil
}

func newEnqueueCmd() *cobra.Command {
	f := &enqueueFlags{}
	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Queue a workbook for a background worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f.apply)
			if err != nil {
				return err
			}
			if f.input == "" {
				return &configError{errors.New("--input is required")}
			}
			output := f.output
			if output == "" {
				output = defaultOutputPath(f.input)
			}

			client, err := queue.NewClient(cfg.RedisURL, cfg.Queue)
			if err != nil {
				return &configError{err}
			}
			defer client.Close()

			id, err := client.Enqueue(cmd.Context(), queue.MaskPayload{
				Input:      f.input,
				Output:     output,
				ReportPath: f.report,
				Sheets:     f.sheets,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	cmd.Flags().StringVarP(&f.input, "input", "i", "", "Input workbook, as seen by the worker")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Output workbook, as seen by the worker")
	cmd.Flags().StringSliceVar(&f.sheets, "sheets", nil, "Sheets to process")
	cmd.Flags().StringVar(&f.report, "dump-json", "", "Report path, as seen by the worker")
	bindQueueFlags(cmd, &f.redisURL, &f.queue)
	return cmd
}
