// Command sheet-redact masks sensitive text in pictures embedded in
// spreadsheet workbooks.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ironsheep/sheet-redact/internal/patterns"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Exit codes.
const (
	exitOK     = 0
	exitFailed = 1
	exitConfig = 2
)

// configError marks errors caused by bad flags, environment or pattern
// configuration.
type configError struct {
	err error
}

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *configError
	var pe *patterns.ConfigError
	if errors.As(err, &ce) || errors.As(err, &pe) {
		return exitConfig
	}
	return exitFailed
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sheet-redact: %v\n", err)
	}
	stop()
	os.Exit(exitCode(err))
}

func newRootCmd() *cobra.Command {
	opts := &maskFlags{}
	root := &cobra.Command{
		Use:   "sheet-redact",
		Short: "Mask sensitive text in pictures embedded in spreadsheets",
		Long: `sheet-redact finds credentials and other sensitive text inside the
pictures of an Excel workbook using OCR, covers it with opaque rectangles,
and writes a new workbook with every picture at its original position.

Settings can also come from SHEET_REDACT_* environment variables or a .env
file; flags win.`,
		Version:       fmt.Sprintf("%s (built %s, commit %s)", Version, BuildTime, GitCommit),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMask(cmd, opts)
		},
	}
	bindMaskFlags(root, opts)

	mask := &cobra.Command{
		Use:   "mask",
		Short: "Mask a workbook (same as the root command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMask(cmd, opts)
		},
	}
	bindMaskFlags(mask, opts)

	root.AddCommand(mask, newServeCmd(), newWorkerCmd(), newEnqueueCmd(), newOCRInfoCmd())
	return root
}
