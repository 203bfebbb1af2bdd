package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ironsheep/sheet-redact/internal/config"
	"github.com/ironsheep/sheet-redact/internal/ocr"
)

func newOCRInfoCmd() *cobra.Command {
	f := &engineFlags{}
	asJSON := false
	cmd := &cobra.Command{
		Use:   "ocr-info",
		Short: "Check that the OCR engine and language data are available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, func(changed func(string) bool, cfg *config.Config) error {
				f.apply(changed, cfg)
				return nil
			})
			if err != nil {
				return err
			}
			eng, err := buildEngine(cfg)
			if err != nil {
				return err
			}

			info := ocr.GetInfo(cmd.Context(), eng, cfg.Lang)
			out := cmd.OutOrStdout()
			if asJSON {
				data, _ := json.MarshalIndent(info, "", "  ")
				fmt.Fprintln(out, string(data))
			} else {
				fmt.Fprintf(out, "backend:   %s\n", info.Backend)
				fmt.Fprintf(out, "language:  %s\n", info.Language)
				fmt.Fprintf(out, "available: %t\n", info.Available)
				if info.Version != "" {
					fmt.Fprintf(out, "version:   %s\n", info.Version)
				}
				if info.Error != "" {
					fmt.Fprintf(out, "error:     %s\n", info.Error)
				}
			}
			if !info.Available {
				return fmt.Errorf("OCR engine unavailable: %s", info.Error)
			}
			return nil
		},
	}
	bindEngineFlags(cmd, f)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}
