package main

import (
	"github.com/spf13/cobra"

	"github.com/ironsheep/sheet-redact/internal/config"
	"github.com/ironsheep/sheet-redact/internal/server"
)

type serveFlags struct {
	engineFlags
	patternFlags
}

func (f *serveFlags) apply(changed func(string) bool, cfg *config.Config) error {
	f.engineFlags.apply(changed, cfg)
	f.patternFlags.apply(changed, cfg)
	return nil
}

func newServeCmd() *cobra.Command {
	f := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run as an MCP server over stdin/stdout",
		Long: `Run as an MCP (Model Context Protocol) server. Requests are read from
stdin and responses written to stdout; logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f.apply)
			if err != nil {
				return err
			}
			reg, err := buildRegistry(cfg)
			if err != nil {
				return err
			}
			eng, err := buildEngine(cfg)
			if err != nil {
				return err
			}

			logger := newLogger()
			logger.Debug("starting MCP server", "version", Version, "built", BuildTime, "commit", GitCommit)
			srv := server.New(server.Options{
				Config:   cfg,
				Engine:   eng,
				Registry: reg,
				Logger:   logger.With("server"),
				Version:  Version,
			})
			return srv.Run(cmd.Context())
		},
	}
	bindEngineFlags(cmd, &f.engineFlags)
	bindPatternFlags(cmd, &f.patternFlags)
	return cmd
}
