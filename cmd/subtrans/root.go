package main

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"subtrans/internal/config"
	"subtrans/internal/diag"
)

// commandContext 在子命令间共享已加载的配置与日志器。
type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	cfg     *config.Config
	log     *diag.Logger
	logFile *os.File
}

// ensure 加载并校验配置，构造带相关ID的日志器。幂等。
func (c *commandContext) ensure() (config.Config, *diag.Logger, error) {
	if c.cfg != nil {
		return *c.cfg, c.log, nil
	}
	cfg, err := config.Load(*c.configFlag)
	if err != nil {
		return config.Config{}, nil, err
	}
	if *c.logLevelFlag != "" {
		cfg.Logging.Level = *c.logLevelFlag
	}
	if err := config.Normalize(&cfg); err != nil {
		return config.Config{}, nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, nil, err
	}

	var w io.Writer = os.Stderr
	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return config.Config{}, nil, fmt.Errorf("open log file: %w", err)
		}
		c.logFile = f
		w = f
	}
	c.cfg = &cfg
	c.log = diag.NewLogger(uuid.NewString(), cfg.Logging.Level, w)
	return cfg, c.log, nil
}

func (c *commandContext) close() {
	if c.logFile != nil {
		_ = c.logFile.Close()
	}
}

func newRootCommand() *cobra.Command {
	var configFlag string
	var logLevelFlag string

	ctx := &commandContext{configFlag: &configFlag, logLevelFlag: &logLevelFlag}

	rootCmd := &cobra.Command{
		Use:           "subtrans",
		Short:         "Translate subtitle and text files with local seq2seq models",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			ctx.close()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (TOML)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Override log level (debug|info|warn|error)")

	rootCmd.AddCommand(newTranslateCommand(ctx))
	rootCmd.AddCommand(newTranscribeCommand(ctx))
	rootCmd.AddCommand(newLanguagesCommand())
	rootCmd.AddCommand(newModelsCommand())
	rootCmd.AddCommand(newCacheCommand(ctx))

	return rootCmd
}
