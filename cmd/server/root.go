package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"estekhdam/internal/platform/config"
	"estekhdam/internal/platform/logger"
)

// cli carries the viper instance shared by every subcommand so flags and
// ESTEKHDAM_* variables resolve through the same keys.
type cli struct {
	v *viper.Viper
}

func newRootCmd() *cobra.Command {
	c := &cli{v: config.NewViper()}

	root := &cobra.Command{
		Use:          "estekhdam",
		Short:        "Hiring workflow tracker",
		Long:         `estekhdam tracks candidates from case creation through document, video and physical review.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			path, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}
			if path == "" {
				return nil
			}
			c.v.SetConfigFile(path)
			if err := c.v.ReadInConfig(); err != nil {
				return fmt.Errorf("read config file: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().String("config", "", "Optional configuration file (YAML, TOML or JSON)")
	root.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	root.PersistentFlags().String("database-url", "", "PostgreSQL connection URL")
	for key, flag := range map[string]string{"log_level": "log-level", "database.url": "database-url"} {
		if err := c.v.BindPFlag(key, root.PersistentFlags().Lookup(flag)); err != nil {
			slog.Error("bind flag", "flag", flag, "error", err)
		}
	}

	root.AddCommand(c.serveCmd(), c.migrateCmd(), c.rehashCmd(), c.createRecruiterCmd())
	return root
}

// load resolves configuration and a logger for a command run.
func (c *cli) load() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(c.v)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Server.Environment, cfg.Server.LogLevel)
	slog.SetDefault(log)
	return cfg, log, nil
}
