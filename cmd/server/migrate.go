package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"estekhdam/internal/platform/postgres"
)

func (c *cli) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database schema management",
		Long:  `Apply or drop the database schema. Use with 'up' or 'down'.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Usage()
		},
	}
	cmd.PersistentFlags().BoolP("yes", "y", false, "Answer yes to all questions")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Create every table and index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := c.load()
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return errors.New("database url is required")
			}
			if err := postgres.MigrateUp(cmd.Context(), cfg.Database.URL); err != nil {
				return err
			}
			log.Info("schema applied")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Drop every table. All data is lost",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := c.load()
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return errors.New("database url is required")
			}
			yes, err := cmd.Flags().GetBool("yes")
			if err != nil {
				return err
			}
			if !yes && !confirm(cmd, "This drops every table. Continue? (yes/no): ") {
				log.Info("migration cancelled")
				return nil
			}
			if err := postgres.MigrateDown(cmd.Context(), cfg.Database.URL); err != nil {
				return err
			}
			log.Info("schema dropped")
			return nil
		},
	})
	return cmd
}

func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	answer, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "yes" || answer == "y"
}
