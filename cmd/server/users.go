package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	identityservice "estekhdam/internal/identity/service"
	identitystore "estekhdam/internal/identity/store"
	"estekhdam/internal/platform/postgres"
	id "estekhdam/pkg/domain"
)

// identity opens the user store for a maintenance command. The caller closes
// the returned func.
func (c *cli) identity(cmd *cobra.Command) (*identityservice.Service, func(), error) {
	cfg, log, err := c.load()
	if err != nil {
		return nil, nil, err
	}
	if cfg.Database.URL == "" {
		return nil, nil, errors.New("database url is required")
	}
	db, err := postgres.Open(cmd.Context(), cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	svc := identityservice.New(identitystore.NewPostgres(db), identityservice.WithLogger(log))
	return svc, func() { _ = db.Close() }, nil
}

func (c *cli) rehashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rehash-passwords",
		Short: "Hash every stored plaintext password in place",
		Long:  `Hash every stored plaintext password in place. Already hashed rows are skipped, so the command is safe to re-run.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, done, err := c.identity(cmd)
			if err != nil {
				return err
			}
			defer done()
			n, err := svc.RehashLegacy(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rehashed %d password(s)\n", n)
			return nil
		},
	}
}

func (c *cli) createRecruiterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-recruiter USERNAME",
		Short: "Create or reset a staff account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, _ := cmd.Flags().GetString("password")
			fullName, _ := cmd.Flags().GetString("name")
			admin, _ := cmd.Flags().GetBool("admin")
			if password == "" {
				return errors.New("--password is required")
			}
			role := id.RoleRecruiter
			if admin {
				role = id.RoleAdmin
			}

			svc, done, err := c.identity(cmd)
			if err != nil {
				return err
			}
			defer done()
			user, err := svc.EnsureStaff(cmd.Context(), args[0], password, fullName, role)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %q ready (id %d)\n", role, user.Username, int64(user.ID))
			return nil
		},
	}
	cmd.Flags().String("password", "", "Password for the account")
	cmd.Flags().String("name", "", "Display name, defaults to the username")
	cmd.Flags().Bool("admin", false, "Grant the admin role instead of recruiter")
	return cmd
}
