// Package ctl implements contractctl, the administrative companion binary:
// schema migrations, role changes and dev token minting. Role mutation is
// deliberately unavailable through the HTTP surface and lives here instead.
package ctl

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/fleetops/contractd/internal/common"
	"github.com/fleetops/contractd/internal/server/auth"
	"github.com/fleetops/contractd/internal/server/config"
	"github.com/fleetops/contractd/internal/server/models"
	"github.com/fleetops/contractd/internal/server/repositories/repomanager"
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "contractctl",
		Short:        "Administrative tooling for the contract service",
		SilenceUsage: true,
	}

	root.AddCommand(newMigrateCmd())
	root.AddCommand(newRoleCmd("promote", "Grant the admin role to an external identity", models.RoleAdmin))
	root.AddCommand(newRoleCmd("demote", "Revert an external identity to the user role", models.RoleUser))
	root.AddCommand(newTokenCmd())
	return root
}

func openDB(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	return db, nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(config.LoadConfig())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := repomanager.NewPostgresRepositoryManager().RunMigrations(cmd.Context(), db); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newRoleCmd(use, short string, role models.Role) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <external-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(config.LoadConfig())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := setRole(cmd.Context(), db, args[0], role); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s now has role %s\n", args[0], role)
			return nil
		},
	}
}

// setRole updates the role for an external identity, provisioning the
// record first when the identity has never been seen.
func setRole(ctx context.Context, db *sql.DB, externalID string, role models.Role) error {
	repo := repomanager.NewPostgresRepositoryManager().Users(db)

	err := repo.UpdateRole(ctx, externalID, role)
	if !errors.Is(err, common.ErrorNotFound) {
		return err
	}

	_, err = repo.Create(ctx, &models.User{ExternalID: externalID, Role: role})
	if errors.Is(err, common.ErrorAlreadyExists) {
		return repo.UpdateRole(ctx, externalID, role)
	}
	return err
}

func newTokenCmd() *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <external-id>",
		Short: "Mint a bearer identity token for local testing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()

			token, err := auth.GenerateToken(args[0], []byte(cfg.SecretKey), ttl)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token validity duration")
	return cmd
}
