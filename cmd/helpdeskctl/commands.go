package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/bootstrap"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// backend is what every subcommand operates on.
type backend struct {
	cfg      *config.Config
	logger   *zap.Logger
	postgres *persistence.Postgres
	repos    bootstrap.Repositories
}

func (b *backend) Close() {
	b.postgres.Close()
	_ = b.logger.Sync()
}

type backendOpener func(ctx context.Context) (*backend, error)

// openPostgres connects to the configured database. The CLI refuses to run
// against the in-memory store since nothing it writes would persist.
func openPostgres(ctx context.Context) (*backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if !pg.Enabled() {
		return nil, errors.New("POSTGRES_DSN must be set")
	}
	return &backend{cfg: cfg, logger: logger, postgres: pg, repos: bootstrap.NewRepositories(pg.PoolHandle())}, nil
}

func newRootCommand(open backendOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "helpdeskctl",
		Short:         "Administer the helpdesk service",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}
	cmd.AddCommand(newMigrateCommand(open), newCreateUserCommand(open))
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	return cmd
}

func newMigrateCommand(open backendOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()
			if !b.postgres.Enabled() {
				return errors.New("POSTGRES_DSN must be set")
			}
			if err := persistence.RunMigrations(cmd.Context(), b.postgres.PoolHandle(), b.logger); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

type createUserOptions struct {
	Username   string
	Email      string
	Password   string
	FullName   string
	Department string
	Role       string
}

func newCreateUserCommand(open backendOpener) *cobra.Command {
	opts := &createUserOptions{Role: string(domain.RoleAdmin)}
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a user with any role, typically the first admin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			role := domain.Role(opts.Role)
			if !role.Valid() {
				return fmt.Errorf("invalid role %q", opts.Role)
			}
			b, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			authService := service.NewAuthService(*b.cfg, service.AuthDependencies{UserRepo: b.repos.Users})
			user, err := authService.Provision(cmd.Context(), service.RegisterInput{
				Username:   opts.Username,
				Email:      opts.Email,
				Password:   opts.Password,
				FullName:   opts.FullName,
				Department: opts.Department,
			}, role)
			if err != nil {
				return err
			}
			b.logger.Info("user provisioned", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", user.Role, user.Username, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Username, "username", "", "login name")
	cmd.Flags().StringVar(&opts.Email, "email", "", "email address")
	cmd.Flags().StringVar(&opts.Password, "password", "", "initial password")
	cmd.Flags().StringVar(&opts.FullName, "full-name", "", "display name")
	cmd.Flags().StringVar(&opts.Department, "department", "", "department")
	cmd.Flags().StringVar(&opts.Role, "role", opts.Role, "customer, technician or admin")
	for _, flag := range []string{"username", "email", "password"} {
		_ = cmd.MarkFlagRequired(flag)
	}
	return cmd
}
