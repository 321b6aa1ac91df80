package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/alchemorsel/nutriplan/internal/infrastructure/config"
	"github.com/alchemorsel/nutriplan/internal/infrastructure/persistence/migrations"
	"github.com/alchemorsel/nutriplan/internal/infrastructure/persistence/postgres"
	"github.com/alchemorsel/nutriplan/internal/infrastructure/persistence/sqlite"
)

func newMigrateCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long: `PostgreSQL schemas are versioned by the embedded migrations. SQLite
schemas are derived from the models, so only "up" applies there.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withMigrator(cmd, func(m *migrations.Migrator) error {
					return m.Up()
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withMigrator(cmd, func(m *migrations.Migrator) error {
					return m.Down()
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show applied and pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withMigrator(cmd, func(m *migrations.Migrator) error {
					status, err := m.Status()
					if err != nil {
						return err
					}
					return writeJSON(cmd.OutOrStdout(), status)
				})
			},
		},
		&cobra.Command{
			Use:   "force VERSION",
			Short: "Set the schema version and clear the dirty flag",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				version, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", args[0], err)
				}
				return opts.withMigrator(cmd, func(m *migrations.Migrator) error {
					return m.Force(version)
				})
			},
		},
	)
	return cmd
}

// withMigrator runs fn against the configured postgres database. For
// SQLite only "up" is meaningful and it runs AutoMigrate instead.
func (o *globalOptions) withMigrator(cmd *cobra.Command, fn func(*migrations.Migrator) error) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	log, err := o.logger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := o.context(cmd.Context())
	defer cancel()

	if cfg.Database.Driver != "postgres" {
		if cmd.Name() != "up" {
			return fmt.Errorf("migrate %s requires the postgres driver", cmd.Name())
		}
		dbCfg := cfg.Database
		dbCfg.AutoMigrate = true
		db, err := sqlite.Open(dbCfg, nil, log)
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sqlite schema up to date at %s\n", dbCfg.Path)
		return sqlDB.Close()
	}

	cm, err := postgres.NewConnectionManager(ctx, cfg.Database, nil, log)
	if err != nil {
		return err
	}
	m, err := migrations.New(cm.SQLDB(), cfg.Database.Database, log)
	if err != nil {
		_ = cm.Close()
		return err
	}
	// closing the migrator closes the connection pool too
	defer m.Close()
	return fn(m)
}
