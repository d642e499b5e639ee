package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/devricklin/inbox-autopilot/internal/data"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration management",
	}
	cmd.AddCommand(migrateUpCmd())
	cmd.AddCommand(migrateDownCmd())
	cmd.AddCommand(migrateVersionCmd())
	return cmd
}

// withMigrator opens the database and runs fn with a migrator
func withMigrator(fn func(mg *data.Migrator, log *zap.Logger) error) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	mg, err := data.NewMigrator(db)
	if err != nil {
		return err
	}
	defer mg.Close()

	return fn(mg, log)
}

func migrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(mg *data.Migrator, log *zap.Logger) error {
				if err := mg.Up(); err != nil {
					return err
				}
				v, dirty, _ := mg.Version()
				log.Info("migration complete", zap.Uint("version", v), zap.Bool("dirty", dirty))
				return nil
			})
		},
	}
}

func migrateDownCmd() *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations (default: 1 step)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(mg *data.Migrator, log *zap.Logger) error {
				if err := mg.Down(steps); err != nil {
					return err
				}
				v, dirty, _ := mg.Version()
				log.Info("rollback complete", zap.Uint("version", v), zap.Bool("dirty", dirty))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "number of migrations to roll back")
	return cmd
}

func migrateVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(mg *data.Migrator, log *zap.Logger) error {
				v, dirty, err := mg.Version()
				if err != nil {
					return err
				}
				fmt.Printf("version: %d, dirty: %v\n", v, dirty)
				return nil
			})
		},
	}
}
