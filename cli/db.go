/*
 * Copyright 2016 iHeartRadio.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package cli provides the db subcommand namespace. Every command is a thin
// delegation to bun/migrate or the seeder; no migration logic lives here.
package cli

import (
	"fmt"

	"github.com/iheartradio/Henson-Database/database"
	"github.com/spf13/cobra"
)

type dbOptions struct {
	settingsFile string
	environment  string
	seedRoot     string
}

// NewDBCommand returns the db command group.
func NewDBCommand() *cobra.Command {
	opts := &dbOptions{}

	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database migration and seed commands",
	}
	cmd.PersistentFlags().StringVarP(&opts.settingsFile, "settings", "s", "", "path to a YAML settings file")
	cmd.PersistentFlags().StringVarP(&opts.environment, "environment", "e", "development", "environment for seed data")
	cmd.PersistentFlags().StringVar(&opts.seedRoot, "seed-root", "", "directory containing seed SQL files")

	cmd.AddCommand(
		newInitCommand(opts),
		newMigrateCommand(opts),
		newRollbackCommand(opts),
		newStatusCommand(opts),
		newMarkAppliedCommand(opts),
		newLockCommand(opts),
		newUnlockCommand(opts),
		newSeedCommand(opts),
	)
	return cmd
}

// openEngine resolves settings from the file flag or the environment and
// initializes the global engine for the duration of a command.
func openEngine(cmd *cobra.Command, opts *dbOptions) (*database.Engine, error) {
	var settings *database.Settings
	if opts.settingsFile != "" {
		loaded, err := database.LoadSettings(opts.settingsFile)
		if err != nil {
			return nil, err
		}
		settings = loaded
	} else {
		settings = database.DefaultSettings()
	}
	return database.Init(cmd.Context(), settings)
}

func newInitCommand(opts *dbOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the migration bookkeeping tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd, opts)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()
			return database.InitMigrations(cmd.Context(), engine.DB())
		},
	}
}

func newMigrateCommand(opts *dbOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd, opts)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()
			_, err = database.Migrate(cmd.Context(), engine.DB())
			return err
		},
	}
}

func newRollbackCommand(opts *dbOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rollback",
		Short: "Revert the last migration group",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd, opts)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()
			_, err = database.Rollback(cmd.Context(), engine.DB())
			return err
		},
	}
}

func newStatusCommand(opts *dbOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd, opts)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			migrations, err := database.MigrationStatus(cmd.Context(), engine.DB())
			if err != nil {
				return err
			}
			cmd.Printf("migrations: %s\n", migrations)
			cmd.Printf("unapplied: %s\n", migrations.Unapplied())
			cmd.Printf("last group: %s\n", migrations.LastGroup())
			return nil
		},
	}
}

func newMarkAppliedCommand(opts *dbOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mark-applied",
		Short: "Record pending migrations as applied without running them",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd, opts)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			group, err := database.MarkApplied(cmd.Context(), engine.DB())
			if err != nil {
				return err
			}
			if group.IsZero() {
				cmd.Println("there are no new migrations to mark as applied")
				return nil
			}
			cmd.Printf("marked as applied: %s\n", group)
			return nil
		},
	}
}

func newLockCommand(opts *dbOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lock",
		Short: "Take the migration lock",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd, opts)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()
			return database.NewMigrator(engine.DB()).Lock(cmd.Context())
		},
	}
}

func newUnlockCommand(opts *dbOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock",
		Short: "Release the migration lock",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd, opts)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()
			return database.NewMigrator(engine.DB()).Unlock(cmd.Context())
		},
	}
}

func newSeedCommand(opts *dbOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load environment seed data from SQL files",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd, opts)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			seeder := database.NewSeeder(engine.DB(), opts.environment)
			if opts.seedRoot != "" {
				seeder.SetRoot(opts.seedRoot)
			}
			if err := seeder.Run(cmd.Context()); err != nil {
				return fmt.Errorf("seeding %s failed: %w", opts.environment, err)
			}
			return nil
		},
	}
}
