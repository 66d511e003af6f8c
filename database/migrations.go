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

package database

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// Migrations is the migration collection the db command namespace operates
// on. Applications register their migrations here; the migration engine
// itself is bun/migrate.
var Migrations = migrate.NewMigrations()

// RegisterMigration adds a named up/down pair to the default collection.
// Names sort lexicographically, so zero-padded versions keep their order.
func RegisterMigration(name string, up, down migrate.MigrationFunc) {
	Migrations.Add(migrate.Migration{Name: name, Up: up, Down: down})
}

// NewMigrator returns a bun migrator over the default collection.
func NewMigrator(db *bun.DB) *migrate.Migrator {
	return migrate.NewMigrator(db, Migrations)
}

// InitMigrations creates the migration bookkeeping tables.
func InitMigrations(ctx context.Context, db *bun.DB) error {
	return NewMigrator(db).Init(ctx)
}

// Migrate applies all pending migrations and reports the applied group.
func Migrate(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrator := NewMigrator(db)
	if err := migrator.Lock(ctx); err != nil {
		return nil, err
	}
	defer func() { _ = migrator.Unlock(ctx) }()

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	if logger := GetLogger(); logger != nil {
		if group.IsZero() {
			logger.Info("No new migrations to run, database is up to date")
		} else {
			logger.Info("Migrated", "group", group.String())
		}
	}
	return group, nil
}

// Rollback reverts the last applied migration group.
func Rollback(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrator := NewMigrator(db)
	if err := migrator.Lock(ctx); err != nil {
		return nil, err
	}
	defer func() { _ = migrator.Unlock(ctx) }()

	group, err := migrator.Rollback(ctx)
	if err != nil {
		return nil, fmt.Errorf("rollback failed: %w", err)
	}
	if logger := GetLogger(); logger != nil {
		if group.IsZero() {
			logger.Info("No migration groups to roll back")
		} else {
			logger.Info("Rolled back", "group", group.String())
		}
	}
	return group, nil
}

// MigrationStatus returns all known migrations with their applied state.
func MigrationStatus(ctx context.Context, db *bun.DB) (migrate.MigrationSlice, error) {
	return NewMigrator(db).MigrationsWithStatus(ctx)
}

// MarkApplied records pending migrations as applied without running them.
func MarkApplied(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	return NewMigrator(db).Migrate(ctx, migrate.WithNopMigration())
}

// CreateModelTables creates tables for every registered model. It backs the
// default schema migration and is handy for tests against throwaway
// databases.
func CreateModelTables(ctx context.Context, db bun.IDB) error {
	for _, model := range RegisteredModelInstances() {
		_, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create table %T: %w", model, err)
		}
	}
	return nil
}

// RegisterModelMigration registers a migration that creates (and on rollback
// drops) the tables of all registered models.
func RegisterModelMigration() {
	RegisterMigration("00000000000001_model_tables",
		func(ctx context.Context, db *bun.DB) error {
			return CreateModelTables(ctx, db)
		},
		func(ctx context.Context, db *bun.DB) error {
			for _, model := range RegisteredModelInstances() {
				if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	)
}
