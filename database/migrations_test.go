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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func TestMigrateAndRollback(t *testing.T) {
	engine := newTestEngine(t, "migrations")
	ctx := context.Background()
	db := engine.DB()

	RegisterMigration("20160101000000_gadgets",
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, "CREATE TABLE gadgets (id INTEGER PRIMARY KEY, name TEXT)")
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, "DROP TABLE gadgets")
			return err
		},
	)

	require.NoError(t, InitMigrations(ctx, db))

	group, err := Migrate(ctx, db)
	require.NoError(t, err)
	assert.False(t, group.IsZero())

	status, err := MigrationStatus(ctx, db)
	require.NoError(t, err)
	assert.NotEmpty(t, status)
	assert.Empty(t, status.Unapplied())

	// A second run has nothing to do.
	group, err = Migrate(ctx, db)
	require.NoError(t, err)
	assert.True(t, group.IsZero())

	group, err = Rollback(ctx, db)
	require.NoError(t, err)
	assert.False(t, group.IsZero())
}

func TestCreateModelTables(t *testing.T) {
	engine := newTestEngine(t, "model_tables")
	ctx := context.Background()

	RegisterModelInstance((*widget)(nil), 1)
	require.NoError(t, CreateModelTables(ctx, engine.DB()))
}

func TestModelRegistryOrdering(t *testing.T) {
	registry := &modelRegistry{}
	registry.register(&modelAdapter{instance: "second", priority: 2})
	registry.register(&modelAdapter{instance: "first", priority: 1})

	models := registry.all()
	require.Len(t, models, 2)
	assert.Equal(t, "first", models[0].Instance())
	assert.Equal(t, "second", models[1].Instance())
}
