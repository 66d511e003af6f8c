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

package henson_test

import (
	"context"
	"fmt"
	"testing"

	henson "github.com/iheartradio/Henson-Database"
	"github.com/iheartradio/Henson-Database/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type widget struct {
	bun.BaseModel `bun:"table:widgets,alias:w"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull"`
}

func newTestApplication(name string) *henson.Application {
	app := henson.NewApplication(name)
	app.Settings[database.SettingType] = "sqlite"
	app.Settings[database.SettingURI] = fmt.Sprintf("file:henson_%s?mode=memory&cache=shared", name)
	return app
}

func TestInitAppDefaults(t *testing.T) {
	app := henson.NewApplication("testing")
	henson.New(app)

	assert.Equal(t, "localhost", app.Settings[database.SettingHost])
	assert.Equal(t, 1433, app.Settings[database.SettingPort])
	assert.Equal(t, "mssql", app.Settings[database.SettingType])
}

func TestInitAppKeepsExistingSettings(t *testing.T) {
	app := henson.NewApplication("testing")
	app.Settings[database.SettingHost] = "db.example.com"
	henson.New(app)

	assert.Equal(t, "db.example.com", app.Settings[database.SettingHost])
	assert.Equal(t, 1433, app.Settings[database.SettingPort])
}

func TestInitAppExpandsNestedDatabase(t *testing.T) {
	app := henson.NewApplication("testing")
	app.Settings[database.SettingHost] = "flat.example.com"
	app.Settings["DATABASE"] = map[string]interface{}{
		"host":     "nested.example.com",
		"username": "user",
	}
	henson.New(app)

	// Nested values win over flat ones.
	assert.Equal(t, "nested.example.com", app.Settings[database.SettingHost])
	assert.Equal(t, "user", app.Settings[database.SettingUsername])
}

func TestUnregisteredExtension(t *testing.T) {
	db := henson.New(nil)

	_, err := db.App()
	require.Error(t, err)
	assert.True(t, database.IsSettingsError(err))

	_, err = db.Engine(context.Background())
	require.Error(t, err)
	assert.True(t, database.IsSettingsError(err))

	_, err = db.Session(context.Background())
	require.Error(t, err)
	assert.True(t, database.IsSettingsError(err))
}

func TestLazyEngineAndSessions(t *testing.T) {
	app := newTestApplication("lazy")
	db := henson.New(app)
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()

	engine, err := db.Engine(ctx)
	require.NoError(t, err)

	again, err := db.Engine(ctx)
	require.NoError(t, err)
	assert.Same(t, engine, again)

	_, err = engine.DB().NewCreateTable().
		Model((*widget)(nil)).
		IfNotExists().
		Exec(ctx)
	require.NoError(t, err)

	err = db.RunInSession(ctx, func(ctx context.Context, session *database.Session) error {
		_, err := session.NewInsert().Model(&widget{Name: "alpha"}).Exec(ctx)
		return err
	})
	require.NoError(t, err)

	session, err := db.Session(ctx)
	require.NoError(t, err)
	var count int
	count, err = session.NewSelect().Model((*widget)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.NoError(t, session.Close())
}

func TestCloseAllowsReuse(t *testing.T) {
	app := newTestApplication("reuse")
	db := henson.New(app)
	ctx := context.Background()

	first, err := db.Engine(ctx)
	require.NoError(t, err)
	require.NoError(t, db.Close())
	require.NoError(t, db.Close())

	second, err := db.Engine(ctx)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	require.NoError(t, db.Close())
}
