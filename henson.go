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

// Package henson provides a database extension for Henson-style
// applications: it reads DATABASE_* settings from the application, owns a
// lazily created engine handle, and hands out scoped sessions.
package henson

import (
	"context"
	"fmt"
	"sync"

	"github.com/iheartradio/Henson-Database/database"
)

// Application is the host application: a name and a settings map the
// extension reads its configuration from.
type Application struct {
	Name     string
	Settings map[string]interface{}
}

// NewApplication returns an application with an empty settings map.
func NewApplication(name string) *Application {
	return &Application{Name: name, Settings: make(map[string]interface{})}
}

// Database is an interface to interact with a relational database. The
// engine handle is created lazily on first use and is owned exclusively by
// the extension; Close tears it down with the application lifecycle.
type Database struct {
	mu     sync.Mutex
	app    *Application
	engine *database.Engine
}

// New returns a Database extension. When app is non-nil it is initialized
// immediately, matching InitApp.
func New(app *Application) *Database {
	d := &Database{}
	if app != nil {
		d.InitApp(app)
	}
	return d
}

// InitApp initializes an application for use with the database: default
// settings are filled in where absent and a nested DATABASE map is expanded
// into flat DATABASE_* keys.
func (d *Database) InitApp(app *Application) {
	if app.Settings == nil {
		app.Settings = make(map[string]interface{})
	}

	setDefault(app.Settings, database.SettingHost, "localhost")
	setDefault(app.Settings, database.SettingPort, 1433)
	setDefault(app.Settings, database.SettingType, "mssql")

	if nested, ok := app.Settings["DATABASE"].(map[string]interface{}); ok {
		for key, value := range database.ToSettings(nested) {
			app.Settings[key] = value
		}
	}

	d.mu.Lock()
	d.app = app
	d.mu.Unlock()
}

// App returns the bound application. It is an error to use the extension
// before an application has been provided.
func (d *Database) App() (*Application, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.app == nil {
		return nil, fmt.Errorf("%w: the database extension is not registered to an application", database.ErrSettings)
	}
	return d.app, nil
}

// Engine returns the engine handle, creating it from the application
// settings on first use.
func (d *Database) Engine(ctx context.Context) (*database.Engine, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.engine != nil {
		return d.engine, nil
	}
	if d.app == nil {
		return nil, fmt.Errorf("%w: the database extension is not registered to an application", database.ErrSettings)
	}

	engine, err := database.NewEngine(ctx, database.FromSettings(d.app.Settings))
	if err != nil {
		return nil, err
	}
	d.engine = engine
	return engine, nil
}

// Session returns a scoped session. The caller releases it with Close,
// Commit, or Rollback; Close rolls back anything uncommitted.
func (d *Database) Session(ctx context.Context) (*database.Session, error) {
	engine, err := d.Engine(ctx)
	if err != nil {
		return nil, err
	}
	return engine.Session(ctx)
}

// RunInSession executes fn in a session that commits on success and is
// released on every exit path, including errors and panics.
func (d *Database) RunInSession(ctx context.Context, fn func(ctx context.Context, session *database.Session) error) error {
	engine, err := d.Engine(ctx)
	if err != nil {
		return err
	}
	return engine.RunInSession(ctx, fn)
}

// Close tears down the engine handle. The extension can be reused; a new
// engine is created on the next access.
func (d *Database) Close() error {
	d.mu.Lock()
	engine := d.engine
	d.engine = nil
	d.mu.Unlock()

	if engine == nil {
		return nil
	}
	return engine.Close()
}

func setDefault(settings map[string]interface{}, key string, value interface{}) {
	if _, ok := settings[key]; !ok {
		settings[key] = value
	}
}
