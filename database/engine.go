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
	"sync"

	"github.com/uptrace/bun"
)

// Engine is the process-wide engine handle. It is created once per
// application instance through Init and torn down with Close.
type Engine struct {
	manager  Manager
	settings *Settings
	logger   Logger
}

var (
	globalEngine   *Engine
	globalEngineMu sync.RWMutex
)

// NewEngine creates an engine handle from settings. Environment overrides are
// applied before the first connection is opened.
func NewEngine(ctx context.Context, settings *Settings) (*Engine, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: settings cannot be empty", ErrSettings)
	}
	settings.OverrideFromEnv()

	// Resolve connection parameters before touching the driver so that a
	// misconfiguration surfaces as a settings error.
	if _, err := settings.ConnectionURL(); err != nil {
		return nil, err
	}

	logger := GetLogger()
	manager := NewManager(settings)
	manager.SetLogger(logger)

	if err := manager.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	engine := &Engine{manager: manager, settings: settings, logger: logger}
	engine.DB().RegisterModel(RegisteredModelInstances()...)
	return engine, nil
}

// DB returns the underlying Bun database.
func (e *Engine) DB() *bun.DB { return e.manager.Engine() }

// Manager returns the connection manager owning the engine.
func (e *Engine) Manager() Manager { return e.manager }

// Settings returns the settings the engine was created from.
func (e *Engine) Settings() *Settings { return e.settings }

// Session starts a new scoped session on the engine.
func (e *Engine) Session(ctx context.Context) (*Session, error) {
	return NewSession(ctx, e.DB())
}

// RunInSession executes fn in a session that commits on success and is
// released on all exit paths.
func (e *Engine) RunInSession(ctx context.Context, fn func(ctx context.Context, session *Session) error) error {
	return RunInSession(ctx, e.DB(), fn)
}

// HealthStatus returns the current engine health.
func (e *Engine) HealthStatus(ctx context.Context) *HealthStatus {
	return e.manager.HealthCheck(ctx)
}

// Stats returns connection pool statistics.
func (e *Engine) Stats() *Stats { return e.manager.Stats() }

// Close tears down the engine with the application lifecycle.
func (e *Engine) Close() error { return e.manager.Disconnect() }

// Init initializes the global engine from the provided settings.
func Init(ctx context.Context, settings *Settings) (*Engine, error) {
	engine, err := NewEngine(ctx, settings)
	if err != nil {
		return nil, err
	}
	globalEngineMu.Lock()
	globalEngine = engine
	globalEngineMu.Unlock()
	return engine, nil
}

// GetEngine returns the global engine, or nil when Init has not been called.
func GetEngine() *Engine {
	globalEngineMu.RLock()
	defer globalEngineMu.RUnlock()
	return globalEngine
}

// GetDB returns the global Bun database instance.
func GetDB() *bun.DB {
	if engine := GetEngine(); engine != nil {
		return engine.DB()
	}
	return nil
}

// Close closes the global engine.
func Close() error {
	globalEngineMu.Lock()
	engine := globalEngine
	globalEngine = nil
	globalEngineMu.Unlock()

	if engine == nil {
		return nil
	}
	return engine.Close()
}

// GetHealthStatus returns the health of the global engine.
func GetHealthStatus(ctx context.Context) *HealthStatus {
	if engine := GetEngine(); engine != nil {
		return engine.HealthStatus(ctx)
	}
	return &HealthStatus{
		Healthy:   false,
		Connected: false,
		LastError: "database not initialized",
	}
}

// GetStats returns pool statistics for the global engine.
func GetStats() *Stats {
	if engine := GetEngine(); engine != nil {
		return engine.Stats()
	}
	return &Stats{}
}
