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
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mssqldialect"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/extra/bundebug"
	"github.com/uptrace/bun/schema"
)

type defaultManager struct {
	settings        *Settings
	db              *bun.DB
	sqlDB           *sql.DB
	logger          Logger
	mu              sync.RWMutex
	connected       bool
	lastError       error
	reconnectTries  int
	stopHealthCheck chan struct{}
	healthCheckOnce sync.Once
}

// NewManager returns a Manager that opens connections from the given
// settings. If settings is nil, the extension defaults are used.
func NewManager(settings *Settings) Manager {
	if settings == nil {
		settings = DefaultSettings()
	}
	return &defaultManager{
		settings: settings,
		// Buffered so a stop request is never dropped when the health
		// goroutine is mid-check and not yet at its select.
		stopHealthCheck: make(chan struct{}, 1),
	}
}

func (m *defaultManager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected && m.db != nil {
		return nil
	}

	var err error
	m.sqlDB, m.db, err = m.createConnection()
	if err != nil {
		m.lastError = err
		return fmt.Errorf("failed to create database connection: %w", err)
	}

	m.configureConnectionPool()

	ctxTimeout, cancel := context.WithTimeout(ctx, m.settings.ConnectTimeout)
	defer cancel()

	if err := m.db.PingContext(ctxTimeout); err != nil {
		m.lastError = err
		return fmt.Errorf("database connection test failed: %w", err)
	}

	m.connected = true
	m.lastError = nil
	m.reconnectTries = 0

	if m.settings.HealthCheckInterval > 0 {
		m.startHealthCheck()
	}

	if m.logger != nil {
		m.logger.Info("Database connected", "type", m.settings.normalizedType(), "host", m.settings.Host)
	}
	return nil
}

func (m *defaultManager) createConnection() (*sql.DB, *bun.DB, error) {
	if m.settings.ConnectTimeout.Seconds() <= 0 {
		m.settings.ConnectTimeout = 30 * time.Second
	}

	dsn, err := m.settings.ConnectionURL()
	if err != nil {
		return nil, nil, err
	}

	dialect, err := m.dialect()
	if err != nil {
		return nil, nil, err
	}

	sqlDB, err := sql.Open(m.settings.DriverName(), dsn)
	if err != nil {
		return nil, nil, err
	}

	db := bun.NewDB(sqlDB, dialect)
	for _, hook := range m.queryHooks() {
		db.AddQueryHook(hook)
	}

	return sqlDB, db, nil
}

// consoleLogEnv toggles the console query hook per process: unset it to fall
// back to the static setting, "0" to silence, "2" for verbose.
const consoleLogEnv = "HENSONDEBUG"

func (m *defaultManager) queryHooks() []bun.QueryHook {
	var hooks []bun.QueryHook

	if m.settings.EnableQueryLog {
		hooks = append(hooks, bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
			bundebug.FromEnv("BUNDEBUG"),
		))
	}

	if m.settings.EnableConsoleLog {
		hooks = append(hooks, &ConsoleQueryHook{
			EnvName: consoleLogEnv,
			Enabled: true,
		})
	}

	if m.settings.SlowQueryTime > 0 {
		hooks = append(hooks, &slowQueryHook{
			slowTime: m.settings.SlowQueryTime,
			logger:   m.logger,
		})
	}

	return hooks
}

// dialect maps the configured type onto a Bun dialect. The default follows
// the extension defaults: a mssql database.
func (m *defaultManager) dialect() (schema.Dialect, error) {
	switch m.settings.normalizedType() {
	case "mssql":
		return mssqldialect.New(), nil
	case "postgres":
		return pgdialect.New(), nil
	case "mysql":
		return mysqldialect.New(), nil
	case "sqlite":
		return sqlitedialect.New(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported database type %q", ErrSettings, m.settings.Type)
	}
}

func (m *defaultManager) configureConnectionPool() {
	if m.sqlDB == nil {
		return
	}

	m.sqlDB.SetMaxIdleConns(m.settings.MaxIdleConns)
	m.sqlDB.SetMaxOpenConns(m.settings.MaxOpenConns)
	m.sqlDB.SetConnMaxLifetime(m.settings.ConnMaxLifetime)
	m.sqlDB.SetConnMaxIdleTime(m.settings.ConnMaxIdleTime)
}

func (m *defaultManager) Disconnect() error {
	select {
	case m.stopHealthCheck <- struct{}{}:
	default:
	}

	return m.closeConnection()
}

// closeConnection tears down the connection without stopping the health
// check loop, so Reconnect can reuse it.
func (m *defaultManager) closeConnection() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db == nil {
		return nil
	}

	err := m.db.Close()
	m.db = nil
	m.sqlDB = nil
	m.connected = false

	if m.logger != nil {
		if err != nil {
			m.logger.Error("Failed to close database connection", "error", err)
		} else {
			m.logger.Info("Database connection closed")
		}
	}

	return err
}

func (m *defaultManager) Reconnect(ctx context.Context) error {
	if err := m.closeConnection(); err != nil {
		if m.logger != nil {
			m.logger.Warn("Error disconnecting existing connection", "error", err)
		}
	}

	return m.Connect(ctx)
}

func (m *defaultManager) Ping(ctx context.Context) error {
	m.mu.RLock()
	db := m.db
	m.mu.RUnlock()

	if db == nil {
		return fmt.Errorf("database not connected")
	}

	return db.PingContext(ctx)
}

func (m *defaultManager) Engine() *bun.DB {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.db
}

func (m *defaultManager) SQLDB() *sql.DB {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sqlDB
}

func (m *defaultManager) HealthCheck(ctx context.Context) *HealthStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	status := &HealthStatus{
		LastCheckTime: start,
		Connected:     m.connected,
	}

	if m.db == nil {
		status.Healthy = false
		status.LastError = "database not initialized"
		return status
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	err := m.db.PingContext(ctxTimeout)
	status.ResponseTime = time.Since(start)

	if err != nil {
		status.Healthy = false
		status.Connected = false
		status.LastError = err.Error()
		m.lastError = err
	} else {
		status.Healthy = true
		status.Connected = true
		m.lastError = nil
	}

	if m.sqlDB != nil {
		stats := m.sqlDB.Stats()
		status.ActiveConns = stats.InUse
		status.IdleConns = stats.Idle
		status.MaxOpenConns = stats.MaxOpenConnections
	}

	return status
}

func (m *defaultManager) startHealthCheck() {
	m.healthCheckOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(m.settings.HealthCheckInterval)
			defer ticker.Stop()

			for {
				select {
				case <-ticker.C:
					ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
					status := m.HealthCheck(ctx)
					cancel()
					if !status.Healthy && m.settings.EnableReconnect {
						m.handleReconnect()
					}

				case <-m.stopHealthCheck:
					return
				}
			}
		}()
	})
}

func (m *defaultManager) handleReconnect() {
	if m.reconnectTries >= m.settings.MaxReconnectTries {
		if m.logger != nil {
			m.logger.Error("Max reconnect attempts reached, stopping", "tries", m.reconnectTries)
		}
		return
	}

	m.reconnectTries++
	if m.logger != nil {
		m.logger.Info("Starting database reconnect", "try", m.reconnectTries)
	}

	time.Sleep(m.settings.ReconnectInterval)

	ctx, cancel := context.WithTimeout(context.Background(), m.settings.ConnectTimeout)
	defer cancel()

	if err := m.Reconnect(ctx); err != nil {
		if m.logger != nil {
			m.logger.Error("Reconnect failed", "error", err, "try", m.reconnectTries)
		}
	} else {
		m.reconnectTries = 0
		if m.logger != nil {
			m.logger.Info("Reconnect succeeded")
		}
	}
}

func (m *defaultManager) Stats() *Stats {
	m.mu.RLock()
	sqlDB := m.sqlDB
	m.mu.RUnlock()

	if sqlDB == nil {
		return &Stats{}
	}

	stats := sqlDB.Stats()
	return &Stats{
		MaxOpenConns:      stats.MaxOpenConnections,
		OpenConns:         stats.OpenConnections,
		InUse:             stats.InUse,
		Idle:              stats.Idle,
		WaitCount:         stats.WaitCount,
		WaitDuration:      stats.WaitDuration,
		MaxIdleClosed:     stats.MaxIdleClosed,
		MaxIdleTimeClosed: stats.MaxIdleTimeClosed,
		MaxLifetimeClosed: stats.MaxLifetimeClosed,
	}
}

func (m *defaultManager) SetLogger(logger Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger = logger
}
