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
)

func TestDisconnectStopSignalPersists(t *testing.T) {
	m := NewManager(nil).(*defaultManager)

	// No health goroutine is listening yet; the stop request must still be
	// delivered once one reaches its select.
	require.NoError(t, m.Disconnect())

	select {
	case <-m.stopHealthCheck:
	default:
		t.Fatal("stop signal was dropped")
	}

	require.NoError(t, m.Disconnect())
}

func TestManagerReconnect(t *testing.T) {
	settings := DefaultSettings()
	settings.Type = "sqlite"
	settings.URI = "file:manager_reconnect?mode=memory&cache=shared"
	settings.HealthCheckInterval = 0

	m := NewManager(settings)
	ctx := context.Background()
	require.NoError(t, m.Connect(ctx))
	t.Cleanup(func() { _ = m.Disconnect() })

	require.NoError(t, m.Reconnect(ctx))
	require.NoError(t, m.Ping(ctx))
	assert.NotNil(t, m.Engine())
}

func TestQueryHookSelection(t *testing.T) {
	settings := DefaultSettings()
	settings.SlowQueryTime = 0

	m := NewManager(settings).(*defaultManager)
	assert.Empty(t, m.queryHooks())

	settings.EnableConsoleLog = true
	hooks := m.queryHooks()
	require.Len(t, hooks, 1)
	console, ok := hooks[0].(*ConsoleQueryHook)
	require.True(t, ok)
	assert.True(t, console.Enabled)
	assert.Equal(t, consoleLogEnv, console.EnvName)

	settings.EnableQueryLog = true
	assert.Len(t, m.queryHooks(), 2)
}
