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

package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDBCommand(t *testing.T) {
	cmd := NewDBCommand()
	assert.Equal(t, "db", cmd.Use)

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"init", "migrate", "rollback", "status", "mark-applied", "lock", "unlock", "seed"} {
		assert.Contains(t, names, want)
	}

	environment, err := cmd.PersistentFlags().GetString("environment")
	require.NoError(t, err)
	assert.Equal(t, "development", environment)

	assert.NotNil(t, cmd.PersistentFlags().Lookup("settings"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("seed-root"))
}
