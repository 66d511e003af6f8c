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
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
)

func TestConsoleQueryHookVerbose(t *testing.T) {
	var buf bytes.Buffer
	hook := &ConsoleQueryHook{Enabled: true, Verbose: true, Writer: &buf}

	hook.AfterQuery(context.Background(), &bun.QueryEvent{
		Query:     "SELECT 1",
		StartTime: time.Now(),
	})

	assert.Contains(t, buf.String(), "SELECT 1")
}

func TestConsoleQueryHookSkipsSuccessfulQueries(t *testing.T) {
	var buf bytes.Buffer
	hook := &ConsoleQueryHook{Enabled: true, Writer: &buf}

	hook.AfterQuery(context.Background(), &bun.QueryEvent{
		Query:     "SELECT 1",
		StartTime: time.Now(),
	})

	assert.Empty(t, buf.String())
}

func TestConsoleQueryHookReportsErrors(t *testing.T) {
	var buf bytes.Buffer
	hook := &ConsoleQueryHook{Enabled: true, Writer: &buf}

	hook.AfterQuery(context.Background(), &bun.QueryEvent{
		Query:     "SELECT oops",
		StartTime: time.Now(),
		Err:       errors.New("no such column: oops"),
	})

	assert.Contains(t, buf.String(), "SELECT oops")
	assert.Contains(t, buf.String(), "no such column: oops")
}

func TestConsoleQueryHookEnvOverride(t *testing.T) {
	var buf bytes.Buffer
	hook := &ConsoleQueryHook{EnvName: "HENSONDEBUG", Enabled: true, Verbose: true, Writer: &buf}
	t.Setenv("HENSONDEBUG", "0")

	hook.AfterQuery(context.Background(), &bun.QueryEvent{
		Query:     "SELECT 1",
		StartTime: time.Now(),
	})

	assert.Empty(t, buf.String())
}
