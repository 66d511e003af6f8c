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
	"errors"
	"fmt"
	"testing"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSettingsError(t *testing.T) {
	err := newSettingsError(SettingUsername, SettingDatabase)
	assert.True(t, IsSettingsError(err))
	assert.True(t, IsSettingsError(fmt.Errorf("while connecting: %w", err)))
	assert.False(t, IsSettingsError(errors.New("connection refused")))
	assert.False(t, IsSettingsError(nil))
}

func TestIsSQLErrorMssqlNumbers(t *testing.T) {
	tests := []struct {
		number int32
		kind   SQLError
	}{
		{207, NoColumnErr},
		{208, NoTableErr},
		{2714, ExistTableErr},
		{2601, DuplicateKeyErr},
		{2627, DuplicateKeyErr},
		{515, NotNullViolationErr},
		{547, ForeignKeyViolationErr},
		{8152, DataTruncatedErr},
		{50000, UnknownErr},
	}
	for _, tt := range tests {
		is, kind := IsSQLError(mssql.Error{Number: tt.number})
		assert.True(t, is, "number %d", tt.number)
		assert.Equal(t, tt.kind, kind, "number %d", tt.number)
	}
}

func TestIsSQLErrorByMessage(t *testing.T) {
	tests := []struct {
		message string
		kind    SQLError
	}{
		{"ERROR: column does not exist (SQLSTATE 42703)", NoColumnErr},
		{"SQL logic error: no such table: widgets", NoTableErr},
		{"table widgets already exists", ExistTableErr},
		{"UNIQUE constraint failed: widgets.name", DuplicateKeyErr},
		{"NOT NULL constraint failed: widgets.name", NotNullViolationErr},
		{"FOREIGN KEY constraint failed", ForeignKeyViolationErr},
		{"new row violates check constraint", CheckConstraintViolationErr},
		{"ERROR: value too long (SQLSTATE 22001)", DataTruncatedErr},
	}
	for _, tt := range tests {
		is, kind := IsSQLError(errors.New(tt.message))
		assert.True(t, is, "message %q", tt.message)
		assert.Equal(t, tt.kind, kind, "message %q", tt.message)
	}

	is, kind := IsSQLError(errors.New("connection refused"))
	assert.False(t, is)
	assert.Equal(t, UnknownErr, kind)
}

func TestIsSQLErrorFromDriver(t *testing.T) {
	engine := newTestEngine(t, "errors_driver")
	ctx := context.Background()

	_, err := engine.DB().ExecContext(ctx, "SELECT * FROM no_such_table")
	require.Error(t, err)

	is, kind := IsSQLError(err)
	assert.True(t, is)
	assert.Equal(t, NoTableErr, kind)
}
