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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionCommit(t *testing.T) {
	engine := newTestEngine(t, "session_commit")
	ctx := context.Background()

	session, err := engine.Session(ctx)
	require.NoError(t, err)

	_, err = session.NewInsert().Model(&widget{Name: "alpha"}).Exec(ctx)
	require.NoError(t, err)
	require.NoError(t, session.Commit())

	assert.Equal(t, 1, countWidgets(t, engine))
}

func TestSessionCloseRollsBack(t *testing.T) {
	engine := newTestEngine(t, "session_close")
	ctx := context.Background()

	session, err := engine.Session(ctx)
	require.NoError(t, err)

	_, err = session.NewInsert().Model(&widget{Name: "alpha"}).Exec(ctx)
	require.NoError(t, err)
	require.NoError(t, session.Close())

	assert.Equal(t, 0, countWidgets(t, engine))
}

func TestSessionCloseAfterCommit(t *testing.T) {
	engine := newTestEngine(t, "session_close_after_commit")
	ctx := context.Background()

	session, err := engine.Session(ctx)
	require.NoError(t, err)
	require.NoError(t, session.Commit())
	require.NoError(t, session.Close())

	assert.ErrorIs(t, session.Commit(), sql.ErrTxDone)
	assert.ErrorIs(t, session.Rollback(), sql.ErrTxDone)
}

func TestRunInSessionCommitsOnSuccess(t *testing.T) {
	engine := newTestEngine(t, "run_in_session_commit")
	ctx := context.Background()

	err := engine.RunInSession(ctx, func(ctx context.Context, session *Session) error {
		_, err := session.NewInsert().Model(&widget{Name: "alpha"}).Exec(ctx)
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, 1, countWidgets(t, engine))
}

func TestRunInSessionRollsBackOnError(t *testing.T) {
	engine := newTestEngine(t, "run_in_session_error")
	ctx := context.Background()

	wantErr := errors.New("unit of work failed")
	err := engine.RunInSession(ctx, func(ctx context.Context, session *Session) error {
		if _, err := session.NewInsert().Model(&widget{Name: "alpha"}).Exec(ctx); err != nil {
			return err
		}
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)

	assert.Equal(t, 0, countWidgets(t, engine))
}

func TestRunInSessionReleasesOnPanic(t *testing.T) {
	engine := newTestEngine(t, "run_in_session_panic")
	ctx := context.Background()

	func() {
		defer func() {
			require.NotNil(t, recover())
		}()
		_ = engine.RunInSession(ctx, func(ctx context.Context, session *Session) error {
			if _, err := session.NewInsert().Model(&widget{Name: "alpha"}).Exec(ctx); err != nil {
				return err
			}
			panic("boom")
		})
	}()

	assert.Equal(t, 0, countWidgets(t, engine))
}

func TestNewSessionRequiresEngine(t *testing.T) {
	_, err := NewSession(context.Background(), nil)
	require.Error(t, err)
}
