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
	"fmt"

	"github.com/uptrace/bun"
)

// Session is a short-lived unit of work backed by a transaction. It is
// created on demand and must be released with Close, Commit, or Rollback.
// Sessions are not shared across concurrent units of work.
type Session struct {
	tx   bun.Tx
	done bool
}

// NewSession starts a session on the given engine.
func NewSession(ctx context.Context, db *bun.DB) (*Session, error) {
	if db == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin session: %w", err)
	}
	return &Session{tx: tx}, nil
}

// Tx exposes the underlying transaction for query building.
func (s *Session) Tx() bun.Tx { return s.tx }

func (s *Session) NewSelect() *bun.SelectQuery { return s.tx.NewSelect() }

func (s *Session) NewInsert() *bun.InsertQuery { return s.tx.NewInsert() }

func (s *Session) NewUpdate() *bun.UpdateQuery { return s.tx.NewUpdate() }

func (s *Session) NewDelete() *bun.DeleteQuery { return s.tx.NewDelete() }

// Exec runs a raw statement within the session.
func (s *Session) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return s.tx.ExecContext(ctx, query, args...)
}

// Commit makes the session's work permanent and releases it.
func (s *Session) Commit() error {
	if s.done {
		return sql.ErrTxDone
	}
	s.done = true
	return s.tx.Commit()
}

// Rollback discards the session's work and releases it.
func (s *Session) Rollback() error {
	if s.done {
		return sql.ErrTxDone
	}
	s.done = true
	return s.tx.Rollback()
}

// Close releases the session, rolling back any work that was not committed.
// It is safe to call after Commit or Rollback.
func (s *Session) Close() error {
	if s.done {
		return nil
	}
	s.done = true
	if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

// RunInSession executes fn inside a session. The session commits when fn
// returns nil and is released on every exit path: a non-nil error or a panic
// rolls the work back before the error or panic propagates.
func RunInSession(ctx context.Context, db *bun.DB, fn func(ctx context.Context, session *Session) error) error {
	session, err := NewSession(ctx, db)
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	if err := fn(ctx, session); err != nil {
		return err
	}
	return session.Commit()
}
