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

package henson

import (
	"context"
	"sync"

	"github.com/iheartradio/Henson-Database/database"
	"github.com/iheartradio/Henson-Database/repository"
	"github.com/iheartradio/Henson-Database/types"
	"github.com/uptrace/bun"
)

// Service exposes high-level persistence operations for an entity type.
type Service[T any] interface {
	// Get returns a single entity by its identifier.
	Get(ctx context.Context, id any) (*T, error)

	// All returns all entities.
	All(ctx context.Context) ([]*T, error)

	// List returns entities that match the provided filter.
	List(ctx context.Context, filter *types.QueryFilter) ([]*T, error)

	// Page returns a paginated list of entities.
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)

	// Save inserts one or more new entities.
	Save(ctx context.Context, model ...*T) error

	// Update modifies an existing entity.
	Update(ctx context.Context, model *T) error

	// Delete removes an entity by its identifier.
	Delete(ctx context.Context, id any) error

	// SaveInSession inserts entities within an existing session.
	SaveInSession(ctx context.Context, session *database.Session, model ...*T) error

	// UpdateInSession updates an entity within a session.
	UpdateInSession(ctx context.Context, session *database.Session, model *T) error

	// DeleteInSession removes an entity within a session.
	DeleteInSession(ctx context.Context, session *database.Session, id any) error

	// SelectBuilder returns a Bun select query builder for the entity.
	SelectBuilder() *bun.SelectQuery
}

type baseService[T any] struct {
	db   *bun.DB
	repo repository.Repository[T]
	once sync.Once
}

// NewService returns a Service backed by the global engine handle.
func NewService[T any]() Service[T] {
	return &baseService[T]{}
}

// NewServiceWithDB returns a Service backed by the given engine.
func NewServiceWithDB[T any](db *bun.DB) Service[T] {
	return &baseService[T]{db: db}
}

func (s *baseService[T]) baseRepo() repository.Repository[T] {
	s.once.Do(func() {
		if s.db == nil {
			s.db = database.GetDB()
		}
		s.repo = repository.NewRepository[T](s.db)
	})
	return s.repo
}

func (s *baseService[T]) Get(ctx context.Context, id any) (*T, error) {
	return s.baseRepo().GetOne(ctx, id)
}

func (s *baseService[T]) All(ctx context.Context) ([]*T, error) {
	return s.baseRepo().GetAll(ctx)
}

func (s *baseService[T]) List(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	return s.baseRepo().List(ctx, filter)
}

func (s *baseService[T]) Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error) {
	return s.baseRepo().Page(ctx, page)
}

func (s *baseService[T]) Save(ctx context.Context, model ...*T) error {
	return s.baseRepo().Create(ctx, model...)
}

func (s *baseService[T]) Update(ctx context.Context, model *T) error {
	return s.baseRepo().Update(ctx, model)
}

func (s *baseService[T]) Delete(ctx context.Context, id any) error {
	return s.baseRepo().Delete(ctx, id)
}

func (s *baseService[T]) SaveInSession(ctx context.Context, session *database.Session, model ...*T) error {
	return s.baseRepo().CreateInSession(ctx, session, model...)
}

func (s *baseService[T]) UpdateInSession(ctx context.Context, session *database.Session, model *T) error {
	return s.baseRepo().UpdateInSession(ctx, session, model)
}

func (s *baseService[T]) DeleteInSession(ctx context.Context, session *database.Session, id any) error {
	return s.baseRepo().DeleteInSession(ctx, session, id)
}

func (s *baseService[T]) SelectBuilder() *bun.SelectQuery {
	return s.baseRepo().NewSelect()
}
