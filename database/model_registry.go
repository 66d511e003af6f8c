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
	"sort"
	"sync"
)

// Model is a declarative model registered with the extension. Instance
// returns a struct pointer compatible with Bun; Priority controls table
// creation order, lower values first.
type Model interface {
	Instance() interface{}
	Priority() int
}

type modelRegistry struct {
	models []Model
	mu     sync.RWMutex
}

var defaultRegistry = &modelRegistry{}

func (r *modelRegistry) register(model Model) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models = append(r.models, model)
}

func (r *modelRegistry) all() []Model {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Model, len(r.models))
	copy(result, r.models)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Priority() < result[j].Priority()
	})
	return result
}

type modelAdapter struct {
	instance interface{}
	priority int
}

func (a *modelAdapter) Instance() interface{} { return a.instance }

func (a *modelAdapter) Priority() int { return a.priority }

// RegisterModel adds a model to the default registry.
func RegisterModel(model Model) {
	defaultRegistry.register(model)
}

// RegisterModelInstance wraps a struct instance and priority and registers it.
func RegisterModelInstance(instance interface{}, priority int) {
	RegisterModel(&modelAdapter{instance: instance, priority: priority})
}

// RegisteredModels returns all registered models sorted by ascending priority.
func RegisteredModels() []Model {
	return defaultRegistry.all()
}

// RegisteredModelInstances returns the underlying struct instances in
// priority order.
func RegisteredModelInstances() []interface{} {
	models := RegisteredModels()
	instances := make([]interface{}, len(models))
	for i, model := range models {
		instances[i] = model.Instance()
	}
	return instances
}
