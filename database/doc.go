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

// Package database turns DATABASE_* application settings into a connection
// URL and an engine handle built on Bun, and provides scoped sessions,
// health checks, seed data loading, and a thin wrapper over bun/migrate.
package database
