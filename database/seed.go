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
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/uptrace/bun"
)

// Seeder discovers and executes SQL files to load data for an environment.
// Files under <root>/common run first, then <root>/environments/<env>, each
// set ordered by a numeric NN_ filename prefix.
type Seeder struct {
	db          *bun.DB
	environment string
	root        string
	logger      Logger
}

type seedFile struct {
	path        string
	order       int
	environment string
}

// NewSeeder creates a seeder for the given environment rooted at
// configs/sql.
func NewSeeder(db *bun.DB, environment string) *Seeder {
	return &Seeder{
		db:          db,
		environment: environment,
		root:        "configs/sql",
		logger:      GetLogger(),
	}
}

// SetRoot changes the directory SQL files are loaded from.
func (s *Seeder) SetRoot(path string) { s.root = path }

// Run executes all discovered SQL files in order. Each file runs in its own
// session so a failure rolls back only the file that caused it.
func (s *Seeder) Run(ctx context.Context) error {
	files, err := s.files()
	if err != nil {
		return fmt.Errorf("failed to discover seed files: %w", err)
	}
	if len(files) == 0 {
		s.logger.Info("No seed files found", "root", s.root)
		return nil
	}

	for _, file := range files {
		if err := s.runFile(ctx, file); err != nil {
			return fmt.Errorf("seed file %s failed: %w", file.path, err)
		}
		s.logger.Info("Seed file executed", "file", file.path, "environment", file.environment)
	}

	s.logger.Info("Seeding completed", "files", len(files), "environment", s.environment)
	return nil
}

func (s *Seeder) files() ([]seedFile, error) {
	var files []seedFile

	commonFiles, err := s.filesFromDir(filepath.Join(s.root, "common"), "common")
	if err != nil {
		return nil, err
	}
	files = append(files, commonFiles...)

	envPath := filepath.Join(s.root, "environments", s.environment)
	if _, err := os.Stat(envPath); err == nil {
		envFiles, err := s.filesFromDir(envPath, s.environment)
		if err != nil {
			return nil, err
		}
		files = append(files, envFiles...)
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].environment != files[j].environment {
			return files[i].environment == "common"
		}
		return files[i].order < files[j].order
	})

	return files, nil
}

var seedOrderPattern = regexp.MustCompile(`^(\d+)_`)

func (s *Seeder) filesFromDir(dir, environment string) ([]seedFile, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	var files []seedFile
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".sql") {
			return nil
		}

		order := 999
		if matches := seedOrderPattern.FindStringSubmatch(d.Name()); len(matches) > 1 {
			_, _ = fmt.Sscanf(matches[1], "%d", &order)
		}
		files = append(files, seedFile{path: path, order: order, environment: environment})
		return nil
	})
	return files, err
}

func (s *Seeder) runFile(ctx context.Context, file seedFile) error {
	content, err := os.ReadFile(file.path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	statements := splitStatements(string(content))
	if len(statements) == 0 {
		return nil
	}

	return RunInSession(ctx, s.db, func(ctx context.Context, session *Session) error {
		for _, stmt := range statements {
			if _, err := session.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("failed to execute statement %q: %w", stmt, err)
			}
		}
		return nil
	})
}

func splitStatements(content string) []string {
	var statements []string
	var current strings.Builder

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}

		current.WriteString(line)
		current.WriteString(" ")

		if strings.HasSuffix(line, ";") {
			if stmt := strings.TrimSpace(current.String()); stmt != "" {
				statements = append(statements, stmt)
			}
			current.Reset()
		}
	}

	if stmt := strings.TrimSpace(current.String()); stmt != "" {
		statements = append(statements, stmt)
	}

	return statements
}
