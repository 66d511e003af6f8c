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
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bun/driver/sqliteshim"
	"gopkg.in/yaml.v3"
)

// SettingPrefix is the prefix shared by every recognized application
// setting key.
const SettingPrefix = "DATABASE_"

// Recognized application setting keys.
const (
	SettingURI      = "DATABASE_URI"
	SettingType     = "DATABASE_TYPE"
	SettingDriver   = "DATABASE_DRIVER"
	SettingHost     = "DATABASE_HOST"
	SettingPort     = "DATABASE_PORT"
	SettingUsername = "DATABASE_USERNAME"
	SettingPassword = "DATABASE_PASSWORD"
	SettingDatabase = "DATABASE_DATABASE"
)

// Settings describes how to reach a database and tune its connection pool.
// Either URI is set and used verbatim, or enough of the discrete fields are
// present to synthesize a connection URL.
type Settings struct {
	URI      string `yaml:"uri"`
	Type     string `yaml:"type"` // mssql, postgres, mysql, sqlite
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
	Charset  string `yaml:"charset"` // MySQL:utf8mb4

	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`

	EnableReconnect     bool          `yaml:"enable_reconnect"`
	ReconnectInterval   time.Duration `yaml:"reconnect_interval"`
	MaxReconnectTries   int           `yaml:"max_reconnect_tries"`
	HealthCheckInterval time.Duration `yaml:"health_check_interval"`
	EnableQueryLog      bool          `yaml:"enable_query_log"`
	EnableConsoleLog    bool          `yaml:"enable_console_log"`
	SlowQueryTime       time.Duration `yaml:"slow_query_time"`
}

// DefaultSettings returns settings with the extension defaults applied:
// a mssql database on localhost:1433 and a conservatively tuned pool.
func DefaultSettings() *Settings {
	return &Settings{
		Type:                "mssql",
		Host:                "localhost",
		Port:                1433,
		MaxIdleConns:        10,
		MaxOpenConns:        100,
		ConnMaxLifetime:     time.Hour,
		ConnMaxIdleTime:     time.Minute * 30,
		ConnectTimeout:      time.Second * 10,
		ReadTimeout:         time.Second * 30,
		WriteTimeout:        time.Second * 30,
		EnableReconnect:     true,
		ReconnectInterval:   time.Second * 5,
		MaxReconnectTries:   3,
		HealthCheckInterval: time.Minute * 5,
		SlowQueryTime:       time.Second * 2,
	}
}

// FromSettings builds Settings from an application settings map. Keys without
// the DATABASE_ prefix are ignored. A nested "DATABASE" map is expanded first,
// so both flat and grouped settings are accepted.
func FromSettings(settings map[string]interface{}) *Settings {
	s := DefaultSettings()
	if nested, ok := settings["DATABASE"].(map[string]interface{}); ok {
		s.apply(ToSettings(nested))
	}
	s.apply(settings)
	return s
}

func (s *Settings) apply(settings map[string]interface{}) {
	for key, value := range settings {
		if !strings.HasPrefix(key, SettingPrefix) {
			continue
		}
		switch key {
		case SettingURI:
			s.URI = asString(value)
		case SettingType:
			s.Type = asString(value)
		case SettingDriver:
			s.Driver = asString(value)
		case SettingHost:
			s.Host = asString(value)
		case SettingPort:
			if port, ok := asInt(value); ok {
				s.Port = port
			}
		case SettingUsername:
			s.Username = asString(value)
		case SettingPassword:
			s.Password = asString(value)
		case SettingDatabase:
			s.Database = asString(value)
		}
	}
}

// ToSettings converts a map of bare option names into application settings
// keyed with the DATABASE_ prefix.
func ToSettings(options map[string]interface{}) map[string]interface{} {
	settings := make(map[string]interface{}, len(options))
	for key, value := range options {
		settings[SettingPrefix+strings.ToUpper(key)] = value
	}
	return settings
}

// LoadSettings reads settings from the "database" section of a YAML file,
// applying defaults for everything the file leaves out.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}
	s := DefaultSettings()
	root := struct {
		Database *Settings `yaml:"database"`
	}{Database: s}
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}
	return s, nil
}

// OverrideFromEnv overrides connection settings from DATABASE_* environment
// variables so that deployments can keep credentials out of files.
func (s *Settings) OverrideFromEnv() {
	if uri := os.Getenv(SettingURI); uri != "" {
		s.URI = uri
	}
	if typ := os.Getenv(SettingType); typ != "" {
		s.Type = typ
	}
	if driver := os.Getenv(SettingDriver); driver != "" {
		s.Driver = driver
	}
	if host := os.Getenv(SettingHost); host != "" {
		s.Host = host
	}
	if port := os.Getenv(SettingPort); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			s.Port = p
		}
	}
	if username := os.Getenv(SettingUsername); username != "" {
		s.Username = username
	}
	if password := os.Getenv(SettingPassword); password != "" {
		s.Password = password
	}
	if database := os.Getenv(SettingDatabase); database != "" {
		s.Database = database
	}
	if queryLog := os.Getenv("DATABASE_ENABLE_QUERY_LOG"); queryLog != "" {
		s.EnableQueryLog = queryLog == "true"
	}
	if consoleLog := os.Getenv("DATABASE_ENABLE_CONSOLE_LOG"); consoleLog != "" {
		s.EnableConsoleLog = consoleLog == "true"
	}
}

// normalizedType collapses type aliases so the rest of the package only sees
// mssql, postgres, mysql, or sqlite.
func (s *Settings) normalizedType() string {
	switch strings.ToLower(s.Type) {
	case "postgres", "postgresql":
		return "postgres"
	case "sqlite", "sqlite3":
		return "sqlite"
	case "sqlserver", "mssql":
		return "mssql"
	default:
		return strings.ToLower(s.Type)
	}
}

// DriverName returns the database/sql driver name to open connections with.
// An explicit DATABASE_DRIVER wins; otherwise the type picks its default.
func (s *Settings) DriverName() string {
	if s.Driver != "" {
		return s.Driver
	}
	switch s.normalizedType() {
	case "mssql":
		return "sqlserver"
	case "postgres":
		return "postgres"
	case "mysql":
		return "mysql"
	case "sqlite":
		return sqliteshim.ShimName
	default:
		return ""
	}
}

// ConnectionURL returns the URI verbatim when one is configured; otherwise it
// synthesizes a connection URL from the discrete fields. Missing required
// fields produce a settings error.
func (s *Settings) ConnectionURL() (string, error) {
	if s.URI != "" {
		return s.URI, nil
	}

	switch s.normalizedType() {
	case "sqlite":
		if s.Database == "" {
			return "", newSettingsError(SettingDatabase)
		}
		return fmt.Sprintf("file:%s.db", s.Database), nil
	case "mssql":
		if err := s.requireCredentials(); err != nil {
			return "", err
		}
		u := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(s.Username, s.Password),
			Host:     fmt.Sprintf("%s:%d", s.Host, s.Port),
			RawQuery: url.Values{"database": {s.Database}}.Encode(),
		}
		return u.String(), nil
	case "postgres":
		if err := s.requireCredentials(); err != nil {
			return "", err
		}
		sslMode := s.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&connect_timeout=%d",
			url.QueryEscape(s.Username),
			url.QueryEscape(s.Password),
			s.Host,
			s.Port,
			s.Database,
			sslMode,
			int(s.ConnectTimeout.Seconds()),
		), nil
	case "mysql":
		if err := s.requireCredentials(); err != nil {
			return "", err
		}
		charset := s.Charset
		if charset == "" {
			charset = "utf8mb4"
		}
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local&timeout=%s&readTimeout=%s&writeTimeout=%s",
			s.Username,
			s.Password,
			s.Host,
			s.Port,
			s.Database,
			charset,
			s.ConnectTimeout,
			s.ReadTimeout,
			s.WriteTimeout,
		), nil
	default:
		return "", fmt.Errorf("%w: unsupported database type %q", ErrSettings, s.Type)
	}
}

func (s *Settings) requireCredentials() error {
	var missing []string
	if s.Username == "" {
		missing = append(missing, SettingUsername)
	}
	if s.Password == "" {
		missing = append(missing, SettingPassword)
	}
	if s.Database == "" {
		missing = append(missing, SettingDatabase)
	}
	if len(missing) > 0 {
		return newSettingsError(missing...)
	}
	return nil
}

func asString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func asInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n, true
		}
	}
	return 0, false
}
