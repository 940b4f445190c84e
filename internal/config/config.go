/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	applog "raycast/internal/log"
	"raycast/internal/scenefile"
)

// AppConfig is the user configuration persisted as YAML in the user scope.
// Environment variables are read-only overrides applied on Load.
//
// config_version: bump when the structure changes in a backward-incompatible way.
type AppConfig struct {
	ConfigVersion int             `yaml:"config_version"`
	Parser        ParserConfig    `yaml:"parser"`
	Catalog       CatalogConfig   `yaml:"catalog"`
	Logging       LoggingConfig   `yaml:"logging"`
	Telemetry     TelemetryConfig `yaml:"telemetry"`
	Crash         CrashConfig     `yaml:"crash"`
}

type ParserConfig struct {
	Strict        bool `yaml:"strict"`         // unknown fields are errors instead of warnings
	RequireCamera bool `yaml:"require_camera"` // scenes without a camera are rejected
}

type CatalogConfig struct {
	Path string `yaml:"path"` // SQLite file; empty means <config dir>/catalog.sqlite
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type TelemetryConfig struct {
	OptIn     bool   `yaml:"opt_in"`
	EventsURL string `yaml:"events_url"`
	CrashURL  string `yaml:"crash_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

type CrashConfig struct {
	ReportDir string `yaml:"report_dir"` // empty means os.TempDir()
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Logging:       LoggingConfig{Level: "info", Format: "console"},
		Telemetry:     TelemetryConfig{TimeoutMs: 1500},
	}
}

// Env var names used as overrides.
const (
	EnvConfigFile     = "RAYCAST_CONFIG"
	EnvStrict         = "RAYCAST_STRICT"
	EnvRequireCamera  = "RAYCAST_REQUIRE_CAMERA"
	EnvCatalogPath    = "RAYCAST_CATALOG"
	EnvTelemetryOptIn = "RAYCAST_TELEMETRY_OPT_IN"
	EnvTelemetryURL   = "RAYCAST_TELEMETRY_URL"
	EnvCrashUploadURL = "RAYCAST_CRASH_UPLOAD_URL"
	EnvCrashDir       = "RAYCAST_CRASH_DIR"
	EnvLogLevel       = applog.EnvLevel
	EnvLogFormat      = applog.EnvFormat
	EnvLogSource      = applog.EnvSource
	EnvLogFile        = applog.EnvFile
)

// Dir returns the per-user configuration directory.
func Dir() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "Raycast")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "Raycast")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "raycast")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "raycast")
		}
	}
	if base == "" || base == "raycast" {
		return "", errors.New("cannot resolve config directory")
	}
	return base, nil
}

// ConfigPath returns the config file path; RAYCAST_CONFIG takes precedence.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigFile)); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults and merges
// environment overrides. A missing file is not an error; a malformed one is.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, &ParseError{Path: path, Err: err}
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, err
	}
	applyEnvOverrides(&cfg)
	if cfg.Catalog.Path == "" {
		if dir, err := Dir(); err == nil {
			cfg.Catalog.Path = filepath.Join(dir, "catalog.sqlite")
		}
	}
	return cfg, nil
}

// ParseError reports a config file that is not valid YAML.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string { return "parse config " + e.Path + ": " + e.Err.Error() }
func (e *ParseError) Unwrap() error { return e.Err }

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// ParserOptions maps the parser section onto scenefile options.
func (c AppConfig) ParserOptions() scenefile.Options {
	return scenefile.Options{Strict: c.Parser.Strict, RequireCamera: c.Parser.RequireCamera}
}

// LogOptions maps the logging section onto logger options.
func (c AppConfig) LogOptions() applog.Options {
	return applog.Options{Level: c.Logging.Level, Format: c.Logging.Format, AddSource: c.Logging.Source, File: c.Logging.File}
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// booleans: copy directly from the file so user preferences persist
	dst.Parser.Strict = src.Parser.Strict
	dst.Parser.RequireCamera = src.Parser.RequireCamera
	if p := strings.TrimSpace(src.Catalog.Path); p != "" {
		dst.Catalog.Path = p
	}
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
	dst.Telemetry.OptIn = src.Telemetry.OptIn
	if u := strings.TrimSpace(src.Telemetry.EventsURL); u != "" {
		dst.Telemetry.EventsURL = u
	}
	if u := strings.TrimSpace(src.Telemetry.CrashURL); u != "" {
		dst.Telemetry.CrashURL = u
	}
	if src.Telemetry.TimeoutMs > 0 {
		dst.Telemetry.TimeoutMs = src.Telemetry.TimeoutMs
	}
	if d := strings.TrimSpace(src.Crash.ReportDir); d != "" {
		dst.Crash.ReportDir = d
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v, ok := envBool(EnvStrict); ok {
		cfg.Parser.Strict = v
	}
	if v, ok := envBool(EnvRequireCamera); ok {
		cfg.Parser.RequireCamera = v
	}
	if v := envString(EnvCatalogPath); v != "" {
		cfg.Catalog.Path = v
	}
	if v, ok := envBool(EnvTelemetryOptIn); ok {
		cfg.Telemetry.OptIn = v
	}
	if v := envString(EnvTelemetryURL); v != "" {
		cfg.Telemetry.EventsURL = v
	}
	if v := envString(EnvCrashUploadURL); v != "" {
		cfg.Telemetry.CrashURL = v
	}
	if v := envString(EnvCrashDir); v != "" {
		cfg.Crash.ReportDir = v
	}
	if v := envString(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := envString(EnvLogFormat); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v, ok := envBool(EnvLogSource); ok {
		cfg.Logging.Source = v
	}
	if v := envString(EnvLogFile); v != "" {
		cfg.Logging.File = v
	}
}

func envString(key string) string { return strings.TrimSpace(os.Getenv(key)) }

func envBool(key string) (value, set bool) {
	v := strings.ToLower(envString(key))
	if v == "" {
		return false, false
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b, true
	}
	return v == "on" || v == "yes", true
}

var overrideEnv = map[string]string{
	"parser.strict":         EnvStrict,
	"parser.require_camera": EnvRequireCamera,
	"catalog.path":          EnvCatalogPath,
	"telemetry.opt_in":      EnvTelemetryOptIn,
	"telemetry.events_url":  EnvTelemetryURL,
	"telemetry.crash_url":   EnvCrashUploadURL,
	"crash.report_dir":      EnvCrashDir,
	"logging.level":         EnvLogLevel,
	"logging.format":        EnvLogFormat,
	"logging.source":        EnvLogSource,
	"logging.file":          EnvLogFile,
}

// EnvOverrideFor returns the env var name if the dotted config key is currently
// overridden by the environment.
func EnvOverrideFor(key string) (string, bool) {
	env, ok := overrideEnv[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}
