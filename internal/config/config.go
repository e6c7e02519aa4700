/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"multicanvas/internal/domain"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type GeneralConfig struct {
	Locale         string `yaml:"locale"`      // "" means detect from the OS
	ScratchDir     string `yaml:"scratch_dir"` // "" means a fresh temp dir per session
	SearchMode     string `yaml:"search_mode"` // "substring" | "fuzzy"
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
}

type HistoryConfig struct {
	Capacity int `yaml:"capacity"`
}

type ThumbnailConfig struct {
	Enabled       bool  `yaml:"enabled"`
	Width         int   `yaml:"width"`
	Height        int   `yaml:"height"`
	CacheMaxBytes int64 `yaml:"cache_max_bytes"`
}

type ProjectConfig struct {
	DefaultCRS string `yaml:"default_crs"`
	ContentExt string `yaml:"content_ext"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int             `yaml:"config_version"`
	General       GeneralConfig   `yaml:"general"`
	History       HistoryConfig   `yaml:"history"`
	Thumbnails    ThumbnailConfig `yaml:"thumbnails"`
	Project       ProjectConfig   `yaml:"project"`
	Logging       LoggingConfig   `yaml:"logging"`
}

// Search modes.
const (
	SearchSubstring = "substring"
	SearchFuzzy     = "fuzzy"
)

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{SearchMode: SearchSubstring},
		History:       HistoryConfig{Capacity: 50},
		Thumbnails:    ThumbnailConfig{Enabled: true, Width: 180, Height: 120, CacheMaxBytes: 32 << 20},
		Project:       ProjectConfig{DefaultCRS: domain.DefaultCRS, ContentExt: ".mcp"},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigDir      = "MPC_CONFIG_DIR"
	EnvLocale         = "MPC_LOCALE"
	EnvScratchDir     = "MPC_SCRATCH_DIR"
	EnvSearchMode     = "MPC_SEARCH_MODE"
	EnvTelemetryOptIn = "MPC_TELEMETRY_OPT_IN"
	EnvHistoryCap     = "MPC_HISTORY_CAPACITY"
	EnvThumbsEnabled  = "MPC_THUMBNAILS"
	EnvCacheMaxBytes  = "MPC_THUMB_CACHE_MAX_BYTES"
	EnvDefaultCRS     = "MPC_DEFAULT_CRS"
	EnvLogLevel       = "MPC_LOG_LEVEL"
	EnvLogFormat      = "MPC_LOG_FORMAT"
	EnvLogSource      = "MPC_LOG_SOURCE"
	EnvLogFile        = "MPC_LOG_FILE"
)

// Dir returns the per-user configuration directory.
func Dir() (string, error) {
	if v := strings.TrimSpace(os.Getenv(EnvConfigDir)); v != "" {
		return v, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "MultiCanvas")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "MultiCanvas")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "multicanvas")
		} else if home := os.Getenv("HOME"); home != "" {
			base = filepath.Join(home, ".config", "multicanvas")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return base, nil
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults and merges environment overrides.
// A malformed file is reported but the defaults plus overrides are still returned.
func Load() (AppConfig, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Defaults()
		applyEnvOverrides(&cfg)
		return cfg, err
	}
	return LoadFrom(path)
}

// LoadFrom is Load with an explicit file path.
func LoadFrom(path string) (AppConfig, error) {
	cfg := Defaults()
	var loadErr error
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			loadErr = fmt.Errorf("parse %s: %w", path, err)
		} else {
			mergeInto(&cfg, &fileCfg)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		loadErr = fmt.Errorf("read %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	return cfg, loadErr
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg)
}

// SaveTo writes cfg as YAML to path.
func SaveTo(path string, cfg AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate reports configuration values that cannot be used.
func (c AppConfig) Validate() error {
	var errs []error
	if c.History.Capacity < 1 {
		errs = append(errs, fmt.Errorf("history.capacity must be >= 1, got %d", c.History.Capacity))
	}
	if c.Thumbnails.Width < 1 || c.Thumbnails.Height < 1 {
		errs = append(errs, fmt.Errorf("thumbnails size must be positive, got %dx%d", c.Thumbnails.Width, c.Thumbnails.Height))
	}
	if err := domain.ValidateCRS(c.Project.DefaultCRS); err != nil {
		errs = append(errs, fmt.Errorf("project.default_crs: %w", err))
	}
	switch c.General.SearchMode {
	case SearchSubstring, SearchFuzzy:
	default:
		errs = append(errs, fmt.Errorf("general.search_mode must be %q or %q, got %q", SearchSubstring, SearchFuzzy, c.General.SearchMode))
	}
	if !strings.HasPrefix(c.Project.ContentExt, ".") {
		errs = append(errs, fmt.Errorf("project.content_ext must start with a dot, got %q", c.Project.ContentExt))
	}
	return errors.Join(errs...)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if v := strings.TrimSpace(src.General.Locale); v != "" {
		dst.General.Locale = v
	}
	if v := strings.TrimSpace(src.General.ScratchDir); v != "" {
		dst.General.ScratchDir = v
	}
	if v := strings.ToLower(strings.TrimSpace(src.General.SearchMode)); v != "" {
		dst.General.SearchMode = v
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	dst.Thumbnails.Enabled = src.Thumbnails.Enabled
	if src.History.Capacity != 0 {
		dst.History.Capacity = src.History.Capacity
	}
	if src.Thumbnails.Width != 0 {
		dst.Thumbnails.Width = src.Thumbnails.Width
	}
	if src.Thumbnails.Height != 0 {
		dst.Thumbnails.Height = src.Thumbnails.Height
	}
	if src.Thumbnails.CacheMaxBytes != 0 {
		dst.Thumbnails.CacheMaxBytes = src.Thumbnails.CacheMaxBytes
	}
	if v := strings.TrimSpace(src.Project.DefaultCRS); v != "" {
		dst.Project.DefaultCRS = domain.NormalizeCRS(v)
	}
	if v := strings.TrimSpace(src.Project.ContentExt); v != "" {
		dst.Project.ContentExt = v
	}
	if v := strings.TrimSpace(src.Logging.Level); v != "" {
		dst.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(src.Logging.Format); v != "" {
		dst.Logging.Format = strings.ToLower(v)
	}
	dst.Logging.Source = src.Logging.Source
	if v := strings.TrimSpace(src.Logging.File); v != "" {
		dst.Logging.File = v
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvLocale)); v != "" {
		cfg.General.Locale = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvScratchDir)); v != "" {
		cfg.General.ScratchDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvSearchMode)); v != "" {
		cfg.General.SearchMode = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvHistoryCap)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.History.Capacity = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvThumbsEnabled)); v != "" {
		cfg.Thumbnails.Enabled = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvCacheMaxBytes)); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.Thumbnails.CacheMaxBytes = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvDefaultCRS)); v != "" {
		cfg.Project.DefaultCRS = domain.NormalizeCRS(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

var envByKey = map[string]string{
	"general.locale":             EnvLocale,
	"general.scratch_dir":        EnvScratchDir,
	"general.search_mode":        EnvSearchMode,
	"general.telemetry_opt_in":   EnvTelemetryOptIn,
	"history.capacity":           EnvHistoryCap,
	"thumbnails.enabled":         EnvThumbsEnabled,
	"thumbnails.cache_max_bytes": EnvCacheMaxBytes,
	"project.default_crs":        EnvDefaultCRS,
	"logging.level":              EnvLogLevel,
	"logging.format":             EnvLogFormat,
	"logging.source":             EnvLogSource,
	"logging.file":               EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env, ok := envByKey[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}
