// ABOUTME: Application configuration at the XDG data path
// ABOUTME: JSON file defaults, optional .env loading and CONFIRMED_* environment overrides
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
)

const (
	AppName        = "confirmed"
	ConfigFileName = "config.json"

	StorageCharm  = "charm"
	StorageSQLite = "sqlite"

	DirectoryConfirmed = "confirmed"
	DirectoryGoogle    = "google"

	DefaultBaseURL     = "https://confirmedservice.confirmedapp.com"
	DefaultUserInfoURL = "https://confirmed.auth0.com/userinfo"
)

// Config holds the settings shared by every command.
type Config struct {
	BaseURL      string `json:"base_url"`
	UserInfoURL  string `json:"userinfo_url"`
	Storage      string `json:"storage"`
	Directory    string `json:"directory_source"`
	DBPath       string `json:"db_path,omitempty"`
	LogLevel     string `json:"log_level"`
	CRMConnected bool   `json:"salesforce_connected"`
	UserName     string `json:"user_name,omitempty"`
	PageSize     int    `json:"page_size"`
	MaxPages     int    `json:"max_pages"`
	SyncLimit    int    `json:"sync_limit"`
	LookbackDays int    `json:"lookback_days"`
	CacheTTLDays int    `json:"cache_ttl_days"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		BaseURL:      DefaultBaseURL,
		UserInfoURL:  DefaultUserInfoURL,
		Storage:      StorageSQLite,
		Directory:    DirectoryConfirmed,
		LogLevel:     "info",
		PageSize:     10,
		MaxPages:     10,
		SyncLimit:    20,
		LookbackDays: 30,
		CacheTTLDays: 7,
	}
}

// Dir is the application's data directory.
func Dir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// Path is the config file location.
func Path() string {
	return filepath.Join(Dir(), ConfigFileName)
}

// DefaultDBPath is where the SQLite storage lives unless overridden.
func DefaultDBPath() string {
	return filepath.Join(Dir(), "confirmed.db")
}

// Load reads .env (if present), the config file and the environment, in
// increasing order of precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg, err := LoadFile(Path())
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads path over the defaults. A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.fillDefaults()
	return cfg, nil
}

// ApplyEnv overlays CONFIRMED_* variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := func(name string, dst *string) {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			*dst = v
		}
	}
	str("CONFIRMED_BASE_URL", &c.BaseURL)
	str("CONFIRMED_USERINFO_URL", &c.UserInfoURL)
	str("CONFIRMED_STORAGE", &c.Storage)
	str("CONFIRMED_DIRECTORY_SOURCE", &c.Directory)
	str("CONFIRMED_DB_PATH", &c.DBPath)
	str("CONFIRMED_LOG_LEVEL", &c.LogLevel)
	str("CONFIRMED_USER_NAME", &c.UserName)

	if v := strings.TrimSpace(getenv("CONFIRMED_SALESFORCE_CONNECTED")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CONFIRMED_SALESFORCE_CONNECTED: %w", err)
		}
		c.CRMConnected = b
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"CONFIRMED_PAGE_SIZE", &c.PageSize},
		{"CONFIRMED_MAX_PAGES", &c.MaxPages},
		{"CONFIRMED_SYNC_LIMIT", &c.SyncLimit},
		{"CONFIRMED_LOOKBACK_DAYS", &c.LookbackDays},
		{"CONFIRMED_CACHE_TTL_DAYS", &c.CacheTTLDays},
	}
	for _, it := range ints {
		v := strings.TrimSpace(getenv(it.name))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("%s: want a positive integer, got %q", it.name, v)
		}
		*it.dst = n
	}
	return c.Validate()
}

// Validate checks values that would otherwise fail later and further away.
func (c *Config) Validate() error {
	switch c.Storage {
	case StorageCharm, StorageSQLite:
	default:
		return fmt.Errorf("unknown storage %q (want %s or %s)", c.Storage, StorageCharm, StorageSQLite)
	}
	switch c.Directory {
	case DirectoryConfirmed, DirectoryGoogle:
	default:
		return fmt.Errorf("unknown directory source %q (want %s or %s)", c.Directory, DirectoryConfirmed, DirectoryGoogle)
	}
	return nil
}

func (c *Config) fillDefaults() {
	d := Default()
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if c.UserInfoURL == "" {
		c.UserInfoURL = d.UserInfoURL
	}
	if c.Storage == "" {
		c.Storage = d.Storage
	}
	if c.Directory == "" {
		c.Directory = d.Directory
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.PageSize <= 0 {
		c.PageSize = d.PageSize
	}
	if c.MaxPages <= 0 {
		c.MaxPages = d.MaxPages
	}
	if c.SyncLimit <= 0 {
		c.SyncLimit = d.SyncLimit
	}
	if c.LookbackDays <= 0 {
		c.LookbackDays = d.LookbackDays
	}
	if c.CacheTTLDays <= 0 {
		c.CacheTTLDays = d.CacheTTLDays
	}
}

// ResolvedDBPath returns DBPath or the default location.
func (c *Config) ResolvedDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return DefaultDBPath()
}

// Lookback is the manual sync window.
func (c *Config) Lookback() time.Duration {
	return time.Duration(c.LookbackDays) * 24 * time.Hour
}

// CacheTTL is how long a cached source stays fresh.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLDays) * 24 * time.Hour
}

// Save writes the config to path, creating its directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
