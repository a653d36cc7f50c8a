package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Sync     SyncConfig     `yaml:"sync"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port     int    `yaml:"port"`
	BasePath string `yaml:"base_path"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// CatalogConfig holds credentials and endpoints for the music catalog API.
type CatalogConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	TokenURL     string `yaml:"token_url"`
	BaseURL      string `yaml:"base_url"`
}

// SyncConfig holds catalog sync pacing settings.
type SyncConfig struct {
	RowDelayMS int `yaml:"row_delay_ms"`
}

// RowDelay returns the inter-row sync delay as a duration.
func (s SyncConfig) RowDelay() time.Duration {
	return time.Duration(s.RowDelayMS) * time.Millisecond
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	FilePath string `yaml:"file_path"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:     8080,
			BasePath: "",
		},
		Database: DatabaseConfig{
			Path: "/data/backline.db",
		},
		Catalog: CatalogConfig{
			TokenURL: "https://accounts.spotify.com/api/token",
			BaseURL:  "https://api.spotify.com/v1",
		},
		Sync: SyncConfig{
			RowDelayMS: 150,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("BL_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("BL_BASE_PATH"); v != "" {
		c.Server.BasePath = v
	}
	if v := os.Getenv("BL_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("BL_CATALOG_CLIENT_ID"); v != "" {
		c.Catalog.ClientID = v
	}
	if v := os.Getenv("BL_CATALOG_CLIENT_SECRET"); v != "" {
		c.Catalog.ClientSecret = v
	}
	if v := os.Getenv("BL_CATALOG_TOKEN_URL"); v != "" {
		c.Catalog.TokenURL = v
	}
	if v := os.Getenv("BL_CATALOG_BASE_URL"); v != "" {
		c.Catalog.BaseURL = v
	}
	if v := os.Getenv("BL_SYNC_ROW_DELAY_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			c.Sync.RowDelayMS = ms
		}
	}
	if v := os.Getenv("BL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("BL_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("BL_LOG_FILE"); v != "" {
		c.Logging.FilePath = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Sync.RowDelayMS < 0 {
		return fmt.Errorf("sync row delay must not be negative")
	}
	c.Server.BasePath = strings.TrimRight(c.Server.BasePath, "/")
	return nil
}
