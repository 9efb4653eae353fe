// Package config handles application configuration management.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

// ConfigFileName is the optional YAML file read from the base directory.
const ConfigFileName = "config.yaml"

// Catalog source kinds.
const (
	CatalogEmbedded = "embedded"
	CatalogFile     = "file"
	CatalogHTTP     = "http"
)

// Config holds all application configuration.
type Config struct {
	// Base directory for all spellbook data. Not read from the file.
	BaseDir string `yaml:"base_dir"`

	Catalog    CatalogConfig    `yaml:"catalog"`
	Database   DatabaseConfig   `yaml:"database"`
	Log        LogConfig        `yaml:"log"`
	Backup     BackupConfig     `yaml:"backup"`
	Spellbooks SpellbooksConfig `yaml:"spellbooks"`
}

// CatalogConfig selects where the spell catalog is loaded from.
type CatalogConfig struct {
	Source  string        `yaml:"source"   env:"SPELLBOOK_CATALOG_SOURCE"   env-default:"embedded"`
	Path    string        `yaml:"path"     env:"SPELLBOOK_CATALOG_PATH"`
	BaseURL string        `yaml:"base_url" env:"SPELLBOOK_CATALOG_BASE_URL"`
	Timeout time.Duration `yaml:"timeout"  env:"SPELLBOOK_CATALOG_TIMEOUT"  env-default:"30s"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Debug bool `yaml:"debug" env:"SPELLBOOK_DB_DEBUG" env-default:"false"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level" env:"SPELLBOOK_LOG_LEVEL" env-default:"info"`
}

// BackupConfig holds export destinations.
type BackupConfig struct {
	// Dir defaults to <base>/backups.
	Dir string   `yaml:"dir" env:"SPELLBOOK_BACKUP_DIR"`
	S3  S3Config `yaml:"s3"`
}

// S3Config holds the optional S3 export destination.
type S3Config struct {
	Bucket    string `yaml:"bucket"     env:"SPELLBOOK_BACKUP_S3_BUCKET"`
	Prefix    string `yaml:"prefix"     env:"SPELLBOOK_BACKUP_S3_PREFIX"`
	Region    string `yaml:"region"     env:"SPELLBOOK_BACKUP_S3_REGION"     env-default:"us-east-1"`
	Endpoint  string `yaml:"endpoint"   env:"SPELLBOOK_BACKUP_S3_ENDPOINT"`
	PathStyle bool   `yaml:"path_style" env:"SPELLBOOK_BACKUP_S3_PATH_STYLE" env-default:"false"`
}

// Enabled reports whether an S3 bucket is configured.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// SpellbooksConfig tunes spellbook actions.
type SpellbooksConfig struct {
	CopyChunkSize int `yaml:"copy_chunk_size" env:"SPELLBOOK_COPY_CHUNK_SIZE" env-default:"50"`
}

// Load reads configuration for the default base directory.
// Priority: ENV > config.yaml > defaults.
func Load() (*Config, error) {
	return LoadFrom(DefaultBaseDir())
}

// LoadFrom reads configuration rooted at baseDir. config.yaml inside baseDir
// is optional.
func LoadFrom(baseDir string) (*Config, error) {
	var cfg Config

	path := filepath.Join(baseDir, ConfigFileName)
	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config: read env: %w", err)
		}
	}

	cfg.BaseDir = baseDir
	cfg.applyDerived()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	if err := ensureDirectories(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// DefaultConfig returns a Config with the built-in defaults.
func DefaultConfig() *Config {
	cfg := &Config{
		BaseDir: DefaultBaseDir(),
		Catalog: CatalogConfig{
			Source:  CatalogEmbedded,
			Timeout: 30 * time.Second,
		},
		Log: LogConfig{Level: "info"},
		Backup: BackupConfig{
			S3: S3Config{Region: "us-east-1"},
		},
		Spellbooks: SpellbooksConfig{CopyChunkSize: 50},
	}
	cfg.applyDerived()
	return cfg
}

func (c *Config) applyDerived() {
	if c.Backup.Dir == "" {
		c.Backup.Dir = filepath.Join(c.BaseDir, "backups")
	}
	c.Catalog.Source = strings.ToLower(strings.TrimSpace(c.Catalog.Source))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.Catalog.Source {
	case CatalogEmbedded:
	case CatalogFile:
		if c.Catalog.Path == "" {
			return fmt.Errorf("catalog.path is required for the file source")
		}
	case CatalogHTTP:
		u, err := url.Parse(c.Catalog.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("catalog.base_url must be an http(s) URL, got %q", c.Catalog.BaseURL)
		}
	default:
		return fmt.Errorf("catalog.source must be one of %s, %s, %s; got %q",
			CatalogEmbedded, CatalogFile, CatalogHTTP, c.Catalog.Source)
	}

	if c.Catalog.Timeout <= 0 {
		return fmt.Errorf("catalog.timeout must be positive")
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Log.Level) {
		return fmt.Errorf("log.level must be debug, info, warn or error; got %q", c.Log.Level)
	}

	if c.Spellbooks.CopyChunkSize <= 0 {
		return fmt.Errorf("spellbooks.copy_chunk_size must be positive")
	}

	s3 := c.Backup.S3
	if !s3.Enabled() && (s3.Endpoint != "" || s3.Prefix != "") {
		return fmt.Errorf("backup.s3.bucket is required when endpoint or prefix is set")
	}
	if s3.Endpoint != "" {
		if u, err := url.Parse(s3.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("backup.s3.endpoint must be a URL, got %q", s3.Endpoint)
		}
	}

	return nil
}

// Dump renders the configuration as YAML.
func Dump(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// WriteFile writes cfg as YAML to path, creating parent directories.
func WriteFile(path string, cfg *Config) error {
	data, err := Dump(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// ensureDirectories creates required directories if they don't exist.
func ensureDirectories(cfg *Config) error {
	for _, dir := range []string{cfg.BaseDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}
