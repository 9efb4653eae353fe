package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// EnvHome overrides the base directory.
const EnvHome = "SPELLBOOK_HOME"

// Paths contains commonly used file paths.
type Paths struct {
	Database string // SQLite database
	Config   string // Optional YAML config
	Log      string // Log file
	Backups  string // Default export directory
}

// GetPaths returns all commonly used paths based on config.
func GetPaths(cfg *Config) Paths {
	return Paths{
		Database: filepath.Join(cfg.BaseDir, "spellbook.db"),
		Config:   filepath.Join(cfg.BaseDir, ConfigFileName),
		Log:      filepath.Join(cfg.BaseDir, "spellbook.log"),
		Backups:  cfg.Backup.Dir,
	}
}

// DefaultBaseDir returns $SPELLBOOK_HOME if set, otherwise
// $XDG_DATA_HOME/spellbook.
func DefaultBaseDir() string {
	if home := os.Getenv(EnvHome); home != "" {
		return home
	}
	return filepath.Join(xdg.DataHome, "spellbook")
}
