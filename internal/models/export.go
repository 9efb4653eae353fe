package models

import "time"

// ExportVersion is the only backup format version accepted on import.
const ExportVersion = "1.0"

// ExportData is the versioned envelope used for spellbook backups.
type ExportData struct {
	Version    string      `json:"version"`
	ExportDate time.Time   `json:"exportDate"`
	Spellbooks []Spellbook `json:"spellbooks"`
}
