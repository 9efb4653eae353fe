package models

import "time"

// Meta stores application bookkeeping as key-value pairs.
type Meta struct {
	Key       string    `gorm:"primaryKey;size:100" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Meta) TableName() string {
	return "meta"
}

// Common meta keys.
const (
	MetaSchemaVersion  = "schema_version"
	MetaCatalogVersion = "catalog_version"
	MetaCatalogHash    = "catalog_hash"
	MetaLastExportAt   = "last_export_at"
	MetaAppVersion     = "app_version"
	MetaTrackingID     = "tracking_id"
)
