package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/asteroid-belt/spellbook/internal/models"
)

// GetMeta retrieves a metadata value. Missing keys return "".
func (db *DB) GetMeta(ctx context.Context, key string) (string, error) {
	var meta models.Meta
	err := db.WithContext(ctx).First(&meta, "key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return meta.Value, nil
}

// SetMeta sets a metadata value.
func (db *DB) SetMeta(ctx context.Context, key, value string) error {
	meta := models.Meta{Key: key, Value: value}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&meta).Error
}

// AllMeta retrieves all metadata.
func (db *DB) AllMeta(ctx context.Context) (map[string]string, error) {
	var metas []models.Meta
	if err := db.WithContext(ctx).Find(&metas).Error; err != nil {
		return nil, err
	}

	result := make(map[string]string, len(metas))
	for _, meta := range metas {
		result[meta.Key] = meta.Value
	}
	return result, nil
}

// GetOrCreateTrackingID returns the persistent anonymous tracking ID, creating one if it doesn't exist.
// On any error it falls back to a per-session ID.
func (db *DB) GetOrCreateTrackingID() string {
	ctx := context.Background()

	id, err := db.GetMeta(ctx, models.MetaTrackingID)
	if err != nil {
		return uuid.New().String()
	}
	if id != "" {
		return id
	}

	id = uuid.New().String()
	// Even if the save fails, the generated ID is good for this session
	_ = db.SetMeta(ctx, models.MetaTrackingID, id)
	return id
}

// RecordCatalog stores the version and fingerprint of the loaded catalog. It
// reports whether the fingerprint differs from a previously recorded one; the
// first recording is not a change.
func (db *DB) RecordCatalog(ctx context.Context, version, fingerprint string) (bool, error) {
	prev, err := db.GetMeta(ctx, models.MetaCatalogHash)
	if err != nil {
		return false, err
	}
	if prev == fingerprint {
		return false, nil
	}
	if err := db.SetMeta(ctx, models.MetaCatalogVersion, version); err != nil {
		return false, err
	}
	if err := db.SetMeta(ctx, models.MetaCatalogHash, fingerprint); err != nil {
		return false, err
	}
	return prev != "", nil
}
