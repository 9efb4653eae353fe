package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/asteroid-belt/spellbook/internal/models"
)

// ErrSpellbookNotFound is returned by mutations that target a missing spellbook.
var ErrSpellbookNotFound = errors.New("spellbook not found")

func notFound(id string) error {
	return fmt.Errorf("%w: %s", ErrSpellbookNotFound, id)
}

// CreateSpellbook creates an empty spellbook with a generated id.
func (db *DB) CreateSpellbook(ctx context.Context, input models.CreateSpellbookInput) (*models.Spellbook, error) {
	now := time.Now()
	book := &models.Spellbook{
		ID:                  uuid.New().String(),
		Name:                strings.TrimSpace(input.Name),
		Spells:              datatypes.JSONSlice[models.SpellbookSpell]{},
		SpellcastingAbility: strings.ToUpper(input.SpellcastingAbility),
		SpellAttackModifier: input.SpellAttackModifier,
		SpellSaveDC:         input.SpellSaveDC,
		MaxSpellSlots:       input.MaxSpellSlots,
		CopiedFromID:        input.CopiedFromID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := db.WithContext(ctx).Create(book).Error; err != nil {
		return nil, fmt.Errorf("create spellbook: %w", err)
	}
	return book, nil
}

// InsertSpellbook stores a complete spellbook as-is, keeping its id and timestamps.
// Inserting an id that already exists fails.
func (db *DB) InsertSpellbook(ctx context.Context, book *models.Spellbook) error {
	if book.ID == "" {
		return fmt.Errorf("insert spellbook: missing id")
	}
	if book.Spells == nil {
		book.Spells = datatypes.JSONSlice[models.SpellbookSpell]{}
	}
	if err := db.WithContext(ctx).Create(book).Error; err != nil {
		return fmt.Errorf("insert spellbook %s: %w", book.ID, err)
	}
	return nil
}

// ListSpellbooks returns all spellbooks, most recently updated first.
func (db *DB) ListSpellbooks(ctx context.Context) ([]models.Spellbook, error) {
	var books []models.Spellbook
	err := db.WithContext(ctx).
		Order("updated_at DESC, created_at DESC").
		Find(&books).Error
	return books, err
}

// GetSpellbook retrieves a spellbook by id. A missing id returns nil, nil.
func (db *DB) GetSpellbook(ctx context.Context, id string) (*models.Spellbook, error) {
	var book models.Spellbook
	err := db.WithContext(ctx).First(&book, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &book, nil
}

// SpellbookExists reports whether a spellbook with id is stored.
func (db *DB) SpellbookExists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&models.Spellbook{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// CountSpellbooks returns the number of stored spellbooks.
func (db *DB) CountSpellbooks(ctx context.Context) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&models.Spellbook{}).Count(&count).Error
	return count, err
}

// UpdateSpellbook merges the non-nil fields of update into the stored record.
func (db *DB) UpdateSpellbook(ctx context.Context, id string, update models.SpellbookUpdate) (*models.Spellbook, error) {
	return db.mutateSpellbook(ctx, id, func(book *models.Spellbook) (bool, error) {
		if update.Name != nil {
			book.Name = strings.TrimSpace(*update.Name)
		}
		if update.SpellcastingAbility != nil {
			book.SpellcastingAbility = strings.ToUpper(*update.SpellcastingAbility)
		}
		if update.SpellAttackModifier != nil {
			v := *update.SpellAttackModifier
			book.SpellAttackModifier = &v
		}
		if update.SpellSaveDC != nil {
			v := *update.SpellSaveDC
			book.SpellSaveDC = &v
		}
		if update.MaxSpellSlots != nil {
			slots := *update.MaxSpellSlots
			book.MaxSpellSlots = &slots
		}
		return true, nil
	})
}

// DeleteSpellbook removes a spellbook. Deleting a missing id is a no-op.
func (db *DB) DeleteSpellbook(ctx context.Context, id string) error {
	return db.WithContext(ctx).Delete(&models.Spellbook{}, "id = ?", id).Error
}

// AddSpellToSpellbook appends an unprepared entry for spellID.
// Adding a spell that is already present leaves the spellbook unchanged.
func (db *DB) AddSpellToSpellbook(ctx context.Context, id, spellID string) (*models.Spellbook, error) {
	book, _, err := db.AddSpellsToSpellbook(ctx, id, []string{spellID})
	return book, err
}

// AddSpellsToSpellbook appends entries for every spell id not yet present in a
// single read-modify-write. It returns the updated record and the number of
// entries actually added.
func (db *DB) AddSpellsToSpellbook(ctx context.Context, id string, spellIDs []string) (*models.Spellbook, int, error) {
	added := 0
	book, err := db.mutateSpellbook(ctx, id, func(book *models.Spellbook) (bool, error) {
		for _, spellID := range spellIDs {
			if spellID == "" || book.HasSpell(spellID) {
				continue
			}
			book.Spells = append(book.Spells, models.SpellbookSpell{SpellID: spellID})
			added++
		}
		return added > 0, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return book, added, nil
}

// RemoveSpellFromSpellbook drops the entry for spellID.
func (db *DB) RemoveSpellFromSpellbook(ctx context.Context, id, spellID string) (*models.Spellbook, error) {
	return db.mutateSpellbook(ctx, id, func(book *models.Spellbook) (bool, error) {
		kept := make(datatypes.JSONSlice[models.SpellbookSpell], 0, len(book.Spells))
		for _, e := range book.Spells {
			if e.SpellID != spellID {
				kept = append(kept, e)
			}
		}
		book.Spells = kept
		return true, nil
	})
}

// ToggleSpellPrepared flips the prepared flag of the entry for spellID.
func (db *DB) ToggleSpellPrepared(ctx context.Context, id, spellID string) (*models.Spellbook, error) {
	return db.mutateSpellbook(ctx, id, func(book *models.Spellbook) (bool, error) {
		i := book.FindSpell(spellID)
		if i < 0 {
			return false, nil
		}
		book.Spells[i].Prepared = !book.Spells[i].Prepared
		return true, nil
	})
}

// UpdateSpellNotes replaces the notes of the entry for spellID.
func (db *DB) UpdateSpellNotes(ctx context.Context, id, spellID, notes string) (*models.Spellbook, error) {
	return db.mutateSpellbook(ctx, id, func(book *models.Spellbook) (bool, error) {
		i := book.FindSpell(spellID)
		if i < 0 {
			return false, nil
		}
		book.Spells[i].Notes = notes
		return true, nil
	})
}

// mutateSpellbook loads a spellbook, applies fn and writes the result back as
// one atomic unit. Concurrent callers on the same store are serialized so no
// update is lost. fn reports whether it changed anything; unchanged records
// are not written.
func (db *DB) mutateSpellbook(ctx context.Context, id string, fn func(book *models.Spellbook) (bool, error)) (*models.Spellbook, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var book models.Spellbook
	err := db.Transaction(ctx, func(tx *DB) error {
		if err := tx.First(&book, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound(id)
			}
			return err
		}

		changed, err := fn(&book)
		if err != nil || !changed {
			return err
		}

		if book.Spells == nil {
			book.Spells = datatypes.JSONSlice[models.SpellbookSpell]{}
		}
		book.UpdatedAt = time.Now()
		return tx.Save(&book).Error
	})
	if err != nil {
		return nil, err
	}
	return &book, nil
}
