package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Spellcasting abilities a spellbook profile may reference.
const (
	AbilityIntelligence = "INT"
	AbilityWisdom       = "WIS"
	AbilityCharisma     = "CHA"
)

// ValidAbilities returns all accepted spellcasting ability tags.
func ValidAbilities() []string {
	return []string{AbilityIntelligence, AbilityWisdom, AbilityCharisma}
}

// IsValidAbility reports whether a is empty or one of ValidAbilities.
func IsValidAbility(a string) bool {
	if a == "" {
		return true
	}
	for _, v := range ValidAbilities() {
		if strings.EqualFold(a, v) {
			return true
		}
	}
	return false
}

// SpellbookSpell is one spell reference inside a spellbook.
type SpellbookSpell struct {
	SpellID  string `json:"spellId"`
	Prepared bool   `json:"prepared"`
	Notes    string `json:"notes"`
}

// SpellSlots holds the maximum number of slots per spell level.
type SpellSlots struct {
	Level1 int `json:"1"`
	Level2 int `json:"2"`
	Level3 int `json:"3"`
	Level4 int `json:"4"`
	Level5 int `json:"5"`
	Level6 int `json:"6"`
	Level7 int `json:"7"`
	Level8 int `json:"8"`
	Level9 int `json:"9"`
}

// ForLevel returns the slot maximum for a spell level (1-9). Other levels return 0.
func (s *SpellSlots) ForLevel(level int) int {
	if s == nil {
		return 0
	}
	switch level {
	case 1:
		return s.Level1
	case 2:
		return s.Level2
	case 3:
		return s.Level3
	case 4:
		return s.Level4
	case 5:
		return s.Level5
	case 6:
		return s.Level6
	case 7:
		return s.Level7
	case 8:
		return s.Level8
	case 9:
		return s.Level9
	}
	return 0
}

// Spellbook is a user-owned, named list of spell references.
// Entries never embed catalog data; they only carry the spell id.
type Spellbook struct {
	ID     string                             `gorm:"primaryKey;size:36" json:"id"`
	Name   string                             `gorm:"size:255;index;not null" json:"name"`
	Spells datatypes.JSONSlice[SpellbookSpell] `json:"spells"`

	// Optional casting profile
	SpellcastingAbility string      `gorm:"size:3" json:"spellcastingAbility,omitempty"`
	SpellAttackModifier *int        `json:"spellAttackModifier,omitempty"`
	SpellSaveDC         *int        `json:"spellSaveDC,omitempty"`
	MaxSpellSlots       *SpellSlots `gorm:"serializer:json" json:"maxSpellSlots,omitempty"`

	// Set on copies; points at the spellbook this one was copied from.
	CopiedFromID *string `gorm:"size:36" json:"copiedFrom,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created"`
	UpdatedAt time.Time `gorm:"index" json:"lastUpdated"`
}

// TableName specifies the table name for GORM.
func (Spellbook) TableName() string {
	return "spellbooks"
}

// FindSpell returns the index of the entry for spellID, or -1.
func (b *Spellbook) FindSpell(spellID string) int {
	for i, e := range b.Spells {
		if e.SpellID == spellID {
			return i
		}
	}
	return -1
}

// HasSpell reports whether the spellbook holds an entry for spellID.
func (b *Spellbook) HasSpell(spellID string) bool {
	return b.FindSpell(spellID) >= 0
}

// SpellIDs returns the referenced spell ids in entry order.
func (b *Spellbook) SpellIDs() []string {
	ids := make([]string, 0, len(b.Spells))
	for _, e := range b.Spells {
		ids = append(ids, e.SpellID)
	}
	return ids
}

// PreparedCount returns the number of entries marked prepared.
func (b *Spellbook) PreparedCount() int {
	n := 0
	for _, e := range b.Spells {
		if e.Prepared {
			n++
		}
	}
	return n
}

// CreateSpellbookInput carries the user-supplied fields for a new spellbook.
type CreateSpellbookInput struct {
	Name                string
	SpellcastingAbility string
	SpellAttackModifier *int
	SpellSaveDC         *int
	MaxSpellSlots       *SpellSlots
	CopiedFromID        *string
}

// SpellbookUpdate is a partial update. Nil fields are left unchanged.
type SpellbookUpdate struct {
	Name                *string
	SpellcastingAbility *string
	SpellAttackModifier *int
	SpellSaveDC         *int
	MaxSpellSlots       *SpellSlots
}

// IsEmpty reports whether the update changes nothing.
func (u SpellbookUpdate) IsEmpty() bool {
	return u.Name == nil && u.SpellcastingAbility == nil && u.SpellAttackModifier == nil &&
		u.SpellSaveDC == nil && u.MaxSpellSlots == nil
}
