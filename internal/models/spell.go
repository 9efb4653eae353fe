// Package models defines the core data structures for spellbook.
package models

import (
	"fmt"
	"strings"
	"time"
)

// MaxSpellLevel is the highest spell level in the catalog. Level 0 is a cantrip.
const MaxSpellLevel = 9

// Components describes the verbal, somatic and material requirements of a spell.
type Components struct {
	Verbal    bool   `json:"verbal"`
	Somatic   bool   `json:"somatic"`
	Material  bool   `json:"material"`
	Materials string `json:"materials,omitempty"`
}

// Spell is an immutable catalog entry loaded from the bundled dataset.
type Spell struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Level         int        `json:"level"`
	School        string     `json:"school"`
	Classes       []string   `json:"classes"`
	CastingTime   string     `json:"castingTime"`
	Range         string     `json:"range"`
	Duration      string     `json:"duration"`
	Components    Components `json:"components"`
	Concentration bool       `json:"concentration"`
	Ritual        bool       `json:"ritual"`
	Description   string     `json:"description"`
	HigherLevels  string     `json:"higherLevels,omitempty"`
	Source        string     `json:"source"`
}

// IsCantrip reports whether the spell is a level 0 spell.
func (s *Spell) IsCantrip() bool {
	return s.Level == 0
}

// LevelLabel returns the human readable level, e.g. "Cantrip" or "3rd-level".
func (s *Spell) LevelLabel() string {
	if s.IsCantrip() {
		return "Cantrip"
	}
	return ordinal(s.Level) + "-level"
}

// TypeLine returns the level and school as rulebooks print them, e.g.
// "3rd-level evocation" or "Conjuration cantrip".
func (s *Spell) TypeLine() string {
	if s.IsCantrip() {
		return s.School + " cantrip"
	}
	return s.LevelLabel() + " " + strings.ToLower(s.School)
}

// ComponentString renders components the way rulebooks print them: "V, S, M (a feather)".
func (s *Spell) ComponentString() string {
	var parts []string
	if s.Components.Verbal {
		parts = append(parts, "V")
	}
	if s.Components.Somatic {
		parts = append(parts, "S")
	}
	if s.Components.Material {
		if s.Components.Materials != "" {
			parts = append(parts, fmt.Sprintf("M (%s)", s.Components.Materials))
		} else {
			parts = append(parts, "M")
		}
	}
	return strings.Join(parts, ", ")
}

// HasClass reports whether the spell is on the given class list (case-insensitive).
func (s *Spell) HasClass(class string) bool {
	for _, c := range s.Classes {
		if strings.EqualFold(c, class) {
			return true
		}
	}
	return false
}

func ordinal(n int) string {
	switch {
	case n%100 >= 11 && n%100 <= 13:
		return fmt.Sprintf("%dth", n)
	case n%10 == 1:
		return fmt.Sprintf("%dst", n)
	case n%10 == 2:
		return fmt.Sprintf("%dnd", n)
	case n%10 == 3:
		return fmt.Sprintf("%drd", n)
	default:
		return fmt.Sprintf("%dth", n)
	}
}

// CatalogDocument is the JSON layout of the static spell catalog resource.
type CatalogDocument struct {
	Version     string    `json:"version"`
	GeneratedAt time.Time `json:"generatedAt"`
	Count       int       `json:"count"`
	Spells      []Spell   `json:"spells"`
}
