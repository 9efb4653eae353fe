// Package testutil provides shared test fixtures.
package testutil

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/asteroid-belt/spellbook/internal/models"
)

// Spells returns a small catalog covering cantrips, rituals, concentration
// spells and the Ritual Caster pseudo-class.
func Spells() []models.Spell {
	return []models.Spell{
		{
			ID: "fire-bolt", Name: "Fire Bolt", Level: 0, School: "Evocation",
			Classes: []string{"Sorcerer", "Wizard"}, CastingTime: "1 action",
			Range: "120 feet", Duration: "Instantaneous",
			Components:  models.Components{Verbal: true, Somatic: true},
			Description: "You hurl a mote of fire.", Source: "SRD 5.1",
		},
		{
			ID: "guidance", Name: "Guidance", Level: 0, School: "Divination",
			Classes: []string{"Cleric", "Druid"}, CastingTime: "1 action",
			Range: "Touch", Duration: "Up to 1 minute",
			Components:    models.Components{Verbal: true, Somatic: true},
			Concentration: true,
			Description:   "Add a d4 to one ability check.", Source: "SRD 5.1",
		},
		{
			ID: "detect-magic", Name: "Detect Magic", Level: 1, School: "Divination",
			Classes: []string{"Cleric", "Wizard", "Ritual Caster"}, CastingTime: "1 action",
			Range: "Self", Duration: "Up to 10 minutes",
			Components:    models.Components{Verbal: true, Somatic: true},
			Concentration: true, Ritual: true,
			Description: "Sense magic within 30 feet.", Source: "SRD 5.1",
		},
		{
			ID: "cure-wounds", Name: "Cure Wounds", Level: 1, School: "Evocation",
			Classes: []string{"Cleric", "Druid", "Paladin"}, CastingTime: "1 action",
			Range: "Touch", Duration: "Instantaneous",
			Components:   models.Components{Verbal: true, Somatic: true},
			Description:  "A creature regains 1d8 hit points.",
			HigherLevels: "+1d8 per slot level above 1st.", Source: "SRD 5.1",
		},
		{
			ID: "misty-step", Name: "Misty Step", Level: 2, School: "Conjuration",
			Classes: []string{"Sorcerer", "Warlock", "Wizard"}, CastingTime: "1 bonus action",
			Range: "Self", Duration: "Instantaneous",
			Components:  models.Components{Verbal: true},
			Description: "Teleport up to 30 feet.", Source: "SRD 5.1",
		},
		{
			ID: "fireball", Name: "Fireball", Level: 3, School: "Evocation",
			Classes: []string{"Sorcerer", "Wizard"}, CastingTime: "1 action",
			Range: "150 feet", Duration: "Instantaneous",
			Components:  models.Components{Verbal: true, Somatic: true, Material: true, Materials: "bat guano and sulfur"},
			Description: "A 20-foot-radius explosion of flame.", Source: "SRD 5.1",
		},
		{
			ID: "hex", Name: "Hex", Level: 1, School: "Enchantment",
			Classes: []string{"Warlock"}, CastingTime: "1 bonus action",
			Range: "90 feet", Duration: "Up to 1 hour",
			Components:    models.Components{Verbal: true, Somatic: true, Material: true, Materials: "the petrified eye of a newt"},
			Concentration: true,
			Description:   "Curse a creature.", Source: "Basic Rules",
		},
	}
}

// SpellIDs returns the ids of Spells in order.
func SpellIDs() []string {
	spells := Spells()
	ids := make([]string, len(spells))
	for i, sp := range spells {
		ids[i] = sp.ID
	}
	return ids
}

// CatalogDocument wraps spells in a catalog document.
func CatalogDocument(spells []models.Spell) models.CatalogDocument {
	return models.CatalogDocument{
		Version:     "test-1",
		GeneratedAt: time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC),
		Count:       len(spells),
		Spells:      spells,
	}
}

// CatalogJSON returns the encoded catalog document for spells.
func CatalogJSON(t *testing.T, spells []models.Spell) []byte {
	t.Helper()
	data, err := json.Marshal(CatalogDocument(spells))
	if err != nil {
		t.Fatalf("marshal catalog: %v", err)
	}
	return data
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
