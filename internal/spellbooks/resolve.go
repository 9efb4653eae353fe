package spellbooks

import "github.com/asteroid-belt/spellbook/internal/models"

// SpellLookup finds catalog spells by id. *catalog.Store satisfies it.
type SpellLookup interface {
	GetByID(id string) (*models.Spell, bool)
}

// ResolvedSpell pairs a spellbook entry with its catalog spell.
type ResolvedSpell struct {
	Entry models.SpellbookSpell
	Spell models.Spell
}

// ResolveSpells joins a spellbook's entries with the catalog in entry order.
// Entries whose spell is no longer in the catalog are returned by id in
// missing instead of failing the whole lookup.
func ResolveSpells(book *models.Spellbook, lookup SpellLookup) (resolved []ResolvedSpell, missing []string) {
	if book == nil {
		return nil, nil
	}
	resolved = make([]ResolvedSpell, 0, len(book.Spells))
	for _, e := range book.Spells {
		sp, ok := lookup.GetByID(e.SpellID)
		if !ok {
			missing = append(missing, e.SpellID)
			continue
		}
		resolved = append(resolved, ResolvedSpell{Entry: e, Spell: *sp})
	}
	return resolved, missing
}

// ByLevel groups resolved spells by spell level, 0 through 9.
func ByLevel(spells []ResolvedSpell) [models.MaxSpellLevel + 1][]ResolvedSpell {
	var out [models.MaxSpellLevel + 1][]ResolvedSpell
	for _, rs := range spells {
		if rs.Spell.Level >= 0 && rs.Spell.Level <= models.MaxSpellLevel {
			out[rs.Spell.Level] = append(out[rs.Spell.Level], rs)
		}
	}
	return out
}
