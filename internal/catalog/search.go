package catalog

import (
	"sort"
	"strings"

	"github.com/asteroid-belt/spellbook/internal/models"
)

// RitualCaster is a pseudo-class used to tag ritual spells for the Ritual
// Caster feat. It is not a real spellcasting class.
const RitualCaster = "Ritual Caster"

// LevelRange is an inclusive spell level range.
type LevelRange struct {
	Min int
	Max int
}

// Contains reports whether level lies within the range.
func (r LevelRange) Contains(level int) bool {
	return level >= r.Min && level <= r.Max
}

// Filters narrows a search. A zero value matches every spell; each set field
// adds a constraint that must also hold.
type Filters struct {
	Query         string
	Levels        *LevelRange
	Schools       []string
	Classes       []string
	Sources       []string
	Concentration *bool
	Ritual        *bool
	Verbal        *bool
	Somatic       *bool
	Material      *bool
}

// IsEmpty reports whether no constraint is set.
func (f Filters) IsEmpty() bool {
	return strings.TrimSpace(f.Query) == "" &&
		f.Levels == nil &&
		len(f.Schools) == 0 &&
		len(f.Classes) == 0 &&
		len(f.Sources) == 0 &&
		f.Concentration == nil &&
		f.Ritual == nil &&
		f.Verbal == nil &&
		f.Somatic == nil &&
		f.Material == nil
}

// Filter returns a new slice holding the spells that satisfy f, in input order.
func Filter(spells []models.Spell, f Filters) []models.Spell {
	query := strings.ToLower(strings.TrimSpace(f.Query))

	out := make([]models.Spell, 0, len(spells))
	for _, sp := range spells {
		if query != "" && !strings.Contains(strings.ToLower(sp.Name), query) {
			continue
		}
		if f.Levels != nil && !f.Levels.Contains(sp.Level) {
			continue
		}
		if len(f.Schools) > 0 && !containsFold(f.Schools, sp.School) {
			continue
		}
		if len(f.Classes) > 0 && !anyClass(sp, f.Classes) {
			continue
		}
		if len(f.Sources) > 0 && !containsFold(f.Sources, sp.Source) {
			continue
		}
		if !matchBool(f.Concentration, sp.Concentration) ||
			!matchBool(f.Ritual, sp.Ritual) ||
			!matchBool(f.Verbal, sp.Components.Verbal) ||
			!matchBool(f.Somatic, sp.Components.Somatic) ||
			!matchBool(f.Material, sp.Components.Material) {
			continue
		}
		out = append(out, sp)
	}
	return out
}

func matchBool(want *bool, got bool) bool {
	return want == nil || *want == got
}

func containsFold(set []string, v string) bool {
	for _, s := range set {
		if strings.EqualFold(strings.TrimSpace(s), v) {
			return true
		}
	}
	return false
}

func anyClass(sp models.Spell, classes []string) bool {
	for _, c := range classes {
		if sp.HasClass(strings.TrimSpace(c)) {
			return true
		}
	}
	return false
}

// SortField selects the key spells are ordered by.
type SortField string

const (
	SortByName   SortField = "name"
	SortByLevel  SortField = "level"
	SortBySchool SortField = "school"
)

// SortOptions controls Sort.
type SortOptions struct {
	Field      SortField
	Descending bool
}

// ParseSortField maps user input to a SortField, defaulting to name.
func ParseSortField(s string) SortField {
	switch SortField(strings.ToLower(strings.TrimSpace(s))) {
	case SortByLevel:
		return SortByLevel
	case SortBySchool:
		return SortBySchool
	default:
		return SortByName
	}
}

// Sort returns a sorted copy of spells. Ties on level or school are broken by
// name in ascending order.
func Sort(spells []models.Spell, opts SortOptions) []models.Spell {
	out := make([]models.Spell, len(spells))
	copy(out, spells)

	byName := func(a, b models.Spell) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		var c int
		switch opts.Field {
		case SortByLevel:
			c = a.Level - b.Level
		case SortBySchool:
			c = strings.Compare(strings.ToLower(a.School), strings.ToLower(b.School))
		default:
			c = byName(a, b)
			if opts.Descending {
				c = -c
			}
			return c < 0
		}
		if c == 0 {
			return byName(a, b) < 0
		}
		if opts.Descending {
			c = -c
		}
		return c < 0
	})
	return out
}

func distinct(spells []models.Spell, values func(models.Spell) []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, sp := range spells {
		for _, v := range values(sp) {
			if v == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	if out == nil {
		out = []string{}
	}
	return out
}
