package models

import (
	"testing"
)

func TestSpell_LevelLabel(t *testing.T) {
	tests := []struct {
		level int
		want  string
	}{
		{0, "Cantrip"},
		{1, "1st-level"},
		{2, "2nd-level"},
		{3, "3rd-level"},
		{4, "4th-level"},
		{9, "9th-level"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			s := &Spell{Level: tt.level}
			if got := s.LevelLabel(); got != tt.want {
				t.Errorf("LevelLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSpell_TypeLine(t *testing.T) {
	cantrip := &Spell{Level: 0, School: "Conjuration"}
	if got := cantrip.TypeLine(); got != "Conjuration cantrip" {
		t.Errorf("TypeLine() = %q", got)
	}
	leveled := &Spell{Level: 3, School: "Evocation"}
	if got := leveled.TypeLine(); got != "3rd-level evocation" {
		t.Errorf("TypeLine() = %q", got)
	}
}

func TestSpell_ComponentString(t *testing.T) {
	tests := []struct {
		name       string
		components Components
		want       string
	}{
		{
			name:       "verbal and somatic",
			components: Components{Verbal: true, Somatic: true},
			want:       "V, S",
		},
		{
			name:       "material with description",
			components: Components{Verbal: true, Somatic: true, Material: true, Materials: "a tiny ball of bat guano and sulfur"},
			want:       "V, S, M (a tiny ball of bat guano and sulfur)",
		},
		{
			name:       "bare material",
			components: Components{Material: true},
			want:       "M",
		},
		{
			name: "none",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Spell{Components: tt.components}
			if got := s.ComponentString(); got != tt.want {
				t.Errorf("ComponentString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSpell_HasClass(t *testing.T) {
	s := &Spell{Classes: []string{"Wizard", "Sorcerer"}}

	if !s.HasClass("wizard") {
		t.Error("HasClass(wizard) = false, want true")
	}
	if s.HasClass("Cleric") {
		t.Error("HasClass(Cleric) = true, want false")
	}
}
