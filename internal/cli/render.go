package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/asteroid-belt/spellbook/internal/models"
	"github.com/asteroid-belt/spellbook/internal/spellbooks"
)

// Palette shared by all command output.
var (
	colorPrimary = lipgloss.AdaptiveColor{Light: "#6B3FA0", Dark: "#9B59B6"} // Arcane purple
	colorAccent  = lipgloss.AdaptiveColor{Light: "#B8860B", Dark: "#F1C40F"} // Gold
	colorMuted   = lipgloss.AdaptiveColor{Light: "#6B6B6B", Dark: "#6B6B6B"}
	colorSuccess = lipgloss.AdaptiveColor{Light: "#008000", Dark: "#10B981"}
	colorWarning = lipgloss.AdaptiveColor{Light: "#CC5500", Dark: "#F59E0B"}
	colorError   = lipgloss.AdaptiveColor{Light: "#CC0033", Dark: "#FF0040"}

	titleStyle   = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	headingStyle = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	labelStyle   = lipgloss.NewStyle().Foreground(colorMuted).Width(14)
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
)

const ruler = "──────────────────────────────────────────────────"

// renderSpellRow renders a one-line search result.
func renderSpellRow(sp *models.Spell) string {
	var tags []string
	if sp.Concentration {
		tags = append(tags, "C")
	}
	if sp.Ritual {
		tags = append(tags, "R")
	}
	flags := ""
	if len(tags) > 0 {
		flags = " " + warningStyle.Render("["+strings.Join(tags, ",")+"]")
	}
	return fmt.Sprintf("%s%s  %s  %s",
		titleStyle.Render(sp.Name),
		flags,
		mutedStyle.Render(sp.TypeLine()),
		mutedStyle.Render("("+sp.ID+")"),
	)
}

// renderSpellCard renders the header block of a spell. The description is
// rendered separately with renderMarkdown.
func renderSpellCard(sp *models.Spell) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(sp.Name))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(sp.TypeLine()))
	if sp.Ritual {
		b.WriteString(mutedStyle.Render(" (ritual)"))
	}
	b.WriteString("\n\n")

	row := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(labelStyle.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}
	duration := sp.Duration
	if sp.Concentration && !strings.HasPrefix(strings.ToLower(duration), "concentration") {
		duration = "Concentration, " + duration
	}
	row("Casting Time", sp.CastingTime)
	row("Range", sp.Range)
	row("Components", sp.ComponentString())
	row("Duration", duration)
	row("Classes", strings.Join(sp.Classes, ", "))
	row("Source", sp.Source)
	return b.String()
}

// spellMarkdown is the text placed on the clipboard and fed to glamour.
func spellMarkdown(sp *models.Spell) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", sp.Name)
	fmt.Fprintf(&b, "*%s*\n\n", sp.TypeLine())
	fmt.Fprintf(&b, "**Casting Time:** %s  \n", sp.CastingTime)
	fmt.Fprintf(&b, "**Range:** %s  \n", sp.Range)
	fmt.Fprintf(&b, "**Components:** %s  \n", sp.ComponentString())
	fmt.Fprintf(&b, "**Duration:** %s\n\n", sp.Duration)
	b.WriteString(sp.Description)
	b.WriteString("\n")
	if sp.HigherLevels != "" {
		fmt.Fprintf(&b, "\n**At Higher Levels.** %s\n", sp.HigherLevels)
	}
	return b.String()
}

// renderMarkdown renders markdown for the terminal using Glamour.
// It falls back to the raw text if rendering fails.
func renderMarkdown(content string) string {
	if content == "" {
		return ""
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return content
	}
	rendered, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(rendered, "\n") + "\n"
}

// renderOutcome renders an action outcome with a level marker.
func renderOutcome(o spellbooks.Outcome) string {
	switch o.Level {
	case spellbooks.LevelSuccess:
		return successStyle.Render("✓ " + o.Message)
	case spellbooks.LevelWarning:
		return warningStyle.Render("! " + o.Message)
	default:
		return errorStyle.Render("✗ " + o.Message)
	}
}

// renderSpellbookSummary renders one line of the spellbook list.
func renderSpellbookSummary(b *models.Spellbook) string {
	return fmt.Sprintf("%s  %s  %s",
		titleStyle.Render(b.Name),
		mutedStyle.Render(fmt.Sprintf("%d spells, %d prepared", len(b.Spells), b.PreparedCount())),
		mutedStyle.Render("("+b.ID+")"),
	)
}

// renderProfile renders the casting profile lines of a spellbook. It returns
// "" when no profile field is set.
func renderProfile(b *models.Spellbook) string {
	var parts []string
	if b.SpellcastingAbility != "" {
		parts = append(parts, "Ability "+b.SpellcastingAbility)
	}
	if b.SpellAttackModifier != nil {
		parts = append(parts, fmt.Sprintf("Attack %+d", *b.SpellAttackModifier))
	}
	if b.SpellSaveDC != nil {
		parts = append(parts, fmt.Sprintf("Save DC %d", *b.SpellSaveDC))
	}
	return strings.Join(parts, "  ·  ")
}

// renderSpellbook renders a spellbook grouped by spell level.
func renderSpellbook(b *models.Spellbook, resolved []spellbooks.ResolvedSpell, missing []string) string {
	var out strings.Builder
	out.WriteString(titleStyle.Render(b.Name))
	out.WriteString("\n")
	if profile := renderProfile(b); profile != "" {
		out.WriteString(mutedStyle.Render(profile))
		out.WriteString("\n")
	}
	out.WriteString(ruler)
	out.WriteString("\n")

	if len(b.Spells) == 0 {
		out.WriteString(mutedStyle.Render("No spells yet."))
		out.WriteString("\n")
		return out.String()
	}

	for level, group := range spellbooks.ByLevel(resolved) {
		if len(group) == 0 {
			continue
		}
		heading := "Cantrips"
		if level > 0 {
			heading = fmt.Sprintf("Level %d", level)
			if slots := b.MaxSpellSlots.ForLevel(level); slots > 0 {
				heading += fmt.Sprintf(" (%d slots)", slots)
			}
		}
		out.WriteString(headingStyle.Render(heading))
		out.WriteString("\n")
		for _, rs := range group {
			marker := "○"
			if rs.Entry.Prepared {
				marker = successStyle.Render("●")
			}
			fmt.Fprintf(&out, "  %s %s %s\n", marker, rs.Spell.Name, mutedStyle.Render("("+rs.Spell.ID+")"))
			if rs.Entry.Notes != "" {
				fmt.Fprintf(&out, "      %s\n", mutedStyle.Render(rs.Entry.Notes))
			}
		}
	}

	if len(missing) > 0 {
		out.WriteString(warningStyle.Render(fmt.Sprintf("Not in catalog: %s", strings.Join(missing, ", "))))
		out.WriteString("\n")
	}
	return out.String()
}
