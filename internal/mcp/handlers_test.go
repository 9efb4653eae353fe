package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asteroid-belt/spellbook/internal/models"
)

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	result, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func decodeResult(t *testing.T, result *mcp.CallToolResult, v any) {
	t.Helper()
	require.False(t, result.IsError, "unexpected tool error: %v", result.Content)
	textContent, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	require.NoError(t, json.Unmarshal([]byte(textContent.Text), v))
}

func seedSpellbook(t *testing.T, s *Server, name string, spellIDs ...string) *models.Spellbook {
	t.Helper()
	ctx := context.Background()
	book, err := s.db.CreateSpellbook(ctx, models.CreateSpellbookInput{Name: name})
	require.NoError(t, err)
	if len(spellIDs) > 0 {
		book, _, err = s.db.AddSpellsToSpellbook(ctx, book.ID, spellIDs)
		require.NoError(t, err)
	}
	return book
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
		want int
	}{
		{"missing", map[string]any{}, 50},
		{"set", map[string]any{"limit": float64(5)}, 5},
		{"capped", map[string]any{"limit": float64(10000)}, 500},
		{"negative", map[string]any{"limit": float64(-1)}, 50},
		{"wrong type", map[string]any{"limit": "7"}, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLimit(tt.args, defaultSearchLimit, maxSearchLimit))
		})
	}
}

func TestHandleSearchSpells(t *testing.T) {
	server := newTestServer(t, nil)

	t.Run("query matches name", func(t *testing.T) {
		var resp SearchResponse
		decodeResult(t, callTool(t, server.handleSearchSpells, map[string]any{"query": "fire"}), &resp)

		ids := make([]string, 0, len(resp.Spells))
		for _, sp := range resp.Spells {
			ids = append(ids, sp.ID)
		}
		assert.Equal(t, []string{"fire-bolt", "fireball"}, ids)
		assert.Equal(t, 2, resp.Total)
	})

	t.Run("no arguments returns whole catalog sorted by name", func(t *testing.T) {
		var resp SearchResponse
		decodeResult(t, callTool(t, server.handleSearchSpells, map[string]any{}), &resp)

		assert.Equal(t, 7, resp.Total)
		assert.Equal(t, "cure-wounds", resp.Spells[0].ID)
	})

	t.Run("filters combine", func(t *testing.T) {
		var resp SearchResponse
		decodeResult(t, callTool(t, server.handleSearchSpells, map[string]any{
			"class":         "wizard",
			"level_min":     float64(1),
			"concentration": true,
		}), &resp)

		require.Len(t, resp.Spells, 1)
		assert.Equal(t, "detect-magic", resp.Spells[0].ID)
	})

	t.Run("sort by level and limit", func(t *testing.T) {
		var resp SearchResponse
		decodeResult(t, callTool(t, server.handleSearchSpells, map[string]any{
			"sort":  "level",
			"limit": float64(2),
		}), &resp)

		assert.Equal(t, 7, resp.Total)
		require.Len(t, resp.Spells, 2)
		assert.Equal(t, "fire-bolt", resp.Spells[0].ID)
		assert.Equal(t, "guidance", resp.Spells[1].ID)
	})

	t.Run("inverted level range is an error", func(t *testing.T) {
		result := callTool(t, server.handleSearchSpells, map[string]any{
			"level_min": float64(5),
			"level_max": float64(2),
		})
		assert.True(t, result.IsError)
	})

	t.Run("no results returns empty array", func(t *testing.T) {
		var resp SearchResponse
		decodeResult(t, callTool(t, server.handleSearchSpells, map[string]any{"query": "nonexistent"}), &resp)

		assert.Equal(t, 0, resp.Total)
		assert.NotNil(t, resp.Spells)
		assert.Empty(t, resp.Spells)
	})
}

func TestHandleGetSpell(t *testing.T) {
	server := newTestServer(t, nil)

	t.Run("returns full spell", func(t *testing.T) {
		var resp SpellResponse
		decodeResult(t, callTool(t, server.handleGetSpell, map[string]any{"id": "fireball"}), &resp)

		assert.Equal(t, "Fireball", resp.Name)
		assert.Equal(t, "3rd-level", resp.LevelLabel)
		assert.Equal(t, "V, S, M (bat guano and sulfur)", resp.Components)
	})

	t.Run("missing id", func(t *testing.T) {
		assert.True(t, callTool(t, server.handleGetSpell, map[string]any{}).IsError)
	})

	t.Run("unknown id", func(t *testing.T) {
		assert.True(t, callTool(t, server.handleGetSpell, map[string]any{"id": "wish"}).IsError)
	})
}

func TestHandleListSpellbooks(t *testing.T) {
	server := newTestServer(t, nil)

	var empty []SpellbookSummary
	decodeResult(t, callTool(t, server.handleListSpellbooks, map[string]any{}), &empty)
	assert.Empty(t, empty)

	seedSpellbook(t, server, "Elminster", "fireball", "misty-step")

	var books []SpellbookSummary
	decodeResult(t, callTool(t, server.handleListSpellbooks, map[string]any{}), &books)
	require.Len(t, books, 1)
	assert.Equal(t, "Elminster", books[0].Name)
	assert.Equal(t, 2, books[0].SpellCount)
	assert.Equal(t, 0, books[0].PreparedCount)
}

func TestHandleGetSpellbook(t *testing.T) {
	server := newTestServer(t, nil)
	book := seedSpellbook(t, server, "Elminster", "fireball", "retired-spell")

	t.Run("resolves spells against the catalog", func(t *testing.T) {
		var resp SpellbookResponse
		decodeResult(t, callTool(t, server.handleGetSpellbook, map[string]any{"id": book.ID}), &resp)

		assert.Equal(t, "Elminster", resp.Name)
		require.Len(t, resp.Spells, 1)
		assert.Equal(t, "Fireball", resp.Spells[0].Name)
		assert.Equal(t, 3, resp.Spells[0].Level)
		assert.Equal(t, []string{"retired-spell"}, resp.MissingSpellIDs)
	})

	t.Run("unknown spellbook", func(t *testing.T) {
		assert.True(t, callTool(t, server.handleGetSpellbook, map[string]any{"id": "nope"}).IsError)
	})

	t.Run("missing id", func(t *testing.T) {
		assert.True(t, callTool(t, server.handleGetSpellbook, map[string]any{}).IsError)
	})
}

func TestHandleCreateSpellbook(t *testing.T) {
	server := newTestServer(t, nil)

	t.Run("creates and populates", func(t *testing.T) {
		var resp OutcomeResponse
		decodeResult(t, callTool(t, server.handleCreateSpellbook, map[string]any{
			"name":                 "Raistlin",
			"spellcasting_ability": "int",
			"spell_save_dc":        float64(15),
			"spell_ids":            []interface{}{"fireball", "fire-bolt", "not-a-spell"},
		}), &resp)

		assert.Equal(t, "success", resp.Level)
		assert.Equal(t, 2, resp.Added)
		assert.Equal(t, []string{"not-a-spell"}, resp.Unknown)
		require.NotNil(t, resp.Spellbook)

		stored, err := server.db.GetSpellbook(context.Background(), resp.Spellbook.ID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, "INT", stored.SpellcastingAbility)
		require.NotNil(t, stored.SpellSaveDC)
		assert.Equal(t, 15, *stored.SpellSaveDC)
		assert.Equal(t, []string{"fireball", "fire-bolt"}, stored.SpellIDs())
	})

	t.Run("duplicate name is rejected", func(t *testing.T) {
		result := callTool(t, server.handleCreateSpellbook, map[string]any{"name": "raistlin"})
		assert.True(t, result.IsError)
	})

	t.Run("invalid ability is rejected", func(t *testing.T) {
		result := callTool(t, server.handleCreateSpellbook, map[string]any{
			"name":                 "Bad Ability",
			"spellcasting_ability": "STR",
		})
		assert.True(t, result.IsError)
	})

	t.Run("name is required", func(t *testing.T) {
		assert.True(t, callTool(t, server.handleCreateSpellbook, map[string]any{}).IsError)
	})
}

func TestHandleAddSpells(t *testing.T) {
	server := newTestServer(t, nil)
	book := seedSpellbook(t, server, "Tasha", "hex")

	t.Run("adds known spells and reports unknown ones", func(t *testing.T) {
		var resp OutcomeResponse
		decodeResult(t, callTool(t, server.handleAddSpells, map[string]any{
			"spellbook_id": book.ID,
			"spell_ids":    []interface{}{"hex", "misty-step", "bogus"},
		}), &resp)

		assert.Equal(t, 1, resp.Added)
		assert.Equal(t, []string{"bogus"}, resp.Unknown)
		assert.Contains(t, resp.Message, "1 already present")
	})

	t.Run("only unknown spells", func(t *testing.T) {
		result := callTool(t, server.handleAddSpells, map[string]any{
			"spellbook_id": book.ID,
			"spell_ids":    []interface{}{"bogus"},
		})
		assert.True(t, result.IsError)
	})

	t.Run("missing spellbook", func(t *testing.T) {
		result := callTool(t, server.handleAddSpells, map[string]any{
			"spellbook_id": "missing",
			"spell_ids":    []interface{}{"hex"},
		})
		assert.True(t, result.IsError)
	})

	t.Run("spell_ids required", func(t *testing.T) {
		result := callTool(t, server.handleAddSpells, map[string]any{"spellbook_id": book.ID})
		assert.True(t, result.IsError)
	})
}

func TestHandleTogglePrepared(t *testing.T) {
	server := newTestServer(t, nil)
	book := seedSpellbook(t, server, "Mordenkainen", "fireball")

	var resp map[string]any
	decodeResult(t, callTool(t, server.handleTogglePrepared, map[string]any{
		"spellbook_id": book.ID,
		"spell_id":     "fireball",
	}), &resp)
	assert.Equal(t, true, resp["prepared"])

	decodeResult(t, callTool(t, server.handleTogglePrepared, map[string]any{
		"spellbook_id": book.ID,
		"spell_id":     "fireball",
	}), &resp)
	assert.Equal(t, false, resp["prepared"])

	t.Run("spell not in spellbook", func(t *testing.T) {
		result := callTool(t, server.handleTogglePrepared, map[string]any{
			"spellbook_id": book.ID,
			"spell_id":     "hex",
		})
		assert.True(t, result.IsError)
	})

	t.Run("missing spellbook", func(t *testing.T) {
		result := callTool(t, server.handleTogglePrepared, map[string]any{
			"spellbook_id": "missing",
			"spell_id":     "fireball",
		})
		assert.True(t, result.IsError)
	})
}

func TestHandleExport(t *testing.T) {
	server := newTestServer(t, nil)
	seedSpellbook(t, server, "Bigby", "fire-bolt")

	var doc models.ExportData
	decodeResult(t, callTool(t, server.handleExport, map[string]any{}), &doc)

	assert.Equal(t, models.ExportVersion, doc.Version)
	require.Len(t, doc.Spellbooks, 1)
	assert.Equal(t, "Bigby", doc.Spellbooks[0].Name)
}
