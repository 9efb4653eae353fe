package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// Tool definitions for the spellbook MCP server.

// searchSpellsTool returns the spellbook_search_spells tool definition.
func searchSpellsTool() mcp.Tool {
	return mcp.NewTool("spellbook_search_spells",
		mcp.WithDescription("Search the spell catalog. All filters are optional and combine with AND. Returns spell summaries."),
		mcp.WithString("query",
			mcp.Description("Case-insensitive substring of the spell name"),
		),
		mcp.WithNumber("level_min",
			mcp.Description("Lowest spell level to include (0 = cantrip)"),
		),
		mcp.WithNumber("level_max",
			mcp.Description("Highest spell level to include (max 9)"),
		),
		mcp.WithString("school",
			mcp.Description("School of magic, e.g. Evocation"),
		),
		mcp.WithString("class",
			mcp.Description("Class whose spell list must contain the spell, e.g. Wizard"),
		),
		mcp.WithString("source",
			mcp.Description("Source book, e.g. SRD 5.1"),
		),
		mcp.WithBoolean("concentration",
			mcp.Description("Only spells that do (true) or do not (false) require concentration"),
		),
		mcp.WithBoolean("ritual",
			mcp.Description("Only spells that can (true) or cannot (false) be cast as rituals"),
		),
		mcp.WithString("sort",
			mcp.Description("Sort field: name, level or school (default: name)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results to return (default: 50, max: 500)"),
		),
	)
}

// getSpellTool returns the spellbook_get_spell tool definition.
func getSpellTool() mcp.Tool {
	return mcp.NewTool("spellbook_get_spell",
		mcp.WithDescription("Get the full description of a catalog spell including components, duration and higher-level effects."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("The spell's catalog id, e.g. fireball"),
		),
	)
}

// listSpellbooksTool returns the spellbook_list_spellbooks tool definition.
func listSpellbooksTool() mcp.Tool {
	return mcp.NewTool("spellbook_list_spellbooks",
		mcp.WithDescription("List all spellbooks, most recently updated first."),
	)
}

// getSpellbookTool returns the spellbook_get_spellbook tool definition.
func getSpellbookTool() mcp.Tool {
	return mcp.NewTool("spellbook_get_spellbook",
		mcp.WithDescription("Get a spellbook with its casting profile and its spells resolved against the catalog."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("The spellbook id"),
		),
	)
}

// createSpellbookTool returns the spellbook_create_spellbook tool definition.
func createSpellbookTool() mcp.Tool {
	return mcp.NewTool("spellbook_create_spellbook",
		mcp.WithDescription("Create a spellbook, optionally with a casting profile and an initial list of spells."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Spellbook name, unique ignoring case"),
		),
		mcp.WithString("spellcasting_ability",
			mcp.Description("Spellcasting ability: INT, WIS or CHA"),
		),
		mcp.WithNumber("spell_attack_modifier",
			mcp.Description("Spell attack bonus"),
		),
		mcp.WithNumber("spell_save_dc",
			mcp.Description("Spell save DC"),
		),
		mcp.WithArray("spell_ids",
			mcp.Description("Catalog ids of spells to add after creation"),
		),
	)
}

// addSpellsTool returns the spellbook_add_spells tool definition.
func addSpellsTool() mcp.Tool {
	return mcp.NewTool("spellbook_add_spells",
		mcp.WithDescription("Add catalog spells to a spellbook. Spells already in the spellbook are left unchanged."),
		mcp.WithString("spellbook_id",
			mcp.Required(),
			mcp.Description("The spellbook id"),
		),
		mcp.WithArray("spell_ids",
			mcp.Required(),
			mcp.Description("Catalog ids of the spells to add"),
		),
	)
}

// togglePreparedTool returns the spellbook_toggle_prepared tool definition.
func togglePreparedTool() mcp.Tool {
	return mcp.NewTool("spellbook_toggle_prepared",
		mcp.WithDescription("Flip the prepared flag of a spell in a spellbook."),
		mcp.WithString("spellbook_id",
			mcp.Required(),
			mcp.Description("The spellbook id"),
		),
		mcp.WithString("spell_id",
			mcp.Required(),
			mcp.Description("Catalog id of a spell in the spellbook"),
		),
	)
}

// exportTool returns the spellbook_export tool definition.
func exportTool() mcp.Tool {
	return mcp.NewTool("spellbook_export",
		mcp.WithDescription("Export every spellbook as a versioned JSON backup document."),
	)
}
