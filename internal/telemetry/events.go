package telemetry

import (
	"runtime"

	"github.com/asteroid-belt/spellbook/pkg/version"
)

// Event names
const (
	EventAppStarted         = "app_started"
	EventCLICommandExecuted = "cli_command_executed"
	EventCLIErrorOccurred   = "cli_error_occurred"

	EventCatalogLoaded = "catalog_loaded"
	EventSpellSearched = "spell_searched"
	EventSpellViewed   = "spell_viewed"
	EventSpellCopied   = "spell_copied"

	EventSpellbookCreated = "spellbook_created"
	EventSpellbookCopied  = "spellbook_copied"
	EventSpellbookDeleted = "spellbook_deleted"
	EventSpellsAdded      = "spells_added"

	EventBackupExported = "backup_exported"
	EventBackupImported = "backup_imported"

	EventMCPToolCalled = "mcp_tool_called"
)

// baseProperties returns common properties for all events.
func baseProperties() map[string]interface{} {
	return map[string]interface{}{
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"version":    version.Version,
		"prerelease": version.IsPrerelease(),
		"dev_build":  version.IsDevBuild(),
	}
}

func (c *posthogClient) TrackAppStarted(mode string, spellbookCount int) {
	props := baseProperties()
	props["mode"] = mode
	props["spellbook_count"] = spellbookCount
	c.Track(EventAppStarted, props)
}

func (c *posthogClient) TrackCLICommandExecuted(commandName string, hasFlags bool, durationMs int64) {
	props := baseProperties()
	props["command_name"] = commandName
	props["has_flags"] = hasFlags
	props["execution_duration_ms"] = durationMs
	c.Track(EventCLICommandExecuted, props)
}

func (c *posthogClient) TrackCLIError(commandName, errorType string) {
	props := baseProperties()
	props["command_name"] = commandName
	props["error_type"] = errorType
	c.Track(EventCLIErrorOccurred, props)
}

func (c *posthogClient) TrackCatalogLoaded(source string, spellCount int, durationMs int64) {
	props := baseProperties()
	props["source"] = source
	props["spell_count"] = spellCount
	props["duration_ms"] = durationMs
	c.Track(EventCatalogLoaded, props)
}

// TrackSpellSearched records search shape only; the query text is not sent.
func (c *posthogClient) TrackSpellSearched(queryLength, filterCount, resultCount int, surface string) {
	props := baseProperties()
	props["query_length"] = queryLength
	props["filter_count"] = filterCount
	props["result_count"] = resultCount
	props["surface"] = surface
	c.Track(EventSpellSearched, props)
}

func (c *posthogClient) TrackSpellViewed(spellID, surface string) {
	props := baseProperties()
	props["spell_id"] = spellID
	props["surface"] = surface
	c.Track(EventSpellViewed, props)
}

func (c *posthogClient) TrackSpellCopied(spellID string) {
	props := baseProperties()
	props["spell_id"] = spellID
	c.Track(EventSpellCopied, props)
}

func (c *posthogClient) TrackSpellbookCreated(pendingSpells int, hasProfile bool) {
	props := baseProperties()
	props["pending_spells"] = pendingSpells
	props["has_profile"] = hasProfile
	c.Track(EventSpellbookCreated, props)
}

func (c *posthogClient) TrackSpellbookCopied(spellCount int, outcome string) {
	props := baseProperties()
	props["spell_count"] = spellCount
	props["outcome"] = outcome
	c.Track(EventSpellbookCopied, props)
}

func (c *posthogClient) TrackSpellbookDeleted() {
	c.Track(EventSpellbookDeleted, baseProperties())
}

func (c *posthogClient) TrackSpellsAdded(requested, added int) {
	props := baseProperties()
	props["requested"] = requested
	props["added"] = added
	c.Track(EventSpellsAdded, props)
}

func (c *posthogClient) TrackBackupExported(spellbookCount int, sink string) {
	props := baseProperties()
	props["spellbook_count"] = spellbookCount
	props["sink"] = sink
	c.Track(EventBackupExported, props)
}

func (c *posthogClient) TrackBackupImported(imported, skipped, failed int) {
	props := baseProperties()
	props["imported"] = imported
	props["skipped"] = skipped
	props["failed"] = failed
	c.Track(EventBackupImported, props)
}

func (c *posthogClient) TrackMCPToolCalled(toolName string, durationMs int64, success bool) {
	props := baseProperties()
	props["tool_name"] = toolName
	props["duration_ms"] = durationMs
	props["success"] = success
	c.Track(EventMCPToolCalled, props)
}

// --- noopClient implementations (no-ops) ---

func (c *noopClient) TrackAppStarted(mode string, spellbookCount int) {}

func (c *noopClient) TrackCLICommandExecuted(commandName string, hasFlags bool, durationMs int64) {}

func (c *noopClient) TrackCLIError(commandName, errorType string) {}

func (c *noopClient) TrackCatalogLoaded(source string, spellCount int, durationMs int64) {}

func (c *noopClient) TrackSpellSearched(queryLength, filterCount, resultCount int, surface string) {}

func (c *noopClient) TrackSpellViewed(spellID, surface string) {}

func (c *noopClient) TrackSpellCopied(spellID string) {}

func (c *noopClient) TrackSpellbookCreated(pendingSpells int, hasProfile bool) {}

func (c *noopClient) TrackSpellbookCopied(spellCount int, outcome string) {}

func (c *noopClient) TrackSpellbookDeleted() {}

func (c *noopClient) TrackSpellsAdded(requested, added int) {}

func (c *noopClient) TrackBackupExported(spellbookCount int, sink string) {}

func (c *noopClient) TrackBackupImported(imported, skipped, failed int) {}

func (c *noopClient) TrackMCPToolCalled(toolName string, durationMs int64, success bool) {}
