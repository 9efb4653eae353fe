package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/asteroid-belt/spellbook/internal/catalog"
	"github.com/asteroid-belt/spellbook/internal/db"
	"github.com/asteroid-belt/spellbook/internal/models"
	"github.com/asteroid-belt/spellbook/internal/spellbooks"
)

// Pagination constants for MCP tool handlers.
const (
	defaultSearchLimit = 50
	maxSearchLimit     = 500
)

// parseLimit extracts and validates a limit parameter from MCP tool arguments.
// Returns defaultVal if not present, caps at maxVal if exceeded.
func parseLimit(arguments map[string]interface{}, defaultVal, maxVal int) int {
	if l, ok := arguments["limit"].(float64); ok && l > 0 {
		limit := int(l)
		if limit > maxVal {
			return maxVal
		}
		return limit
	}
	return defaultVal
}

// parseStringList reads an array argument, skipping non-string and empty items.
func parseStringList(arguments map[string]interface{}, key string) []string {
	raw, ok := arguments[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseOptionalInt(arguments map[string]interface{}, key string) *int {
	if f, ok := arguments[key].(float64); ok {
		v := int(f)
		return &v
	}
	return nil
}

func parseOptionalBool(arguments map[string]interface{}, key string) *bool {
	if b, ok := arguments[key].(bool); ok {
		return &b
	}
	return nil
}

// trackToolCall is a helper to track MCP tool invocations.
func (s *Server) trackToolCall(toolName string, start time.Time, success bool) {
	durationMs := time.Since(start).Milliseconds()
	s.telemetry.TrackMCPToolCalled(toolName, durationMs, success)
	if !success {
		s.logger.Debug("mcp tool failed", zap.String("tool", toolName))
	}
}

// ensureCatalog loads the catalog on first use.
func (s *Server) ensureCatalog(ctx context.Context) error {
	if err := s.catalog.Load(ctx); err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	return nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

// SpellSummary represents a spell in search results.
type SpellSummary struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Level         int      `json:"level"`
	School        string   `json:"school"`
	Classes       []string `json:"classes"`
	Concentration bool     `json:"concentration"`
	Ritual        bool     `json:"ritual"`
	Source        string   `json:"source"`
}

// SpellResponse is the full spell returned by spellbook_get_spell.
type SpellResponse struct {
	SpellSummary
	LevelLabel   string `json:"levelLabel"`
	CastingTime  string `json:"castingTime"`
	Range        string `json:"range"`
	Components   string `json:"components"`
	Duration     string `json:"duration"`
	Description  string `json:"description"`
	HigherLevels string `json:"higherLevels,omitempty"`
}

// SearchResponse wraps search results with the total match count.
type SearchResponse struct {
	Total  int            `json:"total"`
	Spells []SpellSummary `json:"spells"`
}

// SpellbookSummary represents a spellbook in list responses.
type SpellbookSummary struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	SpellCount    int       `json:"spellCount"`
	PreparedCount int       `json:"preparedCount"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// SpellbookEntry is a spellbook entry joined with its catalog spell.
type SpellbookEntry struct {
	SpellID  string `json:"spellId"`
	Name     string `json:"name"`
	Level    int    `json:"level"`
	School   string `json:"school"`
	Prepared bool   `json:"prepared"`
	Notes    string `json:"notes,omitempty"`
}

// SpellbookResponse is the detailed view returned by spellbook_get_spellbook.
type SpellbookResponse struct {
	SpellbookSummary
	SpellcastingAbility string             `json:"spellcastingAbility,omitempty"`
	SpellAttackModifier *int               `json:"spellAttackModifier,omitempty"`
	SpellSaveDC         *int               `json:"spellSaveDC,omitempty"`
	MaxSpellSlots       *models.SpellSlots `json:"maxSpellSlots,omitempty"`
	CopiedFrom          *string            `json:"copiedFrom,omitempty"`
	Spells              []SpellbookEntry   `json:"spells"`
	MissingSpellIDs     []string           `json:"missingSpellIds,omitempty"`
}

// OutcomeResponse reports the result of a spellbook mutation.
type OutcomeResponse struct {
	Level     string            `json:"level"`
	Message   string            `json:"message"`
	Spellbook *SpellbookSummary `json:"spellbook,omitempty"`
	Added     int               `json:"added"`
	Unknown   []string          `json:"unknownSpellIds,omitempty"`
}

func toSpellSummary(sp *models.Spell) SpellSummary {
	return SpellSummary{
		ID:            sp.ID,
		Name:          sp.Name,
		Level:         sp.Level,
		School:        sp.School,
		Classes:       sp.Classes,
		Concentration: sp.Concentration,
		Ritual:        sp.Ritual,
		Source:        sp.Source,
	}
}

func toSpellResponse(sp *models.Spell) SpellResponse {
	return SpellResponse{
		SpellSummary: toSpellSummary(sp),
		LevelLabel:   sp.LevelLabel(),
		CastingTime:  sp.CastingTime,
		Range:        sp.Range,
		Components:   sp.ComponentString(),
		Duration:     sp.Duration,
		Description:  sp.Description,
		HigherLevels: sp.HigherLevels,
	}
}

func toSpellbookSummary(b *models.Spellbook) SpellbookSummary {
	return SpellbookSummary{
		ID:            b.ID,
		Name:          b.Name,
		SpellCount:    len(b.Spells),
		PreparedCount: b.PreparedCount(),
		LastUpdated:   b.UpdatedAt,
	}
}

func (s *Server) toSpellbookResponse(b *models.Spellbook) SpellbookResponse {
	resolved, missing := spellbooks.ResolveSpells(b, s.catalog)
	entries := make([]SpellbookEntry, 0, len(resolved))
	for _, rs := range resolved {
		entries = append(entries, SpellbookEntry{
			SpellID:  rs.Entry.SpellID,
			Name:     rs.Spell.Name,
			Level:    rs.Spell.Level,
			School:   rs.Spell.School,
			Prepared: rs.Entry.Prepared,
			Notes:    rs.Entry.Notes,
		})
	}
	return SpellbookResponse{
		SpellbookSummary:    toSpellbookSummary(b),
		SpellcastingAbility: b.SpellcastingAbility,
		SpellAttackModifier: b.SpellAttackModifier,
		SpellSaveDC:         b.SpellSaveDC,
		MaxSpellSlots:       b.MaxSpellSlots,
		CopiedFrom:          b.CopiedFromID,
		Spells:              entries,
		MissingSpellIDs:     missing,
	}
}

func toOutcomeResponse(o spellbooks.Outcome, unknown []string) OutcomeResponse {
	resp := OutcomeResponse{
		Level:   string(o.Level),
		Message: o.Message,
		Added:   o.Added,
		Unknown: unknown,
	}
	if o.Spellbook != nil {
		sum := toSpellbookSummary(o.Spellbook)
		resp.Spellbook = &sum
	}
	return resp
}

// splitKnown partitions ids into those present in the catalog and those not.
func (s *Server) splitKnown(ids []string) (known, unknown []string) {
	for _, id := range ids {
		if _, ok := s.catalog.GetByID(id); ok {
			known = append(known, id)
		} else {
			unknown = append(unknown, id)
		}
	}
	return known, unknown
}

// handleSearchSpells handles the spellbook_search_spells tool.
func (s *Server) handleSearchSpells(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const tool = "spellbook_search_spells"
	start := time.Now()
	args := req.Params.Arguments

	if err := s.ensureCatalog(ctx); err != nil {
		s.trackToolCall(tool, start, false)
		return mcp.NewToolResultError(err.Error()), nil
	}

	var f catalog.Filters
	f.Query, _ = args["query"].(string)
	minLevel, maxLevel := parseOptionalInt(args, "level_min"), parseOptionalInt(args, "level_max")
	if minLevel != nil || maxLevel != nil {
		r := catalog.LevelRange{Min: 0, Max: models.MaxSpellLevel}
		if minLevel != nil {
			r.Min = *minLevel
		}
		if maxLevel != nil {
			r.Max = *maxLevel
		}
		if r.Min > r.Max {
			s.trackToolCall(tool, start, false)
			return mcp.NewToolResultError(fmt.Sprintf("level_min %d is greater than level_max %d", r.Min, r.Max)), nil
		}
		f.Levels = &r
	}
	if v, ok := args["school"].(string); ok && v != "" {
		f.Schools = []string{v}
	}
	if v, ok := args["class"].(string); ok && v != "" {
		f.Classes = []string{v}
	}
	if v, ok := args["source"].(string); ok && v != "" {
		f.Sources = []string{v}
	}
	f.Concentration = parseOptionalBool(args, "concentration")
	f.Ritual = parseOptionalBool(args, "ritual")

	sortField, _ := args["sort"].(string)
	matches := catalog.Sort(s.catalog.Search(f), catalog.SortOptions{Field: catalog.ParseSortField(sortField)})

	limit := parseLimit(args, defaultSearchLimit, maxSearchLimit)
	resp := SearchResponse{Total: len(matches), Spells: make([]SpellSummary, 0, min(limit, len(matches)))}
	for i := range matches {
		if i >= limit {
			break
		}
		resp.Spells = append(resp.Spells, toSpellSummary(&matches[i]))
	}

	result, err := jsonResult(resp)
	if err != nil {
		s.trackToolCall(tool, start, false)
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}

	s.telemetry.TrackSpellSearched(len(f.Query), countFilters(f), len(matches), "mcp")
	s.trackToolCall(tool, start, true)
	return result, nil
}

// countFilters counts the non-text constraints of f.
func countFilters(f catalog.Filters) int {
	n := len(f.Schools) + len(f.Classes) + len(f.Sources)
	for _, set := range []bool{f.Levels != nil, f.Concentration != nil, f.Ritual != nil, f.Verbal != nil, f.Somatic != nil, f.Material != nil} {
		if set {
			n++
		}
	}
	return n
}

// handleGetSpell handles the spellbook_get_spell tool.
func (s *Server) handleGetSpell(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const tool = "spellbook_get_spell"
	start := time.Now()

	id, ok := req.Params.Arguments["id"].(string)
	if !ok || id == "" {
		s.trackToolCall(tool, start, false)
		return mcp.NewToolResultError("id parameter is required"), nil
	}
	if err := s.ensureCatalog(ctx); err != nil {
		s.trackToolCall(tool, start, false)
		return mcp.NewToolResultError(err.Error()), nil
	}

	spell, found := s.catalog.GetByID(id)
	if !found {
		s.trackToolCall(tool, start, false)
		return mcp.NewToolResultError(fmt.Sprintf("spell not found: %s", id)), nil
	}

	result, err := jsonResult(toSpellResponse(spell))
	if err != nil {
		s.trackToolCall(tool, start, false)
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal spell: %v", err)), nil
	}

	s.telemetry.TrackSpellViewed(spell.ID, "mcp")
	s.trackToolCall(tool, start, true)
	return result, nil
}

// handleListSpellbooks handles the spellbook_list_spellbooks tool.
func (s *Server) handleListSpellbooks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const tool = "spellbook_list_spellbooks"
	start := time.Now()

	books, err := s.db.ListSpellbooks(ctx)
	if err != nil {
		s.trackToolCall(tool, start, false)
		return mcp.NewToolResultError(fmt.Sprintf("failed to list spellbooks: %v", err)), nil
	}

	results := make([]SpellbookSummary, 0, len(books))
	for i := range books {
		results = append(results, toSpellbookSummary(&books[i]))
	}

	result, err := jsonResult(results)
	if err != nil {
		s.trackToolCall(tool, start, false)
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}

	s.trackToolCall(tool, start, true)
	return result, nil
}

// handleGetSpellbook handles the spellbook_get_spellbook tool.
func (s *Server) handleGetSpellbook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const tool = "spellbook_get_spellbook"
	start := time.Now()

	id, ok := req.Params.Arguments["id"].(string)
	if !ok || id == "" {
		s.trackToolCall(tool, start, false)
		return mcp.NewToolResultError("id parameter is required"), nil
	}
	if err := s.ensureCatalog(ctx); err != nil {
		s.trackToolCall(tool, start, false)
		return mcp.NewToolResultError(err.Error()), nil
	}

	book, err := s.db.GetSpellbook(ctx, id)
	if err != nil {
		s.trackToolCall(tool, start, false)
		return mcp.NewToolResultError(fmt.Sprintf("failed to get spellbook: %v", err)), nil
	}
	if book == nil {
		s.trackToolCall(tool, start, false)
		return mcp.NewToolResultError(fmt.Sprintf("spellbook not found: %s", id)), nil
	}

	result, err := jsonResult(s.toSpellbookResponse(book))
	if err != nil {
		s.trackToolCall(tool, start, false)
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal spellbook: %v", err)), nil
	}

	s.trackToolCall(tool, start, true)
	return result, nil
}

// handleCreateSpellbook handles the spellbook_create_spellbook tool.
func (s *Server) handleCreateSpellbook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const tool = "spellbook_create_spellbook"
	start := time.Now()
	args := req.Params.Arguments

	name, ok := args["name"].(string)
	if !ok || name == "" {
		s.trackToolCall(tool, start, false)
		return mcp.NewToolResultError("name parameter is required"), nil
	}
	if err := s.ensureCatalog(ctx); err != nil {
		s.trackToolCall(tool, start, false)
		return mcp.NewToolResultError(err.Error()), nil
	}

	ability, _ := args["spellcasting_ability"].(string)
	input := models.CreateSpellbookInput{
		Name:                name,
		SpellcastingAbility: ability,
		SpellAttackModifier: parseOptionalInt(args, "spell_attack_modifier"),
		SpellSaveDC:         parseOptionalInt(args, "spell_save_dc"),
	}
	known, unknown := s.splitKnown(parseStringList(args, "spell_ids"))

	outcome, err := s.books.CreateAndPopulate(ctx, input, known)
	if err != nil {
		s.trackToolCall(tool, start, false)
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := jsonResult(toOutcomeResponse(outcome, unknown))
	if err != nil {
		s.trackToolCall(tool, start, false)
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal outcome: %v", err)), nil
	}

	s.trackToolCall(tool, start, outcome.OK())
	return result, nil
}

// handleAddSpells handles the spellbook_add_spells tool.
// Ids that are not in the catalog are reported back and never stored.
func (s *Server) handleAddSpells(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const tool = "spellbook_add_spells"
	start := time.Now()
	args := req.Params.Arguments

	bookID, ok := args["spellbook_id"].(string)
	if !ok || bookID == "" {
		s.trackToolCall(tool, start, false)
		return mcp.NewToolResultError("spellbook_id parameter is required"), nil
	}
	ids := parseStringList(args, "spell_ids")
	if len(ids) == 0 {
		s.trackToolCall(tool, start, false)
		return mcp.NewToolResultError("spell_ids parameter is required"), nil
	}
	if err := s.ensureCatalog(ctx); err != nil {
		s.trackToolCall(tool, start, false)
		return mcp.NewToolResultError(err.Error()), nil
	}

	known, unknown := s.splitKnown(ids)
	if len(known) == 0 {
		s.trackToolCall(tool, start, false)
		return mcp.NewToolResultError(fmt.Sprintf("no known spells in %v", unknown)), nil
	}

	outcome := s.books.BatchAdd(ctx, bookID, known)
	if outcome.Level == spellbooks.LevelError {
		s.trackToolCall(tool, start, false)
		return mcp.NewToolResultError(outcome.Message), nil
	}

	result, err := jsonResult(toOutcomeResponse(outcome, unknown))
	if err != nil {
		s.trackToolCall(tool, start, false)
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal outcome: %v", err)), nil
	}

	s.trackToolCall(tool, start, true)
	return result, nil
}

// handleTogglePrepared handles the spellbook_toggle_prepared tool.
func (s *Server) handleTogglePrepared(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const tool = "spellbook_toggle_prepared"
	start := time.Now()
	args := req.Params.Arguments

	bookID, ok := args["spellbook_id"].(string)
	if !ok || bookID == "" {
		s.trackToolCall(tool, start, false)
		return mcp.NewToolResultError("spellbook_id parameter is required"), nil
	}
	spellID, ok := args["spell_id"].(string)
	if !ok || spellID == "" {
		s.trackToolCall(tool, start, false)
		return mcp.NewToolResultError("spell_id parameter is required"), nil
	}

	book, err := s.db.ToggleSpellPrepared(ctx, bookID, spellID)
	if err != nil {
		s.trackToolCall(tool, start, false)
		if errors.Is(err, db.ErrSpellbookNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("spellbook not found: %s", bookID)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to toggle prepared: %v", err)), nil
	}
	i := book.FindSpell(spellID)
	if i < 0 {
		s.trackToolCall(tool, start, false)
		return mcp.NewToolResultError(fmt.Sprintf("spell %s is not in spellbook %s", spellID, book.Name)), nil
	}

	result, err := jsonResult(map[string]any{
		"spellbookId": book.ID,
		"spellId":     spellID,
		"prepared":    book.Spells[i].Prepared,
	})
	if err != nil {
		s.trackToolCall(tool, start, false)
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}

	s.trackToolCall(tool, start, true)
	return result, nil
}

// handleExport handles the spellbook_export tool.
func (s *Server) handleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const tool = "spellbook_export"
	start := time.Now()

	doc, err := s.backup.Export(ctx)
	if err != nil {
		s.trackToolCall(tool, start, false)
		return mcp.NewToolResultError(fmt.Sprintf("failed to export spellbooks: %v", err)), nil
	}

	s.trackToolCall(tool, start, true)
	return mcp.NewToolResultText(doc), nil
}
