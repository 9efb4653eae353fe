package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// resourcePrefix is the URI scheme for spellbook resources.
const resourcePrefix = "spellbook://"

// parseSpellURI extracts the id from a spellbook://spell/{id} URI.
func parseSpellURI(uri string) (string, error) {
	if !strings.HasPrefix(uri, resourcePrefix+"spell/") {
		return "", fmt.Errorf("invalid URI scheme: %s", uri)
	}

	id := strings.TrimPrefix(uri, resourcePrefix+"spell/")
	if id == "" || strings.Contains(id, "/") {
		return "", fmt.Errorf("invalid spell id in URI: %s", uri)
	}
	return id, nil
}

// handleSpellResource handles spellbook://spell/{id} resources.
func (s *Server) handleSpellResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	id, err := parseSpellURI(req.Params.URI)
	if err != nil {
		return nil, err
	}
	if err := s.ensureCatalog(ctx); err != nil {
		return nil, err
	}

	spell, ok := s.catalog.GetByID(id)
	if !ok {
		return nil, fmt.Errorf("spell not found: %s", id)
	}

	data, err := json.Marshal(toSpellResponse(spell))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal spell: %v", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
