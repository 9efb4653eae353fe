// Package mcp provides the Model Context Protocol server for spellbook.
//
// The server exposes the spell catalog and the local spellbooks to MCP
// clients over stdio. It goes through the same catalog, spellbooks and backup
// packages as the CLI so both surfaces behave the same way.
package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/asteroid-belt/spellbook/internal/backup"
	"github.com/asteroid-belt/spellbook/internal/catalog"
	"github.com/asteroid-belt/spellbook/internal/config"
	"github.com/asteroid-belt/spellbook/internal/db"
	"github.com/asteroid-belt/spellbook/internal/spellbooks"
	"github.com/asteroid-belt/spellbook/internal/telemetry"
	"github.com/asteroid-belt/spellbook/pkg/version"
)

// Server wraps the MCP server with spellbook-specific functionality.
type Server struct {
	db        *db.DB
	cfg       *config.Config
	catalog   *catalog.Store
	books     *spellbooks.Service // Same service the CLI uses
	backup    *backup.Service
	server    *server.MCPServer
	telemetry telemetry.Client
	logger    *zap.Logger
}

// NewServer creates a new MCP server instance. cfg, tc and logger may be nil.
func NewServer(database *db.DB, cfg *config.Config, cat *catalog.Store, tc telemetry.Client, logger *zap.Logger) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if tc == nil {
		tc = telemetry.Noop()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		db:        database,
		cfg:       cfg,
		catalog:   cat,
		telemetry: tc,
		logger:    logger,
	}
	s.books = spellbooks.NewService(database,
		spellbooks.WithTelemetry(tc),
		spellbooks.WithLogger(logger.Named("spellbooks")),
		spellbooks.WithCopyChunkSize(cfg.Spellbooks.CopyChunkSize),
	)
	s.backup = backup.New(database,
		backup.WithTelemetry(tc),
		backup.WithLogger(logger.Named("backup")),
	)

	s.server = server.NewMCPServer(
		version.Name,
		version.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false), // subscribe=false
	)

	s.registerTools()
	s.registerResources()

	return s
}

// Serve loads the catalog and starts the MCP server over stdio.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.catalog.Load(ctx); err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	meta := s.catalog.Metadata()
	if changed, err := s.db.RecordCatalog(ctx, meta.Version, meta.Fingerprint); err != nil {
		s.logger.Warn("record catalog version", zap.Error(err))
	} else if changed {
		s.logger.Info("catalog changed since last run", zap.String("version", meta.Version))
	}
	s.logger.Info("mcp server starting", zap.Int("spells", meta.Count))
	return server.ServeStdio(s.server)
}

// registerTools adds all spellbook tools to the MCP server.
func (s *Server) registerTools() {
	// Catalog
	s.server.AddTool(searchSpellsTool(), s.handleSearchSpells)
	s.server.AddTool(getSpellTool(), s.handleGetSpell)

	// Spellbooks
	s.server.AddTool(listSpellbooksTool(), s.handleListSpellbooks)
	s.server.AddTool(getSpellbookTool(), s.handleGetSpellbook)
	s.server.AddTool(createSpellbookTool(), s.handleCreateSpellbook)
	s.server.AddTool(addSpellsTool(), s.handleAddSpells)
	s.server.AddTool(togglePreparedTool(), s.handleTogglePrepared)

	// Backup
	s.server.AddTool(exportTool(), s.handleExport)
}

// registerResources adds the spell resource template.
func (s *Server) registerResources() {
	s.server.AddResourceTemplate(
		mcp.NewResourceTemplate(
			resourcePrefix+"spell/{id}",
			"Spell",
			mcp.WithTemplateDescription("JSON description of a catalog spell"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleSpellResource,
	)
}
