// Package main provides the spellbook-mcp server.
//
// spellbook-mcp exposes the spell catalog and local spellbooks via the Model
// Context Protocol so MCP clients can search spells and manage spellbooks.
//
// Usage:
//
//	spellbook-mcp [flags]
//
// The server communicates via JSON-RPC 2.0 over stdio (stdin/stdout).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/asteroid-belt/spellbook/internal/catalog"
	"github.com/asteroid-belt/spellbook/internal/config"
	"github.com/asteroid-belt/spellbook/internal/db"
	"github.com/asteroid-belt/spellbook/internal/log"
	"github.com/asteroid-belt/spellbook/internal/mcp"
	"github.com/asteroid-belt/spellbook/internal/telemetry"
	"github.com/asteroid-belt/spellbook/pkg/version"
)

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Printf("spellbook-mcp\n%s\n", version.Full())
		os.Exit(0)
	}

	if len(os.Args) > 1 && (os.Args[1] == "--help" || os.Args[1] == "-h") {
		printHelp()
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	os.Exit(run(ctx))
}

func run(ctx context.Context) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	// stdout carries the protocol, so logs only go to the file and stderr.
	if err := log.Init(cfg.BaseDir, cfg.Log.Level); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		return 1
	}
	defer func() { _ = log.Close() }()
	logger := log.Named("mcp")

	paths := config.GetPaths(cfg)
	dbCfg := db.DefaultConfig(paths.Database)
	dbCfg.Debug = cfg.Database.Debug
	database, err := db.New(dbCfg)
	if err != nil {
		logger.Error("open database", zap.Error(err))
		return 1
	}
	defer func() { _ = database.Close() }()

	src, err := catalog.NewSource(cfg.Catalog)
	if err != nil {
		logger.Error("configure catalog", zap.Error(err))
		return 1
	}
	cat := catalog.New(src, catalog.WithLogger(logger.Named("catalog")))

	telemetryClient := telemetry.New(database)
	defer telemetryClient.Close()
	if count, err := database.CountSpellbooks(ctx); err == nil {
		telemetryClient.TrackAppStarted("mcp", int(count))
	}

	server := mcp.NewServer(database, cfg, cat, telemetryClient, logger)
	if err := server.Serve(ctx); err != nil {
		logger.Error("server error", zap.Error(err))
		return 1
	}
	return 0
}

func printHelp() {
	help := `spellbook-mcp - MCP server for the spell catalog and your spellbooks

USAGE:
    spellbook-mcp [FLAGS]

FLAGS:
    -h, --help       Print this help message
    -v, --version    Print version information

DESCRIPTION:
    spellbook-mcp is a Model Context Protocol (MCP) server that exposes the
    spell catalog and the local spellbook database to MCP-compatible clients.

    The server communicates via JSON-RPC 2.0 over stdio (stdin/stdout).

CONFIGURATION:
    {
      "mcpServers": {
        "spellbook": {
          "type": "stdio",
          "command": "spellbook-mcp"
        }
      }
    }

    Set SPELLBOOK_HOME to use a data directory other than
    $XDG_DATA_HOME/spellbook.

TOOLS PROVIDED:
    spellbook_search_spells     Search the catalog with filters
    spellbook_get_spell         Get a spell's full description
    spellbook_list_spellbooks   List spellbooks
    spellbook_get_spellbook     Get a spellbook with resolved spells
    spellbook_create_spellbook  Create a spellbook
    spellbook_add_spells        Add spells to a spellbook
    spellbook_toggle_prepared   Toggle a spell's prepared flag
    spellbook_export            Export all spellbooks as JSON

RESOURCES PROVIDED:
    spellbook://spell/{id}      Spell as JSON
`
	fmt.Print(help)
}
