// Spellbook - spell catalog and spellbook manager.
//
// A local-first CLI for browsing a bundled spell catalog and keeping named
// spellbooks of spell references.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/asteroid-belt/spellbook/internal/cli"
	"github.com/asteroid-belt/spellbook/internal/config"
	"github.com/asteroid-belt/spellbook/internal/db"
	"github.com/asteroid-belt/spellbook/internal/log"
	"github.com/asteroid-belt/spellbook/internal/models"
	"github.com/asteroid-belt/spellbook/internal/telemetry"
	"github.com/asteroid-belt/spellbook/pkg/version"
)

func main() {
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
	// Load config and open database for persistent tracking ID
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	if err := log.Init(cfg.BaseDir, cfg.Log.Level); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		return 1
	}
	defer func() { _ = log.Close() }()

	paths := config.GetPaths(cfg)
	database, err := db.New(db.DefaultConfig(paths.Database))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		return 1
	}

	telemetryClient := telemetry.New(database)
	defer telemetryClient.Close()

	noteUpgrade(ctx, database)
	if count, err := database.CountSpellbooks(ctx); err == nil {
		telemetryClient.TrackAppStarted("cli", int(count))
	}
	// Commands open their own connection.
	_ = database.Close()

	if err := cli.Execute(ctx, telemetryClient); err != nil {
		return 1
	}
	return 0
}

// noteUpgrade records the running release in the database and logs when it
// is newer than the last release that opened it. Dev builds are ignored.
func noteUpgrade(ctx context.Context, database *db.DB) {
	if version.IsDevBuild() {
		return
	}
	prev, err := database.GetMeta(ctx, models.MetaAppVersion)
	if err != nil {
		return
	}
	if prev != "" && version.IsNewerThan(prev) {
		log.L().Info("upgraded", zap.String("from", prev), zap.String("to", version.Version))
	}
	if prev != version.Version {
		_ = database.SetMeta(ctx, models.MetaAppVersion, version.Version)
	}
}
