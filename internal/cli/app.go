package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/asteroid-belt/spellbook/internal/backup"
	"github.com/asteroid-belt/spellbook/internal/catalog"
	"github.com/asteroid-belt/spellbook/internal/config"
	"github.com/asteroid-belt/spellbook/internal/db"
	"github.com/asteroid-belt/spellbook/internal/log"
	"github.com/asteroid-belt/spellbook/internal/models"
	"github.com/asteroid-belt/spellbook/internal/spellbooks"
)

// app bundles what a command needs. Commands open it on entry and close it
// before returning.
type app struct {
	cfg     *config.Config
	db      *db.DB
	catalog *catalog.Store
	books   *spellbooks.Service
	backup  *backup.Service
	logger  *zap.Logger
}

// openApp loads configuration, opens the database and wires the services.
// The catalog is created but only loaded by loadCatalog.
func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	paths := config.GetPaths(cfg)
	dbCfg := db.DefaultConfig(paths.Database)
	dbCfg.Debug = cfg.Database.Debug
	database, err := db.New(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	src, err := catalog.NewSource(cfg.Catalog)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("configure catalog: %w", err)
	}

	logger := log.Named("cli")
	return &app{
		cfg:     cfg,
		db:      database,
		catalog: catalog.New(src, catalog.WithLogger(logger.Named("catalog"))),
		books: spellbooks.NewService(database,
			spellbooks.WithTelemetry(telemetryClient),
			spellbooks.WithLogger(logger.Named("spellbooks")),
			spellbooks.WithCopyChunkSize(cfg.Spellbooks.CopyChunkSize),
		),
		backup: backup.New(database,
			backup.WithTelemetry(telemetryClient),
			backup.WithLogger(logger.Named("backup")),
		),
		logger: logger,
	}, nil
}

func (a *app) close() {
	_ = a.db.Close()
}

// loadCatalog loads the spell catalog and records how long it took.
func (a *app) loadCatalog(ctx context.Context) error {
	if a.catalog.Loaded() {
		return nil
	}
	start := time.Now()
	if err := a.catalog.Load(ctx); err != nil {
		return err
	}
	meta := a.catalog.Metadata()
	telemetryClient.TrackCatalogLoaded(a.cfg.Catalog.Source, meta.Count, time.Since(start).Milliseconds())

	changed, err := a.db.RecordCatalog(ctx, meta.Version, meta.Fingerprint)
	if err != nil {
		a.logger.Warn("record catalog version", zap.Error(err))
	} else if changed {
		a.logger.Info("catalog changed since last run",
			zap.String("version", meta.Version),
			zap.String("fingerprint", meta.Fingerprint))
	}
	return nil
}

// findSpellbook resolves ref as a spellbook id first and then as a name,
// ignoring case.
func (a *app) findSpellbook(ctx context.Context, ref string) (*models.Spellbook, error) {
	book, err := a.db.GetSpellbook(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("lookup spellbook: %w", err)
	}
	if book != nil {
		return book, nil
	}

	books, err := a.db.ListSpellbooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list spellbooks: %w", err)
	}
	for i := range books {
		if strings.EqualFold(books[i].Name, strings.TrimSpace(ref)) {
			return &books[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", db.ErrSpellbookNotFound, ref)
}

// checkSpellIDs returns an error naming every id that is not in the catalog.
func (a *app) checkSpellIDs(ids []string) error {
	var unknown []string
	for _, id := range ids {
		if _, ok := a.catalog.GetByID(id); !ok {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("spell not found: %s", strings.Join(unknown, ", "))
	}
	return nil
}
