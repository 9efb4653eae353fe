// Package backup exports all spellbooks to a versioned JSON envelope and
// imports them back.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/asteroid-belt/spellbook/internal/models"
	"github.com/asteroid-belt/spellbook/internal/telemetry"
)

// MaxImportSize is the largest backup accepted by Import.
const MaxImportSize = 10 << 20

// FilenamePrefix starts every exported backup file name.
const FilenamePrefix = "spellbooks-backup-"

// Store is the persistence backup needs. *db.DB satisfies it.
type Store interface {
	ListSpellbooks(ctx context.Context) ([]models.Spellbook, error)
	SpellbookExists(ctx context.Context, id string) (bool, error)
	InsertSpellbook(ctx context.Context, book *models.Spellbook) error
	SetMeta(ctx context.Context, key, value string) error
}

// ImportResult summarises an import. Errors holds one message per record
// that could not be stored.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// Service exports and imports spellbooks.
type Service struct {
	store     Store
	logger    *zap.Logger
	telemetry telemetry.Client
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTelemetry sets the telemetry client.
func WithTelemetry(c telemetry.Client) Option {
	return func(s *Service) {
		if c != nil {
			s.telemetry = c
		}
	}
}

// WithClock overrides the time source used for export dates and file names.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a backup Service.
func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:     store,
		logger:    zap.NewNop(),
		telemetry: telemetry.Noop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Export returns every spellbook as pretty-printed JSON.
func (s *Service) Export(ctx context.Context) (string, error) {
	data, _, err := s.export(ctx)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *Service) export(ctx context.Context) ([]byte, int, error) {
	books, err := s.store.ListSpellbooks(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list spellbooks: %w", err)
	}
	if books == nil {
		books = []models.Spellbook{}
	}

	env := models.ExportData{
		Version:    models.ExportVersion,
		ExportDate: s.now().UTC(),
		Spellbooks: books,
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, 0, fmt.Errorf("encode backup: %w", err)
	}
	return data, len(books), nil
}

// Import stores the spellbooks of a backup envelope. The envelope is fully
// validated before anything is written. Spellbooks whose id already exists
// are skipped; records that fail to store are reported in the result and do
// not stop the rest. ctx is checked between records; on cancellation the
// partial result is returned with ctx.Err().
func (s *Service) Import(ctx context.Context, data []byte) (*ImportResult, error) {
	records, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	for i, raw := range records {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("import cancelled",
				zap.Int("processed", i),
				zap.Int("total", len(records)))
			return result, err
		}

		var book models.Spellbook
		if err := json.Unmarshal(raw, &book); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("record %d: %v", i+1, err))
			continue
		}
		if err := checkRecord(&book); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("record %d: %v", i+1, err))
			continue
		}

		exists, err := s.store.SpellbookExists(ctx, book.ID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("spellbook %q: %v", book.Name, err))
			continue
		}
		if exists {
			result.Skipped++
			continue
		}

		if err := s.store.InsertSpellbook(ctx, &book); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("spellbook %q: %v", book.Name, err))
			continue
		}
		result.Imported++
	}

	s.logger.Info("import finished",
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", len(result.Errors)))
	s.telemetry.TrackBackupImported(result.Imported, result.Skipped, len(result.Errors))
	return result, nil
}

// ImportFile imports a backup from disk. The size limit is checked before
// the file is read.
func (s *Service) ImportFile(ctx context.Context, path string) (*ImportResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat backup: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > MaxImportSize {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, info.Size(), MaxImportSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read backup: %w", err)
	}
	return s.Import(ctx, data)
}

// DownloadAsFile exports every spellbook and writes the backup through sink
// under a dated file name. It returns where the backup was written.
func (s *Service) DownloadAsFile(ctx context.Context, sink Sink) (string, error) {
	data, count, err := s.export(ctx)
	if err != nil {
		return "", err
	}

	now := s.now()
	location, err := sink.Write(ctx, Filename(now), data)
	if err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}

	if err := s.store.SetMeta(ctx, models.MetaLastExportAt, now.UTC().Format(time.RFC3339)); err != nil {
		s.logger.Warn("record last export time", zap.Error(err))
	}
	s.telemetry.TrackBackupExported(count, sink.Kind())
	s.logger.Info("backup written", zap.String("location", location), zap.Int("spellbooks", count))
	return location, nil
}

// Filename returns the backup file name for t, e.g.
// spellbooks-backup-2024-05-01.json.
func Filename(t time.Time) string {
	return FilenamePrefix + t.Format("2006-01-02") + ".json"
}

// decodeEnvelope validates the envelope and returns the raw records.
func decodeEnvelope(data []byte) ([]json.RawMessage, error) {
	if len(data) > MaxImportSize {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, len(data), MaxImportSize)
	}

	var probe interface{}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, &ParseError{Err: err}
	}

	fields, ok := probe.(map[string]interface{})
	if !ok {
		return nil, ErrInvalidFormat
	}
	for _, key := range []string{"version", "exportDate", "spellbooks"} {
		if v, present := fields[key]; !present || v == nil {
			return nil, ErrInvalidFormat
		}
	}

	var env struct {
		Version    string            `json:"version"`
		ExportDate string            `json:"exportDate"`
		Spellbooks []json.RawMessage `json:"spellbooks"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if env.Version != models.ExportVersion {
		return nil, &VersionMismatchError{Got: env.Version, Want: models.ExportVersion}
	}
	return env.Spellbooks, nil
}

func checkRecord(book *models.Spellbook) error {
	book.ID = strings.TrimSpace(book.ID)
	if book.ID == "" {
		return fmt.Errorf("missing id")
	}
	if strings.TrimSpace(book.Name) == "" {
		return fmt.Errorf("spellbook %s: missing name", book.ID)
	}
	if !models.IsValidAbility(book.SpellcastingAbility) {
		return fmt.Errorf("spellbook %q: unknown spellcasting ability %q", book.Name, book.SpellcastingAbility)
	}
	book.SpellcastingAbility = strings.ToUpper(book.SpellcastingAbility)

	seen := make(map[string]bool, len(book.Spells))
	kept := book.Spells[:0]
	for _, e := range book.Spells {
		if e.SpellID == "" || seen[e.SpellID] {
			continue
		}
		seen[e.SpellID] = true
		kept = append(kept, e)
	}
	book.Spells = kept
	return nil
}
