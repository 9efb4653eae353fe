// Package spellbooks implements the multi-step spellbook actions: creating
// and populating a spellbook, batch adds, copies and deletes. Each action
// reports an Outcome instead of rolling back partial work.
package spellbooks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/asteroid-belt/spellbook/internal/db"
	"github.com/asteroid-belt/spellbook/internal/models"
	"github.com/asteroid-belt/spellbook/internal/telemetry"
)

// DefaultCopyChunkSize is how many spell ids a copy adds per batch.
const DefaultCopyChunkSize = 50

// MaxNameLength matches the column size of spellbooks.name.
const MaxNameLength = 255

// Store is the persistence the service needs. *db.DB satisfies it.
type Store interface {
	CreateSpellbook(ctx context.Context, input models.CreateSpellbookInput) (*models.Spellbook, error)
	GetSpellbook(ctx context.Context, id string) (*models.Spellbook, error)
	ListSpellbooks(ctx context.Context) ([]models.Spellbook, error)
	UpdateSpellbook(ctx context.Context, id string, update models.SpellbookUpdate) (*models.Spellbook, error)
	DeleteSpellbook(ctx context.Context, id string) error
	AddSpellsToSpellbook(ctx context.Context, id string, spellIDs []string) (*models.Spellbook, int, error)
}

var _ Store = (*db.DB)(nil)

// Service runs spellbook actions against a Store.
type Service struct {
	store         Store
	telemetry     telemetry.Client
	logger        *zap.Logger
	copyChunkSize int
}

// Option configures a Service.
type Option func(*Service)

// WithTelemetry sets the telemetry client.
func WithTelemetry(c telemetry.Client) Option {
	return func(s *Service) {
		if c != nil {
			s.telemetry = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCopyChunkSize sets how many spells a copy adds per batch.
func WithCopyChunkSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.copyChunkSize = n
		}
	}
}

// NewService creates a Service.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:         store,
		telemetry:     telemetry.Noop(),
		logger:        zap.NewNop(),
		copyChunkSize: DefaultCopyChunkSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BatchAdd adds spellIDs to a spellbook in one store operation. Spells that are
// already present are not counted as added.
func (s *Service) BatchAdd(ctx context.Context, bookID string, spellIDs []string) Outcome {
	requested := uniqueIDs(spellIDs)
	if len(requested) == 0 {
		return Outcome{Level: LevelWarning, Message: "No spells selected"}
	}

	book, added, err := s.store.AddSpellsToSpellbook(ctx, bookID, requested)
	if err != nil {
		s.logger.Error("batch add failed", zap.String("spellbook_id", bookID), zap.Error(err))
		return Outcome{
			Level:   LevelError,
			Message: fmt.Sprintf("Failed to add spells: %v", err),
			Failed:  len(requested),
			Err:     err,
		}
	}
	s.telemetry.TrackSpellsAdded(len(requested), added)

	msg := fmt.Sprintf("Added %s to %s", plural(added, "spell"), book.Name)
	if dup := len(requested) - added; dup > 0 {
		msg += fmt.Sprintf(" (%d already present)", dup)
	}
	return Outcome{Level: LevelSuccess, Message: msg, Spellbook: book, Added: added}
}

// CreateAndPopulate creates a spellbook and then adds the pending spells.
// Validation and creation failures are returned as errors so the caller can
// show them next to the input; nothing is written in that case. A failure
// while populating keeps the new spellbook and yields a warning outcome.
func (s *Service) CreateAndPopulate(ctx context.Context, input models.CreateSpellbookInput, pendingSpellIDs []string) (Outcome, error) {
	name, err := s.validateName(ctx, input.Name, "")
	if err != nil {
		return Outcome{}, err
	}
	input.Name = name
	if err := validateProfile(input.SpellcastingAbility, input.MaxSpellSlots); err != nil {
		return Outcome{}, err
	}

	book, err := s.store.CreateSpellbook(ctx, input)
	if err != nil {
		return Outcome{}, fmt.Errorf("create spellbook: %w", err)
	}
	s.telemetry.TrackSpellbookCreated(len(pendingSpellIDs), hasProfile(input))
	s.logger.Info("spellbook created", zap.String("spellbook_id", book.ID))

	pending := uniqueIDs(pendingSpellIDs)
	if len(pending) == 0 {
		return Outcome{
			Level:     LevelSuccess,
			Message:   fmt.Sprintf("Created spellbook %s", book.Name),
			Spellbook: book,
		}, nil
	}

	updated, added, err := s.store.AddSpellsToSpellbook(ctx, book.ID, pending)
	if err != nil {
		s.logger.Warn("populate new spellbook failed", zap.String("spellbook_id", book.ID), zap.Error(err))
		return Outcome{
			Level:     LevelWarning,
			Message:   fmt.Sprintf("Created spellbook %s, but adding spells failed: %v", book.Name, err),
			Spellbook: book,
			Failed:    len(pending),
			Err:       err,
		}, nil
	}

	return Outcome{
		Level:     LevelSuccess,
		Message:   fmt.Sprintf("Created spellbook %s with %s", updated.Name, plural(added, "spell")),
		Spellbook: updated,
		Added:     added,
	}, nil
}

// Copy duplicates a spellbook's profile and spell references into a new
// spellbook named "<name> (Copy)". Prepared flags and notes are not copied.
// Spells are added in chunks and ctx is checked between chunks; the new
// spellbook is kept whatever happens after it is created.
func (s *Service) Copy(ctx context.Context, sourceID string) Outcome {
	src, err := s.store.GetSpellbook(ctx, sourceID)
	if err == nil && src == nil {
		err = fmt.Errorf("%w: %s", db.ErrSpellbookNotFound, sourceID)
	}
	if err != nil {
		return Outcome{Level: LevelError, Message: fmt.Sprintf("Failed to copy spellbook: %v", err), Err: err}
	}

	name, err := s.copyName(ctx, src.Name)
	if err != nil {
		return Outcome{Level: LevelError, Message: fmt.Sprintf("Failed to copy spellbook: %v", err), Err: err}
	}

	srcID := src.ID
	book, err := s.store.CreateSpellbook(ctx, models.CreateSpellbookInput{
		Name:                name,
		SpellcastingAbility: src.SpellcastingAbility,
		SpellAttackModifier: copyInt(src.SpellAttackModifier),
		SpellSaveDC:         copyInt(src.SpellSaveDC),
		MaxSpellSlots:       copySlots(src.MaxSpellSlots),
		CopiedFromID:        &srcID,
	})
	if err != nil {
		return Outcome{Level: LevelError, Message: fmt.Sprintf("Failed to copy spellbook: %v", err), Err: err}
	}

	ids := src.SpellIDs()
	total := len(ids)
	copied, failed := 0, 0
	var lastErr error

	for start := 0; start < total; start += s.copyChunkSize {
		if err := ctx.Err(); err != nil {
			s.telemetry.TrackSpellbookCopied(total, "cancelled")
			return Outcome{
				Level:     LevelWarning,
				Message:   fmt.Sprintf("Copy cancelled after %d of %d spells", copied, total),
				Spellbook: book,
				Added:     copied,
				Err:       err,
			}
		}

		end := min(start+s.copyChunkSize, total)
		chunk := ids[start:end]
		updated, n, err := s.store.AddSpellsToSpellbook(ctx, book.ID, chunk)
		if err != nil {
			s.logger.Warn("copy chunk failed",
				zap.String("spellbook_id", book.ID),
				zap.Int("offset", start),
				zap.Error(err))
			failed += len(chunk)
			lastErr = err
			continue
		}
		copied += n
		book = updated
	}

	switch {
	case failed > 0 && copied == 0:
		s.telemetry.TrackSpellbookCopied(total, "failed")
		return Outcome{
			Level:     LevelError,
			Message:   fmt.Sprintf("Created %s, but none of the %d spells could be copied", book.Name, total),
			Spellbook: book,
			Failed:    failed,
			Err:       lastErr,
		}
	case failed > 0:
		s.telemetry.TrackSpellbookCopied(total, "partial")
		return Outcome{
			Level:     LevelWarning,
			Message:   fmt.Sprintf("Copied %d of %d spells; some spells failed", copied, total),
			Spellbook: book,
			Added:     copied,
			Failed:    failed,
			Err:       lastErr,
		}
	}

	s.telemetry.TrackSpellbookCopied(total, "success")
	return Outcome{
		Level:     LevelSuccess,
		Message:   fmt.Sprintf("Copied %s to %s with %s", src.Name, book.Name, plural(copied, "spell")),
		Spellbook: book,
		Added:     copied,
	}
}

// Delete removes a spellbook. Failures are reported, never retried.
func (s *Service) Delete(ctx context.Context, id string) Outcome {
	if err := s.store.DeleteSpellbook(ctx, id); err != nil {
		s.logger.Error("delete spellbook failed", zap.String("spellbook_id", id), zap.Error(err))
		return Outcome{
			Level:   LevelError,
			Message: "Failed to delete spellbook. Please try again.",
			Err:     err,
		}
	}
	s.telemetry.TrackSpellbookDeleted()
	return Outcome{Level: LevelSuccess, Message: "Spellbook deleted"}
}

// Rename changes a spellbook's name. The new name must be unique among the
// other spellbooks.
func (s *Service) Rename(ctx context.Context, id, name string) (*models.Spellbook, error) {
	return s.UpdateProfile(ctx, id, models.SpellbookUpdate{Name: &name})
}

// UpdateProfile applies a validated partial update.
func (s *Service) UpdateProfile(ctx context.Context, id string, update models.SpellbookUpdate) (*models.Spellbook, error) {
	if update.IsEmpty() {
		return nil, &ValidationError{Field: "update", Message: "Nothing to update"}
	}
	if update.Name != nil {
		name, err := s.validateName(ctx, *update.Name, id)
		if err != nil {
			return nil, err
		}
		update.Name = &name
	}
	ability := ""
	if update.SpellcastingAbility != nil {
		ability = *update.SpellcastingAbility
	}
	if err := validateProfile(ability, update.MaxSpellSlots); err != nil {
		return nil, err
	}
	return s.store.UpdateSpellbook(ctx, id, update)
}

// validateName trims name and checks it is present and not used by another
// spellbook, ignoring case. excludeID skips the spellbook being renamed.
func (s *Service) validateName(ctx context.Context, name, excludeID string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", &ValidationError{Field: "name", Message: "Spellbook name is required"}
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", &ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("Spellbook name must be %d characters or fewer", MaxNameLength),
		}
	}

	books, err := s.store.ListSpellbooks(ctx)
	if err != nil {
		return "", fmt.Errorf("list spellbooks: %w", err)
	}
	for _, b := range books {
		if b.ID != excludeID && strings.EqualFold(strings.TrimSpace(b.Name), name) {
			return "", &ValidationError{
				Field:   "name",
				Message: fmt.Sprintf("A spellbook named %q already exists", b.Name),
			}
		}
	}
	return name, nil
}

// copyName picks "<name> (Copy)", then "<name> (Copy 2)" and so on.
func (s *Service) copyName(ctx context.Context, name string) (string, error) {
	books, err := s.store.ListSpellbooks(ctx)
	if err != nil {
		return "", fmt.Errorf("list spellbooks: %w", err)
	}
	taken := make(map[string]bool, len(books))
	for _, b := range books {
		taken[strings.ToLower(b.Name)] = true
	}

	candidate := name + " (Copy)"
	for n := 2; taken[strings.ToLower(candidate)]; n++ {
		candidate = fmt.Sprintf("%s (Copy %d)", name, n)
	}
	if utf8.RuneCountInString(candidate) > MaxNameLength {
		return "", &ValidationError{Field: "name", Message: "Copied spellbook name is too long"}
	}
	return candidate, nil
}

func validateProfile(ability string, slots *models.SpellSlots) error {
	if !models.IsValidAbility(ability) {
		return &ValidationError{
			Field: "spellcastingAbility",
			Message: fmt.Sprintf("Spellcasting ability must be one of %s",
				strings.Join(models.ValidAbilities(), ", ")),
		}
	}
	if slots != nil {
		for level := 1; level <= models.MaxSpellLevel; level++ {
			if slots.ForLevel(level) < 0 {
				return &ValidationError{
					Field:   "maxSpellSlots",
					Message: fmt.Sprintf("Spell slots for level %d cannot be negative", level),
				}
			}
		}
	}
	return nil
}

// IsValidationError reports whether err is a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func hasProfile(in models.CreateSpellbookInput) bool {
	return in.SpellcastingAbility != "" || in.SpellAttackModifier != nil ||
		in.SpellSaveDC != nil || in.MaxSpellSlots != nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copySlots(p *models.SpellSlots) *models.SpellSlots {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
