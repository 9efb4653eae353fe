// Package catalog loads the read-only spell reference data and answers
// lookups and filtered searches over it.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/asteroid-belt/spellbook/internal/models"
)

// Metadata describes the loaded catalog document.
type Metadata struct {
	Version     string    `json:"version"`
	GeneratedAt time.Time `json:"generatedAt"`
	Count       int       `json:"count"`
	Fingerprint string    `json:"fingerprint"`
}

// Store holds the spell catalog in memory once loaded.
type Store struct {
	source Source
	logger *zap.Logger

	group singleflight.Group

	mu     sync.RWMutex
	loaded bool
	spells []models.Spell
	byID   map[string]int
	meta   Metadata
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for load diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Store backed by source. Nothing is fetched until Load.
func New(source Source, opts ...Option) *Store {
	s := &Store{
		source: source,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load fetches and parses the catalog. It is idempotent: after a successful
// load further calls return immediately, and concurrent first calls share a
// single fetch. A failed load leaves the store empty and may be retried.
func (s *Store) Load(ctx context.Context) error {
	if s.Loaded() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// The shared fetch must not be cut short by whichever caller started it.
	ch := s.group.DoChan("load", func() (interface{}, error) {
		if s.Loaded() {
			return nil, nil
		}
		return nil, s.load(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Shared {
			s.logger.Debug("catalog load shared with concurrent caller")
		}
		return res.Err
	}
}

func (s *Store) load(ctx context.Context) error {
	start := time.Now()

	data, err := s.source.Fetch(ctx)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return err
		}
		return &LoadError{Location: describe(s.source), Err: err}
	}

	doc, err := Parse(data)
	if err != nil {
		return err
	}

	spells := make([]models.Spell, 0, len(doc.Spells))
	index := make(map[string]int, len(doc.Spells))
	for _, sp := range doc.Spells {
		if _, dup := index[sp.ID]; dup {
			s.logger.Warn("duplicate spell id in catalog", zap.String("id", sp.ID))
			continue
		}
		index[sp.ID] = len(spells)
		spells = append(spells, sp)
	}

	meta := Metadata{
		Version:     doc.Version,
		GeneratedAt: doc.GeneratedAt,
		Count:       len(spells),
		Fingerprint: Fingerprint(data),
	}

	s.mu.Lock()
	s.spells = spells
	s.byID = index
	s.meta = meta
	s.loaded = true
	s.mu.Unlock()

	s.logger.Info("spell catalog loaded",
		zap.String("source", describe(s.source)),
		zap.String("version", meta.Version),
		zap.Int("count", meta.Count),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

// Parse decodes a catalog document. A missing spells array is an error.
func Parse(data []byte) (*models.CatalogDocument, error) {
	var doc models.CatalogDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Err: err}
	}
	if doc.Spells == nil {
		return nil, &ParseError{Err: errors.New("document has no spells array")}
	}
	for i, sp := range doc.Spells {
		if sp.ID == "" {
			return nil, &ParseError{Err: fmt.Errorf("spell at index %d has no id", i)}
		}
	}
	return &doc, nil
}

// Loaded reports whether a load has succeeded.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// GetAll returns every spell in catalog order. Before a load it returns an
// empty slice.
func (s *Store) GetAll() []models.Spell {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Spell, len(s.spells))
	copy(out, s.spells)
	return out
}

// GetByID returns the spell with the given id.
func (s *Store) GetByID(id string) (*models.Spell, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	sp := s.spells[i]
	return &sp, true
}

// Metadata returns details of the loaded document. Zero before a load.
func (s *Store) Metadata() Metadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta
}

// Search returns the spells matching every constraint in f.
func (s *Store) Search(f Filters) []models.Spell {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Filter(s.spells, f)
}

// Schools returns the distinct schools of magic, sorted.
func (s *Store) Schools() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return distinct(s.spells, func(sp models.Spell) []string { return []string{sp.School} })
}

// Classes returns the distinct spellcasting classes, sorted. The
// RitualCaster pseudo-class is not included.
func (s *Store) Classes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return distinct(s.spells, func(sp models.Spell) []string {
		out := make([]string, 0, len(sp.Classes))
		for _, c := range sp.Classes {
			if c != RitualCaster {
				out = append(out, c)
			}
		}
		return out
	})
}

// Sources returns the distinct source books, sorted.
func (s *Store) Sources() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return distinct(s.spells, func(sp models.Spell) []string { return []string{sp.Source} })
}

func describe(src Source) string {
	if st, ok := src.(fmt.Stringer); ok {
		return st.String()
	}
	return fmt.Sprintf("%T", src)
}
