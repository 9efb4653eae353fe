package spellbooks

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asteroid-belt/spellbook/internal/db"
	"github.com/asteroid-belt/spellbook/internal/models"
	"github.com/asteroid-belt/spellbook/internal/testutil"
)

func testStore(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.New(db.DefaultConfig(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database
}

// flakyStore wraps a real store and injects failures.
type flakyStore struct {
	*db.DB
	createErr error
	deleteErr error
	failAdd   map[int]bool
	afterAdd  func(call int)
	addCalls  int
}

func (f *flakyStore) CreateSpellbook(ctx context.Context, in models.CreateSpellbookInput) (*models.Spellbook, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.DB.CreateSpellbook(ctx, in)
}

func (f *flakyStore) DeleteSpellbook(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.DB.DeleteSpellbook(ctx, id)
}

func (f *flakyStore) AddSpellsToSpellbook(ctx context.Context, id string, ids []string) (*models.Spellbook, int, error) {
	f.addCalls++
	call := f.addCalls
	if f.afterAdd != nil {
		defer f.afterAdd(call)
	}
	if f.failAdd[call] {
		return nil, 0, errors.New("disk I/O error")
	}
	return f.DB.AddSpellsToSpellbook(ctx, id, ids)
}

func newBook(t *testing.T, store *db.DB, name string, spellIDs ...string) *models.Spellbook {
	t.Helper()
	ctx := context.Background()
	book, err := store.CreateSpellbook(ctx, models.CreateSpellbookInput{Name: name})
	require.NoError(t, err)
	if len(spellIDs) > 0 {
		book, _, err = store.AddSpellsToSpellbook(ctx, book.ID, spellIDs)
		require.NoError(t, err)
	}
	return book
}

func TestBatchAdd(t *testing.T) {
	store := testStore(t)
	svc := NewService(store)
	book := newBook(t, store, "Wizard")

	out := svc.BatchAdd(context.Background(), book.ID, []string{"fireball", "shield"})

	require.True(t, out.OK(), out.Message)
	assert.Equal(t, "Added 2 spells to Wizard", out.Message)
	assert.Equal(t, 2, out.Added)
	assert.Equal(t, []string{"fireball", "shield"}, out.Spellbook.SpellIDs())
}

func TestBatchAdd_PartialDuplicate(t *testing.T) {
	store := testStore(t)
	svc := NewService(store)
	book := newBook(t, store, "Wizard", "fireball")

	out := svc.BatchAdd(context.Background(), book.ID, []string{"fireball", "shield", "shield"})

	require.True(t, out.OK())
	assert.Equal(t, 1, out.Added)
	assert.Equal(t, "Added 1 spell to Wizard (1 already present)", out.Message)

	stored, err := store.GetSpellbook(context.Background(), book.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"fireball", "shield"}, stored.SpellIDs())
}

func TestBatchAdd_EmptySelection(t *testing.T) {
	store := testStore(t)
	svc := NewService(store)
	book := newBook(t, store, "Wizard")

	out := svc.BatchAdd(context.Background(), book.ID, []string{"", "  "})
	assert.Equal(t, LevelWarning, out.Level)
	assert.Equal(t, "No spells selected", out.Message)
}

func TestBatchAdd_MissingSpellbook(t *testing.T) {
	svc := NewService(testStore(t))

	out := svc.BatchAdd(context.Background(), "missing", []string{"fireball"})

	assert.Equal(t, LevelError, out.Level)
	assert.ErrorIs(t, out.Err, db.ErrSpellbookNotFound)
	assert.Contains(t, out.Message, "Failed to add spells")
	assert.Equal(t, 1, out.Failed)
}

func TestCreateAndPopulate(t *testing.T) {
	tests := []struct {
		name      string
		pending   []string
		wantMsg   string
		wantAdded int
	}{
		{name: "no pending spells", pending: nil, wantMsg: "Created spellbook Wizard"},
		{name: "pending spells", pending: []string{"fireball", "shield", "misty-step"}, wantMsg: "Created spellbook Wizard with 3 spells", wantAdded: 3},
		{name: "single pending spell", pending: []string{"fireball"}, wantMsg: "Created spellbook Wizard with 1 spell", wantAdded: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testStore(t)
			svc := NewService(store)

			out, err := svc.CreateAndPopulate(context.Background(), models.CreateSpellbookInput{Name: "  Wizard  "}, tt.pending)
			require.NoError(t, err)
			require.True(t, out.OK())
			assert.Equal(t, tt.wantMsg, out.Message)
			assert.Equal(t, tt.wantAdded, out.Added)
			assert.Equal(t, "Wizard", out.Spellbook.Name)
			assert.Len(t, out.Spellbook.Spells, tt.wantAdded)
		})
	}
}

func TestCreateAndPopulate_DuplicateNameRejected(t *testing.T) {
	store := testStore(t)
	svc := NewService(store)
	ctx := context.Background()
	newBook(t, store, "Wizard")

	_, err := svc.CreateAndPopulate(ctx, models.CreateSpellbookInput{Name: " wIZARD "}, []string{"fireball"})

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "name", ve.Field)
	assert.Contains(t, ve.Message, "already exists")

	count, err := store.CountSpellbooks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestCreateAndPopulate_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input models.CreateSpellbookInput
		field string
	}{
		{name: "empty name", input: models.CreateSpellbookInput{Name: "   "}, field: "name"},
		{name: "name too long", input: models.CreateSpellbookInput{Name: strings.Repeat("é", MaxNameLength+1)}, field: "name"},
		{name: "bad ability", input: models.CreateSpellbookInput{Name: "Cleric", SpellcastingAbility: "STR"}, field: "spellcastingAbility"},
		{name: "negative slots", input: models.CreateSpellbookInput{Name: "Cleric", MaxSpellSlots: &models.SpellSlots{Level3: -1}}, field: "maxSpellSlots"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testStore(t)
			svc := NewService(store)

			_, err := svc.CreateAndPopulate(context.Background(), tt.input, nil)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.True(t, IsValidationError(err))

			count, err := store.CountSpellbooks(context.Background())
			require.NoError(t, err)
			assert.Zero(t, count)
		})
	}
}

func TestCreateAndPopulate_NameLengthCountsCharacters(t *testing.T) {
	store := testStore(t)
	svc := NewService(store)

	name := strings.Repeat("é", MaxNameLength)
	outcome, err := svc.CreateAndPopulate(context.Background(), models.CreateSpellbookInput{Name: name}, nil)
	require.NoError(t, err)
	require.NotNil(t, outcome.Spellbook)
	assert.Equal(t, name, outcome.Spellbook.Name)
}

func TestCreateAndPopulate_CreateErrorIsReturned(t *testing.T) {
	boom := errors.New("database is locked")
	svc := NewService(&flakyStore{DB: testStore(t), createErr: boom})

	_, err := svc.CreateAndPopulate(context.Background(), models.CreateSpellbookInput{Name: "Wizard"}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsValidationError(err))
}

func TestCreateAndPopulate_PopulateFailureKeepsBook(t *testing.T) {
	store := &flakyStore{DB: testStore(t), failAdd: map[int]bool{1: true}}
	svc := NewService(store)

	out, err := svc.CreateAndPopulate(context.Background(), models.CreateSpellbookInput{Name: "Wizard"}, []string{"fireball"})

	require.NoError(t, err)
	assert.Equal(t, LevelWarning, out.Level)
	assert.Error(t, out.Err)
	require.NotNil(t, out.Spellbook)

	kept, err := store.GetSpellbook(context.Background(), out.Spellbook.ID)
	require.NoError(t, err)
	require.NotNil(t, kept)
	assert.Empty(t, kept.Spells)
}

func TestCopy_PreservesProfileNotState(t *testing.T) {
	store := testStore(t)
	svc := NewService(store)
	ctx := context.Background()

	src, err := store.CreateSpellbook(ctx, models.CreateSpellbookInput{
		Name:                "Wizard",
		SpellcastingAbility: models.AbilityIntelligence,
		SpellAttackModifier: testutil.Ptr(7),
		SpellSaveDC:         testutil.Ptr(15),
		MaxSpellSlots:       &models.SpellSlots{Level1: 4, Level2: 2},
	})
	require.NoError(t, err)
	_, err = store.AddSpellToSpellbook(ctx, src.ID, "fireball")
	require.NoError(t, err)
	_, err = store.ToggleSpellPrepared(ctx, src.ID, "fireball")
	require.NoError(t, err)
	_, err = store.UpdateSpellNotes(ctx, src.ID, "fireball", "save for the dragon")
	require.NoError(t, err)

	out := svc.Copy(ctx, src.ID)

	require.True(t, out.OK(), out.Message)
	cp := out.Spellbook
	require.NotNil(t, cp)
	assert.NotEqual(t, src.ID, cp.ID)
	assert.Equal(t, "Wizard (Copy)", cp.Name)
	require.NotNil(t, cp.CopiedFromID)
	assert.Equal(t, src.ID, *cp.CopiedFromID)
	assert.Equal(t, models.AbilityIntelligence, cp.SpellcastingAbility)
	require.NotNil(t, cp.SpellAttackModifier)
	assert.Equal(t, 7, *cp.SpellAttackModifier)
	require.NotNil(t, cp.SpellSaveDC)
	assert.Equal(t, 15, *cp.SpellSaveDC)
	require.NotNil(t, cp.MaxSpellSlots)
	assert.Equal(t, 4, cp.MaxSpellSlots.Level1)

	require.Len(t, cp.Spells, 1)
	assert.Equal(t, "fireball", cp.Spells[0].SpellID)
	assert.False(t, cp.Spells[0].Prepared)
	assert.Empty(t, cp.Spells[0].Notes)

	orig, err := store.GetSpellbook(ctx, src.ID)
	require.NoError(t, err)
	assert.True(t, orig.Spells[0].Prepared)
}

func TestCopy_NamesAreUnique(t *testing.T) {
	store := testStore(t)
	svc := NewService(store)
	ctx := context.Background()
	src := newBook(t, store, "Wizard")

	first := svc.Copy(ctx, src.ID)
	second := svc.Copy(ctx, src.ID)
	third := svc.Copy(ctx, src.ID)

	assert.Equal(t, "Wizard (Copy)", first.Spellbook.Name)
	assert.Equal(t, "Wizard (Copy 2)", second.Spellbook.Name)
	assert.Equal(t, "Wizard (Copy 3)", third.Spellbook.Name)
}

func TestCopy_AddsInChunks(t *testing.T) {
	base := testStore(t)
	ids := testutil.SpellIDs()[:5]
	src := newBook(t, base, "Wizard", ids...)

	store := &flakyStore{DB: base}
	svc := NewService(store, WithCopyChunkSize(2))

	out := svc.Copy(context.Background(), src.ID)

	require.True(t, out.OK(), out.Message)
	assert.Equal(t, 3, store.addCalls)
	assert.Equal(t, 5, out.Added)
	assert.Equal(t, ids, out.Spellbook.SpellIDs())
	assert.Equal(t, "Copied Wizard to Wizard (Copy) with 5 spells", out.Message)
}

func TestCopy_Cancelled(t *testing.T) {
	base := testStore(t)
	src := newBook(t, base, "Wizard", testutil.SpellIDs()[:5]...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := &flakyStore{DB: base, afterAdd: func(call int) {
		if call == 1 {
			cancel()
		}
	}}
	svc := NewService(store, WithCopyChunkSize(2))

	out := svc.Copy(ctx, src.ID)

	assert.Equal(t, LevelWarning, out.Level)
	assert.Equal(t, "Copy cancelled after 2 of 5 spells", out.Message)
	assert.ErrorIs(t, out.Err, context.Canceled)
	assert.Equal(t, 1, store.addCalls)

	kept, err := base.GetSpellbook(context.Background(), out.Spellbook.ID)
	require.NoError(t, err)
	require.NotNil(t, kept)
	assert.Len(t, kept.Spells, 2)
}

func TestCopy_PartialFailure(t *testing.T) {
	base := testStore(t)
	src := newBook(t, base, "Wizard", testutil.SpellIDs()[:5]...)

	store := &flakyStore{DB: base, failAdd: map[int]bool{2: true}}
	svc := NewService(store, WithCopyChunkSize(2))

	out := svc.Copy(context.Background(), src.ID)

	assert.Equal(t, LevelWarning, out.Level)
	assert.Equal(t, "Copied 3 of 5 spells; some spells failed", out.Message)
	assert.Equal(t, 3, out.Added)
	assert.Equal(t, 2, out.Failed)
	assert.Error(t, out.Err)
	assert.Len(t, out.Spellbook.Spells, 3)
}

func TestCopy_AllSpellsFailed(t *testing.T) {
	base := testStore(t)
	src := newBook(t, base, "Wizard", "fireball", "shield")

	store := &flakyStore{DB: base, failAdd: map[int]bool{1: true}}
	svc := NewService(store)

	out := svc.Copy(context.Background(), src.ID)

	assert.Equal(t, LevelError, out.Level)
	assert.Equal(t, 2, out.Failed)
	require.NotNil(t, out.Spellbook, "created copy is kept")

	count, err := base.CountSpellbooks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestCopy_MissingSource(t *testing.T) {
	svc := NewService(testStore(t))

	out := svc.Copy(context.Background(), "missing")

	assert.Equal(t, LevelError, out.Level)
	assert.ErrorIs(t, out.Err, db.ErrSpellbookNotFound)
	assert.Nil(t, out.Spellbook)
}

func TestCopy_EmptySource(t *testing.T) {
	base := testStore(t)
	src := newBook(t, base, "Empty")
	store := &flakyStore{DB: base}
	svc := NewService(store)

	out := svc.Copy(context.Background(), src.ID)

	require.True(t, out.OK())
	assert.Zero(t, store.addCalls)
	assert.Empty(t, out.Spellbook.Spells)
}

func TestDelete(t *testing.T) {
	store := testStore(t)
	svc := NewService(store)
	book := newBook(t, store, "Wizard")

	out := svc.Delete(context.Background(), book.ID)
	require.True(t, out.OK())

	got, err := store.GetSpellbook(context.Background(), book.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.True(t, svc.Delete(context.Background(), book.ID).OK(), "deleting twice is a no-op")
}

func TestDelete_Failure(t *testing.T) {
	boom := errors.New("readonly database")
	svc := NewService(&flakyStore{DB: testStore(t), deleteErr: boom})

	out := svc.Delete(context.Background(), "any")

	assert.Equal(t, LevelError, out.Level)
	assert.Equal(t, "Failed to delete spellbook. Please try again.", out.Message)
	assert.ErrorIs(t, out.Err, boom)
}

func TestRename(t *testing.T) {
	store := testStore(t)
	svc := NewService(store)
	ctx := context.Background()
	wizard := newBook(t, store, "Wizard")
	newBook(t, store, "Cleric")

	_, err := svc.Rename(ctx, wizard.ID, "cleric")
	assert.True(t, IsValidationError(err))

	renamed, err := svc.Rename(ctx, wizard.ID, "WIZARD")
	require.NoError(t, err)
	assert.Equal(t, "WIZARD", renamed.Name)

	_, err = svc.Rename(ctx, "missing", "Bard")
	assert.ErrorIs(t, err, db.ErrSpellbookNotFound)
}

func TestUpdateProfile(t *testing.T) {
	store := testStore(t)
	svc := NewService(store)
	ctx := context.Background()
	book := newBook(t, store, "Cleric")

	_, err := svc.UpdateProfile(ctx, book.ID, models.SpellbookUpdate{})
	assert.True(t, IsValidationError(err))

	_, err = svc.UpdateProfile(ctx, book.ID, models.SpellbookUpdate{SpellcastingAbility: testutil.Ptr("dex")})
	assert.True(t, IsValidationError(err))

	updated, err := svc.UpdateProfile(ctx, book.ID, models.SpellbookUpdate{
		SpellcastingAbility: testutil.Ptr("wis"),
		SpellSaveDC:         testutil.Ptr(14),
	})
	require.NoError(t, err)
	assert.Equal(t, models.AbilityWisdom, updated.SpellcastingAbility)
	assert.Equal(t, 14, *updated.SpellSaveDC)
	assert.Equal(t, "Cleric", updated.Name)
}
