package backup

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asteroid-belt/spellbook/internal/db"
	"github.com/asteroid-belt/spellbook/internal/models"
	"github.com/asteroid-belt/spellbook/internal/testutil"
)

var fixedNow = time.Date(2024, 5, 1, 14, 30, 0, 0, time.UTC)

func testDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.New(db.DefaultConfig(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func seed(t *testing.T, store *db.DB) []*models.Spellbook {
	t.Helper()
	ctx := context.Background()

	wizard, err := store.CreateSpellbook(ctx, models.CreateSpellbookInput{
		Name:                "Wizard",
		SpellcastingAbility: models.AbilityIntelligence,
		SpellAttackModifier: testutil.Ptr(7),
		MaxSpellSlots:       &models.SpellSlots{Level1: 4, Level2: 3},
	})
	require.NoError(t, err)
	wizard, _, err = store.AddSpellsToSpellbook(ctx, wizard.ID, []string{"fireball", "shield"})
	require.NoError(t, err)
	wizard, err = store.ToggleSpellPrepared(ctx, wizard.ID, "shield")
	require.NoError(t, err)

	cleric, err := store.CreateSpellbook(ctx, models.CreateSpellbookInput{Name: "Cleric"})
	require.NoError(t, err)

	return []*models.Spellbook{wizard, cleric}
}

func newService(store Store) *Service {
	return New(store, WithClock(func() time.Time { return fixedNow }))
}

func TestExport(t *testing.T) {
	store := testDB(t)
	seed(t, store)

	out, err := newService(store).Export(context.Background())
	require.NoError(t, err)

	assert.Contains(t, out, "\n  \"version\": \"1.0\"")

	var env models.ExportData
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	assert.Equal(t, models.ExportVersion, env.Version)
	assert.True(t, env.ExportDate.Equal(fixedNow))
	assert.Len(t, env.Spellbooks, 2)
}

func TestExport_Empty(t *testing.T) {
	out, err := newService(testDB(t)).Export(context.Background())
	require.NoError(t, err)
	assert.Contains(t, out, `"spellbooks": []`)
}

func TestExportImport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	src := testDB(t)
	seeded := seed(t, src)

	exported, err := newService(src).Export(ctx)
	require.NoError(t, err)

	dst := testDB(t)
	svc := newService(dst)

	result, err := svc.Import(ctx, []byte(exported))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 0, result.Skipped)
	assert.Empty(t, result.Errors)

	for _, want := range seeded {
		got, err := dst.GetSpellbook(ctx, want.ID)
		require.NoError(t, err)
		require.NotNil(t, got, want.Name)
		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, want.Spells, got.Spells)
		assert.Equal(t, want.SpellcastingAbility, got.SpellcastingAbility)
		assert.Equal(t, want.MaxSpellSlots, got.MaxSpellSlots)
		assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
	}

	again, err := svc.Import(ctx, []byte(exported))
	require.NoError(t, err)
	assert.Equal(t, 0, again.Imported)
	assert.Equal(t, 2, again.Skipped)
}

func TestImport_EnvelopeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, err error)
	}{
		{
			name:  "malformed json",
			input: `{"version": "1.0",`,
			check: func(t *testing.T, err error) {
				var pe *ParseError
				assert.ErrorAs(t, err, &pe)
			},
		},
		{
			name:  "not an object",
			input: `[1, 2, 3]`,
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrInvalidFormat) },
		},
		{
			name:  "missing spellbooks",
			input: `{"version": "1.0", "exportDate": "2024-05-01T00:00:00Z"}`,
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrInvalidFormat) },
		},
		{
			name:  "missing export date",
			input: `{"version": "1.0", "spellbooks": []}`,
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrInvalidFormat) },
		},
		{
			name:  "spellbooks is not a list",
			input: `{"version": "1.0", "exportDate": "2024-05-01T00:00:00Z", "spellbooks": {}}`,
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrInvalidFormat) },
		},
		{
			name:  "newer version",
			input: `{"version": "2.0", "exportDate": "2024-05-01T00:00:00Z", "spellbooks": [{"id": "x", "name": "X"}]}`,
			check: func(t *testing.T, err error) {
				var vm *VersionMismatchError
				require.ErrorAs(t, err, &vm)
				assert.Equal(t, "2.0", vm.Got)
				assert.False(t, errors.Is(err, ErrInvalidFormat))
			},
		},
		{
			name:  "version must match exactly",
			input: `{"version": "1.0.0", "exportDate": "2024-05-01T00:00:00Z", "spellbooks": []}`,
			check: func(t *testing.T, err error) {
				var vm *VersionMismatchError
				assert.ErrorAs(t, err, &vm)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testDB(t)
			result, err := newService(store).Import(context.Background(), []byte(tt.input))

			require.Error(t, err)
			assert.Nil(t, result)
			tt.check(t, err)

			count, err := store.CountSpellbooks(context.Background())
			require.NoError(t, err)
			assert.Zero(t, count, "nothing may be written on envelope errors")
		})
	}
}

func TestImport_TooLarge(t *testing.T) {
	data := make([]byte, MaxImportSize+1)
	_, err := newService(testDB(t)).Import(context.Background(), data)
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestImport_PerRecordErrorsDoNotAbort(t *testing.T) {
	input := `{
		"version": "1.0",
		"exportDate": "2024-05-01T00:00:00Z",
		"spellbooks": [
			{"name": "No ID"},
			{"id": "b1", "name": "Bard", "spells": [{"spellId": "vicious-mockery"}, {"spellId": "vicious-mockery"}]},
			{"id": "b2", "name": "Bad Ability", "spellcastingAbility": "STR"},
			{"id": "b3", "name": "Broken", "spells": "not a list"}
		]
	}`
	store := testDB(t)

	result, err := newService(store).Import(context.Background(), []byte(input))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Len(t, result.Errors, 3)

	bard, err := store.GetSpellbook(context.Background(), "b1")
	require.NoError(t, err)
	require.NotNil(t, bard)
	assert.Equal(t, []string{"vicious-mockery"}, bard.SpellIDs())
}

func TestImport_Cancelled(t *testing.T) {
	src := testDB(t)
	seed(t, src)
	exported, err := newService(src).Export(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dst := testDB(t)
	result, err := newService(dst).Import(ctx, []byte(exported))

	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Zero(t, result.Imported)
}

func TestImportFile(t *testing.T) {
	src := testDB(t)
	seed(t, src)
	exported, err := newService(src).Export(context.Background())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "backup.json")
	require.NoError(t, os.WriteFile(path, []byte(exported), 0o644))

	result, err := newService(testDB(t)).ImportFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
}

func TestImportFile_SizeCheckedBeforeRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huge.json")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(MaxImportSize+1))
	require.NoError(t, f.Close())

	_, err = newService(testDB(t)).ImportFile(context.Background(), path)
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "spellbooks-backup-2024-05-01.json", Filename(fixedNow))
}

func TestDownloadAsFile(t *testing.T) {
	ctx := context.Background()
	store := testDB(t)
	seed(t, store)
	dir := t.TempDir()

	location, err := newService(store).DownloadAsFile(ctx, FileSink{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "spellbooks-backup-2024-05-01.json"), location)

	data, err := os.ReadFile(location)
	require.NoError(t, err)
	var env models.ExportData
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Len(t, env.Spellbooks, 2)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")

	last, err := store.GetMeta(ctx, models.MetaLastExportAt)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01T14:30:00Z", last)
}

type failingSink struct{}

func (failingSink) Write(context.Context, string, []byte) (string, error) {
	return "", errors.New("no space left on device")
}

func (failingSink) Kind() string { return "failing" }

func TestDownloadAsFile_SinkFailure(t *testing.T) {
	ctx := context.Background()
	store := testDB(t)

	_, err := newService(store).DownloadAsFile(ctx, failingSink{})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "write backup:"))

	last, err := store.GetMeta(ctx, models.MetaLastExportAt)
	require.NoError(t, err)
	assert.Empty(t, last)
}
