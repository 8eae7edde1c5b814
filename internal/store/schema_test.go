package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scribe/internal/model"
)

// rawDB opens path without the store lifecycle so tests can shape the file.
func rawDB(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := sql.Open(DriverCGO, path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSchema_FreshDatabaseMatchesExpected(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, expected := range ExpectedTables() {
		found, err := readTableInfo(ctx, s.db, expected.Name)
		require.NoError(t, err)
		assert.Empty(t, diffTable(expected, found), "table %s", expected.Name)
		assert.Equal(t, expected, found)
	}
}

func TestSchema_FingerprintRecorded(t *testing.T) {
	s := createTestStore(t)

	var hash string
	err := s.db.QueryRow("SELECT identity_hash FROM schema_master WHERE id = ?", masterRowID).Scan(&hash)
	require.NoError(t, err)
	assert.Equal(t, Fingerprint(), hash)
}

func TestFingerprint_Stable(t *testing.T) {
	assert.Equal(t, Fingerprint(), Fingerprint())
	assert.Len(t, Fingerprint(), 64)
}

func TestFingerprint_ChangesWithShape(t *testing.T) {
	tables := ExpectedTables()
	tables[0].Columns = tables[0].Columns[1:]
	assert.NotEqual(t, Fingerprint(), fingerprintOf(tables))
}

func TestFingerprint_IndependentOfTableOrder(t *testing.T) {
	tables := ExpectedTables()
	reversed := []TableInfo{tables[1], tables[0]}
	assert.Equal(t, fingerprintOf(tables), fingerprintOf(reversed))
}

func TestSchema_MissingColumnFailsOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drift.db")
	db := rawDB(t, path)
	_, err := db.Exec(`
		CREATE TABLE writing_presets (
			id TEXT NOT NULL, name TEXT NOT NULL, description TEXT NOT NULL,
			systemPrompt TEXT NOT NULL, isDefault INTEGER NOT NULL,
			createdAt INTEGER NOT NULL,
			PRIMARY KEY(id)
		)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(path)
	require.Error(t, err)
	assert.Nil(t, s)
	assert.True(t, IsSchemaMismatch(err))

	var sm *SchemaMismatchError
	require.ErrorAs(t, err, &sm)
	assert.Equal(t, model.TablePresets, sm.Table)
	assert.Contains(t, sm.Diff, `missing column "updatedAt"`)
	assert.Len(t, sm.Expected.Columns, 7)
	assert.Len(t, sm.Found.Columns, 6)
	assert.Contains(t, err.Error(), "Expected:")
}

func TestSchema_TypeAndNullabilityDrift(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drift.db")
	db := rawDB(t, path)
	_, err := db.Exec(`
		CREATE TABLE writing_presets (
			id TEXT NOT NULL, name TEXT, description TEXT NOT NULL,
			systemPrompt TEXT NOT NULL, isDefault TEXT NOT NULL,
			createdAt INTEGER NOT NULL, updatedAt INTEGER NOT NULL, extra TEXT,
			PRIMARY KEY(id)
		)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Open(path)
	var sm *SchemaMismatchError
	require.ErrorAs(t, err, &sm)
	assert.ElementsMatch(t, []string{
		`column "isDefault": type INTEGER, found TEXT`,
		`column "name": notNull true, found false`,
		`unexpected column "extra"`,
	}, sm.Diff)
}

func TestSchema_MissingTableFailsOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.db.Exec("DROP TABLE generated_texts")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(path)
	var sm *SchemaMismatchError
	require.ErrorAs(t, err, &sm)
	assert.Equal(t, model.TableTexts, sm.Table)
	assert.Equal(t, []string{"table missing"}, sm.Diff)
}

func TestSchema_ForeignFingerprintFailsOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "foreign.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.db.Exec("UPDATE schema_master SET identity_hash = 'deadbeef' WHERE id = ?", masterRowID)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(path)
	require.Error(t, err)
	assert.True(t, IsSchemaMismatch(err))
	assert.Contains(t, err.Error(), "deadbeef")
}

func TestSchema_LegacyDatabaseGetsFingerprint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.db.Exec("DROP TABLE schema_master")
	require.NoError(t, err)
	_, err = s.db.Exec("PRAGMA user_version = 0")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	var hash string
	require.NoError(t, s.db.QueryRow("SELECT identity_hash FROM schema_master WHERE id = ?", masterRowID).Scan(&hash))
	assert.Equal(t, Fingerprint(), hash)
}

func TestSchema_NewerVersionRequiresMigration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "newer.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.db.Exec("PRAGMA user_version = 9")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(path)
	require.Error(t, err)
	assert.True(t, IsMigrationRequired(err))
}

func TestFindMigration(t *testing.T) {
	s := &Store{}
	_, ok := s.findMigration(0)
	assert.False(t, ok, "baseline migration set is empty")

	WithMigrations(Migration{From: 0, To: 1})(s)
	m, ok := s.findMigration(0)
	assert.True(t, ok)
	assert.Equal(t, 1, m.To)
}

func TestDiffTable_Match(t *testing.T) {
	for _, expected := range ExpectedTables() {
		assert.Nil(t, diffTable(expected, expected))
	}
}

func TestReadTableInfo_MissingTable(t *testing.T) {
	s := createTestStore(t)
	info, err := readTableInfo(context.Background(), s.db, "nope")
	require.NoError(t, err)
	assert.False(t, info.Exists())
}
