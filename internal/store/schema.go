package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	_ "embed"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/scribe/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking (PRAGMA user_version):
// 1 - Initial layout (writing_presets, generated_texts)
const currentSchemaVersion = 1

// masterTable holds the identity fingerprint of the layout that created the
// database. Its single row lives at masterRowID.
const (
	masterTable = "schema_master"
	masterRowID = 42
)

// fingerprintDomain separates schema fingerprints from any other hash.
const fingerprintDomain = "scribe/schema/v1"

// Column describes one column as reported by PRAGMA table_info.
type Column struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	NotNull bool   `json:"notNull"`
	// PrimaryKey is the 1-based position in the primary key, 0 if the column
	// is not part of it.
	PrimaryKey int `json:"pk"`
}

func (c Column) String() string {
	return fmt.Sprintf("%s %s notNull=%t pk=%d", c.Name, c.Type, c.NotNull, c.PrimaryKey)
}

// TableInfo is the physical shape of a table. Columns are sorted by name.
type TableInfo struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// Exists reports whether the table was found at all.
func (t TableInfo) Exists() bool {
	return len(t.Columns) > 0
}

func (t TableInfo) String() string {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = c.String()
	}
	return fmt.Sprintf("TableInfo{name=%s, columns=[%s]}", t.Name, strings.Join(cols, ", "))
}

func (t TableInfo) column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ExpectedTables returns the layout every database must have, one entry per
// record table. The returned slice is freshly allocated.
func ExpectedTables() []TableInfo {
	text := func(name string, pk int) Column {
		return Column{Name: name, Type: "TEXT", NotNull: true, PrimaryKey: pk}
	}
	integer := func(name string) Column {
		return Column{Name: name, Type: "INTEGER", NotNull: true}
	}
	tables := []TableInfo{
		{
			Name: model.TablePresets,
			Columns: []Column{
				text("id", 1),
				text("name", 0),
				text("description", 0),
				text("systemPrompt", 0),
				integer("isDefault"),
				integer("createdAt"),
				integer("updatedAt"),
			},
		},
		{
			Name: model.TableTexts,
			Columns: []Column{
				text("id", 1),
				text("input", 0),
				text("presetId", 0),
				text("presetName", 0),
				text("version1", 0),
				text("version2", 0),
				text("version3", 0),
				text("style1Label", 0),
				text("style2Label", 0),
				text("style3Label", 0),
				text("modelProvider", 0),
				integer("createdAt"),
			},
		},
	}
	for i := range tables {
		sortColumns(tables[i].Columns)
	}
	return tables
}

// KnownTables lists the record tables observers may depend on.
func KnownTables() []string {
	return []string{model.TablePresets, model.TableTexts}
}

func sortColumns(cols []Column) {
	sort.Slice(cols, func(i, j int) bool { return cols[i].Name < cols[j].Name })
}

// Fingerprint returns the identity hash of the expected layout.
//
// Format: hex(SHA256(domain + 0x00 + canonical)), where canonical lists every
// table and column in name order with NFC-normalized identifiers.
func Fingerprint() string {
	return fingerprintOf(ExpectedTables())
}

func fingerprintOf(tables []TableInfo) string {
	sorted := make([]TableInfo, len(tables))
	copy(sorted, tables)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var b strings.Builder
	for _, t := range sorted {
		fmt.Fprintf(&b, "table:%s\n", norm.NFC.String(t.Name))
		for _, c := range t.Columns {
			fmt.Fprintf(&b, "col:%s|%s|%t|%d\n",
				norm.NFC.String(c.Name), strings.ToUpper(c.Type), c.NotNull, c.PrimaryKey)
		}
	}

	h := sha256.New()
	h.Write([]byte(fingerprintDomain))
	h.Write([]byte{0x00})
	h.Write([]byte(b.String()))
	return hex.EncodeToString(h.Sum(nil))
}

// diffTable lists every difference between expected and found.
// Returns nil when the shapes match.
func diffTable(expected, found TableInfo) []string {
	if !found.Exists() {
		return []string{"table missing"}
	}

	var diff []string
	for _, want := range expected.Columns {
		got, ok := found.column(want.Name)
		if !ok {
			diff = append(diff, fmt.Sprintf("missing column %q", want.Name))
			continue
		}
		if !strings.EqualFold(want.Type, got.Type) {
			diff = append(diff, fmt.Sprintf("column %q: type %s, found %s", want.Name, want.Type, got.Type))
		}
		if want.NotNull != got.NotNull {
			diff = append(diff, fmt.Sprintf("column %q: notNull %t, found %t", want.Name, want.NotNull, got.NotNull))
		}
		if want.PrimaryKey != got.PrimaryKey {
			diff = append(diff, fmt.Sprintf("column %q: pk %d, found %d", want.Name, want.PrimaryKey, got.PrimaryKey))
		}
	}
	for _, got := range found.Columns {
		if _, ok := expected.column(got.Name); !ok {
			diff = append(diff, fmt.Sprintf("unexpected column %q", got.Name))
		}
	}
	return diff
}

// queryer is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// readTableInfo reads the physical shape of table. A missing table yields a
// TableInfo with no columns.
func readTableInfo(ctx context.Context, q queryer, table string) (TableInfo, error) {
	// PRAGMA arguments cannot be bound; table names come from ExpectedTables only.
	rows, err := q.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(`%s`)", table))
	if err != nil {
		return TableInfo{}, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	info := TableInfo{Name: table}
	for rows.Next() {
		var (
			cid     int
			col     Column
			notNull int
			dflt    any
		)
		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &dflt, &col.PrimaryKey); err != nil {
			return TableInfo{}, fmt.Errorf("scan table info %s: %w", table, err)
		}
		col.Type = strings.ToUpper(col.Type)
		col.NotNull = notNull != 0
		info.Columns = append(info.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return TableInfo{}, fmt.Errorf("iterate table info %s: %w", table, err)
	}

	sortColumns(info.Columns)
	return info, nil
}

// tableExists reports whether a table with the given name is present.
func tableExists(ctx context.Context, q queryer, table string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", table, err)
	}
	return count > 0, nil
}

// Migration moves the schema from version From to version To.
type Migration struct {
	From  int
	To    int
	Apply func(ctx context.Context, tx *sql.Tx) error
}

// applySchema runs the create-or-validate lifecycle.
//
// A database with none of the known tables is fresh: every table is created
// and the fingerprint recorded. Otherwise the version gate runs any
// registered migrations, then every table is validated against
// ExpectedTables and the stored fingerprint compared. Nothing is repaired.
func (s *Store) applySchema(ctx context.Context) error {
	existing, err := hasKnownTable(ctx, s.db)
	if err != nil {
		return err
	}
	if !existing {
		return s.onCreate(ctx)
	}
	return s.onOpen(ctx)
}

// onCreate creates every table and records the fingerprint in one transaction.
func (s *Store) onCreate(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create schema: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if err := writeFingerprint(ctx, tx); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("create schema: set user_version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create schema: commit: %w", err)
	}

	slog.Info("database created", "path", s.path, "schema_version", currentSchemaVersion)
	return nil
}

// onOpen migrates (if a path exists) and validates an existing database.
func (s *Store) onOpen(ctx context.Context) error {
	if err := s.runMigrations(ctx); err != nil {
		return err
	}
	if err := validateTables(ctx, s.db); err != nil {
		return err
	}
	return s.checkFingerprint(ctx)
}

// validateTables compares every expected table with its physical shape and
// returns a *SchemaMismatchError for the first one that differs.
func validateTables(ctx context.Context, q queryer) error {
	for _, expected := range ExpectedTables() {
		found, err := readTableInfo(ctx, q, expected.Name)
		if err != nil {
			return err
		}
		if diff := diffTable(expected, found); len(diff) > 0 {
			return &SchemaMismatchError{
				Table:    expected.Name,
				Expected: expected,
				Found:    found,
				Diff:     diff,
			}
		}
	}
	return nil
}

// hasKnownTable reports whether any known table or the master table exists.
func hasKnownTable(ctx context.Context, q queryer) (bool, error) {
	for _, name := range append(KnownTables(), masterTable) {
		ok, err := tableExists(ctx, q, name)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// checkFingerprint compares the stored identity hash with the expected one.
// A database that validated structurally but predates the master table gets
// the fingerprint recorded.
func (s *Store) checkFingerprint(ctx context.Context) error {
	stored, ok, err := readFingerprint(ctx, s.db)
	switch {
	case err != nil:
		return err
	case ok:
		return compareFingerprint(stored)
	default:
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("record fingerprint: begin tx: %w", err)
		}
		defer tx.Rollback()
		if _, err := tx.ExecContext(ctx,
			"CREATE TABLE IF NOT EXISTS "+masterTable+" (id INTEGER PRIMARY KEY, identity_hash TEXT)",
		); err != nil {
			return fmt.Errorf("record fingerprint: %w", err)
		}
		if err := writeFingerprint(ctx, tx); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("record fingerprint: commit: %w", err)
		}
		slog.Info("schema fingerprint recorded", "path", s.path)
		return nil
	}
}

// readFingerprint returns the stored identity hash. ok is false when the
// master table or its row is absent.
func readFingerprint(ctx context.Context, q queryer) (hash string, ok bool, err error) {
	var stored sql.NullString
	err = q.QueryRowContext(ctx,
		"SELECT identity_hash FROM "+masterTable+" WHERE id = ?", masterRowID,
	).Scan(&stored)
	switch {
	case err == nil:
		return stored.String, stored.Valid, nil
	case errors.Is(err, sql.ErrNoRows), isNoSuchTable(err):
		return "", false, nil
	default:
		return "", false, fmt.Errorf("read fingerprint: %w", err)
	}
}

func compareFingerprint(stored string) error {
	if want := Fingerprint(); stored != want {
		return &Error{
			Code:    ErrCodeSchemaMismatch,
			Message: fmt.Sprintf("identity hash %s, found %s", want, stored),
			Table:   masterTable,
		}
	}
	return nil
}

func writeFingerprint(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO "+masterTable+" (id, identity_hash) VALUES (?, ?)",
		masterRowID, Fingerprint(),
	)
	if err != nil {
		return fmt.Errorf("write fingerprint: %w", err)
	}
	return nil
}

func isNoSuchTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}

// runMigrations walks registered migrations from the stored user_version to
// currentSchemaVersion. Each step runs in its own transaction and bumps
// user_version on commit.
func (s *Store) runMigrations(ctx context.Context) error {
	version, err := schemaVersion(ctx, s.db)
	if err != nil {
		return err
	}

	// Databases that never set user_version are validated as-is.
	if version == 0 || version == currentSchemaVersion {
		return nil
	}
	if version > currentSchemaVersion {
		return &Error{
			Code:    ErrCodeMigrationRequired,
			Message: fmt.Sprintf("database version %d is newer than supported version %d", version, currentSchemaVersion),
		}
	}

	for version < currentSchemaVersion {
		m, ok := s.findMigration(version)
		if !ok {
			return &Error{
				Code:    ErrCodeMigrationRequired,
				Message: fmt.Sprintf("no migration from version %d to %d", version, currentSchemaVersion),
			}
		}
		if err := s.applyMigration(ctx, m); err != nil {
			return err
		}
		version = m.To
	}
	return nil
}

func schemaVersion(ctx context.Context, q queryer) (int, error) {
	var version int
	if err := q.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("get user_version: %w", err)
	}
	return version, nil
}

func (s *Store) findMigration(from int) (Migration, bool) {
	for _, m := range s.migrations {
		if m.From == from && m.To > from {
			return m, true
		}
	}
	return Migration{}, false
}

func (s *Store) applyMigration(ctx context.Context, m Migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migrate %d->%d: begin tx: %w", m.From, m.To, err)
	}
	defer tx.Rollback()

	if err := m.Apply(ctx, tx); err != nil {
		return fmt.Errorf("migrate %d->%d: %w", m.From, m.To, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.To)); err != nil {
		return fmt.Errorf("migrate %d->%d: set user_version: %w", m.From, m.To, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrate %d->%d: commit: %w", m.From, m.To, err)
	}

	slog.Info("schema migrated", "from", m.From, "to", m.To)
	return nil
}
