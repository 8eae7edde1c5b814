package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/scribe/internal/model"
	"github.com/roach88/scribe/internal/store"
)

// querier is satisfied by *store.Store and *store.Tx.
type querier interface {
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) *store.Row
}

// rowScanner is satisfied by *store.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const presetColumns = `id, name, description, systemPrompt, isDefault, createdAt, updatedAt`

const textColumns = `id, input, presetId, presetName, version1, version2, version3,
	style1Label, style2Label, style3Label, modelProvider, createdAt`

func scanPreset(r rowScanner) (model.WritingPreset, error) {
	var p model.WritingPreset
	var isDefault int64
	if err := r.Scan(&p.ID, &p.Name, &p.Description, &p.SystemPrompt,
		&isDefault, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return model.WritingPreset{}, err
	}
	p.IsDefault = isDefault != 0
	return p, nil
}

func scanText(r rowScanner) (model.GeneratedText, error) {
	var g model.GeneratedText
	if err := r.Scan(&g.ID, &g.Input, &g.PresetID, &g.PresetName,
		&g.Version1, &g.Version2, &g.Version3,
		&g.Style1Label, &g.Style2Label, &g.Style3Label,
		&g.ModelProvider, &g.CreatedAt); err != nil {
		return model.GeneratedText{}, err
	}
	return g, nil
}

// queryPresets runs query and collects every row.
// Returns an empty slice (not nil) when no rows match.
func queryPresets(ctx context.Context, q querier, query string, args ...any) ([]model.WritingPreset, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query presets: %w", err)
	}
	defer rows.Close()

	presets := []model.WritingPreset{}
	for rows.Next() {
		p, err := scanPreset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan preset: %w", err)
		}
		presets = append(presets, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate presets: %w", err)
	}
	return presets, nil
}

// queryTexts runs query and collects every row.
// Returns an empty slice (not nil) when no rows match.
func queryTexts(ctx context.Context, q querier, query string, args ...any) ([]model.GeneratedText, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query texts: %w", err)
	}
	defer rows.Close()

	texts := []model.GeneratedText{}
	for rows.Next() {
		g, err := scanText(rows)
		if err != nil {
			return nil, fmt.Errorf("scan text: %w", err)
		}
		texts = append(texts, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate texts: %w", err)
	}
	return texts, nil
}

// getPreset returns the first preset matched by query, found=false if none.
func getPreset(ctx context.Context, q querier, query string, args ...any) (model.WritingPreset, bool, error) {
	p, err := scanPreset(q.QueryRow(ctx, query, args...))
	if isNoRows(err) {
		return model.WritingPreset{}, false, nil
	}
	if err != nil {
		return model.WritingPreset{}, false, fmt.Errorf("get preset: %w", err)
	}
	return p, true, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func count(ctx context.Context, q querier, table string) (int, error) {
	var n int
	// Table names are package constants.
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM `"+table+"`").Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}
