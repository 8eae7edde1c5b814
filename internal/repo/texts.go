package repo

import (
	"context"
	"fmt"

	"github.com/roach88/scribe/internal/live"
	"github.com/roach88/scribe/internal/model"
	"github.com/roach88/scribe/internal/store"
)

// DefaultRecentLimit is the history page size when none is configured.
const DefaultRecentLimit = 10

// TextRepository is the statement-layer contract for generated texts.
type TextRepository interface {
	GetRecent(ctx context.Context, limit int) ([]model.GeneratedText, error)
	GetByID(ctx context.Context, id string) (model.GeneratedText, bool, error)
	Count(ctx context.Context) (int, error)

	InsertOrReplace(ctx context.Context, g model.GeneratedText) error
	Record(ctx context.Context, n NewText) (model.GeneratedText, error)
	Delete(ctx context.Context, g model.GeneratedText) error
	DeleteByID(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error

	ObserveRecent(ctx context.Context, limit int) (*live.Subscription[[]model.GeneratedText], error)
	ObserveCount(ctx context.Context) (*live.Subscription[int], error)
}

// NewText is a generation result before it is assigned an ID and timestamp.
type NewText struct {
	Input         string
	PresetID      string
	PresetName    string
	Versions      [3]string
	Labels        [3]string
	ModelProvider string
}

// Texts implements TextRepository on a store.
type Texts struct {
	st    *store.Store
	clock Clock
	ids   IDGenerator
}

var _ TextRepository = (*Texts)(nil)

// NewTexts creates a text repository. Nil collaborators fall back to
// SystemClock and UUIDv7Generator.
func NewTexts(st *store.Store, clock Clock, ids IDGenerator) *Texts {
	if clock == nil {
		clock = SystemClock{}
	}
	if ids == nil {
		ids = UUIDv7Generator{}
	}
	return &Texts{st: st, clock: clock, ids: ids}
}

const (
	selectRecentTexts = `SELECT ` + textColumns + ` FROM generated_texts
		ORDER BY createdAt DESC LIMIT ?`
	selectTextByID = `SELECT ` + textColumns + ` FROM generated_texts WHERE id = ?`

	upsertText = `INSERT OR REPLACE INTO generated_texts
		(id, input, presetId, presetName, version1, version2, version3,
		 style1Label, style2Label, style3Label, modelProvider, createdAt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	deleteText     = `DELETE FROM generated_texts WHERE id = ?`
	deleteAllTexts = `DELETE FROM generated_texts`
)

// GetRecent returns at most limit texts, newest first. A limit <= 0 uses
// DefaultRecentLimit.
func (r *Texts) GetRecent(ctx context.Context, limit int) ([]model.GeneratedText, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return queryTexts(ctx, r.st, selectRecentTexts, limit)
}

// GetByID returns the text with id. found is false if none exists.
func (r *Texts) GetByID(ctx context.Context, id string) (model.GeneratedText, bool, error) {
	g, err := scanText(r.st.QueryRow(ctx, selectTextByID, id))
	if isNoRows(err) {
		return model.GeneratedText{}, false, nil
	}
	if err != nil {
		return model.GeneratedText{}, false, fmt.Errorf("get text: %w", err)
	}
	return g, true, nil
}

// Count returns the number of stored texts.
func (r *Texts) Count(ctx context.Context) (int, error) {
	return count(ctx, r.st, model.TableTexts)
}

// InsertOrReplace inserts g, or fully replaces the row sharing its id.
func (r *Texts) InsertOrReplace(ctx context.Context, g model.GeneratedText) error {
	err := r.st.RunTransaction(ctx, func(tx *store.Tx) error {
		_, err := tx.Exec(ctx, model.TableTexts, upsertText,
			g.ID, g.Input, g.PresetID, g.PresetName,
			g.Version1, g.Version2, g.Version3,
			g.Style1Label, g.Style2Label, g.Style3Label,
			g.ModelProvider, g.CreatedAt,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("insert text %s: %w", g.ID, err)
	}
	return nil
}

// Record stores a new generation with a fresh ID and the current time.
func (r *Texts) Record(ctx context.Context, n NewText) (model.GeneratedText, error) {
	g := model.GeneratedText{
		ID:            r.ids.NewID(),
		Input:         n.Input,
		PresetID:      n.PresetID,
		PresetName:    n.PresetName,
		Version1:      n.Versions[0],
		Version2:      n.Versions[1],
		Version3:      n.Versions[2],
		Style1Label:   n.Labels[0],
		Style2Label:   n.Labels[1],
		Style3Label:   n.Labels[2],
		ModelProvider: n.ModelProvider,
		CreatedAt:     r.clock.NowMillis(),
	}
	if err := r.InsertOrReplace(ctx, g); err != nil {
		return model.GeneratedText{}, err
	}
	return g, nil
}

// Delete removes the row matching g.ID. Deleting a missing row is not an error.
func (r *Texts) Delete(ctx context.Context, g model.GeneratedText) error {
	return r.DeleteByID(ctx, g.ID)
}

// DeleteByID removes at most one text. Idempotent.
func (r *Texts) DeleteByID(ctx context.Context, id string) error {
	err := r.st.RunTransaction(ctx, func(tx *store.Tx) error {
		_, err := tx.Exec(ctx, model.TableTexts, deleteText, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete text %s: %w", id, err)
	}
	return nil
}

// DeleteAll removes every generated text.
func (r *Texts) DeleteAll(ctx context.Context) error {
	err := r.st.RunTransaction(ctx, func(tx *store.Tx) error {
		_, err := tx.Exec(ctx, model.TableTexts, deleteAllTexts)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete all texts: %w", err)
	}
	return nil
}

// ObserveRecent streams GetRecent(limit), re-evaluated after every text commit.
func (r *Texts) ObserveRecent(ctx context.Context, limit int) (*live.Subscription[[]model.GeneratedText], error) {
	return live.Subscribe(ctx, r.st, []string{model.TableTexts}, func(ctx context.Context) ([]model.GeneratedText, error) {
		return r.GetRecent(ctx, limit)
	})
}

// ObserveCount streams Count.
func (r *Texts) ObserveCount(ctx context.Context) (*live.Subscription[int], error) {
	return live.Subscribe(ctx, r.st, []string{model.TableTexts}, r.Count)
}
