package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/scribe/internal/live"
	"github.com/roach88/scribe/internal/model"
	"github.com/roach88/scribe/internal/store"
)

// PresetRepository is the statement-layer contract for writing presets.
type PresetRepository interface {
	GetAll(ctx context.Context) ([]model.WritingPreset, error)
	GetByID(ctx context.Context, id string) (model.WritingPreset, bool, error)
	GetDefault(ctx context.Context) (model.WritingPreset, bool, error)
	Count(ctx context.Context) (int, error)

	InsertOrReplace(ctx context.Context, p model.WritingPreset) error
	InsertAll(ctx context.Context, presets []model.WritingPreset) error
	InsertIfEmpty(ctx context.Context, presets []model.WritingPreset) (bool, error)
	Update(ctx context.Context, p model.WritingPreset) (model.WritingPreset, error)
	Delete(ctx context.Context, p model.WritingPreset) error
	DeleteByID(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
	ClearDefaultFlags(ctx context.Context) error
	SetDefault(ctx context.Context, id string) (bool, error)
	InsertAsDefault(ctx context.Context, p model.WritingPreset) error

	ObserveAll(ctx context.Context) (*live.Subscription[[]model.WritingPreset], error)
	ObserveByID(ctx context.Context, id string) (*live.Subscription[*model.WritingPreset], error)
	ObserveDefault(ctx context.Context) (*live.Subscription[*model.WritingPreset], error)
}

// Presets implements PresetRepository on a store.
type Presets struct {
	st    *store.Store
	clock Clock
}

var _ PresetRepository = (*Presets)(nil)

// NewPresets creates a preset repository. A nil clock uses SystemClock.
func NewPresets(st *store.Store, clock Clock) *Presets {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Presets{st: st, clock: clock}
}

const (
	selectAllPresets = `SELECT ` + presetColumns + ` FROM writing_presets
		ORDER BY isDefault DESC, updatedAt DESC`
	selectPresetByID = `SELECT ` + presetColumns + ` FROM writing_presets WHERE id = ?`
	selectDefault    = `SELECT ` + presetColumns + ` FROM writing_presets WHERE isDefault = 1 LIMIT 1`

	upsertPreset = `INSERT OR REPLACE INTO writing_presets
		(id, name, description, systemPrompt, isDefault, createdAt, updatedAt)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	updatePreset = `UPDATE OR ABORT writing_presets
		SET name = ?, description = ?, systemPrompt = ?, isDefault = ?, createdAt = ?, updatedAt = ?
		WHERE id = ?`
	deletePreset      = `DELETE FROM writing_presets WHERE id = ?`
	deleteAllPresets  = `DELETE FROM writing_presets`
	clearDefaultFlags = `UPDATE writing_presets SET isDefault = 0`
	markDefault       = `UPDATE writing_presets SET isDefault = 1, updatedAt = ? WHERE id = ?`
)

// GetAll returns every preset, defaults first, then most recently updated.
func (r *Presets) GetAll(ctx context.Context) ([]model.WritingPreset, error) {
	return queryPresets(ctx, r.st, selectAllPresets)
}

// GetByID returns the preset with id. found is false if none exists.
func (r *Presets) GetByID(ctx context.Context, id string) (model.WritingPreset, bool, error) {
	return getPreset(ctx, r.st, selectPresetByID, id)
}

// GetDefault returns the default preset. found is false if none is marked.
func (r *Presets) GetDefault(ctx context.Context) (model.WritingPreset, bool, error) {
	return getPreset(ctx, r.st, selectDefault)
}

// Count returns the number of presets.
func (r *Presets) Count(ctx context.Context) (int, error) {
	return count(ctx, r.st, model.TablePresets)
}

// InsertOrReplace inserts p, or fully replaces the row sharing its id.
// Fields are stored exactly as given.
func (r *Presets) InsertOrReplace(ctx context.Context, p model.WritingPreset) error {
	return r.InsertAll(ctx, []model.WritingPreset{p})
}

// InsertAll inserts or replaces every preset in one transaction.
func (r *Presets) InsertAll(ctx context.Context, presets []model.WritingPreset) error {
	err := r.st.RunTransaction(ctx, func(tx *store.Tx) error {
		return insertPresets(ctx, tx, presets)
	})
	if err != nil {
		return fmt.Errorf("insert presets: %w", err)
	}
	return nil
}

func insertPresets(ctx context.Context, tx *store.Tx, presets []model.WritingPreset) error {
	for _, p := range presets {
		if _, err := tx.Exec(ctx, model.TablePresets, upsertPreset,
			p.ID, p.Name, p.Description, p.SystemPrompt,
			boolToInt(p.IsDefault), p.CreatedAt, p.UpdatedAt,
		); err != nil {
			return fmt.Errorf("preset %s: %w", p.ID, err)
		}
	}
	return nil
}

// InsertIfEmpty inserts presets only when the table holds no rows. The
// emptiness check and the inserts share one transaction. It reports whether
// anything was written.
func (r *Presets) InsertIfEmpty(ctx context.Context, presets []model.WritingPreset) (bool, error) {
	err := r.st.RunTransaction(ctx, func(tx *store.Tx) error {
		n, err := count(ctx, tx, model.TablePresets)
		if err != nil {
			return err
		}
		if n > 0 {
			return errNoRow
		}
		return insertPresets(ctx, tx, presets)
	})
	if errors.Is(err, errNoRow) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert presets into empty table: %w", err)
	}
	return true, nil
}

// Update overwrites every mutable field of the row matching p.ID and stamps
// UpdatedAt from the repository clock. It returns the stored snapshot.
//
// Update aborts with a constraint error when no row has p.ID; it never
// inserts.
func (r *Presets) Update(ctx context.Context, p model.WritingPreset) (model.WritingPreset, error) {
	p.UpdatedAt = r.clock.NowMillis()

	err := r.st.RunTransaction(ctx, func(tx *store.Tx) error {
		n, err := tx.Exec(ctx, model.TablePresets, updatePreset,
			p.Name, p.Description, p.SystemPrompt, boolToInt(p.IsDefault),
			p.CreatedAt, p.UpdatedAt, p.ID,
		)
		if err != nil {
			return err
		}
		if n == 0 {
			return store.NewConstraintError(model.TablePresets, fmt.Sprintf("no preset with id %q", p.ID))
		}
		return nil
	})
	if err != nil {
		return model.WritingPreset{}, fmt.Errorf("update preset %s: %w", p.ID, err)
	}
	return p, nil
}

// Delete removes the row matching p.ID. Deleting a missing row is not an error.
func (r *Presets) Delete(ctx context.Context, p model.WritingPreset) error {
	return r.DeleteByID(ctx, p.ID)
}

// DeleteByID removes at most one preset. Idempotent.
func (r *Presets) DeleteByID(ctx context.Context, id string) error {
	err := r.st.RunTransaction(ctx, func(tx *store.Tx) error {
		_, err := tx.Exec(ctx, model.TablePresets, deletePreset, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete preset %s: %w", id, err)
	}
	return nil
}

// DeleteAll removes every preset.
func (r *Presets) DeleteAll(ctx context.Context) error {
	err := r.st.RunTransaction(ctx, func(tx *store.Tx) error {
		_, err := tx.Exec(ctx, model.TablePresets, deleteAllPresets)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete all presets: %w", err)
	}
	return nil
}

// ClearDefaultFlags sets isDefault = false on every preset.
//
// Callers that follow this with a separate write open a window with no
// default; SetDefault performs both steps in one transaction.
func (r *Presets) ClearDefaultFlags(ctx context.Context) error {
	err := r.st.RunTransaction(ctx, func(tx *store.Tx) error {
		_, err := tx.Exec(ctx, model.TablePresets, clearDefaultFlags)
		return err
	})
	if err != nil {
		return fmt.Errorf("clear default flags: %w", err)
	}
	return nil
}

// SetDefault makes id the only default preset, clearing every other flag in
// the same transaction and stamping the new default's UpdatedAt.
//
// found is false when no preset has id; the transaction is then rolled back
// and the previous default is kept.
func (r *Presets) SetDefault(ctx context.Context, id string) (bool, error) {
	now := r.clock.NowMillis()

	err := r.st.RunTransaction(ctx, func(tx *store.Tx) error {
		if _, err := tx.Exec(ctx, model.TablePresets, clearDefaultFlags); err != nil {
			return err
		}
		n, err := tx.Exec(ctx, model.TablePresets, markDefault, now, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return errNoRow
		}
		return nil
	})
	if errors.Is(err, errNoRow) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("set default preset %s: %w", id, err)
	}
	return true, nil
}

// InsertAsDefault inserts or replaces p as the only default preset. The
// flag clear and the insert share one transaction, so observers never see
// p without its flag or two defaults.
func (r *Presets) InsertAsDefault(ctx context.Context, p model.WritingPreset) error {
	p.IsDefault = true
	err := r.st.RunTransaction(ctx, func(tx *store.Tx) error {
		if _, err := tx.Exec(ctx, model.TablePresets, clearDefaultFlags); err != nil {
			return err
		}
		return insertPresets(ctx, tx, []model.WritingPreset{p})
	})
	if err != nil {
		return fmt.Errorf("insert default preset %s: %w", p.ID, err)
	}
	return nil
}

// ObserveAll streams GetAll, re-evaluated after every preset commit.
func (r *Presets) ObserveAll(ctx context.Context) (*live.Subscription[[]model.WritingPreset], error) {
	return live.Subscribe(ctx, r.st, []string{model.TablePresets}, r.GetAll)
}

// ObserveByID streams the preset with id; nil while it does not exist.
func (r *Presets) ObserveByID(ctx context.Context, id string) (*live.Subscription[*model.WritingPreset], error) {
	return live.Subscribe(ctx, r.st, []string{model.TablePresets}, func(ctx context.Context) (*model.WritingPreset, error) {
		return optional(r.GetByID(ctx, id))
	})
}

// ObserveDefault streams the default preset; nil while none is marked.
func (r *Presets) ObserveDefault(ctx context.Context) (*live.Subscription[*model.WritingPreset], error) {
	return live.Subscribe(ctx, r.st, []string{model.TablePresets}, func(ctx context.Context) (*model.WritingPreset, error) {
		return optional(r.GetDefault(ctx))
	})
}

func optional[T any](v T, found bool, err error) (*T, error) {
	if err != nil || !found {
		return nil, err
	}
	return &v, nil
}
