package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/scribe/internal/model"
)

// ClearAllTables deletes every row from every record table in one
// transaction, then checkpoints the WAL and reclaims disk space.
//
// The delete is atomic and notifies observers of both tables. The
// reclamation pass runs after commit; its failure is returned but does not
// undo the delete.
func (s *Store) ClearAllTables(ctx context.Context) error {
	err := s.RunTransaction(ctx, func(tx *Tx) error {
		for _, table := range []string{model.TablePresets, model.TableTexts} {
			// Table names are constants, never caller input.
			if _, err := tx.Exec(ctx, table, fmt.Sprintf("DELETE FROM `%s`", table)); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	return s.reclaim(ctx)
}

// reclaim runs a full WAL checkpoint followed by VACUUM. Both require that no
// transaction is open, so the write lock is held.
func (s *Store) reclaim(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var busy, logFrames, checkpointed int
	if err := s.db.QueryRowContext(ctx, "PRAGMA wal_checkpoint(FULL)").Scan(&busy, &logFrames, &checkpointed); err != nil {
		return fmt.Errorf("wal checkpoint: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}

	slog.Info("storage reclaimed", "path", s.path, "wal_frames", logFrames, "checkpointed", checkpointed)
	return nil
}
