package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/scribe/internal/repo"
	"github.com/roach88/scribe/internal/seed"
	"github.com/roach88/scribe/internal/store"
)

// session is one open database with its repositories.
type session struct {
	store   *store.Store
	presets *repo.Presets
	texts   *repo.Texts
}

// openSession opens the configured database and, when seeding is enabled,
// installs the preset catalog into an empty presets table.
func openSession(ctx context.Context, opts *RootOptions) (*session, error) {
	st, err := openStore(ctx, opts)
	if err != nil {
		return nil, err
	}

	s := &session{
		store:   st,
		presets: repo.NewPresets(st, opts.Clock),
		texts:   repo.NewTexts(st, opts.Clock, opts.IDs),
	}

	if opts.cfg.Seed.Enabled {
		if _, err := seed.Install(ctx, s.presets, opts.Clock, opts.IDs); err != nil {
			s.Close()
			return nil, WrapExitError(ExitFailure, "failed to seed presets", err)
		}
	}
	return s, nil
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// openStore opens the configured database file, creating its directory.
// Schema problems map to ExitSchemaMismatch.
func openStore(ctx context.Context, opts *RootOptions) (*store.Store, error) {
	path := opts.cfg.Database.Path
	if !isMemoryPath(path) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to create database directory", err)
		}
	}

	slog.Debug("opening database", "path", path, "driver", opts.cfg.Database.Driver)
	st, err := store.OpenContext(ctx, path, opts.cfg.StoreOptions()...)
	if err != nil {
		return nil, storeOpenError(err)
	}
	return st, nil
}

func storeOpenError(err error) error {
	switch {
	case store.IsSchemaMismatch(err):
		return WrapExitError(ExitSchemaMismatch, "database schema does not match", err)
	case store.IsMigrationRequired(err):
		return WrapExitError(ExitSchemaMismatch, "database needs a migration this build does not have", err)
	default:
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
}

// operationError maps a repository failure to an exit error.
func operationError(action string, err error) error {
	return WrapExitError(ExitFailure, fmt.Sprintf("failed to %s", action), err)
}

func isMemoryPath(path string) bool {
	return path == ":memory:" || strings.HasPrefix(path, "file::memory:")
}
