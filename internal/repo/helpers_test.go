package repo

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/scribe/internal/live"
	"github.com/roach88/scribe/internal/model"
	"github.com/roach88/scribe/internal/store"
	"github.com/roach88/scribe/internal/testutil"
)

const waitFor = 2 * time.Second

type fixture struct {
	st      *store.Store
	clock   *testutil.MillisClock
	presets *Presets
	texts   *Texts
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "repo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	clock := testutil.NewMillisClock(1_000, 1)
	return &fixture{
		st:      st,
		clock:   clock,
		presets: NewPresets(st, clock),
		texts:   NewTexts(st, clock, testutil.NewSequenceIDs("text")),
	}
}

func preset(id string, isDefault bool, updatedAt int64) model.WritingPreset {
	return model.WritingPreset{
		ID:           id,
		Name:         "name-" + id,
		Description:  "desc-" + id,
		SystemPrompt: "prompt-" + id,
		IsDefault:    isDefault,
		CreatedAt:    1,
		UpdatedAt:    updatedAt,
	}
}

func text(id string, createdAt int64) model.GeneratedText {
	return model.GeneratedText{
		ID:            id,
		Input:         "input-" + id,
		PresetID:      "p1",
		PresetName:    "Preset",
		Version1:      "v1",
		Version2:      "v2",
		Version3:      "v3",
		Style1Label:   "formal",
		Style2Label:   "casual",
		Style3Label:   "short",
		ModelProvider: "openai",
		CreatedAt:     createdAt,
	}
}

// waitUntil reads emissions until match accepts one.
func waitUntil[T any](t *testing.T, sub *live.Subscription[T], match func(T) bool) T {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	for {
		r, ok := sub.Next(ctx)
		require.True(t, ok, "subscription ended before a matching emission")
		require.NoError(t, r.Err)
		if match(r.Value) {
			return r.Value
		}
	}
}

func defaultIDs(ps []model.WritingPreset) []string {
	var ids []string
	for _, p := range ps {
		if p.IsDefault {
			ids = append(ids, p.ID)
		}
	}
	return ids
}
