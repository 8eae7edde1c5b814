package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scribe/internal/model"
)

func TestTracker_ObserveValidatesTables(t *testing.T) {
	tr := newTracker(KnownTables())

	_, err := tr.Observe()
	assert.Error(t, err)

	_, err = tr.Observe("users")
	assert.ErrorContains(t, err, `unknown table "users"`)

	o, err := tr.Observe(model.TableTexts, model.TablePresets, model.TablePresets)
	require.NoError(t, err)
	assert.Equal(t, []string{model.TableTexts, model.TablePresets}, o.Tables())
}

func TestTracker_NotifyMatchingOnly(t *testing.T) {
	tr := newTracker(KnownTables())
	presets, _ := tr.Observe(model.TablePresets)
	texts, _ := tr.Observe(model.TableTexts)

	tr.notify([]string{model.TablePresets})

	assert.Len(t, presets.C(), 1)
	assert.Len(t, texts.C(), 0)
	assert.Equal(t, int64(1), tr.Generation())
}

func TestTracker_SignalsCoalesce(t *testing.T) {
	tr := newTracker(KnownTables())
	o, _ := tr.Observe(model.TablePresets)

	for i := 0; i < 10; i++ {
		tr.notify([]string{model.TablePresets})
	}

	assert.Len(t, o.C(), 1)
	assert.Equal(t, int64(10), tr.Generation())
}

func TestTracker_EmptyNotifyIsIgnored(t *testing.T) {
	tr := newTracker(KnownTables())
	o, _ := tr.Observe(model.TablePresets)

	tr.notify(nil)

	assert.Len(t, o.C(), 0)
	assert.Equal(t, int64(0), tr.Generation())
}

func TestObserver_CloseUnregisters(t *testing.T) {
	tr := newTracker(KnownTables())
	o, _ := tr.Observe(model.TablePresets)
	require.Equal(t, 1, tr.Len())

	o.Close()
	o.Close()
	assert.Equal(t, 0, tr.Len())

	tr.notify([]string{model.TablePresets})
	assert.Len(t, o.C(), 0)
}

// The signal is posted before RunTransaction returns.
func TestStore_NotifiesBeforeReturn(t *testing.T) {
	s := createTestStore(t)
	o, err := s.Observe(model.TablePresets)
	require.NoError(t, err)
	defer o.Close()

	insertPresetRow(t, s, "p1", false)

	select {
	case <-o.C():
	case <-time.After(time.Second):
		t.Fatal("no signal after commit")
	}
}

func TestStore_UnrelatedWriteDoesNotNotify(t *testing.T) {
	s := createTestStore(t)
	o, err := s.Observe(model.TableTexts)
	require.NoError(t, err)
	defer o.Close()

	insertPresetRow(t, s, "p1", false)

	assert.Len(t, o.C(), 0)
}

func TestStore_ReadOnlyTransactionDoesNotNotify(t *testing.T) {
	s := createTestStore(t)
	o, err := s.Observe(model.TablePresets)
	require.NoError(t, err)
	defer o.Close()

	err = s.RunTransaction(context.Background(), func(tx *Tx) error {
		var n int
		return tx.QueryRow(context.Background(), "SELECT COUNT(*) FROM writing_presets").Scan(&n)
	})
	require.NoError(t, err)

	assert.Len(t, o.C(), 0)
	assert.Equal(t, int64(0), s.Tracker().Generation())
}
