package harness

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/scribe/internal/model"
	"github.com/roach88/scribe/internal/repo"
	"github.com/roach88/scribe/internal/seed"
	"github.com/roach88/scribe/internal/store"
	"github.com/roach88/scribe/internal/testutil"
)

// Default clock parameters when a scenario omits clock.
const (
	DefaultClockStart int64 = 1000
	DefaultClockStep  int64 = 1
)

// Harness executes scenarios against a private in-memory store.
type Harness struct {
	store   *store.Store
	presets *repo.Presets
	texts   *repo.Texts
	clock   *testutil.MillisClock
	seedIDs repo.IDGenerator
}

// Run executes a scenario on a fresh in-memory database.
//
// Setup steps must succeed. Flow steps are traced; each is checked against
// its expect clause (or must succeed when it has none). Assertions then run
// against the trace and the final tables.
//
// The returned error covers infrastructure failures only. Scenario
// mismatches are reported through Result.Pass and Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run bounded by ctx.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	if scenario == nil {
		return nil, fmt.Errorf("scenario is nil")
	}

	st, err := store.OpenContext(ctx, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	start, step := DefaultClockStart, DefaultClockStep
	if scenario.Clock != nil {
		start, step = scenario.Clock.Start, scenario.Clock.Step
	}
	clock := testutil.NewMillisClock(start, step)

	h := &Harness{
		store:   st,
		presets: repo.NewPresets(st, clock),
		texts:   repo.NewTexts(st, clock, testutil.NewSequenceIDs("text")),
		clock:   clock,
		seedIDs: testutil.NewSequenceIDs("preset"),
	}

	result := NewResult()

	for i, s := range scenario.Setup {
		if _, err := h.execute(ctx, s); err != nil {
			return nil, fmt.Errorf("setup[%d] %s: %w", i, s.Op, err)
		}
	}

	for i, s := range scenario.Flow {
		value, err := h.execute(ctx, s)
		event := TraceEvent{
			Step:       i + 1,
			Op:         s.Op,
			Target:     stepTarget(s),
			Generation: st.Generation(),
		}
		switch {
		case errors.Is(err, errNotFound):
			event.Outcome = OutcomeNotFound
		case err != nil:
			event.Outcome = OutcomeError
			event.Error = errorCode(err)
		default:
			event.Outcome = OutcomeOK
			event.Result = value
		}
		result.AddTrace(event)

		if msg := checkExpect(event, s.Expect, err); msg != "" {
			result.AddError(fmt.Sprintf("flow[%d] %s: %s", i, s.Op, msg))
		}
	}

	state, err := h.snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	result.State = state

	actx := &AssertionContext{Store: st, Presets: h.presets, Texts: h.texts, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// errNotFound marks a step whose target row does not exist.
var errNotFound = errors.New("not found")

// execute runs one step and returns the value a read produced.
func (h *Harness) execute(ctx context.Context, s Step) (any, error) {
	switch s.Op {
	case OpPresetInsert:
		return nil, h.presets.InsertOrReplace(ctx, s.Preset.toModel())

	case OpPresetUpdate:
		updated, err := h.presets.Update(ctx, s.Preset.toModel())
		if err != nil {
			return nil, err
		}
		return updated, nil

	case OpPresetDelete:
		return nil, h.presets.DeleteByID(ctx, s.ID)

	case OpPresetDeleteAll:
		return nil, h.presets.DeleteAll(ctx)

	case OpPresetClearDefault:
		return nil, h.presets.ClearDefaultFlags(ctx)

	case OpPresetSetDefault:
		ok, err := h.presets.SetDefault(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errNotFound
		}
		return nil, nil

	case OpPresetGet:
		p, found, err := h.presets.GetByID(ctx, s.ID)
		return lookup(p, found, err)

	case OpPresetGetDefault:
		p, found, err := h.presets.GetDefault(ctx)
		return lookup(p, found, err)

	case OpPresetList:
		all, err := h.presets.GetAll(ctx)
		if err != nil {
			return nil, err
		}
		return presetIDs(all), nil

	case OpTextInsert:
		return nil, h.texts.InsertOrReplace(ctx, s.Text.toModel())

	case OpTextRecord:
		g, err := h.texts.Record(ctx, s.Text.toNewText())
		if err != nil {
			return nil, err
		}
		return g.ID, nil

	case OpTextDelete:
		return nil, h.texts.DeleteByID(ctx, s.ID)

	case OpTextDeleteAll:
		return nil, h.texts.DeleteAll(ctx)

	case OpTextGet:
		g, found, err := h.texts.GetByID(ctx, s.ID)
		return lookup(g, found, err)

	case OpTextRecent:
		recent, err := h.texts.GetRecent(ctx, s.Limit)
		if err != nil {
			return nil, err
		}
		return textIDs(recent), nil

	case OpTextCount:
		return h.texts.Count(ctx)

	case OpSeed:
		return seed.Install(ctx, h.presets, h.clock, h.seedIDs)

	case OpReset:
		return nil, h.store.ClearAllTables(ctx)
	}
	return nil, fmt.Errorf("unknown op %q", s.Op)
}

func lookup[T any](v T, found bool, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errNotFound
	}
	return v, nil
}

// snapshot reads both tables in their public orders.
func (h *Harness) snapshot(ctx context.Context) (State, error) {
	presets, err := h.presets.GetAll(ctx)
	if err != nil {
		return State{}, err
	}
	n, err := h.texts.Count(ctx)
	if err != nil {
		return State{}, err
	}
	texts := []model.GeneratedText{}
	if n > 0 {
		if texts, err = h.texts.GetRecent(ctx, n); err != nil {
			return State{}, err
		}
	}
	return State{Presets: presets, Texts: texts}, nil
}

// checkExpect returns a mismatch description, or "" if the step behaved as
// expected.
func checkExpect(event TraceEvent, expect *ExpectClause, err error) string {
	want := OutcomeOK
	if expect != nil {
		want = expect.Outcome
	}
	if event.Outcome != want {
		if err != nil {
			return fmt.Sprintf("expected %s, got %s: %v", want, event.Outcome, err)
		}
		return fmt.Sprintf("expected %s, got %s", want, event.Outcome)
	}
	if expect != nil && expect.Error != "" && expect.Error != event.Error {
		return fmt.Sprintf("expected error %s, got %q", expect.Error, event.Error)
	}
	return ""
}

// errorCode returns the store error code of err, or "UNKNOWN".
func errorCode(err error) string {
	var se *store.Error
	if errors.As(err, &se) {
		return string(se.Code)
	}
	if store.IsSchemaMismatch(err) {
		return string(store.ErrCodeSchemaMismatch)
	}
	return "UNKNOWN"
}

func stepTarget(s Step) string {
	switch {
	case s.ID != "":
		return s.ID
	case s.Preset != nil:
		return s.Preset.ID
	case s.Text != nil:
		return s.Text.ID
	}
	return ""
}

func presetIDs(ps []model.WritingPreset) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func textIDs(ts []model.GeneratedText) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.ID
	}
	return out
}

func (a *PresetArgs) toModel() model.WritingPreset {
	return model.WritingPreset{
		ID:           a.ID,
		Name:         a.Name,
		Description:  a.Description,
		SystemPrompt: a.SystemPrompt,
		IsDefault:    a.IsDefault,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func (a *TextArgs) toModel() model.GeneratedText {
	return model.GeneratedText{
		ID:            a.ID,
		Input:         a.Input,
		PresetID:      a.PresetID,
		PresetName:    a.PresetName,
		Version1:      a.Versions[0],
		Version2:      a.Versions[1],
		Version3:      a.Versions[2],
		Style1Label:   a.Labels[0],
		Style2Label:   a.Labels[1],
		Style3Label:   a.Labels[2],
		ModelProvider: a.ModelProvider,
		CreatedAt:     a.CreatedAt,
	}
}

func (a *TextArgs) toNewText() repo.NewText {
	return repo.NewText{
		Input:         a.Input,
		PresetID:      a.PresetID,
		PresetName:    a.PresetName,
		Versions:      a.Versions,
		Labels:        a.Labels,
		ModelProvider: a.ModelProvider,
	}
}
