package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scribe/internal/model"
)

func mustParse(t *testing.T, content string) *Scenario {
	t.Helper()
	scenario, err := ParseScenario([]byte(content))
	require.NoError(t, err)
	return scenario
}

func TestRun_NilScenario(t *testing.T) {
	_, err := Run(nil)
	require.Error(t, err)
}

func TestRun_PassingScenario(t *testing.T) {
	scenario := mustParse(t, `
name: pass
description: "insert then read back"
flow:
  - op: preset.insert
    preset: { id: a, name: A, systemPrompt: p, createdAt: 1, updatedAt: 1 }
  - op: preset.get
    id: a
assertions:
  - type: row_count
    table: writing_presets
    count: 1
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 2)

	assert.Equal(t, OutcomeOK, result.Trace[0].Outcome)
	assert.Equal(t, int64(1), result.Trace[0].Generation)

	got, ok := result.Trace[1].Result.(model.WritingPreset)
	require.True(t, ok, "preset.get result is %T", result.Trace[1].Result)
	assert.Equal(t, "A", got.Name)
	assert.Equal(t, int64(1), result.Trace[1].Generation, "reads do not advance the generation")

	require.Len(t, result.State.Presets, 1)
	assert.Empty(t, result.State.Texts)
}

func TestRun_UnexpectedOutcomeFails(t *testing.T) {
	scenario := mustParse(t, `
name: fail
description: "lookup of a missing row without expect"
flow:
  - op: text.get
    id: nope
assertions:
  - type: row_count
    table: generated_texts
    count: 0
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected ok, got not_found")
}

func TestRun_ErrorCodeMismatch(t *testing.T) {
	scenario := mustParse(t, `
name: code
description: "update of a missing row reports a constraint error"
flow:
  - op: preset.update
    preset: { id: ghost, name: G, systemPrompt: p }
    expect: { outcome: error, error: TX_FAILED }
assertions:
  - type: row_count
    table: writing_presets
    count: 0
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, "CONSTRAINT_VIOLATION", result.Trace[0].Error)
	assert.Equal(t, int64(0), result.Trace[0].Generation, "aborted work does not notify")
	assert.Contains(t, result.Errors[0], "expected error TX_FAILED")
}

func TestRun_SetupFailureIsInfrastructureError(t *testing.T) {
	scenario := mustParse(t, `
name: setup
description: "setup steps must succeed"
setup:
  - op: preset.update
    preset: { id: ghost, name: G, systemPrompt: p }
flow:
  - op: preset.list
assertions:
  - type: default_is
`)

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "setup[0] preset.update")
}

func TestRun_AssertionFailuresAreCollected(t *testing.T) {
	scenario := mustParse(t, `
name: assertions
description: "every failing assertion is reported"
flow:
  - op: preset.insert
    preset: { id: a, name: A, systemPrompt: p }
assertions:
  - type: default_is
    id: a
  - type: row_count
    table: writing_presets
    count: 2
  - type: trace_contains
    op: preset.delete
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Len(t, result.Errors, 3)
}

func TestRun_ClockIsDeterministic(t *testing.T) {
	content := `
name: clock
description: "records use the scenario clock"
clock: { start: 100, step: 50 }
flow:
  - op: text.record
    text: { input: a, presetId: p }
  - op: text.record
    text: { input: b, presetId: p }
assertions:
  - type: order
    table: generated_texts
    ids: [text-0002, text-0001]
`
	first, err := Run(mustParse(t, content))
	require.NoError(t, err)
	second, err := Run(mustParse(t, content))
	require.NoError(t, err)

	assert.True(t, first.Pass, "errors: %v", first.Errors)
	assert.Equal(t, first.Trace, second.Trace)
	assert.Equal(t, first.State, second.State)

	require.Len(t, first.State.Texts, 2)
	assert.Equal(t, int64(200), first.State.Texts[0].CreatedAt)
	assert.Equal(t, int64(150), first.State.Texts[1].CreatedAt)
}

func TestRun_ScenarioFiles(t *testing.T) {
	for _, name := range []string{"default_switch", "update_missing", "text_history", "seed_then_reset", "seed_catalog"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}
