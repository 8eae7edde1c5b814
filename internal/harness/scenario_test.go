package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalScenario = `
name: minimal
description: "Minimal scenario"
flow:
  - op: preset.list
assertions:
  - type: row_count
    table: writing_presets
    count: 0
`

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")

	content := `
name: test_scenario
description: "Test scenario for validation"
clock: { start: 10, step: 5 }
setup:
  - op: preset.insert
    preset: { id: a, name: A, systemPrompt: p, isDefault: true }
flow:
  - op: preset.setDefault
    id: a
  - op: text.get
    id: missing
    expect: { outcome: not_found }
assertions:
  - type: default_is
    id: a
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	require.NotNil(t, scenario.Clock)
	assert.Equal(t, int64(10), scenario.Clock.Start)
	assert.Equal(t, int64(5), scenario.Clock.Step)
	require.Len(t, scenario.Setup, 1)
	assert.True(t, scenario.Setup[0].Preset.IsDefault)
	require.Len(t, scenario.Flow, 2)
	assert.Equal(t, OpPresetSetDefault, scenario.Flow[0].Op)
	assert.Equal(t, OutcomeNotFound, scenario.Flow[1].Expect.Outcome)
	assert.Len(t, scenario.Assertions, 1)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_Minimal(t *testing.T) {
	scenario, err := ParseScenario([]byte(minimalScenario))
	require.NoError(t, err)
	assert.Nil(t, scenario.Clock)
	assert.Empty(t, scenario.Setup)
}

func TestParseScenario_UnknownField(t *testing.T) {
	content := minimalScenario + "assertion: []\n"
	_, err := ParseScenario([]byte(content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing name",
			content: `
description: d
flow: [{op: preset.list}]
assertions: [{type: default_is}]
`,
			wantErr: "name is required",
		},
		{
			name: "missing description",
			content: `
name: n
flow: [{op: preset.list}]
assertions: [{type: default_is}]
`,
			wantErr: "description is required",
		},
		{
			name: "empty flow",
			content: `
name: n
description: d
assertions: [{type: default_is}]
`,
			wantErr: "flow list is required",
		},
		{
			name: "empty assertions",
			content: `
name: n
description: d
flow: [{op: preset.list}]
`,
			wantErr: "assertions list is required",
		},
		{
			name: "unknown op",
			content: `
name: n
description: d
flow: [{op: preset.explode}]
assertions: [{type: default_is}]
`,
			wantErr: `flow[0]: unknown op "preset.explode"`,
		},
		{
			name: "insert without preset",
			content: `
name: n
description: d
flow: [{op: preset.insert}]
assertions: [{type: default_is}]
`,
			wantErr: "preset with id is required",
		},
		{
			name: "delete without id",
			content: `
name: n
description: d
flow: [{op: text.delete}]
assertions: [{type: default_is}]
`,
			wantErr: "id is required for text.delete",
		},
		{
			name: "record without text",
			content: `
name: n
description: d
flow: [{op: text.record}]
assertions: [{type: default_is}]
`,
			wantErr: "text is required for text.record",
		},
		{
			name: "bad outcome",
			content: `
name: n
description: d
flow: [{op: preset.list, expect: {outcome: maybe}}]
assertions: [{type: default_is}]
`,
			wantErr: "outcome must be ok, not_found or error",
		},
		{
			name: "error code without error outcome",
			content: `
name: n
description: d
flow: [{op: preset.list, expect: {outcome: ok, error: TX_FAILED}}]
assertions: [{type: default_is}]
`,
			wantErr: "error code requires outcome error",
		},
		{
			name: "expect in setup",
			content: `
name: n
description: d
setup: [{op: preset.list, expect: {outcome: ok}}]
flow: [{op: preset.list}]
assertions: [{type: default_is}]
`,
			wantErr: "expect is not allowed in setup",
		},
		{
			name: "unknown assertion",
			content: `
name: n
description: d
flow: [{op: preset.list}]
assertions: [{type: vibes}]
`,
			wantErr: `unknown assertion type "vibes"`,
		},
		{
			name: "final_state without expect",
			content: `
name: n
description: d
flow: [{op: preset.list}]
assertions: [{type: final_state, table: writing_presets}]
`,
			wantErr: "expect is required for final_state",
		},
		{
			name: "trace_count without op",
			content: `
name: n
description: d
flow: [{op: preset.list}]
assertions: [{type: trace_count, count: 1}]
`,
			wantErr: "op is required for trace_count",
		},
		{
			name: "order without table",
			content: `
name: n
description: d
flow: [{op: preset.list}]
assertions: [{type: order, ids: [a]}]
`,
			wantErr: "table is required for order",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestScenarioFiles_Parse(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)
			assert.Equal(t, filepath.Base(path), scenario.Name+".yaml", "file name must match scenario name")
		})
	}
}
