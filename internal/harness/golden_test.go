package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"default_switch", "update_missing", "text_history", "seed_then_reset"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestTraceSnapshot_MarshalIsStable(t *testing.T) {
	snapshot := TraceSnapshot{
		ScenarioName: "s",
		Trace:        []TraceEvent{{Step: 1, Op: OpTextCount, Outcome: OutcomeOK, Result: 0}},
		State:        State{},
	}

	first, err := snapshot.Marshal()
	require.NoError(t, err)
	second, err := snapshot.Marshal()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Contains(t, string(first), `"result": 0`)
	assert.Equal(t, byte('\n'), first[len(first)-1])
}
