package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_PresetsPrintsCurrentState(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("preset", "add", "--name", "Blog", "--prompt", "p", "--default")

	out := env.mustRun("watch", "presets", "--max", "1")
	assert.Equal(t, "== presets (generation 0) ==\n* id-0001  Blog\n1 preset(s)\n", out)
}

func TestWatch_DefaultNone(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun("watch", "default", "--max", "1")
	assert.Equal(t, "== default (generation 0) ==\n(none)\n", out)
}

func TestWatch_PresetByID(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("preset", "add", "--name", "Blog", "--prompt", "p")

	out := env.mustRun("--format", "json", "watch", "preset", "id-0001", "--max", "1")

	var e struct {
		Stream string `json:"stream"`
		Data   struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &e))
	assert.Equal(t, "preset id-0001", e.Stream)
	assert.Equal(t, "Blog", e.Data.Name)
}

func TestWatch_AllFansIn(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("seed")

	out := env.mustRun("--format", "json", "watch", "all", "--max", "3", "-n", "2")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)

	streams := map[string]bool{}
	for _, line := range lines {
		var e struct {
			Stream     string          `json:"stream"`
			Generation int64           `json:"generation"`
			Data       json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &e), line)
		streams[e.Stream] = true
		assert.Equal(t, int64(0), e.Generation)
	}
	assert.Equal(t, map[string]bool{"presets": true, "default": true, "recent": true}, streams)
}

func TestWatch_NegativeMax(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run("watch", "presets", "--max", "-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
