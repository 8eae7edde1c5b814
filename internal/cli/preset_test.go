package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scribe/internal/model"
)

func TestPreset_AddListShow(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun("preset", "add", "--name", "Blog", "--description", "long form", "--prompt", "Write a blog post.")
	assert.Equal(t, "Added preset Blog (id-0001)\n", out)

	out = env.mustRun("preset", "add", "--name", "Tweet", "--prompt", "Be brief.", "--default")
	assert.Equal(t, "Added preset Tweet (id-0002)\n", out)

	out = env.mustRun("preset", "list")
	assert.Equal(t, "* id-0002  Tweet\n  id-0001  Blog  (long form)\n2 preset(s)\n", out)

	var p model.WritingPreset
	env.runJSON(&p, "preset", "show", "--default")
	assert.Equal(t, "id-0002", p.ID)
	assert.True(t, p.IsDefault)
	assert.Equal(t, "Be brief.", p.SystemPrompt)

	out = env.mustRun("preset", "show", "id-0001")
	assert.Contains(t, out, "Name:        Blog\n")
	assert.Contains(t, out, "Default:     false\n")
	assert.Contains(t, out, "\nWrite a blog post.\n")
}

func TestPreset_AddDefaultReplacesPrevious(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("preset", "add", "--name", "A", "--prompt", "a", "--default")

	var p model.WritingPreset
	env.runJSON(&p, "preset", "add", "--name", "B", "--prompt", "b", "--default")
	assert.Equal(t, "id-0002", p.ID)
	assert.True(t, p.IsDefault)
	assert.Equal(t, p.CreatedAt, p.UpdatedAt, "insert and default flag are one write")

	out := env.mustRun("preset", "list")
	assert.Equal(t, "* id-0002  B\n  id-0001  A\n2 preset(s)\n", out)
}

func TestPreset_AddRequiresNameAndPrompt(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run("preset", "add", "--name", "x")
	require.Error(t, err)
}

func TestPreset_ShowArgs(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run("preset", "show")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = env.run("preset", "show", "x", "--default")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = env.run("preset", "show", "missing")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, err = env.run("preset", "show", "--default")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestPreset_SetDefault(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("preset", "add", "--name", "A", "--prompt", "a", "--default")
	env.mustRun("preset", "add", "--name", "B", "--prompt", "b")

	out := env.mustRun("preset", "set-default", "id-0002")
	assert.Equal(t, "Default preset is now id-0002\n", out)

	var all []model.WritingPreset
	env.runJSON(&all, "preset", "list")
	require.Len(t, all, 2)
	assert.Equal(t, "id-0002", all[0].ID)
	assert.True(t, all[0].IsDefault)
	assert.False(t, all[1].IsDefault)

	_, err := env.run("preset", "set-default", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "default unchanged")

	var p model.WritingPreset
	env.runJSON(&p, "preset", "show", "--default")
	assert.Equal(t, "id-0002", p.ID)
}

func TestPreset_ClearDefault(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("preset", "add", "--name", "A", "--prompt", "a", "--default")

	out := env.mustRun("preset", "clear-default")
	assert.Equal(t, "No preset is the default.\n", out)

	_, err := env.run("preset", "show", "--default")
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestPreset_Update(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("preset", "add", "--name", "A", "--description", "keep", "--prompt", "a")
	created := env.clock.Current()

	var p model.WritingPreset
	env.runJSON(&p, "preset", "update", "id-0001", "--name", "A2")
	assert.Equal(t, "A2", p.Name)
	assert.Equal(t, "keep", p.Description)
	assert.Equal(t, "a", p.SystemPrompt)
	assert.Equal(t, created, p.CreatedAt)
	assert.Greater(t, p.UpdatedAt, created)

	_, err := env.run("preset", "update", "missing", "--name", "x")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestPreset_DeleteIsIdempotent(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("preset", "add", "--name", "A", "--prompt", "a")

	assert.Equal(t, "Deleted preset id-0001\n", env.mustRun("preset", "delete", "id-0001"))
	assert.Equal(t, "Deleted preset id-0001\n", env.mustRun("preset", "delete", "id-0001"))
	assert.Equal(t, "No presets.\n", env.mustRun("preset", "list"))
}

func TestPreset_ListSeedsWhenEnabled(t *testing.T) {
	env := newCLIEnv(t)
	t.Setenv("SCRIBE_SEED", "true")

	var all []model.WritingPreset
	env.runJSON(&all, "preset", "list")
	require.Len(t, all, 5)
	assert.True(t, all[0].IsDefault)
	assert.Equal(t, "小红书文案", all[0].Name)

	// A second run does not reseed.
	env.runJSON(&all, "preset", "list")
	assert.Len(t, all, 5)
}
