package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerRun_SplitsNonEmptyLines(t *testing.T) {
	runner := NewRunner("printf", t.TempDir())

	lines, err := runner.Run("a\\nb\\n\\nc\\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, lines)
}

func TestRunnerRun_FailureSurfacesStderr(t *testing.T) {
	runner := NewRunner("sh", t.TempDir())

	_, err := runner.Run("-c", "echo boom >&2; exit 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestRunnerRun_FailureWithoutStderr(t *testing.T) {
	runner := NewRunner("false", t.TempDir())

	_, err := runner.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "false command failed")
}

func TestProjectRoot(t *testing.T) {
	runner := &fakeRunner{responses: map[string][]string{
		"root": {"/home/user/proj"},
	}}

	root, err := ProjectRoot(runner)
	require.NoError(t, err)
	assert.Equal(t, "/home/user/proj", root)
}

func TestProjectRoot_MultiLineOutputRejected(t *testing.T) {
	runner := &fakeRunner{responses: map[string][]string{
		"root": {"/a", "/b"},
	}}

	_, err := ProjectRoot(runner)
	assert.Error(t, err)
}
