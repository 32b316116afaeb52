package task

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_PreambleAndCriteria(t *testing.T) {
	spec, err := Parse(`+++
test_command = "go test ./..."
max_iterations = 10
+++

# Task

- [ ] Implement the parser
- [x] Set up the repo
- [ ] Write tests
`)
	require.NoError(t, err)

	assert.Equal(t, "go test ./...", spec.TestCommand)
	assert.Equal(t, 10, spec.MaxIterations)
	require.Len(t, spec.Criteria, 3)
	assert.Equal(t, 2, spec.UncheckedCount())
	assert.False(t, spec.Unbounded())
}

func TestParse_NoPreamble(t *testing.T) {
	spec, err := Parse("- [ ] Only criterion\n")
	require.NoError(t, err)

	assert.Empty(t, spec.TestCommand)
	assert.True(t, spec.Unbounded())
	assert.Equal(t, 1, spec.UncheckedCount())
}

func TestParse_UnclosedFence(t *testing.T) {
	_, err := Parse("+++\ntest_command = \"make\"\n\n- [ ] item\n")
	assert.Error(t, err)
}

func TestParse_MalformedPreamble(t *testing.T) {
	_, err := Parse("+++\ntest_command = not quoted\n+++\n")
	assert.Error(t, err)
}

func TestParse_NegativeMaxIterationsMeansUnbounded(t *testing.T) {
	spec, err := Parse("+++\nmax_iterations = -5\n+++\n\n- [ ] item\n")
	require.NoError(t, err)

	assert.Equal(t, 0, spec.MaxIterations)
	assert.True(t, spec.Unbounded())
}

func TestParse_AnyMarkerCharCountsAsChecked(t *testing.T) {
	spec, err := Parse(`
- [ ] unchecked
- [x] checked lower
- [X] checked upper
- [~] checked other
`)
	require.NoError(t, err)

	require.Len(t, spec.Criteria, 4)
	assert.Equal(t, 1, spec.UncheckedCount())
	assert.True(t, spec.Criteria[1].Checked)
	assert.True(t, spec.Criteria[3].Checked)
}

func TestParse_NonChecklistLinesIgnored(t *testing.T) {
	spec, err := Parse(`# Heading

Some prose about the task.

- a plain bullet
- [broken
- [ ] real criterion
`)
	require.NoError(t, err)

	require.Len(t, spec.Criteria, 1)
	assert.Equal(t, "real criterion", spec.Criteria[0].Text)
}

func TestParse_IndentedCriteria(t *testing.T) {
	spec, err := Parse("  - [ ] indented unchecked\n\t- [x] indented checked\n")
	require.NoError(t, err)

	require.Len(t, spec.Criteria, 2)
	assert.Equal(t, 1, spec.UncheckedCount())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "TASK.md"))
	assert.ErrorIs(t, err, ErrMissingTask)
}

func TestLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "TASK.md")
	content := "+++\ntest_command = \"make check\"\n+++\n\n- [ ] first\n- [x] second\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	spec, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "make check", spec.TestCommand)
	assert.Equal(t, 1, spec.UncheckedCount())
}
