package guardrail

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "guardrails.yaml"))
}

func TestSeed_WritesCoreOnce(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Seed(DefaultCore()))

	set := s.Load()
	assert.Len(t, set.Core, len(DefaultCore()))
	assert.Empty(t, set.Learned)

	// Seeding again with different rules must not overwrite.
	require.NoError(t, s.Seed([]Guardrail{{Trigger: "x", Instruction: "y"}}))
	set = s.Load()
	assert.Len(t, set.Core, len(DefaultCore()))
}

func TestAppend_PreservesCoreAndAccumulates(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Seed(DefaultCore()))

	first := Guardrail{Trigger: "editing generated files", Instruction: "Regenerate instead", AddedAfter: "thrashed gen.go"}
	second := Guardrail{Trigger: "flaky network tests", Instruction: "Run them twice before concluding"}
	require.NoError(t, s.Append(first))
	require.NoError(t, s.Append(second))

	set := s.Load()
	assert.Len(t, set.Core, len(DefaultCore()))
	require.Len(t, set.Learned, 2)
	assert.Equal(t, first, set.Learned[0])
	assert.Equal(t, second, set.Learned[1])

	all := set.All()
	assert.Len(t, all, len(DefaultCore())+2)
	assert.Equal(t, set.Core[0], all[0], "core rules come first")
}

func TestAppend_WithoutSeedStillWorks(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Append(Guardrail{Trigger: "t", Instruction: "i"}))

	set := s.Load()
	assert.Empty(t, set.Core)
	require.Len(t, set.Learned, 1)
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	s := newTestStore(t)

	set := s.Load()
	assert.Empty(t, set.All())
}

func TestLoad_CorruptFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guardrails.yaml")
	require.NoError(t, os.WriteFile(path, []byte("core: [unclosed"), 0o644))

	set := NewStore(path).Load()
	assert.Empty(t, set.All())
}
