package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_StringRoundTrip(t *testing.T) {
	for _, s := range []Status{StatusInitialized, StatusActive, StatusComplete, StatusMaxIterations} {
		parsed, err := ParseStatus(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
}

func TestParseStatus_Unknown(t *testing.T) {
	_, err := ParseStatus("definitely_not_a_status")
	assert.Error(t, err)
}

func TestStatus_JSONForm(t *testing.T) {
	data, err := json.Marshal(StatusMaxIterations)
	require.NoError(t, err)
	assert.Equal(t, `"max_iterations_reached"`, string(data))

	var s Status
	require.NoError(t, json.Unmarshal([]byte(`"active"`), &s))
	assert.Equal(t, StatusActive, s)
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusInitialized.IsTerminal())
	assert.False(t, StatusActive.IsTerminal())
	assert.True(t, StatusComplete.IsTerminal())
	assert.True(t, StatusMaxIterations.IsTerminal())
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())

	st := NewIterationState()
	st.Iteration = 7
	st.Status = StatusActive
	require.NoError(t, store.Save(st))

	loaded := store.Load()
	assert.Equal(t, 7, loaded.Iteration)
	assert.Equal(t, StatusActive, loaded.Status)
	assert.Equal(t, st.StartedAt.Unix(), loaded.StartedAt.Unix())
}

func TestStore_MissingStateYieldsFresh(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "never-created"))

	st := store.Load()
	assert.Equal(t, 0, st.Iteration)
	assert.Equal(t, StatusInitialized, st.Status)
}

func TestStore_CorruptStateYieldsFresh(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	require.NoError(t, os.WriteFile(store.StatePath(), []byte("{not json"), 0o644))

	st := store.Load()
	assert.Equal(t, 0, st.Iteration)
	assert.Equal(t, StatusInitialized, st.Status)
}

func TestStore_NegativeIterationYieldsFresh(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	require.NoError(t, os.WriteFile(store.StatePath(),
		[]byte(`{"iteration":-3,"status":"active","started_at":"2026-01-02T03:04:05Z"}`), 0o644))

	st := store.Load()
	assert.Equal(t, 0, st.Iteration)
}

func TestStore_LastTestRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())

	assert.Nil(t, store.LoadLastTest())

	outcome := &TestOutcome{ExitCode: 2, Output: "FAIL: TestThing"}
	require.NoError(t, store.SaveLastTest(outcome))

	loaded := store.LoadLastTest()
	require.NotNil(t, loaded)
	assert.Equal(t, 2, loaded.ExitCode)
	assert.Equal(t, "FAIL: TestThing", loaded.Output)
	assert.False(t, loaded.Passed())
}

func TestTestOutcome_Passed(t *testing.T) {
	assert.True(t, (&TestOutcome{ExitCode: 0}).Passed())
	assert.False(t, (&TestOutcome{ExitCode: 1}).Passed())
	assert.False(t, (&TestOutcome{ExitCode: 0, TimedOut: true}).Passed())

	var nilOutcome *TestOutcome
	assert.False(t, nilOutcome.Passed())
}

func TestWriteAtomic_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	require.NoError(t, WriteAtomic(path, []byte(`{"a":1}`)))
	require.NoError(t, WriteAtomic(path, []byte(`{"a":2}`)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "state.json", entries[0].Name())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2}`, string(data))
}

func TestAppendReadJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")

	type rec struct {
		N int `json:"n"`
	}
	for i := 1; i <= 3; i++ {
		require.NoError(t, AppendJSONL(path, rec{N: i}))
	}

	// Inject a malformed line mid-journal.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("garbage\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, AppendJSONL(path, rec{N: 4}))

	var got []int
	err = ReadJSONL(path, func(line []byte) error {
		var r rec
		require.NoError(t, json.Unmarshal(line, &r))
		got = append(got, r.N)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, got)
}

func TestReadJSONL_MissingFileIsEmpty(t *testing.T) {
	calls := 0
	err := ReadJSONL(filepath.Join(t.TempDir(), "nope.jsonl"), func([]byte) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, calls)
}
