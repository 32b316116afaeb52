package budget

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(t *testing.T, thresholds Thresholds) *Tracker {
	t.Helper()
	journal := filepath.Join(t.TempDir(), "access.jsonl")
	return NewTracker(journal, thresholds, ByteEstimator{})
}

func TestByteEstimator(t *testing.T) {
	e := ByteEstimator{}

	assert.Equal(t, 250, e.Estimate("a.go", 1000))
	assert.Equal(t, 0, e.Estimate("empty", 0))
	assert.Equal(t, 0, e.Estimate("bad", -100))
	assert.Equal(t, 0, e.Estimate("tiny", 3))
}

func TestThresholds_CutPoints(t *testing.T) {
	th := DefaultThresholds()

	assert.Equal(t, 80_000, th.CapacityTokens)
	assert.Equal(t, 64_000, th.WarnTokens())
	assert.Equal(t, 76_000, th.CriticalTokens())
}

func TestTracker_StatusProgression(t *testing.T) {
	tr := newTestTracker(t, Thresholds{CapacityTokens: 1000, WarnFraction: 0.80, CriticalFraction: 0.95})

	// 100 tokens: healthy.
	_, status, err := tr.Record("a.go", 400)
	require.NoError(t, err)
	assert.Equal(t, StatusHealthy, status)

	// +700 = 800: at the warn threshold.
	_, status, err = tr.Record("b.go", 2800)
	require.NoError(t, err)
	assert.Equal(t, StatusWarning, status)

	// +150 = 950: at the critical threshold. The access is still recorded.
	access, status, err := tr.Record("c.go", 600)
	require.NoError(t, err)
	assert.Equal(t, StatusCritical, status)
	assert.Equal(t, 150, access.EstimatedTokens)

	allocated, err := tr.Allocated()
	require.NoError(t, err)
	assert.Equal(t, 950, allocated)
}

func TestTracker_TotalSurvivesRestart(t *testing.T) {
	journal := filepath.Join(t.TempDir(), "access.jsonl")
	th := Thresholds{CapacityTokens: 1000, WarnFraction: 0.80, CriticalFraction: 0.95}

	first := NewTracker(journal, th, ByteEstimator{})
	_, _, err := first.Record("a.go", 1200)
	require.NoError(t, err)
	_, _, err = first.Record("b.go", 800)
	require.NoError(t, err)

	// A fresh tracker over the same journal derives the same total.
	second := NewTracker(journal, th, ByteEstimator{})
	allocated, err := second.Allocated()
	require.NoError(t, err)
	assert.Equal(t, 500, allocated)
}

func TestTracker_MissingJournalIsEmpty(t *testing.T) {
	tr := newTestTracker(t, DefaultThresholds())

	allocated, err := tr.Allocated()
	require.NoError(t, err)
	assert.Equal(t, 0, allocated)

	status, err := tr.Status()
	require.NoError(t, err)
	assert.Equal(t, StatusHealthy, status)
}

func TestTracker_SkipsMalformedJournalLines(t *testing.T) {
	journal := filepath.Join(t.TempDir(), "access.jsonl")
	content := `{"resource_id":"a.go","estimated_tokens":100,"timestamp":"2026-01-02T03:04:05Z"}
not json at all
{"resource_id":"b.go","estimated_tokens":50,"timestamp":"2026-01-02T03:04:06Z"}
`
	require.NoError(t, os.WriteFile(journal, []byte(content), 0o644))

	tr := NewTracker(journal, DefaultThresholds(), ByteEstimator{})
	allocated, err := tr.Allocated()
	require.NoError(t, err)
	assert.Equal(t, 150, allocated)
}

func TestTracker_ZeroCapacityFallsBackToDefaults(t *testing.T) {
	tr := newTestTracker(t, Thresholds{})

	assert.Equal(t, 80_000, tr.Thresholds().CapacityTokens)
}
