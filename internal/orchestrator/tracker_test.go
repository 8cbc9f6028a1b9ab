package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayCichocki/maestro/pkg/models"
)

func TestTrackerRegisterAndFinish(t *testing.T) {
	tr := NewTracker(10)
	h := tr.Register("review", map[string]any{"repo": "."})

	run, err := tr.GetStatus(h.ID())
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusRunning, run.Status)
	assert.Nil(t, run.EndTime)
	assert.Len(t, tr.ListActive(), 1)

	h.AppendResult(models.StepResult{StepName: "a", Success: true})
	h.AppendResult(models.StepResult{StepName: "b", Success: false})

	final := h.Finish(models.RunStatusFailed, "required step failed: b")
	assert.Equal(t, models.RunStatusFailed, final.Status)
	require.NotNil(t, final.EndTime)
	assert.Equal(t, []string{"a", "b"}, resultNames(final.StepResults))

	assert.Empty(t, tr.ListActive())
	history := tr.ListHistory(0)
	require.Len(t, history, 1)
	assert.Equal(t, h.ID(), history[0].ID)
}

func TestTrackerTerminalRunIsImmutable(t *testing.T) {
	tr := NewTracker(10)
	h := tr.Register("wf", nil)
	h.Finish(models.RunStatusCompleted, "")

	h.AppendResult(models.StepResult{StepName: "late"})
	again := h.Finish(models.RunStatusFailed, "ignored")

	assert.Equal(t, models.RunStatusCompleted, again.Status)
	assert.Empty(t, again.StepResults)
	assert.Len(t, tr.ListHistory(0), 1)
}

func TestTrackerSnapshotsAreCopies(t *testing.T) {
	tr := NewTracker(10)
	h := tr.Register("wf", map[string]any{"k": "v"})
	h.AppendResult(models.StepResult{StepName: "a"})

	snap := h.Snapshot()
	snap.StepResults[0].StepName = "mutated"
	snap.Context["k"] = "mutated"

	fresh, err := tr.GetStatus(h.ID())
	require.NoError(t, err)
	assert.Equal(t, "a", fresh.StepResults[0].StepName)
	assert.Equal(t, "v", fresh.Context["k"])
}

func TestTrackerHistoryFIFO(t *testing.T) {
	tr := NewTracker(3)
	var ids []string
	for i := 0; i < 5; i++ {
		h := tr.Register("wf", nil)
		h.Finish(models.RunStatusCompleted, "")
		ids = append(ids, h.ID())
	}

	history := tr.ListHistory(0)
	require.Len(t, history, 3)
	assert.Equal(t, []string{ids[4], ids[3], ids[2]}, []string{history[0].ID, history[1].ID, history[2].ID})

	assert.Len(t, tr.ListHistory(2), 2)
	assert.Len(t, tr.ListHistory(10), 3)

	_, err := tr.GetStatus(ids[0])
	assert.ErrorIs(t, err, models.ErrRunNotFound)
}

func TestTrackerHistoryOrderedByCompletion(t *testing.T) {
	tr := NewTracker(10)
	first := tr.Register("first", nil)
	second := tr.Register("second", nil)

	second.Finish(models.RunStatusCompleted, "")
	first.Finish(models.RunStatusCompleted, "")

	history := tr.ListHistory(1)
	require.Len(t, history, 1)
	assert.Equal(t, first.ID(), history[0].ID)
}

func TestTrackerListActiveByStartTime(t *testing.T) {
	tr := NewTracker(10)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	tr.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	a := tr.Register("a", nil)
	b := tr.Register("b", nil)

	active := tr.ListActive()
	require.Len(t, active, 2)
	assert.Equal(t, a.ID(), active[0].ID)
	assert.Equal(t, b.ID(), active[1].ID)
}

func TestTrackerUnknownRun(t *testing.T) {
	tr := NewTracker(0)
	_, err := tr.GetStatus("missing")
	assert.ErrorIs(t, err, models.ErrRunNotFound)
}
