package orchestrator

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/maestro/pkg/models"
)

// DefaultHistorySize is the number of finished runs kept when unset.
const DefaultHistorySize = 50

// Tracker assigns run identifiers and keeps the active runs plus a bounded
// history of finished runs. History eviction is FIFO by completion time.
type Tracker struct {
	mu      sync.Mutex
	active  map[string]*RunHandle
	history []*models.WorkflowRun
	size    int
	now     func() time.Time
}

// NewTracker creates a tracker keeping at most historySize finished runs.
func NewTracker(historySize int) *Tracker {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	return &Tracker{
		active: make(map[string]*RunHandle),
		size:   historySize,
		now:    time.Now,
	}
}

// Register creates a running WorkflowRun and returns the handle through
// which its owner records results.
func (t *Tracker) Register(workflowName string, runContext map[string]any) *RunHandle {
	h := &RunHandle{
		tracker: t,
		run: &models.WorkflowRun{
			ID:           uuid.New().String(),
			WorkflowName: workflowName,
			Status:       models.RunStatusRunning,
			Context:      cloneMap(runContext),
			StartTime:    t.now(),
			StepResults:  []models.StepResult{},
		},
	}

	t.mu.Lock()
	t.active[h.run.ID] = h
	t.mu.Unlock()
	return h
}

func (t *Tracker) complete(h *RunHandle, status models.RunStatus, errMsg string) *models.WorkflowRun {
	t.mu.Lock()
	defer t.mu.Unlock()

	h.mu.Lock()
	if h.run.Status.Terminal() {
		snap := h.run.Clone()
		h.mu.Unlock()
		return snap
	}
	end := t.now()
	h.run.Status = status
	h.run.Error = errMsg
	h.run.EndTime = &end
	finished := h.run.Clone()
	h.mu.Unlock()

	delete(t.active, finished.ID)
	t.history = append(t.history, finished)
	if over := len(t.history) - t.size; over > 0 {
		t.history = append([]*models.WorkflowRun(nil), t.history[over:]...)
	}
	return finished.Clone()
}

// GetStatus returns a snapshot of an active or historical run.
func (t *Tracker) GetStatus(id string) (*models.WorkflowRun, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if h, ok := t.active[id]; ok {
		return h.Snapshot(), nil
	}
	for i := len(t.history) - 1; i >= 0; i-- {
		if t.history[i].ID == id {
			return t.history[i].Clone(), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", models.ErrRunNotFound, id)
}

// ListActive returns snapshots of running runs ordered by start time.
func (t *Tracker) ListActive() []*models.WorkflowRun {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]*models.WorkflowRun, 0, len(t.active))
	for _, h := range t.active {
		out = append(out, h.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

// ListHistory returns up to limit finished runs, most recent first.
// A limit of zero or less returns the whole history.
func (t *Tracker) ListHistory(limit int) []*models.WorkflowRun {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(t.history)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*models.WorkflowRun, 0, n)
	for i := len(t.history) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, t.history[i].Clone())
	}
	return out
}

// RunHandle is the owner's write access to one run. Results can be appended
// until Finish is called; afterwards the run is immutable.
type RunHandle struct {
	tracker *Tracker
	mu      sync.Mutex
	run     *models.WorkflowRun
}

// ID returns the run identifier.
func (h *RunHandle) ID() string {
	return h.run.ID
}

// StartTime returns when the run was registered.
func (h *RunHandle) StartTime() time.Time {
	return h.run.StartTime
}

// AppendResult records a step result in completion order.
// Results arriving after Finish are ignored.
func (h *RunHandle) AppendResult(r models.StepResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.run.Status.Terminal() {
		return
	}
	h.run.StepResults = append(h.run.StepResults, r)
}

// Finish sets the terminal status and end time and moves the run from the
// active set to history in one step. Returns the final snapshot.
func (h *RunHandle) Finish(status models.RunStatus, errMsg string) *models.WorkflowRun {
	return h.tracker.complete(h, status, errMsg)
}

// Snapshot returns a copy of the run's current state.
func (h *RunHandle) Snapshot() *models.WorkflowRun {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.run.Clone()
}
