package models

import "time"

// RunStatus represents the state of a workflow run.
type RunStatus string

const (
	// RunStatusPending is the instantaneous state before registration.
	RunStatusPending RunStatus = "pending"
	// RunStatusRunning indicates the run is dispatching steps.
	RunStatusRunning RunStatus = "running"
	// RunStatusCompleted indicates no required step failed.
	RunStatusCompleted RunStatus = "completed"
	// RunStatusFailed indicates a required step failed or the run was aborted.
	RunStatusFailed RunStatus = "failed"
)

// Terminal reports whether no further mutation can happen in this status.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// StepResult is the outcome of one step's execution.
type StepResult struct {
	// StepName is the step this result belongs to.
	StepName string `json:"step_name"`
	// Agent is the agent the step was bound to.
	Agent string `json:"agent,omitempty"`
	// Success is true when the agent returned without error.
	Success bool `json:"success"`
	// Output is the agent's result payload on success.
	Output map[string]any `json:"output,omitempty"`
	// Kind classifies the failure. Empty on success.
	Kind ErrorKind `json:"kind,omitempty"`
	// Error is the failure message.
	Error string `json:"error,omitempty"`
	// DurationMs is how long the invocation took.
	DurationMs int64 `json:"duration_ms"`
	// Timestamp is when the result was produced.
	Timestamp time.Time `json:"timestamp"`
}

// Duration returns DurationMs as a time.Duration.
func (r StepResult) Duration() time.Duration {
	return time.Duration(r.DurationMs) * time.Millisecond
}

// WorkflowRun is a live or completed execution instance of a workflow.
type WorkflowRun struct {
	// ID is unique and generated at start.
	ID string `json:"id"`
	// WorkflowName is the definition this run executes.
	WorkflowName string `json:"workflow_name"`
	// Status is the current state.
	Status RunStatus `json:"status"`
	// Context is the caller-supplied input, opaque to the scheduler.
	Context map[string]any `json:"context,omitempty"`
	// StartTime is when the run was registered.
	StartTime time.Time `json:"start_time"`
	// EndTime is nil until the run is terminal.
	EndTime *time.Time `json:"end_time,omitempty"`
	// StepResults are in completion order.
	StepResults []StepResult `json:"step_results"`
	// Error summarizes why a failed run failed.
	Error string `json:"error,omitempty"`
}

// Duration returns the elapsed time of the run, up to now if still running.
func (r *WorkflowRun) Duration() time.Duration {
	if r.EndTime != nil {
		return r.EndTime.Sub(r.StartTime)
	}
	return time.Since(r.StartTime)
}

// Result returns the step result for the given step name.
func (r *WorkflowRun) Result(stepName string) (StepResult, bool) {
	for _, res := range r.StepResults {
		if res.StepName == stepName {
			return res, true
		}
	}
	return StepResult{}, false
}

// Clone returns a copy that shares no slices or maps with r.
// Output maps are shallow-copied.
func (r *WorkflowRun) Clone() *WorkflowRun {
	c := *r
	if r.EndTime != nil {
		end := *r.EndTime
		c.EndTime = &end
	}
	if r.Context != nil {
		c.Context = make(map[string]any, len(r.Context))
		for k, v := range r.Context {
			c.Context[k] = v
		}
	}
	c.StepResults = make([]StepResult, len(r.StepResults))
	copy(c.StepResults, r.StepResults)
	return &c
}

// RunResult is what ExecuteWorkflow returns to callers.
type RunResult struct {
	Success    bool         `json:"success"`
	WorkflowID string       `json:"workflow_id"`
	DurationMs int64        `json:"duration_ms"`
	Results    []StepResult `json:"results,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// Duration returns the run's wall time.
func (r RunResult) Duration() time.Duration {
	return time.Duration(r.DurationMs) * time.Millisecond
}
