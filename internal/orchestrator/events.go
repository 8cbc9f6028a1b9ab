package orchestrator

import (
	"time"

	"github.com/ShayCichocki/maestro/pkg/models"
)

// EventKind identifies the variant of an Event.
type EventKind string

const (
	// EventOrchestratorInitialized is emitted once agents and workflows are loaded.
	EventOrchestratorInitialized EventKind = "orchestrator:initialized"
	// EventWorkflowStarted is emitted when a run is registered.
	EventWorkflowStarted EventKind = "workflow:started"
	// EventStepStarted is emitted before a step's agent is invoked.
	EventStepStarted EventKind = "step:started"
	// EventStepCompleted is emitted when a step succeeds.
	EventStepCompleted EventKind = "step:completed"
	// EventStepFailed is emitted when a step fails, times out, or is skipped
	// because a dependency failed.
	EventStepFailed EventKind = "step:failed"
	// EventWorkflowCompleted is emitted when a run ends with status completed.
	EventWorkflowCompleted EventKind = "workflow:completed"
	// EventWorkflowFailed is emitted when a run ends with status failed.
	EventWorkflowFailed EventKind = "workflow:failed"
	// EventOrchestratorError reports errors outside any single run.
	EventOrchestratorError EventKind = "orchestrator:error"
)

// Event is one orchestrator event. The concrete type determines the payload;
// switch on it to read the fields.
type Event interface {
	Kind() EventKind
	Time() time.Time
	event()
}

// OrchestratorInitialized reports how many agents and workflows were loaded.
type OrchestratorInitialized struct {
	AgentsLoaded    int
	WorkflowsLoaded int
	Timestamp       time.Time
}

// WorkflowStarted reports a new run and its step names in definition order.
type WorkflowStarted struct {
	WorkflowID   string
	WorkflowName string
	Steps        []string
	Timestamp    time.Time
}

// StepStarted reports that a step's agent is about to be invoked.
type StepStarted struct {
	WorkflowID string
	StepName   string
	Agent      string
	Method     string
	Timestamp  time.Time
}

// StepCompleted reports a successful step.
type StepCompleted struct {
	WorkflowID string
	StepName   string
	Agent      string
	Duration   time.Duration
	Output     map[string]any
	Timestamp  time.Time
}

// StepFailed reports a failed step and its classification.
type StepFailed struct {
	WorkflowID string
	StepName   string
	Agent      string
	ErrorKind  models.ErrorKind
	Error      string
	Duration   time.Duration
	Timestamp  time.Time
}

// WorkflowCompleted reports a run that ended with status completed.
type WorkflowCompleted struct {
	WorkflowID   string
	WorkflowName string
	Duration     time.Duration
	Results      int
	Timestamp    time.Time
}

// WorkflowFailed reports a run that ended with status failed.
type WorkflowFailed struct {
	WorkflowID   string
	WorkflowName string
	Duration     time.Duration
	Results      int
	Error        string
	Timestamp    time.Time
}

// OrchestratorError reports an error not tied to a run, such as a failed
// catalog reload.
type OrchestratorError struct {
	Err       error
	Timestamp time.Time
}

func (OrchestratorInitialized) Kind() EventKind { return EventOrchestratorInitialized }
func (WorkflowStarted) Kind() EventKind         { return EventWorkflowStarted }
func (StepStarted) Kind() EventKind             { return EventStepStarted }
func (StepCompleted) Kind() EventKind           { return EventStepCompleted }
func (StepFailed) Kind() EventKind              { return EventStepFailed }
func (WorkflowCompleted) Kind() EventKind       { return EventWorkflowCompleted }
func (WorkflowFailed) Kind() EventKind          { return EventWorkflowFailed }
func (OrchestratorError) Kind() EventKind       { return EventOrchestratorError }

func (e OrchestratorInitialized) Time() time.Time { return e.Timestamp }
func (e WorkflowStarted) Time() time.Time         { return e.Timestamp }
func (e StepStarted) Time() time.Time             { return e.Timestamp }
func (e StepCompleted) Time() time.Time           { return e.Timestamp }
func (e StepFailed) Time() time.Time              { return e.Timestamp }
func (e WorkflowCompleted) Time() time.Time       { return e.Timestamp }
func (e WorkflowFailed) Time() time.Time          { return e.Timestamp }
func (e OrchestratorError) Time() time.Time       { return e.Timestamp }

func (OrchestratorInitialized) event() {}
func (WorkflowStarted) event()         {}
func (StepStarted) event()             {}
func (StepCompleted) event()           {}
func (StepFailed) event()              {}
func (WorkflowCompleted) event()       {}
func (WorkflowFailed) event()          {}
func (OrchestratorError) event()       {}
