package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind is the machine-readable classification of an orchestration error.
type ErrorKind string

const (
	KindWorkflowNotFound   ErrorKind = "WorkflowNotFound"
	KindStructural         ErrorKind = "StructuralValidationError"
	KindAgentNotFound      ErrorKind = "AgentNotFound"
	KindMethodNotSupported ErrorKind = "MethodNotSupported"
	KindStepTimeout        ErrorKind = "StepTimeout"
	KindAgentExecution     ErrorKind = "AgentExecutionError"
	KindDependencyFailed   ErrorKind = "DependencyFailed"
	KindRunNotFound        ErrorKind = "RunNotFound"
)

var (
	// ErrWorkflowNotFound is returned when a workflow name is not in the catalog.
	ErrWorkflowNotFound = errors.New("workflow not found")
	// ErrStructural is the sentinel matched by every StructuralValidationError.
	ErrStructural = errors.New("structural validation failed")
	// ErrAgentNotFound is returned when no agent is registered under a name.
	ErrAgentNotFound = errors.New("agent not found")
	// ErrMethodNotSupported is returned when an agent does not expose a method.
	ErrMethodNotSupported = errors.New("method not supported")
	// ErrStepTimeout is recorded when a step exceeds its timeout.
	ErrStepTimeout = errors.New("step timed out")
	// ErrDependencyFailed is recorded for steps skipped because a dependency failed.
	ErrDependencyFailed = errors.New("dependency failed")
	// ErrRunNotFound is returned when a run id is neither active nor in history.
	ErrRunNotFound = errors.New("run not found")
)

// StructuralValidationError reports a workflow whose step graph is invalid.
type StructuralValidationError struct {
	// Workflow is the offending workflow name.
	Workflow string
	// Steps lists the offending step names.
	Steps []string
	// Reason describes the violation.
	Reason string
}

func (e *StructuralValidationError) Error() string {
	if len(e.Steps) == 0 {
		return fmt.Sprintf("workflow %q: %s", e.Workflow, e.Reason)
	}
	return fmt.Sprintf("workflow %q: %s (steps: %s)", e.Workflow, e.Reason, strings.Join(e.Steps, ", "))
}

// Is lets errors.Is(err, ErrStructural) match any StructuralValidationError.
func (e *StructuralValidationError) Is(target error) bool {
	return target == ErrStructural
}

// KindOf classifies err. Any error that matches no known sentinel is an
// agent execution error.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrWorkflowNotFound):
		return KindWorkflowNotFound
	case errors.Is(err, ErrStructural):
		return KindStructural
	case errors.Is(err, ErrAgentNotFound):
		return KindAgentNotFound
	case errors.Is(err, ErrMethodNotSupported):
		return KindMethodNotSupported
	case errors.Is(err, ErrStepTimeout):
		return KindStepTimeout
	case errors.Is(err, ErrDependencyFailed):
		return KindDependencyFailed
	case errors.Is(err, ErrRunNotFound):
		return KindRunNotFound
	default:
		return KindAgentExecution
	}
}
