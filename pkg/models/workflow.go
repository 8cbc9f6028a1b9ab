package models

import "time"

// StepDefinition is one unit of work within a workflow, bound to one agent method.
type StepDefinition struct {
	// Name is unique within its workflow.
	Name string `json:"name"`
	// Agent is the name of the agent that executes the step.
	Agent string `json:"agent"`
	// Method is the agent capability to invoke.
	Method string `json:"method"`
	// Description is a human readable summary.
	Description string `json:"description,omitempty"`
	// Depends lists steps that must complete successfully before this step starts.
	Depends []string `json:"depends,omitempty"`
	// Required marks a step whose failure fails the whole run.
	Required bool `json:"required"`
	// Parallel allows the step to run concurrently with other ready steps.
	Parallel bool `json:"parallel"`
	// With is static input merged over the run context.
	With map[string]any `json:"with,omitempty"`
	// Inputs lists steps whose outputs are passed to this step.
	// Defaults to Depends when not set in the definition.
	Inputs []string `json:"inputs,omitempty"`
	// Timeout overrides the orchestrator's default step timeout when non-zero.
	Timeout time.Duration `json:"timeout,omitempty"`
}

// WorkflowDefinition is an immutable, validated workflow template.
type WorkflowDefinition struct {
	// Name is the unique workflow name.
	Name string `json:"name"`
	// Description is a human readable summary.
	Description string `json:"description,omitempty"`
	// Steps are kept in definition order.
	Steps []StepDefinition `json:"steps"`
	// Source is the file the definition was loaded from, if any.
	Source string `json:"source,omitempty"`
}

// Step returns the step with the given name.
func (w *WorkflowDefinition) Step(name string) (StepDefinition, bool) {
	for _, s := range w.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return StepDefinition{}, false
}

// WorkflowSummary is the listing view of a workflow.
type WorkflowSummary struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	StepCount   int    `json:"step_count"`
}
