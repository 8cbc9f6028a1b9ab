// Package orchestrator runs declarative workflows against registered agents.
//
// The orchestrator package provides:
//   - Step execution: invoking one agent method with a timeout and classifying the outcome
//   - Scheduling: dispatching ready steps in dependency order, parallel where allowed
//   - Run tracking: run identifiers, active runs and a bounded history
//   - Events: a typed event stream for any presentation layer
//
// A run starts every step whose dependencies succeeded. Steps marked parallel
// run concurrently; the rest run one at a time in definition order. A failed
// required step stops new dispatch, and the run fails once in-flight steps
// settle. Optional failures are recorded without failing the run.
//
// Example usage:
//
//	orch := orchestrator.New(orchestrator.Config{
//		AgentsDir:    ".maestro/agents",
//		WorkflowsDir: ".maestro/workflows",
//	})
//	if err := orch.Initialize(ctx); err != nil {
//		return err
//	}
//	result, err := orch.ExecuteWorkflow(ctx, "review", map[string]any{"repo": "."})
package orchestrator
