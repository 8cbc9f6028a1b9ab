package models

import (
	"testing"
	"time"
)

func TestRunStatusTerminal(t *testing.T) {
	tests := []struct {
		status RunStatus
		want   bool
	}{
		{RunStatusPending, false},
		{RunStatusRunning, false},
		{RunStatusCompleted, true},
		{RunStatusFailed, true},
	}
	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("%s.Terminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestWorkflowRunClone(t *testing.T) {
	end := time.Now()
	run := &WorkflowRun{
		ID:          "r1",
		Context:     map[string]any{"k": "v"},
		EndTime:     &end,
		StepResults: []StepResult{{StepName: "a"}},
	}

	c := run.Clone()
	c.Context["k"] = "changed"
	c.StepResults[0].StepName = "changed"
	*c.EndTime = end.Add(time.Hour)

	if run.Context["k"] != "v" {
		t.Error("clone shares context map")
	}
	if run.StepResults[0].StepName != "a" {
		t.Error("clone shares step results")
	}
	if !run.EndTime.Equal(end) {
		t.Error("clone shares end time")
	}
}

func TestWorkflowRunResultAndDuration(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(1500 * time.Millisecond)
	run := &WorkflowRun{
		StartTime:   start,
		EndTime:     &end,
		StepResults: []StepResult{{StepName: "a", DurationMs: 250}},
	}

	if run.Duration() != 1500*time.Millisecond {
		t.Errorf("Duration() = %v", run.Duration())
	}
	res, ok := run.Result("a")
	if !ok || res.Duration() != 250*time.Millisecond {
		t.Errorf("Result(a) = %+v, %v", res, ok)
	}
	if _, ok := run.Result("missing"); ok {
		t.Error("expected no result for missing step")
	}
}

func TestWorkflowDefinitionStep(t *testing.T) {
	wf := &WorkflowDefinition{Steps: []StepDefinition{{Name: "a", Agent: "x"}}}
	if s, ok := wf.Step("a"); !ok || s.Agent != "x" {
		t.Errorf("Step(a) = %+v, %v", s, ok)
	}
	if _, ok := wf.Step("b"); ok {
		t.Error("expected Step(b) to be missing")
	}
}

func TestRunResultDuration(t *testing.T) {
	res := RunResult{DurationMs: 1500}
	if res.Duration() != 1500*time.Millisecond {
		t.Errorf("Duration() = %v", res.Duration())
	}
}
