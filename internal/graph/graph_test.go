package graph

import (
	"errors"
	"reflect"
	"sort"
	"testing"

	"github.com/ShayCichocki/maestro/pkg/models"
)

func step(name string, depends ...string) models.StepDefinition {
	return models.StepDefinition{Name: name, Agent: "a", Method: "m", Depends: depends, Required: true}
}

func workflow(steps ...models.StepDefinition) *models.WorkflowDefinition {
	return &models.WorkflowDefinition{Name: "wf", Steps: steps}
}

func structural(t *testing.T, err error) *models.StructuralValidationError {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, models.ErrStructural) {
		t.Fatalf("expected structural error, got %v", err)
	}
	var sv *models.StructuralValidationError
	if !errors.As(err, &sv) {
		t.Fatalf("expected *StructuralValidationError, got %T", err)
	}
	return sv
}

func TestGraphBuildEmpty(t *testing.T) {
	g, err := Build(workflow())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Size() != 0 {
		t.Errorf("expected empty graph, got size %d", g.Size())
	}
	if !g.NewProgress().Done() {
		t.Error("expected empty graph progress to be done")
	}
}

func TestGraphBuildWithDependencies(t *testing.T) {
	g, err := Build(workflow(
		step("s1"),
		step("s2", "s1"),
		step("s3", "s1", "s2"),
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := g.GetDependencies("s3"); !reflect.DeepEqual(got, []string{"s1", "s2"}) {
		t.Errorf("dependencies of s3 = %v", got)
	}
	if got := g.GetDependents("s1"); !reflect.DeepEqual(got, []string{"s2", "s3"}) {
		t.Errorf("dependents of s1 = %v", got)
	}
	if g.GetDependencies("missing") != nil {
		t.Error("expected nil dependencies for unknown step")
	}
	if _, ok := g.GetStep("s2"); !ok {
		t.Error("expected s2 to be present")
	}
}

func TestGraphBuildUnknownDependency(t *testing.T) {
	_, err := Build(workflow(step("s1", "ghost")))
	sv := structural(t, err)
	if len(sv.Steps) != 1 || sv.Steps[0] != "s1 -> ghost" {
		t.Errorf("unexpected offending steps: %v", sv.Steps)
	}
}

func TestGraphBuildUnknownInput(t *testing.T) {
	s := step("s1")
	s.Inputs = []string{"ghost"}
	_, err := Build(workflow(s))
	structural(t, err)
}

func TestGraphBuildDuplicateName(t *testing.T) {
	_, err := Build(workflow(step("s1"), step("s1")))
	sv := structural(t, err)
	if sv.Reason != "duplicate step name" {
		t.Errorf("unexpected reason %q", sv.Reason)
	}
}

func TestGraphBuildMissingAgent(t *testing.T) {
	s := step("s1")
	s.Agent = ""
	_, err := Build(workflow(s))
	structural(t, err)
}

func TestGraphCycleDetection(t *testing.T) {
	tests := []struct {
		name  string
		steps []models.StepDefinition
		want  []string
	}{
		{
			name:  "self loop",
			steps: []models.StepDefinition{step("a", "a")},
			want:  []string{"a"},
		},
		{
			name:  "two node",
			steps: []models.StepDefinition{step("a", "b"), step("b", "a")},
			want:  []string{"a", "b"},
		},
		{
			name:  "three node with tail",
			steps: []models.StepDefinition{step("root"), step("a", "root", "c"), step("b", "a"), step("c", "b")},
			want:  []string{"a", "b", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(workflow(tt.steps...))
			sv := structural(t, err)
			if sv.Reason != ErrCycleDetected.Error() {
				t.Errorf("unexpected reason %q", sv.Reason)
			}
			got := append([]string(nil), sv.Steps...)
			sort.Strings(got)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("cycle steps = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGraphTopologicalSort(t *testing.T) {
	g, err := Build(workflow(
		step("c", "b"),
		step("a"),
		step("b", "a"),
		step("d"),
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	order := g.TopologicalSort()
	pos := make(map[string]int, len(order))
	for i, name := range order {
		pos[name] = i
	}
	if len(order) != 4 {
		t.Fatalf("expected 4 steps, got %v", order)
	}
	if pos["a"] > pos["b"] || pos["b"] > pos["c"] {
		t.Errorf("dependency order violated: %v", order)
	}
}

func TestProgressReadyProgression(t *testing.T) {
	g, err := Build(workflow(
		step("s1"),
		step("s2", "s1"),
		step("s3", "s1"),
		step("s4", "s2", "s3"),
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := g.NewProgress()

	ready, blocked := p.Next()
	if !reflect.DeepEqual(ready, []string{"s1"}) || blocked != nil {
		t.Fatalf("initial ready=%v blocked=%v", ready, blocked)
	}

	p.Start("s1")
	if ready, _ := p.Next(); ready != nil {
		t.Errorf("running step must not be ready again: %v", ready)
	}
	if p.Running() != 1 {
		t.Errorf("expected 1 running, got %d", p.Running())
	}

	p.Succeed("s1")
	ready, _ = p.Next()
	if !reflect.DeepEqual(ready, []string{"s2", "s3"}) {
		t.Errorf("after s1 ready=%v", ready)
	}

	p.Start("s2")
	p.Succeed("s2")
	ready, _ = p.Next()
	if !reflect.DeepEqual(ready, []string{"s3"}) {
		t.Errorf("s4 must wait for s3, ready=%v", ready)
	}

	p.Start("s3")
	p.Succeed("s3")
	p.Start("s4")
	p.Succeed("s4")
	if !p.Done() {
		t.Error("expected progress to be done")
	}
	if p.State("s4") != StateSucceeded {
		t.Errorf("expected s4 succeeded, got %v", p.State("s4"))
	}
}

func TestProgressBlockedPropagation(t *testing.T) {
	g, err := Build(workflow(
		step("s1"),
		step("s2", "s1"),
		step("s3", "s2"),
		step("s4"),
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := g.NewProgress()

	p.Start("s1")
	p.Fail("s1")

	ready, blocked := p.Next()
	if !reflect.DeepEqual(ready, []string{"s4"}) {
		t.Errorf("ready=%v", ready)
	}
	if !reflect.DeepEqual(blocked, []string{"s2"}) {
		t.Errorf("blocked=%v", blocked)
	}

	p.Fail("s2")
	_, blocked = p.Next()
	if !reflect.DeepEqual(blocked, []string{"s3"}) {
		t.Errorf("expected cascade to s3, blocked=%v", blocked)
	}

	// Resolving twice must not corrupt the open count.
	p.Fail("s2")
	p.Fail("s3")
	p.Start("s4")
	p.Succeed("s4")
	if !p.Done() {
		t.Error("expected progress to be done")
	}
}
