// Package graph provides the step dependency graph used to validate and
// schedule workflows.
package graph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ShayCichocki/maestro/pkg/models"
)

// ErrCycleDetected is the reason text used when a circular dependency is found.
var ErrCycleDetected = errors.New("circular dependency detected")

// DependencyGraph is an arena of steps indexed by name with explicit edge lists.
// Edges point from a step to the steps it depends on. A built graph is
// immutable and safe to share across runs.
type DependencyGraph struct {
	workflow string
	// steps holds the definitions in workflow-definition order.
	steps []models.StepDefinition
	// index maps step name to its position in steps.
	index map[string]int
	// deps maps step index to the indices it depends on.
	deps [][]int
	// dependents maps step index to the indices that depend on it.
	dependents [][]int
}

// Build constructs and validates the graph for a workflow definition.
// Returns a *models.StructuralValidationError when step names are empty or
// duplicated, when depends or inputs reference unknown steps, or when the
// depends relation contains a cycle.
func Build(wf *models.WorkflowDefinition) (*DependencyGraph, error) {
	g := &DependencyGraph{
		workflow:   wf.Name,
		steps:      wf.Steps,
		index:      make(map[string]int, len(wf.Steps)),
		deps:       make([][]int, len(wf.Steps)),
		dependents: make([][]int, len(wf.Steps)),
	}

	// First pass: register all steps as nodes.
	var unnamed, duplicates []string
	for i, step := range wf.Steps {
		if step.Name == "" {
			unnamed = append(unnamed, fmt.Sprintf("#%d", i+1))
			continue
		}
		if _, exists := g.index[step.Name]; exists {
			duplicates = append(duplicates, step.Name)
			continue
		}
		g.index[step.Name] = i
	}
	if len(unnamed) > 0 {
		return nil, g.invalid("step name is required", unnamed)
	}
	if len(duplicates) > 0 {
		return nil, g.invalid("duplicate step name", duplicates)
	}

	// Second pass: build edges and check references.
	var dangling, incomplete []string
	for i, step := range wf.Steps {
		if step.Agent == "" || step.Method == "" {
			incomplete = append(incomplete, step.Name)
		}
		for _, dep := range step.Depends {
			j, ok := g.index[dep]
			if !ok {
				dangling = append(dangling, fmt.Sprintf("%s -> %s", step.Name, dep))
				continue
			}
			g.deps[i] = append(g.deps[i], j)
			g.dependents[j] = append(g.dependents[j], i)
		}
		for _, in := range step.Inputs {
			if _, ok := g.index[in]; !ok {
				dangling = append(dangling, fmt.Sprintf("%s <- %s", step.Name, in))
			}
		}
	}
	if len(incomplete) > 0 {
		return nil, g.invalid("step must name an agent and a method", incomplete)
	}
	if len(dangling) > 0 {
		return nil, g.invalid("reference to unknown step", dangling)
	}

	if cyclic := g.cyclicSteps(); len(cyclic) > 0 {
		return nil, g.invalid(ErrCycleDetected.Error(), cyclic)
	}

	return g, nil
}

func (g *DependencyGraph) invalid(reason string, steps []string) error {
	return &models.StructuralValidationError{Workflow: g.workflow, Steps: steps, Reason: reason}
}

// cyclicSteps runs Kahn's algorithm and returns the names of steps that could
// never be ordered, which are exactly the steps on or behind a cycle.
func (g *DependencyGraph) cyclicSteps() []string {
	indegree := make([]int, len(g.steps))
	for i := range g.steps {
		indegree[i] = len(g.deps[i])
	}

	queue := make([]int, 0, len(g.steps))
	for i, d := range indegree {
		if d == 0 {
			queue = append(queue, i)
		}
	}

	ordered := 0
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		ordered++
		for _, j := range g.dependents[i] {
			indegree[j]--
			if indegree[j] == 0 {
				queue = append(queue, j)
			}
		}
	}

	if ordered == len(g.steps) {
		return nil
	}

	var cyclic []string
	for i, d := range indegree {
		if d > 0 {
			cyclic = append(cyclic, g.steps[i].Name)
		}
	}
	return cyclic
}

// TopologicalSort returns step names in an order where all dependencies come
// before the steps that depend on them. Ties keep definition order.
func (g *DependencyGraph) TopologicalSort() []string {
	indegree := make([]int, len(g.steps))
	for i := range g.steps {
		indegree[i] = len(g.deps[i])
	}

	result := make([]string, 0, len(g.steps))
	done := make([]bool, len(g.steps))
	for len(result) < len(g.steps) {
		progressed := false
		for i := range g.steps {
			if done[i] || indegree[i] > 0 {
				continue
			}
			done[i] = true
			progressed = true
			result = append(result, g.steps[i].Name)
			for _, j := range g.dependents[i] {
				indegree[j]--
			}
		}
		if !progressed {
			break
		}
	}
	return result
}

// Size returns the number of steps in the graph.
func (g *DependencyGraph) Size() int {
	return len(g.steps)
}

// GetStep returns the definition for a step name.
func (g *DependencyGraph) GetStep(name string) (models.StepDefinition, bool) {
	i, ok := g.index[name]
	if !ok {
		return models.StepDefinition{}, false
	}
	return g.steps[i], true
}

// GetDependencies returns the names of steps the given step depends on.
func (g *DependencyGraph) GetDependencies(name string) []string {
	i, ok := g.index[name]
	if !ok {
		return nil
	}
	return g.names(g.deps[i])
}

// GetDependents returns the names of steps that depend on the given step.
func (g *DependencyGraph) GetDependents(name string) []string {
	i, ok := g.index[name]
	if !ok {
		return nil
	}
	return g.names(g.dependents[i])
}

func (g *DependencyGraph) names(idx []int) []string {
	sorted := append([]int(nil), idx...)
	sort.Ints(sorted)
	out := make([]string, len(sorted))
	for k, i := range sorted {
		out[k] = g.steps[i].Name
	}
	return out
}
