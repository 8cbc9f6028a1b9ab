package graph

// StepState is the scheduling state of a single step within one run.
type StepState int

const (
	// StatePending means the step has not been dispatched or resolved.
	StatePending StepState = iota
	// StateRunning means the step has been dispatched.
	StateRunning
	// StateSucceeded means the step completed successfully.
	StateSucceeded
	// StateFailed means the step failed, timed out, or was blocked.
	StateFailed
)

// Progress tracks per-run step states over a shared DependencyGraph.
// The ready set is maintained incrementally with unmet-dependency counters
// so each query is linear in the number of steps. Progress is not safe for
// concurrent use; the scheduler guards it with its own lock.
type Progress struct {
	g       *DependencyGraph
	state   []StepState
	unmet   []int
	blocked []bool
	open    int
}

// NewProgress returns a fresh progress tracker with every step pending.
func (g *DependencyGraph) NewProgress() *Progress {
	p := &Progress{
		g:       g,
		state:   make([]StepState, len(g.steps)),
		unmet:   make([]int, len(g.steps)),
		blocked: make([]bool, len(g.steps)),
		open:    len(g.steps),
	}
	for i := range g.steps {
		p.unmet[i] = len(g.deps[i])
	}
	return p
}

// Next returns the pending steps whose dependencies all succeeded and the
// pending steps that have at least one failed dependency. Both lists are in
// workflow-definition order.
func (p *Progress) Next() (ready, blocked []string) {
	for i, st := range p.state {
		if st != StatePending {
			continue
		}
		switch {
		case p.blocked[i]:
			blocked = append(blocked, p.g.steps[i].Name)
		case p.unmet[i] == 0:
			ready = append(ready, p.g.steps[i].Name)
		}
	}
	return ready, blocked
}

// Start marks a pending step as running.
func (p *Progress) Start(name string) {
	if i, ok := p.g.index[name]; ok && p.state[i] == StatePending {
		p.state[i] = StateRunning
	}
}

// Succeed records a successful step and releases its dependents.
func (p *Progress) Succeed(name string) {
	i, ok := p.g.index[name]
	if !ok || p.resolved(i) {
		return
	}
	p.state[i] = StateSucceeded
	p.open--
	for _, j := range p.g.dependents[i] {
		p.unmet[j]--
	}
}

// Fail records a failed step and marks its dependents as blocked.
func (p *Progress) Fail(name string) {
	i, ok := p.g.index[name]
	if !ok || p.resolved(i) {
		return
	}
	p.state[i] = StateFailed
	p.open--
	for _, j := range p.g.dependents[i] {
		p.blocked[j] = true
	}
}

// State returns the current state of a step.
func (p *Progress) State(name string) StepState {
	i, ok := p.g.index[name]
	if !ok {
		return StatePending
	}
	return p.state[i]
}

// Done reports whether every step has succeeded or failed.
func (p *Progress) Done() bool {
	return p.open == 0
}

// Running returns the number of dispatched steps that have not resolved.
func (p *Progress) Running() int {
	n := 0
	for _, st := range p.state {
		if st == StateRunning {
			n++
		}
	}
	return n
}

func (p *Progress) resolved(i int) bool {
	return p.state[i] == StateSucceeded || p.state[i] == StateFailed
}
