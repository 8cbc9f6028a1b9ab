package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ShayCichocki/maestro/internal/graph"
	"github.com/ShayCichocki/maestro/internal/telemetry"
	"github.com/ShayCichocki/maestro/pkg/models"
)

// Scheduler drives workflow runs. Each call to Run owns one run for its
// whole lifetime; concurrent runs share only the executor's limiter and the
// agent registry.
type Scheduler struct {
	executor    *Executor
	tracker     *Tracker
	emitter     *EventEmitter
	logger      *slog.Logger
	instruments *telemetry.Instruments
	// cancelOnFailure cancels in-flight siblings when a required step fails.
	cancelOnFailure bool
}

// NewScheduler creates a scheduler.
func NewScheduler(executor *Executor, tracker *Tracker, emitter *EventEmitter, logger *slog.Logger, instruments *telemetry.Instruments, cancelOnFailure bool) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{
		executor:        executor,
		tracker:         tracker,
		emitter:         emitter,
		logger:          logger,
		instruments:     instruments,
		cancelOnFailure: cancelOnFailure,
	}
}

// runState is the mutable per-run bookkeeping shared by the dispatch
// goroutines of one batch.
type runState struct {
	mu       sync.Mutex
	handle   *RunHandle
	progress *graph.Progress
	outputs  map[string]map[string]any
	halted   bool
	failed   []string
	cancel   context.CancelFunc
	cancelOn bool
}

// record stores a terminal step result. Callers must hold mu.
func (st *runState) record(step models.StepDefinition, res models.StepResult) {
	st.handle.AppendResult(res)
	if res.Success {
		st.progress.Succeed(step.Name)
		st.outputs[step.Name] = res.Output
		return
	}
	st.progress.Fail(step.Name)
	if step.Required {
		st.failed = append(st.failed, step.Name)
		st.halted = true
		if st.cancelOn {
			st.cancel()
		}
	}
}

// Run executes a workflow and returns the final run snapshot.
func (s *Scheduler) Run(ctx context.Context, wf *models.WorkflowDefinition, runContext map[string]any) *models.WorkflowRun {
	handle := s.tracker.Register(wf.Name, runContext)
	runID := handle.ID()

	ctx, span := s.instruments.StartRun(ctx, runID, wf.Name)
	s.logger.Info("workflow started", "run", runID, "workflow", wf.Name, "steps", len(wf.Steps))

	names := make([]string, len(wf.Steps))
	for i, step := range wf.Steps {
		names[i] = step.Name
	}
	s.emitter.Emit(WorkflowStarted{
		WorkflowID:   runID,
		WorkflowName: wf.Name,
		Steps:        names,
		Timestamp:    handle.StartTime(),
	})

	g, err := graph.Build(wf)
	if err != nil {
		return s.finish(ctx, span, handle, wf.Name, models.RunStatusFailed, err.Error())
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	st := &runState{
		handle:   handle,
		progress: g.NewProgress(),
		outputs:  make(map[string]map[string]any),
		cancel:   cancel,
		cancelOn: s.cancelOnFailure,
	}

	for !st.halted && !st.progress.Done() {
		if ctx.Err() != nil {
			break
		}

		ready, blocked := st.progress.Next()

		for _, name := range blocked {
			step, _ := g.GetStep(name)
			st.record(step, s.dependencyFailed(runID, step, g, st.progress))
		}
		if st.halted {
			break
		}
		if len(ready) == 0 {
			if len(blocked) > 0 {
				continue
			}
			// Unreachable for a validated graph.
			s.logger.Error("no ready steps", "run", runID, "workflow", wf.Name, "running", st.progress.Running())
			break
		}

		s.dispatch(runCtx, runID, g, st, runContext, ready)
	}

	status := models.RunStatusCompleted
	var errMsg string
	switch {
	case len(st.failed) > 0:
		status = models.RunStatusFailed
		errMsg = fmt.Sprintf("required step failed: %s", strings.Join(st.failed, ", "))
	case ctx.Err() != nil && !st.progress.Done():
		status = models.RunStatusFailed
		errMsg = fmt.Sprintf("run cancelled: %v", ctx.Err())
	}
	return s.finish(ctx, span, handle, wf.Name, status, errMsg)
}

// dispatch runs one ready batch: parallel steps each in their own goroutine
// and the sequential remainder one at a time in definition order, alongside
// them. It returns when every dispatched step has settled.
func (s *Scheduler) dispatch(ctx context.Context, runID string, g *graph.DependencyGraph, st *runState, runContext map[string]any, ready []string) {
	var parallel, sequential []models.StepDefinition
	for _, name := range ready {
		step, _ := g.GetStep(name)
		if step.Parallel {
			parallel = append(parallel, step)
		} else {
			sequential = append(sequential, step)
		}
	}

	var eg errgroup.Group

	// Inputs are built before any goroutine starts; the outputs they read
	// belong to dependencies that have already settled.
	inputs := make([]map[string]any, len(parallel))
	inputErrs := make([]error, len(parallel))
	for i, step := range parallel {
		st.progress.Start(step.Name)
		inputs[i], inputErrs[i] = BuildInput(runContext, step, st.outputs)
	}

	for i, step := range parallel {
		input, err := inputs[i], inputErrs[i]
		eg.Go(func() error {
			res := s.executeWith(ctx, runID, step, input, err)
			st.mu.Lock()
			st.record(step, res)
			st.mu.Unlock()
			return nil
		})
	}

	if len(sequential) > 0 {
		eg.Go(func() error {
			for _, step := range sequential {
				st.mu.Lock()
				if st.halted || ctx.Err() != nil {
					st.mu.Unlock()
					return nil
				}
				st.progress.Start(step.Name)
				input, err := BuildInput(runContext, step, st.outputs)
				st.mu.Unlock()

				res := s.executeWith(ctx, runID, step, input, err)

				st.mu.Lock()
				st.record(step, res)
				st.mu.Unlock()
			}
			return nil
		})
	}

	_ = eg.Wait()
}

// executeWith runs a step, or fails it without invocation when its input
// could not be assembled.
func (s *Scheduler) executeWith(ctx context.Context, runID string, step models.StepDefinition, input map[string]any, inputErr error) models.StepResult {
	if inputErr == nil {
		return s.executor.Execute(ctx, runID, step, input)
	}
	res := models.StepResult{
		StepName:  step.Name,
		Agent:     step.Agent,
		Kind:      models.KindAgentExecution,
		Error:     inputErr.Error(),
		Timestamp: s.executor.now(),
	}
	s.emitter.Emit(StepFailed{
		WorkflowID: runID,
		StepName:   step.Name,
		Agent:      step.Agent,
		ErrorKind:  res.Kind,
		Error:      res.Error,
		Timestamp:  res.Timestamp,
	})
	return res
}

// dependencyFailed builds the result for a step skipped because a
// dependency failed, and emits its step:failed event.
func (s *Scheduler) dependencyFailed(runID string, step models.StepDefinition, g *graph.DependencyGraph, p *graph.Progress) models.StepResult {
	var failedDeps []string
	for _, dep := range g.GetDependencies(step.Name) {
		if p.State(dep) == graph.StateFailed {
			failedDeps = append(failedDeps, dep)
		}
	}
	err := fmt.Errorf("%w: %s", models.ErrDependencyFailed, strings.Join(failedDeps, ", "))

	res := models.StepResult{
		StepName:  step.Name,
		Agent:     step.Agent,
		Kind:      models.KindDependencyFailed,
		Error:     err.Error(),
		Timestamp: s.executor.now(),
	}
	s.logger.Info("step skipped", "run", runID, "step", step.Name, "failed_dependencies", failedDeps)
	s.emitter.Emit(StepFailed{
		WorkflowID: runID,
		StepName:   step.Name,
		Agent:      step.Agent,
		ErrorKind:  res.Kind,
		Error:      res.Error,
		Timestamp:  res.Timestamp,
	})
	return res
}

func (s *Scheduler) finish(ctx context.Context, span trace.Span, handle *RunHandle, workflow string, status models.RunStatus, errMsg string) *models.WorkflowRun {
	run := handle.Finish(status, errMsg)
	duration := run.Duration()
	results := len(run.StepResults)

	s.instruments.EndRun(ctx, span, workflow, string(status), results, duration, errMsg)

	if status == models.RunStatusCompleted {
		s.logger.Info("workflow completed", "run", run.ID, "workflow", workflow, "duration", duration, "results", results)
		s.emitter.Emit(WorkflowCompleted{
			WorkflowID:   run.ID,
			WorkflowName: workflow,
			Duration:     duration,
			Results:      results,
			Timestamp:    *run.EndTime,
		})
		return run
	}

	s.logger.Warn("workflow failed", "run", run.ID, "workflow", workflow, "duration", duration, "error", errMsg)
	s.emitter.Emit(WorkflowFailed{
		WorkflowID:   run.ID,
		WorkflowName: workflow,
		Duration:     duration,
		Results:      results,
		Error:        errMsg,
		Timestamp:    *run.EndTime,
	})
	return run
}
