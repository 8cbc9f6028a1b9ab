package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dario.cat/mergo"

	"github.com/ShayCichocki/maestro/internal/agent"
	"github.com/ShayCichocki/maestro/internal/telemetry"
	"github.com/ShayCichocki/maestro/pkg/models"
)

// DefaultStepTimeout applies to steps without their own timeout.
const DefaultStepTimeout = 60 * time.Second

// AgentResolver resolves agent methods to invocable handles.
type AgentResolver interface {
	Resolve(agentName, method string) (*agent.Handle, error)
}

// Executor runs a single step: it resolves the agent, waits for a global
// in-flight slot, invokes the method under a timeout and turns the outcome
// into a StepResult. It never returns an error; every failure is a result.
type Executor struct {
	resolver    AgentResolver
	limiter     *Limiter
	emitter     *EventEmitter
	timeout     time.Duration
	logger      *slog.Logger
	instruments *telemetry.Instruments
	now         func() time.Time
}

// NewExecutor creates a step executor.
func NewExecutor(resolver AgentResolver, limiter *Limiter, emitter *EventEmitter, timeout time.Duration, logger *slog.Logger, instruments *telemetry.Instruments) *Executor {
	if timeout <= 0 {
		timeout = DefaultStepTimeout
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Executor{
		resolver:    resolver,
		limiter:     limiter,
		emitter:     emitter,
		timeout:     timeout,
		logger:      logger,
		instruments: instruments,
		now:         time.Now,
	}
}

type invocation struct {
	output map[string]any
	err    error
}

// Execute runs one step of run runID with the given input. It emits
// step:started first and exactly one of step:completed or step:failed last.
func (x *Executor) Execute(ctx context.Context, runID string, step models.StepDefinition, input map[string]any) models.StepResult {
	start := x.now()
	x.emitter.Emit(StepStarted{
		WorkflowID: runID,
		StepName:   step.Name,
		Agent:      step.Agent,
		Method:     step.Method,
		Timestamp:  start,
	})

	ctx, span := x.instruments.StartStep(ctx, step.Name, step.Agent, step.Method)
	output, kind, err := x.invoke(ctx, step, input)
	duration := x.now().Sub(start)

	result := models.StepResult{
		StepName:   step.Name,
		Agent:      step.Agent,
		Success:    err == nil,
		DurationMs: duration.Milliseconds(),
		Timestamp:  x.now(),
	}

	if err == nil {
		if output == nil {
			output = map[string]any{}
		}
		result.Output = output
		x.instruments.EndStep(ctx, span, step.Agent, "", duration, "")
		x.logger.Debug("step completed", "run", runID, "step", step.Name, "duration", duration)
		x.emitter.Emit(StepCompleted{
			WorkflowID: runID,
			StepName:   step.Name,
			Agent:      step.Agent,
			Duration:   duration,
			Output:     output,
			Timestamp:  result.Timestamp,
		})
		return result
	}

	result.Kind = kind
	result.Error = err.Error()
	x.instruments.EndStep(ctx, span, step.Agent, string(kind), duration, result.Error)
	x.logger.Warn("step failed", "run", runID, "step", step.Name, "kind", kind, "error", err)
	x.emitter.Emit(StepFailed{
		WorkflowID: runID,
		StepName:   step.Name,
		Agent:      step.Agent,
		ErrorKind:  kind,
		Error:      result.Error,
		Duration:   duration,
		Timestamp:  result.Timestamp,
	})
	return result
}

func (x *Executor) invoke(ctx context.Context, step models.StepDefinition, input map[string]any) (map[string]any, models.ErrorKind, error) {
	handle, err := x.resolver.Resolve(step.Agent, step.Method)
	if err != nil {
		return nil, models.KindOf(err), err
	}

	if err := x.limiter.Acquire(ctx); err != nil {
		return nil, models.KindAgentExecution, fmt.Errorf("cancelled before start: %w", err)
	}

	timeout := step.Timeout
	if timeout <= 0 {
		timeout = x.timeout
	}
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Buffered so an abandoned invocation can still deliver and exit.
	done := make(chan invocation, 1)
	x.instruments.InvocationStarted(ctx)
	go func() {
		defer x.limiter.Release()
		defer x.instruments.InvocationFinished(context.WithoutCancel(ctx))
		out, err := handle.Invoke(stepCtx, input)
		done <- invocation{output: out, err: err}
	}()

	select {
	case res := <-done:
		if res.err == nil {
			return res.output, "", nil
		}
		if timedOut(ctx, stepCtx) {
			return nil, models.KindStepTimeout, stepTimeoutError(timeout)
		}
		return nil, models.KindAgentExecution, res.err
	case <-stepCtx.Done():
		if timedOut(ctx, stepCtx) {
			x.logger.Warn("abandoning step after timeout", "step", step.Name, "agent", handle.Agent(), "method", handle.Method(), "timeout", timeout)
			return nil, models.KindStepTimeout, stepTimeoutError(timeout)
		}
		return nil, models.KindAgentExecution, fmt.Errorf("cancelled: %w", ctx.Err())
	}
}

// timedOut reports whether the step deadline fired while the parent
// context was still live.
func timedOut(parent, step context.Context) bool {
	return errors.Is(step.Err(), context.DeadlineExceeded) && parent.Err() == nil
}

func stepTimeoutError(d time.Duration) error {
	return fmt.Errorf("%w after %s", models.ErrStepTimeout, d)
}

// BuildInput assembles a step's input: the run context, overridden by the
// step's static with map, plus the outputs of its declared inputs under
// the "steps" key. The result shares no maps with its arguments.
func BuildInput(runContext map[string]any, step models.StepDefinition, outputs map[string]map[string]any) (map[string]any, error) {
	input := cloneMap(runContext)
	if input == nil {
		input = make(map[string]any, len(step.With)+1)
	}
	if len(step.With) > 0 {
		if err := mergo.Merge(&input, cloneMap(step.With), mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge step input: %w", err)
		}
	}
	if len(step.Inputs) > 0 {
		prior := make(map[string]any, len(step.Inputs))
		for _, name := range step.Inputs {
			if out, ok := outputs[name]; ok {
				prior[name] = cloneMap(out)
			}
		}
		input["steps"] = prior
	}
	return input, nil
}

// cloneMap deep-copies nested maps and slices; other values are shared.
func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
