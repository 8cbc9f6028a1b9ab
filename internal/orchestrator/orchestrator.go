package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/ShayCichocki/maestro/internal/agent"
	"github.com/ShayCichocki/maestro/internal/workflow"
	"github.com/ShayCichocki/maestro/pkg/models"
)

// Orchestrator owns the agent registry, the workflow catalog and the run
// machinery. It is constructed explicitly from a Config and is safe for
// concurrent use once initialized.
type Orchestrator struct {
	cfg       Config
	logger    *slog.Logger
	registry  *agent.Registry
	catalog   *workflow.Catalog
	tracker   *Tracker
	limiter   *Limiter
	emitter   *EventEmitter
	executor  *Executor
	scheduler *Scheduler
	// pending holds in-process agents until Initialize registers them.
	pending []agent.Capability
}

// New creates an Orchestrator. Call Initialize before executing workflows.
func New(cfg Config, opts ...Option) *Orchestrator {
	o := &orchestratorOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}

	registry := o.registry
	if registry == nil {
		regOpts := []agent.RegistryOption{agent.WithLogger(o.logger)}
		if o.execRunner != nil {
			regOpts = append(regOpts, agent.WithCommandRunner(o.execRunner))
		}
		if o.completer != nil {
			regOpts = append(regOpts, agent.WithCompleter(o.completer))
		}
		registry = agent.NewRegistry(regOpts...)
	}

	catalog := workflow.NewCatalog(resolvePath(cfg.ProjectRoot, cfg.WorkflowsDir),
		workflow.WithLogger(o.logger),
		workflow.WithAgentCheck(registry.Has),
	)

	emitter := NewEventEmitter(o.logger)
	limiter := NewLimiter(cfg.MaxInFlight)
	tracker := NewTracker(cfg.HistorySize)
	executor := NewExecutor(registry, limiter, emitter, cfg.StepTimeout, o.logger, o.instruments)
	scheduler := NewScheduler(executor, tracker, emitter, o.logger, o.instruments, cfg.CancelInFlightOnFailure)

	return &Orchestrator{
		cfg:       cfg,
		logger:    o.logger,
		registry:  registry,
		catalog:   catalog,
		tracker:   tracker,
		limiter:   limiter,
		emitter:   emitter,
		executor:  executor,
		scheduler: scheduler,
		pending:   o.agents,
	}
}

func resolvePath(root, p string) string {
	if p == "" || filepath.IsAbs(p) || root == "" {
		return p
	}
	return filepath.Join(root, p)
}

// Initialize registers in-process agents, loads agent manifests and loads
// the workflow catalog, then emits orchestrator:initialized.
// An unreadable agents directory or workflows directory is returned as an error;
// individual malformed agents and workflows are logged and skipped.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	for _, c := range o.pending {
		if err := o.registry.Register(c); err != nil {
			return o.initError(err)
		}
	}
	o.pending = nil

	if o.cfg.AgentsDir != "" {
		dir := resolvePath(o.cfg.ProjectRoot, o.cfg.AgentsDir)
		if _, err := o.registry.LoadAgents(dir); err != nil {
			return o.initError(err)
		}
	}

	if o.catalog.Dir() != "" {
		if _, err := o.catalog.Load(); err != nil {
			return o.initError(err)
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	o.logger.Info("orchestrator initialized", "agents", o.registry.Count(), "workflows", o.catalog.Count())
	o.emitter.Emit(OrchestratorInitialized{
		AgentsLoaded:    o.registry.Count(),
		WorkflowsLoaded: o.catalog.Count(),
		Timestamp:       o.executor.now(),
	})
	return nil
}

func (o *Orchestrator) initError(err error) error {
	err = fmt.Errorf("initialize orchestrator: %w", err)
	o.logger.Error("initialization failed", "error", err)
	o.emitError(err)
	return err
}

func (o *Orchestrator) emitError(err error) {
	o.emitter.Emit(OrchestratorError{Err: err, Timestamp: o.executor.now()})
}

// Subscribe returns a channel of orchestrator events and its cancel function.
// A buffer of zero uses DefaultEventBuffer.
func (o *Orchestrator) Subscribe(buffer int) (<-chan Event, func()) {
	return o.emitter.Subscribe(buffer)
}

// Registry returns the agent registry.
func (o *Orchestrator) Registry() *agent.Registry {
	return o.registry
}

// Catalog returns the workflow catalog.
func (o *Orchestrator) Catalog() *workflow.Catalog {
	return o.catalog
}

// Limiter returns the global in-flight limiter.
func (o *Orchestrator) Limiter() *Limiter {
	return o.limiter
}

// ListWorkflows returns every loaded workflow ordered by name.
func (o *Orchestrator) ListWorkflows() []models.WorkflowSummary {
	return o.catalog.List()
}

// ListAgents returns every registered agent ordered by name.
func (o *Orchestrator) ListAgents() []models.AgentInfo {
	return o.registry.ListAgents()
}

// GetWorkflowStatus returns a snapshot of a run, or ErrRunNotFound.
func (o *Orchestrator) GetWorkflowStatus(id string) (*models.WorkflowRun, error) {
	return o.tracker.GetStatus(id)
}

// GetActiveWorkflows returns snapshots of running runs.
func (o *Orchestrator) GetActiveWorkflows() []*models.WorkflowRun {
	return o.tracker.ListActive()
}

// GetWorkflowHistory returns up to limit finished runs, most recent first.
func (o *Orchestrator) GetWorkflowHistory(limit int) []*models.WorkflowRun {
	return o.tracker.ListHistory(limit)
}

// ExecuteWorkflow runs the named workflow to completion. The only error
// returned is ErrWorkflowNotFound; step and run failures are reported in
// the result.
func (o *Orchestrator) ExecuteWorkflow(ctx context.Context, name string, runContext map[string]any) (models.RunResult, error) {
	wf, err := o.catalog.Get(name)
	if err != nil {
		return models.RunResult{}, err
	}

	run := o.scheduler.Run(ctx, wf, runContext)
	return models.RunResult{
		Success:    run.Status == models.RunStatusCompleted,
		WorkflowID: run.ID,
		DurationMs: run.Duration().Milliseconds(),
		Results:    run.StepResults,
		Error:      run.Error,
	}, nil
}

// Watch reloads the workflow catalog on file changes until ctx is done.
// Reload failures are emitted as orchestrator:error events.
func (o *Orchestrator) Watch(ctx context.Context) error {
	err := o.catalog.Watch(ctx, func(_ workflow.LoadReport, err error) {
		if err != nil {
			o.emitError(fmt.Errorf("reload workflows: %w", err))
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch workflows: %w", err)
	}
	return nil
}

// Close closes every event subscription.
func (o *Orchestrator) Close() {
	o.logger.Info("orchestrator closed",
		"max_in_flight", o.limiter.Size(),
		"peak_in_flight", o.limiter.Peak(),
		"dropped_events", o.emitter.DroppedCount())
	o.emitter.Close()
}
