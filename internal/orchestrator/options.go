package orchestrator

import (
	"log/slog"
	"time"

	"github.com/ShayCichocki/maestro/internal/agent"
	"github.com/ShayCichocki/maestro/internal/api"
	iexec "github.com/ShayCichocki/maestro/internal/exec"
	"github.com/ShayCichocki/maestro/internal/telemetry"
)

// Config is the configuration an Orchestrator is constructed with.
type Config struct {
	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string
	// AgentsDir holds agent manifests. Empty skips manifest loading.
	AgentsDir string
	// WorkflowsDir holds workflow definitions.
	WorkflowsDir string
	// MaxInFlight bounds concurrent agent invocations across all runs.
	// If 0, DefaultMaxInFlight is used.
	MaxInFlight int
	// StepTimeout applies to steps without their own timeout.
	// If 0, DefaultStepTimeout is used.
	StepTimeout time.Duration
	// HistorySize is the number of finished runs kept.
	// If 0, DefaultHistorySize is used.
	HistorySize int
	// CancelInFlightOnFailure cancels running siblings when a required step
	// fails. By default they are allowed to finish.
	CancelInFlightOnFailure bool
}

// Option configures an Orchestrator. Use With* functions to create Options.
type Option func(*orchestratorOptions)

// orchestratorOptions holds all optional configuration.
// These are only used during construction.
type orchestratorOptions struct {
	logger      *slog.Logger
	registry    *agent.Registry
	agents      []agent.Capability
	execRunner  iexec.CommandRunner
	completer   api.Completer
	instruments *telemetry.Instruments
}

// WithLogger sets the structured logger shared by all components.
func WithLogger(l *slog.Logger) Option {
	return func(o *orchestratorOptions) { o.logger = l }
}

// WithRegistry supplies a pre-built agent registry.
func WithRegistry(r *agent.Registry) Option {
	return func(o *orchestratorOptions) { o.registry = r }
}

// WithAgents registers in-process agents at construction.
func WithAgents(agents ...agent.Capability) Option {
	return func(o *orchestratorOptions) { o.agents = append(o.agents, agents...) }
}

// WithCommandRunner sets the runner used by command agents.
func WithCommandRunner(r iexec.CommandRunner) Option {
	return func(o *orchestratorOptions) { o.execRunner = r }
}

// WithCompleter sets the model client used by anthropic agents.
func WithCompleter(c api.Completer) Option {
	return func(o *orchestratorOptions) { o.completer = c }
}

// WithInstruments enables tracing and metrics for runs and steps.
func WithInstruments(i *telemetry.Instruments) Option {
	return func(o *orchestratorOptions) { o.instruments = i }
}
