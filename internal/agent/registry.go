package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ShayCichocki/maestro/internal/api"
	iexec "github.com/ShayCichocki/maestro/internal/exec"
	"github.com/ShayCichocki/maestro/pkg/models"
)

// ErrDuplicateAgent is returned when an agent name is registered twice.
var ErrDuplicateAgent = errors.New("agent already registered")

const (
	statusIdle int32 = iota
	statusBusy
	statusError
)

// entry is one registered agent plus its shared runtime status.
// Status is the only cross-run mutable state and is updated with atomics.
type entry struct {
	cap      Capability
	methods  map[string]struct{}
	inflight atomic.Int32
	status   atomic.Int32
}

func (e *entry) acquire() {
	e.inflight.Add(1)
	for {
		old := e.status.Load()
		if old == statusBusy || e.status.CompareAndSwap(old, statusBusy) {
			return
		}
	}
}

func (e *entry) release(failed bool) {
	if e.inflight.Add(-1) > 0 {
		return
	}
	next := statusIdle
	if failed {
		next = statusError
	}
	e.status.CompareAndSwap(statusBusy, next)
	// A new invocation may have started between the decrement and the swap.
	if e.inflight.Load() > 0 {
		e.status.Store(statusBusy)
	}
}

func (e *entry) info() models.AgentInfo {
	info := models.AgentInfo{
		Name:         e.cap.Name(),
		Kind:         models.AgentKindFunc,
		Capabilities: sortedMethods(e.cap.Methods()),
	}
	if d, ok := e.cap.(Describer); ok {
		info.Kind = d.Kind()
		info.Description = d.Description()
	}
	switch e.status.Load() {
	case statusBusy:
		info.Status = models.AgentStatusBusy
	case statusError:
		info.Status = models.AgentStatusError
	default:
		info.Status = models.AgentStatusIdle
	}
	return info
}

// Registry maps agent names to capabilities.
// It is read-mostly after initialization and safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*entry

	logger    *slog.Logger
	runner    iexec.CommandRunner
	completer api.Completer
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used for load warnings.
func WithLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// WithCommandRunner sets the runner used by command agents.
func WithCommandRunner(runner iexec.CommandRunner) RegistryOption {
	return func(r *Registry) { r.runner = runner }
}

// WithCompleter sets the model client used by anthropic agents.
func WithCompleter(c api.Completer) RegistryOption {
	return func(r *Registry) { r.completer = c }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		agents: make(map[string]*entry),
		logger: slog.New(slog.DiscardHandler),
		runner: iexec.NewRunner(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds an in-process agent.
func (r *Registry) Register(c Capability) error {
	name := c.Name()
	if name == "" {
		return fmt.Errorf("register agent: name is required")
	}

	methods := make(map[string]struct{}, len(c.Methods()))
	for _, m := range c.Methods() {
		methods[m] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.agents[name]; exists {
		return fmt.Errorf("register agent %q: %w", name, ErrDuplicateAgent)
	}
	r.agents[name] = &entry{cap: c, methods: methods}
	return nil
}

// LoadAgents reads every manifest in dir and registers the agents it
// describes. An unreadable directory is returned as an error. A malformed
// manifest or a duplicate name is logged and skipped. Returns the number of
// agents registered.
func (r *Registry) LoadAgents(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read agents directory %s: %w", dir, err)
	}

	loaded := 0
	for _, de := range entries {
		if de.IsDir() || !isManifest(de.Name()) {
			continue
		}
		path := filepath.Join(dir, de.Name())

		m, err := ReadManifest(path)
		if err != nil {
			r.logger.Warn("skipping agent manifest", "path", path, "error", err)
			continue
		}

		c, err := r.build(m, dir)
		if err != nil {
			r.logger.Warn("skipping agent manifest", "path", path, "error", err)
			continue
		}

		if err := r.Register(c); err != nil {
			r.logger.Warn("skipping agent manifest", "path", path, "error", err)
			continue
		}
		r.logger.Debug("agent loaded", "name", m.Name, "kind", m.Kind, "methods", len(m.Methods))
		loaded++
	}
	return loaded, nil
}

func (r *Registry) build(m *Manifest, baseDir string) (Capability, error) {
	switch m.Kind {
	case models.AgentKindCommand:
		return NewCommandAgent(m, r.runner, baseDir), nil
	case models.AgentKindAnthropic:
		return NewPromptAgent(m, r.completer)
	default:
		return nil, fmt.Errorf("agent %q: unsupported kind %q", m.Name, m.Kind)
	}
}

func isManifest(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

// Resolve returns an invocable handle for agent.method.
func (r *Registry) Resolve(agentName, method string) (*Handle, error) {
	r.mu.RLock()
	e, ok := r.agents[agentName]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrAgentNotFound, agentName)
	}
	if _, ok := e.methods[method]; !ok {
		return nil, fmt.Errorf("%w: %s.%s", models.ErrMethodNotSupported, agentName, method)
	}
	return &Handle{entry: e, method: method}, nil
}

// Has reports whether an agent with the given name is registered.
func (r *Registry) Has(agentName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.agents[agentName]
	return ok
}

// ListAgents returns a snapshot of all agents ordered by name.
func (r *Registry) ListAgents() []models.AgentInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]models.AgentInfo, 0, len(r.agents))
	for _, e := range r.agents {
		infos = append(infos, e.info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Count returns the number of registered agents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// Handle is a resolved agent method.
type Handle struct {
	entry  *entry
	method string
}

// Agent returns the agent name.
func (h *Handle) Agent() string {
	return h.entry.cap.Name()
}

// Method returns the method name.
func (h *Handle) Method() string {
	return h.method
}

// Invoke calls the method, marking the agent busy for the duration.
// A panicking agent is reported as an error.
func (h *Handle) Invoke(ctx context.Context, input map[string]any) (out map[string]any, err error) {
	h.entry.acquire()
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("agent %s panicked in %s: %v", h.entry.cap.Name(), h.method, r)
		}
		h.entry.release(err != nil)
	}()
	return h.entry.cap.Invoke(ctx, h.method, input)
}

func sortedMethods(methods []string) []string {
	out := append([]string(nil), methods...)
	sort.Strings(out)
	return out
}
