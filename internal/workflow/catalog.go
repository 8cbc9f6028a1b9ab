package workflow

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ShayCichocki/maestro/pkg/models"
)

// LoadReport summarizes one catalog load.
type LoadReport struct {
	// Loaded is the number of workflows admitted.
	Loaded int
	// Rejected maps file paths to the error that kept them out.
	Rejected map[string]error
	// UnknownAgents maps workflow names to agent names no registry entry matched.
	UnknownAgents map[string][]string
}

// Catalog holds the validated workflow definitions found in a directory.
// Definitions are immutable; a reload swaps the whole set at once.
type Catalog struct {
	dir    string
	logger *slog.Logger
	// knownAgent reports whether an agent exists, for load-time warnings.
	knownAgent func(string) bool

	mu        sync.RWMutex
	workflows map[string]*models.WorkflowDefinition
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger for load warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *Catalog) { c.logger = l }
}

// WithAgentCheck sets the lookup used to warn about unknown agent references.
func WithAgentCheck(fn func(name string) bool) Option {
	return func(c *Catalog) { c.knownAgent = fn }
}

// NewCatalog creates an empty catalog over dir. Call Load to populate it.
func NewCatalog(dir string, opts ...Option) *Catalog {
	c := &Catalog{
		dir:       dir,
		logger:    slog.New(slog.DiscardHandler),
		workflows: make(map[string]*models.WorkflowDefinition),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dir returns the directory the catalog loads from.
func (c *Catalog) Dir() string {
	return c.dir
}

// Load scans the directory and replaces the catalog contents. Invalid
// workflows are logged and skipped. A missing directory yields an empty
// catalog; any other read error is returned and the catalog is unchanged.
func (c *Catalog) Load() (LoadReport, error) {
	report := LoadReport{
		Rejected:      make(map[string]error),
		UnknownAgents: make(map[string][]string),
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("workflows directory not found", "dir", c.dir)
			c.swap(make(map[string]*models.WorkflowDefinition))
			return report, nil
		}
		return report, fmt.Errorf("read workflows directory %s: %w", c.dir, err)
	}

	loaded := make(map[string]*models.WorkflowDefinition)
	for _, de := range entries {
		if de.IsDir() || !isWorkflowFile(de.Name()) {
			continue
		}
		path := filepath.Join(c.dir, de.Name())

		wf, err := ParseFile(path)
		if err != nil {
			report.Rejected[path] = err
			c.logger.Warn("rejecting workflow", "path", path, "error", err)
			continue
		}
		if prev, dup := loaded[wf.Name]; dup {
			err := fmt.Errorf("workflow %q already defined in %s", wf.Name, prev.Source)
			report.Rejected[path] = err
			c.logger.Warn("rejecting workflow", "path", path, "error", err)
			continue
		}

		if unknown := c.unknownAgents(wf); len(unknown) > 0 {
			report.UnknownAgents[wf.Name] = unknown
			c.logger.Warn("workflow references unknown agents", "workflow", wf.Name, "agents", unknown)
		}

		loaded[wf.Name] = wf
		c.logger.Debug("workflow loaded", "name", wf.Name, "steps", len(wf.Steps))
	}

	report.Loaded = len(loaded)
	c.swap(loaded)
	return report, nil
}

func (c *Catalog) swap(workflows map[string]*models.WorkflowDefinition) {
	c.mu.Lock()
	c.workflows = workflows
	c.mu.Unlock()
}

func (c *Catalog) unknownAgents(wf *models.WorkflowDefinition) []string {
	if c.knownAgent == nil {
		return nil
	}
	seen := make(map[string]bool)
	var unknown []string
	for _, s := range wf.Steps {
		if seen[s.Agent] {
			continue
		}
		seen[s.Agent] = true
		if !c.knownAgent(s.Agent) {
			unknown = append(unknown, s.Agent)
		}
	}
	return unknown
}

func isWorkflowFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}

// Add admits a workflow built in code after validating it.
func (c *Catalog) Add(wf *models.WorkflowDefinition) error {
	if err := Validate(wf); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.workflows[wf.Name] = wf
	return nil
}

// Get returns the workflow definition with the given name.
func (c *Catalog) Get(name string) (*models.WorkflowDefinition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	wf, ok := c.workflows[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrWorkflowNotFound, name)
	}
	return wf, nil
}

// List returns a summary of every workflow ordered by name.
func (c *Catalog) List() []models.WorkflowSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.WorkflowSummary, 0, len(c.workflows))
	for _, wf := range c.workflows {
		out = append(out, models.WorkflowSummary{
			Name:        wf.Name,
			Description: wf.Description,
			StepCount:   len(wf.Steps),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Count returns the number of loaded workflows.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.workflows)
}
