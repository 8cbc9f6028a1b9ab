// Package workflow loads and validates workflow definitions.
package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ShayCichocki/maestro/internal/graph"
	"github.com/ShayCichocki/maestro/pkg/models"
)

// rawWorkflow mirrors the file format. Pointer fields distinguish an omitted
// value from an explicit false so defaults can be applied.
type rawWorkflow struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Steps       []rawStep `yaml:"steps"`
}

type rawStep struct {
	Name        string         `yaml:"name"`
	Agent       string         `yaml:"agent"`
	Method      string         `yaml:"method"`
	Description string         `yaml:"description"`
	Depends     []string       `yaml:"depends"`
	Required    *bool          `yaml:"required"`
	Parallel    *bool          `yaml:"parallel"`
	With        map[string]any `yaml:"with"`
	Inputs      []string       `yaml:"inputs"`
	Timeout     string         `yaml:"timeout"`
}

// ParseFile reads a workflow file. The workflow name falls back to the file
// name without its extension.
func ParseFile(path string) (*models.WorkflowDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow: %w", err)
	}

	base := filepath.Base(path)
	fallback := strings.TrimSuffix(base, filepath.Ext(base))

	wf, err := Parse(data, fallback)
	if err != nil {
		return nil, err
	}
	wf.Source = path
	return wf, nil
}

// Parse decodes a YAML or JSON workflow document and validates its step graph.
func Parse(data []byte, fallbackName string) (*models.WorkflowDefinition, error) {
	var raw rawWorkflow
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse workflow: %w", err)
	}

	wf := &models.WorkflowDefinition{
		Name:        raw.Name,
		Description: raw.Description,
		Steps:       make([]models.StepDefinition, 0, len(raw.Steps)),
	}
	if wf.Name == "" {
		wf.Name = fallbackName
	}

	for _, rs := range raw.Steps {
		step, err := rs.definition()
		if err != nil {
			return nil, &models.StructuralValidationError{
				Workflow: wf.Name,
				Steps:    []string{rs.Name},
				Reason:   err.Error(),
			}
		}
		wf.Steps = append(wf.Steps, step)
	}

	if err := Validate(wf); err != nil {
		return nil, err
	}
	return wf, nil
}

func (rs rawStep) definition() (models.StepDefinition, error) {
	step := models.StepDefinition{
		Name:        rs.Name,
		Agent:       rs.Agent,
		Method:      rs.Method,
		Description: rs.Description,
		Depends:     rs.Depends,
		Required:    true,
		With:        rs.With,
		Inputs:      rs.Inputs,
	}
	if rs.Required != nil {
		step.Required = *rs.Required
	}
	if rs.Parallel != nil {
		step.Parallel = *rs.Parallel
	}
	if step.Inputs == nil {
		step.Inputs = rs.Depends
	}
	if rs.Timeout != "" {
		d, err := time.ParseDuration(rs.Timeout)
		if err != nil {
			return step, fmt.Errorf("invalid timeout %q", rs.Timeout)
		}
		if d <= 0 {
			return step, fmt.Errorf("timeout must be positive, got %q", rs.Timeout)
		}
		step.Timeout = d
	}
	return step, nil
}

// Validate checks the structural integrity of a workflow's step graph.
func Validate(wf *models.WorkflowDefinition) error {
	if wf.Name == "" {
		return &models.StructuralValidationError{Reason: "workflow name is required"}
	}
	_, err := graph.Build(wf)
	return err
}
