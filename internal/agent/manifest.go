package agent

import (
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/ShayCichocki/maestro/pkg/models"
)

// Manifest describes an agent loaded from disk.
type Manifest struct {
	// Name is the unique agent name.
	Name string `yaml:"name"`
	// Kind selects the implementation: command or anthropic.
	Kind models.AgentKind `yaml:"kind"`
	// Description is shown in listings.
	Description string `yaml:"description"`
	// Methods maps method names to their definitions.
	Methods map[string]MethodSpec `yaml:"methods"`
	// Env is appended to the environment of command methods.
	Env map[string]string `yaml:"env,omitempty"`
}

// MethodSpec is the definition of one agent method.
type MethodSpec struct {
	// Command is the shell command run for command agents. The step input is
	// written to stdin as JSON and stdout is parsed as a JSON object.
	Command string `yaml:"command,omitempty"`
	// Prompt is a text/template rendered over the step input for anthropic agents.
	Prompt string `yaml:"prompt,omitempty"`
	// System is the optional system prompt for anthropic agents.
	System string `yaml:"system,omitempty"`
}

// ReadManifest reads and validates a manifest file.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest decodes and validates manifest YAML.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks that the manifest is complete for its kind.
func (m *Manifest) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("manifest: name is required")
	}
	if len(m.Methods) == 0 {
		return fmt.Errorf("agent %q: at least one method is required", m.Name)
	}
	for name, def := range m.Methods {
		switch m.Kind {
		case models.AgentKindCommand:
			if def.Command == "" {
				return fmt.Errorf("agent %q method %q: command is required", m.Name, name)
			}
		case models.AgentKindAnthropic:
			if def.Prompt == "" {
				return fmt.Errorf("agent %q method %q: prompt is required", m.Name, name)
			}
		default:
			return fmt.Errorf("agent %q: unsupported kind %q", m.Name, m.Kind)
		}
	}
	return nil
}

// MethodNames returns the declared method names in sorted order.
func (m *Manifest) MethodNames() []string {
	names := make([]string, 0, len(m.Methods))
	for name := range m.Methods {
		names = append(names, name)
	}
	return sortedMethods(names)
}
