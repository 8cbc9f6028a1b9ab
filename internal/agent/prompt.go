package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/ShayCichocki/maestro/internal/api"
	"github.com/ShayCichocki/maestro/pkg/models"
)

// ErrNoCompleter is returned when an anthropic agent runs without a client.
var ErrNoCompleter = errors.New("anthropic client not configured")

type promptMethod struct {
	tmpl   *template.Template
	system string
}

// PromptAgent renders a prompt template per method and sends it to the
// model. The output map holds the response text and token usage.
type PromptAgent struct {
	manifest  *Manifest
	methods   map[string]promptMethod
	completer api.Completer
}

// NewPromptAgent parses every method template up front so a broken
// manifest is rejected at load time.
func NewPromptAgent(m *Manifest, completer api.Completer) (*PromptAgent, error) {
	methods := make(map[string]promptMethod, len(m.Methods))
	for name, def := range m.Methods {
		tmpl, err := template.New(m.Name + "." + name).Option("missingkey=zero").Parse(def.Prompt)
		if err != nil {
			return nil, fmt.Errorf("agent %q method %q: parse prompt: %w", m.Name, name, err)
		}
		methods[name] = promptMethod{tmpl: tmpl, system: def.System}
	}
	return &PromptAgent{manifest: m, methods: methods, completer: completer}, nil
}

func (a *PromptAgent) Name() string           { return a.manifest.Name }
func (a *PromptAgent) Methods() []string      { return a.manifest.MethodNames() }
func (a *PromptAgent) Description() string    { return a.manifest.Description }
func (a *PromptAgent) Kind() models.AgentKind { return models.AgentKindAnthropic }

// Invoke renders the method prompt over input and returns the completion.
func (a *PromptAgent) Invoke(ctx context.Context, method string, input map[string]any) (map[string]any, error) {
	pm, ok := a.methods[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", models.ErrMethodNotSupported, a.Name(), method)
	}
	if a.completer == nil {
		return nil, ErrNoCompleter
	}

	var sb strings.Builder
	if err := pm.tmpl.Execute(&sb, input); err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}

	resp, err := a.completer.Complete(ctx, pm.system, sb.String())
	if err != nil {
		return nil, fmt.Errorf("complete %s.%s: %w", a.Name(), method, err)
	}

	return map[string]any{
		"text":          resp.Text,
		"input_tokens":  resp.InputTokens,
		"output_tokens": resp.OutputTokens,
	}, nil
}

var (
	_ Capability = (*PromptAgent)(nil)
	_ Describer  = (*PromptAgent)(nil)
)
