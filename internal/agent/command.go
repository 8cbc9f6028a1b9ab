package agent

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/goccy/go-json"

	iexec "github.com/ShayCichocki/maestro/internal/exec"
	"github.com/ShayCichocki/maestro/pkg/models"
)

// CommandAgent runs a shell command per method. The input map is written to
// stdin as JSON; stdout must be a JSON object, or empty for no output.
type CommandAgent struct {
	manifest *Manifest
	runner   iexec.CommandRunner
	workDir  string
	env      []string
}

// NewCommandAgent creates a command agent from a manifest. Commands run in
// workDir, normally the directory holding the manifest.
func NewCommandAgent(m *Manifest, runner iexec.CommandRunner, workDir string) *CommandAgent {
	env := make([]string, 0, len(m.Env)+1)
	for k, v := range m.Env {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	env = append(env, "MAESTRO_AGENT="+m.Name)

	return &CommandAgent{manifest: m, runner: runner, workDir: workDir, env: env}
}

func (a *CommandAgent) Name() string        { return a.manifest.Name }
func (a *CommandAgent) Methods() []string   { return a.manifest.MethodNames() }
func (a *CommandAgent) Description() string { return a.manifest.Description }

func (a *CommandAgent) Kind() models.AgentKind { return models.AgentKindCommand }

// Invoke runs the method's command with the input on stdin.
func (a *CommandAgent) Invoke(ctx context.Context, method string, input map[string]any) (map[string]any, error) {
	def, ok := a.manifest.Methods[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", models.ErrMethodNotSupported, a.Name(), method)
	}

	stdin, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encode input: %w", err)
	}

	env := make([]string, 0, len(a.env)+1)
	env = append(env, a.env...)
	env = append(env, "MAESTRO_METHOD="+method)

	stdout, err := a.runner.RunPiped(ctx, iexec.PipedRequest{
		Command: def.Command,
		WorkDir: a.workDir,
		Stdin:   stdin,
		Env:     env,
	})
	if err != nil {
		return nil, fmt.Errorf("run %s.%s: %w", a.Name(), method, err)
	}

	return decodeOutput(stdout)
}

func decodeOutput(stdout []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(stdout)
	if len(trimmed) == 0 {
		return map[string]any{}, nil
	}
	var out map[string]any
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return nil, fmt.Errorf("decode output: %w", err)
	}
	return out, nil
}

var (
	_ Capability = (*CommandAgent)(nil)
	_ Describer  = (*CommandAgent)(nil)
)
