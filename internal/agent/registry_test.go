package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ShayCichocki/maestro/internal/api"
	iexec "github.com/ShayCichocki/maestro/internal/exec"
	"github.com/ShayCichocki/maestro/pkg/models"
)

func echoAgent(name string) *FuncAgent {
	return NewFunc(name, map[string]HandlerFunc{
		"echo": func(_ context.Context, input map[string]any) (map[string]any, error) {
			return input, nil
		},
		"fail": func(context.Context, map[string]any) (map[string]any, error) {
			return nil, errors.New("boom")
		},
	})
}

func TestRegistryResolve(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(echoAgent("coder")); err != nil {
		t.Fatalf("register: %v", err)
	}

	h, err := r.Resolve("coder", "echo")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if h.Agent() != "coder" || h.Method() != "echo" {
		t.Errorf("unexpected handle %s.%s", h.Agent(), h.Method())
	}

	out, err := h.Invoke(context.Background(), map[string]any{"x": 1})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if out["x"] != 1 {
		t.Errorf("unexpected output %v", out)
	}
}

func TestRegistryResolveErrors(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(echoAgent("coder"))

	tests := []struct {
		name   string
		agent  string
		method string
		want   error
	}{
		{"unknown agent", "ghost", "echo", models.ErrAgentNotFound},
		{"unknown method", "coder", "deploy", models.ErrMethodNotSupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(tt.agent, tt.method)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRegistryDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(echoAgent("coder")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(echoAgent("coder")); !errors.Is(err, ErrDuplicateAgent) {
		t.Errorf("expected ErrDuplicateAgent, got %v", err)
	}
}

func TestRegistryListAgentsSorted(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"tester", "coder", "reviewer"} {
		_ = r.Register(echoAgent(name))
	}

	infos := r.ListAgents()
	if len(infos) != 3 {
		t.Fatalf("expected 3 agents, got %d", len(infos))
	}
	want := []string{"coder", "reviewer", "tester"}
	for i, info := range infos {
		if info.Name != want[i] {
			t.Errorf("agent %d = %s, want %s", i, info.Name, want[i])
		}
		if info.Status != models.AgentStatusIdle {
			t.Errorf("agent %s status = %s, want idle", info.Name, info.Status)
		}
		if info.Kind != models.AgentKindFunc {
			t.Errorf("agent %s kind = %s", info.Name, info.Kind)
		}
	}
	if got := infos[0].Capabilities; len(got) != 2 || got[0] != "echo" || got[1] != "fail" {
		t.Errorf("capabilities = %v", got)
	}
}

func statusOf(r *Registry, name string) models.AgentStatus {
	for _, info := range r.ListAgents() {
		if info.Name == name {
			return info.Status
		}
	}
	return ""
}

func TestHandleStatusTransitions(t *testing.T) {
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	a := NewFunc("slow", map[string]HandlerFunc{
		"wait": func(ctx context.Context, _ map[string]any) (map[string]any, error) {
			started <- struct{}{}
			<-release
			return nil, nil
		},
		"fail": func(context.Context, map[string]any) (map[string]any, error) {
			return nil, errors.New("boom")
		},
	})
	r := NewRegistry()
	_ = r.Register(a)
	h, _ := r.Resolve("slow", "wait")

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = h.Invoke(context.Background(), nil)
		}()
	}
	<-started
	<-started
	if got := statusOf(r, "slow"); got != models.AgentStatusBusy {
		t.Errorf("status while in flight = %s, want busy", got)
	}

	close(release)
	wg.Wait()
	if got := statusOf(r, "slow"); got != models.AgentStatusIdle {
		t.Errorf("status after success = %s, want idle", got)
	}

	hf, _ := r.Resolve("slow", "fail")
	if _, err := hf.Invoke(context.Background(), nil); err == nil {
		t.Fatal("expected failure")
	}
	if got := statusOf(r, "slow"); got != models.AgentStatusError {
		t.Errorf("status after failure = %s, want error", got)
	}
}

func TestHandleInvokeRecoversPanic(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(NewFunc("buggy", map[string]HandlerFunc{
		"crash": func(context.Context, map[string]any) (map[string]any, error) {
			panic("agent bug")
		},
	}))
	h, err := r.Resolve("buggy", "crash")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	out, err := h.Invoke(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error from panicking agent")
	}
	if out != nil {
		t.Errorf("output = %v, want nil", out)
	}
	if !strings.Contains(err.Error(), "agent bug") {
		t.Errorf("error %q does not carry the panic value", err)
	}
	if got := statusOf(r, "buggy"); got != models.AgentStatusError {
		t.Errorf("status after panic = %s, want error", got)
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

type fakeCompleter struct {
	system, prompt string
}

func (f *fakeCompleter) Complete(_ context.Context, system, prompt string) (api.Completion, error) {
	f.system, f.prompt = system, prompt
	return api.Completion{Text: "ok", InputTokens: 3, OutputTokens: 1}, nil
}

func TestLoadAgents(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "coder.yaml", `
name: coder
kind: command
description: echoes its input
methods:
  generate:
    command: cat
`)
	writeFile(t, dir, "reviewer.yml", `
name: reviewer
kind: anthropic
methods:
  review:
    prompt: "Review {{.code}}"
    system: "You are a reviewer."
`)
	writeFile(t, dir, "broken.yaml", "name: [unterminated")
	writeFile(t, dir, "nomethods.yaml", "name: empty\nkind: command\n")
	writeFile(t, dir, "notes.txt", "ignored")

	fc := &fakeCompleter{}
	r := NewRegistry(WithCompleter(fc))
	n, err := r.LoadAgents(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 agents loaded, got %d", n)
	}

	infos := r.ListAgents()
	if infos[0].Name != "coder" || infos[0].Kind != models.AgentKindCommand {
		t.Errorf("unexpected first agent %+v", infos[0])
	}
	if infos[0].Description != "echoes its input" {
		t.Errorf("description = %q", infos[0].Description)
	}

	h, err := r.Resolve("coder", "generate")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	out, err := h.Invoke(context.Background(), map[string]any{"language": "go"})
	if err != nil {
		t.Fatalf("invoke command agent: %v", err)
	}
	if out["language"] != "go" {
		t.Errorf("command output = %v", out)
	}

	h, err = r.Resolve("reviewer", "review")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	out, err = h.Invoke(context.Background(), map[string]any{"code": "x := 1"})
	if err != nil {
		t.Fatalf("invoke prompt agent: %v", err)
	}
	if out["text"] != "ok" {
		t.Errorf("prompt output = %v", out)
	}
	if fc.prompt != "Review x := 1" || fc.system != "You are a reviewer." {
		t.Errorf("rendered prompt %q system %q", fc.prompt, fc.system)
	}
}

func TestLoadAgentsUnreadableDir(t *testing.T) {
	r := NewRegistry()
	if _, err := r.LoadAgents(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestCommandAgentFailure(t *testing.T) {
	m := &Manifest{
		Name: "bad",
		Kind: models.AgentKindCommand,
		Methods: map[string]MethodSpec{
			"run":   {Command: "echo nope >&2; exit 1"},
			"plain": {Command: "echo not-json"},
		},
	}
	r := NewRegistry()
	_ = r.Register(NewCommandAgent(m, iexec.NewRunner(), ""))

	h, _ := r.Resolve("bad", "run")
	if _, err := h.Invoke(context.Background(), nil); err == nil {
		t.Error("expected non-zero exit to fail")
	}
	h, _ = r.Resolve("bad", "plain")
	if _, err := h.Invoke(context.Background(), nil); err == nil {
		t.Error("expected non-JSON stdout to fail")
	}
}

func TestPromptAgentWithoutCompleter(t *testing.T) {
	m := &Manifest{
		Name:    "reviewer",
		Kind:    models.AgentKindAnthropic,
		Methods: map[string]MethodSpec{"review": {Prompt: "hi"}},
	}
	a, err := NewPromptAgent(m, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := a.Invoke(context.Background(), "review", nil); !errors.Is(err, ErrNoCompleter) {
		t.Errorf("expected ErrNoCompleter, got %v", err)
	}
}

func TestParseManifestValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing name", "kind: command\nmethods:\n  a:\n    command: true\n"},
		{"unknown kind", "name: x\nkind: lua\nmethods:\n  a:\n    command: true\n"},
		{"command without command", "name: x\nkind: command\nmethods:\n  a:\n    prompt: hi\n"},
		{"prompt without prompt", "name: x\nkind: anthropic\nmethods:\n  a:\n    command: true\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseManifest([]byte(tt.yaml)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
