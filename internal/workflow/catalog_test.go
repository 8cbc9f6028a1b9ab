package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ShayCichocki/maestro/pkg/models"
)

const reviewYAML = `
name: review
description: Generate, review and test
steps:
  - name: generate
    agent: coder
    method: generate
    with: {language: go}
    timeout: 2m
  - name: review
    agent: reviewer
    method: review
    depends: [generate]
    parallel: true
  - name: lint
    agent: reviewer
    method: lint
    depends: [generate]
    inputs: []
    required: false
`

func writeWorkflow(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestParseDefaults(t *testing.T) {
	wf, err := Parse([]byte(reviewYAML), "fallback")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if wf.Name != "review" {
		t.Errorf("name = %q", wf.Name)
	}
	if len(wf.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(wf.Steps))
	}

	gen := wf.Steps[0]
	if !gen.Required || gen.Parallel {
		t.Errorf("generate defaults: required=%v parallel=%v", gen.Required, gen.Parallel)
	}
	if gen.Timeout != 2*time.Minute {
		t.Errorf("generate timeout = %v", gen.Timeout)
	}
	if gen.With["language"] != "go" {
		t.Errorf("generate with = %v", gen.With)
	}

	review := wf.Steps[1]
	if !review.Parallel {
		t.Error("review should be parallel")
	}
	if len(review.Inputs) != 1 || review.Inputs[0] != "generate" {
		t.Errorf("review inputs should default to depends, got %v", review.Inputs)
	}

	lint := wf.Steps[2]
	if lint.Required {
		t.Error("lint should be optional")
	}
	if len(lint.Inputs) != 0 {
		t.Errorf("explicit empty inputs should be kept, got %v", lint.Inputs)
	}
}

func TestParseFallbackName(t *testing.T) {
	wf, err := Parse([]byte("steps: []\n"), "nightly")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if wf.Name != "nightly" || len(wf.Steps) != 0 {
		t.Errorf("unexpected workflow %+v", wf)
	}
}

func TestParseJSON(t *testing.T) {
	doc := `{"name":"j","steps":[{"name":"a","agent":"x","method":"m","parallel":true}]}`
	wf, err := Parse([]byte(doc), "")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !wf.Steps[0].Parallel || !wf.Steps[0].Required {
		t.Errorf("unexpected step %+v", wf.Steps[0])
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"cycle", "name: c\nsteps:\n  - {name: a, agent: x, method: m, depends: [b]}\n  - {name: b, agent: x, method: m, depends: [a]}\n"},
		{"dangling", "name: d\nsteps:\n  - {name: a, agent: x, method: m, depends: [ghost]}\n"},
		{"duplicate", "name: d\nsteps:\n  - {name: a, agent: x, method: m}\n  - {name: a, agent: x, method: m}\n"},
		{"bad timeout", "name: t\nsteps:\n  - {name: a, agent: x, method: m, timeout: soon}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), "")
			if !errors.Is(err, models.ErrStructural) {
				t.Errorf("expected structural error, got %v", err)
			}
		})
	}
}

func TestCatalogLoad(t *testing.T) {
	dir := t.TempDir()
	writeWorkflow(t, dir, "review.yaml", reviewYAML)
	writeWorkflow(t, dir, "empty.yml", "description: nothing\nsteps: []\n")
	writeWorkflow(t, dir, "cyclic.yaml", "name: cyclic\nsteps:\n  - {name: a, agent: coder, method: m, depends: [a]}\n")
	writeWorkflow(t, dir, "README.md", "ignored")

	c := NewCatalog(dir, WithAgentCheck(func(name string) bool { return name == "coder" }))
	report, err := c.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if report.Loaded != 2 {
		t.Errorf("loaded = %d, want 2", report.Loaded)
	}
	if len(report.Rejected) != 1 {
		t.Errorf("rejected = %v", report.Rejected)
	}
	if got := report.UnknownAgents["review"]; len(got) != 1 || got[0] != "reviewer" {
		t.Errorf("unknown agents = %v", report.UnknownAgents)
	}

	list := c.List()
	if len(list) != 2 || list[0].Name != "empty" || list[1].Name != "review" {
		t.Fatalf("list = %+v", list)
	}
	if list[1].StepCount != 3 || list[1].Description != "Generate, review and test" {
		t.Errorf("review summary = %+v", list[1])
	}

	if _, err := c.Get("cyclic"); !errors.Is(err, models.ErrWorkflowNotFound) {
		t.Errorf("cyclic workflow must not be admitted, got %v", err)
	}
	wf, err := c.Get("review")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if wf.Source != filepath.Join(dir, "review.yaml") {
		t.Errorf("source = %q", wf.Source)
	}
}

func TestCatalogDuplicateNames(t *testing.T) {
	dir := t.TempDir()
	writeWorkflow(t, dir, "a.yaml", "name: same\nsteps: []\n")
	writeWorkflow(t, dir, "b.yaml", "name: same\nsteps: []\n")

	c := NewCatalog(dir)
	report, err := c.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if report.Loaded != 1 || len(report.Rejected) != 1 {
		t.Errorf("report = %+v", report)
	}
}

func TestCatalogMissingDir(t *testing.T) {
	c := NewCatalog(filepath.Join(t.TempDir(), "missing"))
	report, err := c.Load()
	if err != nil {
		t.Fatalf("missing directory should not fail: %v", err)
	}
	if report.Loaded != 0 || c.Count() != 0 {
		t.Errorf("expected empty catalog")
	}
}

func TestCatalogAdd(t *testing.T) {
	c := NewCatalog(t.TempDir())
	bad := &models.WorkflowDefinition{Name: "bad", Steps: []models.StepDefinition{
		{Name: "a", Agent: "x", Method: "m", Depends: []string{"a"}},
	}}
	if err := c.Add(bad); !errors.Is(err, models.ErrStructural) {
		t.Errorf("expected structural error, got %v", err)
	}
	good := &models.WorkflowDefinition{Name: "good"}
	if err := c.Add(good); err != nil {
		t.Fatalf("add: %v", err)
	}
	if c.Count() != 1 {
		t.Errorf("count = %d", c.Count())
	}
}

func TestCatalogWatchReloads(t *testing.T) {
	dir := t.TempDir()
	c := NewCatalog(dir)
	if _, err := c.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan LoadReport, 4)
	done := make(chan error, 1)
	go func() {
		done <- c.Watch(ctx, func(r LoadReport, _ error) { reloaded <- r })
	}()

	// Give the watcher time to register the directory.
	time.Sleep(50 * time.Millisecond)
	writeWorkflow(t, dir, "late.yaml", "name: late\nsteps: []\n")

	select {
	case r := <-reloaded:
		if r.Loaded != 1 {
			t.Errorf("reload loaded = %d", r.Loaded)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
	if _, err := c.Get("late"); err != nil {
		t.Errorf("late workflow not visible: %v", err)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("watch returned %v", err)
	}
}
