package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/maestro/internal/config"
)

var (
	initForce    bool
	initExamples bool
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize a maestro project",
	Long: `Initialize a directory for use with maestro.

This command sets up everything needed to run workflows:
  - Creates the .maestro directory structure (agents, workflows, logs)
  - Writes a .maestro.yaml project config
  - Optionally writes an example agent and workflow

The directory argument is optional and defaults to the current directory.

Examples:
  maestro init              # Initialize current directory
  maestro init ./myproject  # Initialize specific directory
  maestro init --force      # Rewrite files even if already set up`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Reinitialize even if already set up")
	initCmd.Flags().BoolVar(&initExamples, "examples", true, "Create an example agent and workflow")
}

const exampleAgent = `name: shell
kind: command
description: Runs small shell snippets; reads JSON on stdin, writes JSON on stdout
methods:
  echo:
    command: cat
  greet:
    command: 'printf "{\"greeting\": \"hello from %s\"}" "$MAESTRO_METHOD"'
`

const exampleReviewer = `name: reviewer
kind: anthropic
description: Reviews the output of earlier steps
methods:
  review:
    system: You are a concise reviewer.
    prompt: |
      Review the following step outputs and list any problems.
      {{range $name, $out := .steps}}
      ## {{$name}}
      {{$out}}
      {{end}}
`

const exampleWorkflow = `name: hello
description: Example workflow showing dependencies and parallel steps
steps:
  - name: greet
    agent: shell
    method: greet
  - name: echo-a
    agent: shell
    method: echo
    depends: [greet]
    parallel: true
    with: {branch: a}
  - name: echo-b
    agent: shell
    method: echo
    depends: [greet]
    parallel: true
    with: {branch: b}
  - name: collect
    agent: shell
    method: echo
    depends: [echo-a, echo-b]
    timeout: 10s
`

const exampleProjectConfig = `# maestro project configuration
agents_dir: .maestro/agents
workflows_dir: .maestro/workflows
concurrency:
  max_in_flight: 4
timeouts:
  step: 60s
history:
  size: 50
scheduler:
  cancel_in_flight_on_failure: false
logging:
  level: info
`

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}

	absPath, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("resolving absolute path: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Initializing maestro in %s...\n\n", absPath)

	maestroDir := filepath.Join(absPath, ".maestro")
	if _, err := os.Stat(maestroDir); err == nil && !initForce {
		fmt.Fprintln(out, "Directory already initialized. Use --force to reinitialize.")
		return nil
	}

	for _, sub := range []string{"agents", "workflows", "logs"} {
		if err := os.MkdirAll(filepath.Join(maestroDir, sub), 0755); err != nil {
			return fmt.Errorf("creating .maestro/%s directory: %w", sub, err)
		}
	}
	printStatus(out, "✓", "Created .maestro directory structure", color.FgGreen)

	files := []struct {
		path    string
		content string
		label   string
		example bool
	}{
		{filepath.Join(absPath, config.ProjectConfigName), exampleProjectConfig, "Created " + config.ProjectConfigName, false},
		{filepath.Join(maestroDir, "agents", "shell.yaml"), exampleAgent, "Created example agent .maestro/agents/shell.yaml", true},
		{filepath.Join(maestroDir, "agents", "reviewer.yaml"), exampleReviewer, "Created example agent .maestro/agents/reviewer.yaml", true},
		{filepath.Join(maestroDir, "workflows", "hello.yaml"), exampleWorkflow, "Created example workflow .maestro/workflows/hello.yaml", true},
	}
	for _, f := range files {
		if f.example && !initExamples {
			continue
		}
		written, err := writeIfAbsent(f.path, f.content, initForce)
		if err != nil {
			return err
		}
		if written {
			printStatus(out, "✓", f.label, color.FgGreen)
		} else {
			printStatus(out, "-", "Kept existing "+filepath.Base(f.path), color.FgYellow)
		}
	}

	hasKey := os.Getenv("ANTHROPIC_API_KEY") != "" || os.Getenv("MAESTRO_ANTHROPIC_API_KEY") != ""
	if hasKey {
		printStatus(out, "✓", "ANTHROPIC_API_KEY is set", color.FgGreen)
	} else {
		printStatus(out, "⚠", "ANTHROPIC_API_KEY not set (anthropic agents will fail until it is)", color.FgYellow)
	}

	fmt.Fprintf(out, "\n%s maestro initialization complete!\n\n", color.GreenString("✓"))
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  maestro agents        # list agents")
	fmt.Fprintln(out, "  maestro workflows     # list workflows")
	fmt.Fprintln(out, "  maestro run hello     # run the example")
	return nil
}

// writeIfAbsent writes content to path unless it exists and force is false.
func writeIfAbsent(path, content string, force bool) (bool, error) {
	if _, err := os.Stat(path); err == nil && !force {
		return false, nil
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	return true, nil
}
