package main

import (
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/maestro/internal/graph"
)

var workflowsJSON bool

var workflowsCmd = &cobra.Command{
	Use:     "workflows [name]",
	Aliases: []string{"wf"},
	Short:   "List workflows or show one",
	Long: `List the workflows in the catalog. With a name, show the workflow's
steps in the order they become eligible to run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWorkflows,
}

func init() {
	workflowsCmd.Flags().BoolVar(&workflowsJSON, "json", false, "Print as JSON")
}

func runWorkflows(cmd *cobra.Command, args []string) error {
	rt, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		workflows := rt.orch.ListWorkflows()
		if workflowsJSON {
			return encodeJSON(out, workflows)
		}
		if len(workflows) == 0 {
			fmt.Fprintf(out, "No workflows found in %s\n", rt.orch.Catalog().Dir())
			return nil
		}
		fmt.Fprintln(out, renderWorkflows(workflows))
		return nil
	}

	wf, err := rt.orch.Catalog().Get(args[0])
	if err != nil {
		return err
	}
	if workflowsJSON {
		return encodeJSON(out, wf)
	}
	g, err := graph.Build(wf)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s\n", wf.Name)
	if wf.Description != "" {
		fmt.Fprintf(out, "  %s\n", wf.Description)
	}
	fmt.Fprintln(out)
	for i, name := range g.TopologicalSort() {
		step, _ := g.GetStep(name)
		line := fmt.Sprintf("%2d. %s → %s.%s", i+1, step.Name, step.Agent, step.Method)
		if deps := g.GetDependencies(name); len(deps) > 0 {
			line += "  after " + strings.Join(deps, ", ")
		}
		var flags []string
		if !step.Required {
			flags = append(flags, "optional")
		}
		if step.Parallel {
			flags = append(flags, "parallel")
		}
		if step.Timeout > 0 {
			flags = append(flags, "timeout "+step.Timeout.String())
		}
		if len(flags) > 0 {
			line += "  [" + strings.Join(flags, ", ") + "]"
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
