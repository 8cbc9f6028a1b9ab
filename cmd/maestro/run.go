package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"dario.cat/mergo"
	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ShayCichocki/maestro/internal/orchestrator"
	"github.com/ShayCichocki/maestro/internal/tui"
	"github.com/ShayCichocki/maestro/pkg/models"
)

var (
	runSet         []string
	runContextFile string
	runJSON        bool
	runQuiet       bool
	runTUI         bool
)

var runCmd = &cobra.Command{
	Use:   "run <workflow>",
	Short: "Run a workflow",
	Long: `Run a workflow from the catalog and wait for it to finish.

The run context is built from --context-file (a JSON or YAML object) and
then --set overrides. Dotted keys nest: --set repo.path=. produces
{"repo": {"path": "."}}. Values are parsed as YAML scalars, so numbers and
booleans keep their types.

Examples:
  maestro run review
  maestro run review --set language=go --set strict=true
  maestro run review --context-file ctx.json --json`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringArrayVar(&runSet, "set", nil, "Set a run context value (key=value, repeatable)")
	runCmd.Flags().StringVar(&runContextFile, "context-file", "", "Read the run context from a JSON or YAML file")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print the run result as JSON")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "Do not stream step events")
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "Show a live view of the run")
}

func runRun(cmd *cobra.Command, args []string) error {
	runContext, err := buildRunContext(runContextFile, runSet)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	out := cmd.OutOrStdout()
	if runTUI && !runJSON {
		return runWithView(ctx, cmd, rt, args[0], runContext)
	}

	stopStream := func() {}
	if !runJSON && !runQuiet {
		events, unsubscribe := rt.orch.Subscribe(0)
		done := make(chan struct{})
		go func() {
			defer close(done)
			streamEvents(out, events)
		}()
		var once sync.Once
		stopStream = func() {
			once.Do(func() {
				unsubscribe()
				<-done
			})
		}
		defer stopStream()
	}

	res, err := rt.orch.ExecuteWorkflow(ctx, args[0], runContext)
	stopStream()
	if err != nil {
		return err
	}

	if runJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
	} else {
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderResults(res.Results))
	}

	if !res.Success {
		return fmt.Errorf("workflow %s failed: %s", args[0], res.Error)
	}
	return nil
}

// runWithView runs the workflow behind the interactive run view.
func runWithView(ctx context.Context, cmd *cobra.Command, rt *app, name string, runContext map[string]any) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, unsubscribe := rt.orch.Subscribe(0)
	defer unsubscribe()

	type outcome struct {
		res models.RunResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := rt.orch.ExecuteWorkflow(ctx, name, runContext)
		done <- outcome{res, err}
	}()

	if err := tui.NewRunView(events, cancel).Run(ctx, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
		rt.logger.Logger().Warn("run view exited", "error", err)
	}
	o := <-done
	if o.err != nil {
		return o.err
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderResults(o.res.Results))
	if !o.res.Success {
		return fmt.Errorf("workflow %s failed: %s", name, o.res.Error)
	}
	return nil
}

// streamEvents prints events until the channel closes.
func streamEvents(w io.Writer, events <-chan orchestrator.Event) {
	for ev := range events {
		if line := eventLine(ev); line != "" {
			fmt.Fprintln(w, line)
		}
	}
}

// buildRunContext merges the context file with --set overrides.
func buildRunContext(contextFile string, sets []string) (map[string]any, error) {
	runContext := map[string]any{}
	if contextFile != "" {
		data, err := os.ReadFile(contextFile)
		if err != nil {
			return nil, fmt.Errorf("read context file: %w", err)
		}
		// YAML is a superset of JSON, so one decoder covers both.
		if err := yaml.Unmarshal(data, &runContext); err != nil {
			return nil, fmt.Errorf("parse context file %s: %w", contextFile, err)
		}
		if runContext == nil {
			runContext = map[string]any{}
		}
	}

	overrides, err := parseSets(sets)
	if err != nil {
		return nil, err
	}
	if err := mergo.Merge(&runContext, overrides, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("merge --set values: %w", err)
	}
	return runContext, nil
}

// parseSets turns key=value pairs into a nested map.
func parseSets(sets []string) (map[string]any, error) {
	out := map[string]any{}
	for _, kv := range sets {
		key, raw, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q: expected key=value", kv)
		}

		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil || value == nil {
			value = raw
		}

		parts := strings.Split(key, ".")
		node := out
		for _, p := range parts[:len(parts)-1] {
			child, ok := node[p].(map[string]any)
			if !ok {
				child = map[string]any{}
				node[p] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = value
	}
	return out, nil
}
