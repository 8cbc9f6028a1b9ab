package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	projectDir string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "maestro",
	Short: "Multi-agent workflow orchestrator",
	Long: `Maestro runs workflows of agent steps as dependency graphs.

Agents are declared as manifests in .maestro/agents and back each method
with a shell command or an Anthropic prompt. Workflows in .maestro/workflows
name the steps, their agents and dependencies; independent steps run
concurrently under a global in-flight limit.

Core capabilities:
- Validates workflows at load time (unknown steps, cycles)
- Dispatches ready steps in waves, sequential or parallel
- Skips dependents of failed steps and reports every outcome
- Tracks active runs and a bounded run history
- Serves the query surface over MCP`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectDir, "project", "C", "", "Project directory (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(workflowsCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
