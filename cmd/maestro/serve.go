package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/maestro/internal/mcp"
)

var serveNoWatch bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve workflows over MCP (stdio)",
	Long: `Start an MCP server on stdin/stdout exposing the tools list_workflows,
list_agents, execute_workflow, workflow_status, active_workflows and
workflow_history.

The workflows directory is watched and the catalog reloaded on change
unless --no-watch is given. Logs go to the configured log file only, since
stdout carries the protocol.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()
		log := rt.logger.Logger()

		if !serveNoWatch {
			go func() {
				if err := rt.orch.Watch(ctx); err != nil {
					log.Warn("workflow watch stopped", "error", err)
				}
			}()
		}

		log.Info("mcp server starting",
			"workflows", len(rt.orch.ListWorkflows()),
			"agents", len(rt.orch.ListAgents()))
		if err := mcp.New(rt.orch, Version(), log).ServeStdio(); err != nil {
			return fmt.Errorf("serve mcp: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "Do not reload workflows on file changes")
}
