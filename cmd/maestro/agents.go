package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var agentsJSON bool

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List registered agents",
	Long:  `List the agents loaded from the agents directory with their kind, status and methods.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		out := cmd.OutOrStdout()
		agents := rt.orch.ListAgents()
		if agentsJSON {
			return encodeJSON(out, agents)
		}
		if len(agents) == 0 {
			fmt.Fprintln(out, "No agents registered")
			return nil
		}
		fmt.Fprintln(out, renderAgents(agents))
		return nil
	},
}

func init() {
	agentsCmd.Flags().BoolVar(&agentsJSON, "json", false, "Print as JSON")
}
