package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/maestro/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify maestro configuration.

Without arguments, displays the effective configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the value in the user config file.

Configuration is stored at ~/.config/maestro/config.yaml
Project-specific overrides can be placed in .maestro.yaml`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := projectDir
		if dir == "" {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("get working directory: %w", err)
			}
			dir = cwd
		}
		out := cmd.OutOrStdout()

		switch len(args) {
		case 0:
			for _, key := range config.Keys() {
				v, err := config.Get(dir, key)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s: %s\n", key, displayValue(key, v))
			}
			if p := config.GetProjectConfigPath(dir); p != "" {
				fmt.Fprintf(out, "\nproject config: %s\n", p)
			}
			fmt.Fprintf(out, "user config: %s\n", config.GetUserConfigPath())
		case 1:
			v, err := config.Get(dir, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, displayValue(args[0], v))
		default:
			if err := config.SetUserValue(args[0], args[1]); err != nil {
				return fmt.Errorf("set %s: %w", args[0], err)
			}
			fmt.Fprintf(out, "Set %s = %s\n", args[0], displayValue(args[0], args[1]))
		}
		return nil
	},
}

// displayValue formats a config value, masking the API key.
func displayValue(key string, v any) string {
	s := fmt.Sprint(v)
	if key == "anthropic.api_key" {
		return config.MaskAPIKey(s)
	}
	if s == "" {
		return "(not set)"
	}
	return s
}
