package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "perpetual",
		Short: "An agent that writes the tools it needs",
		Long: `perpetual fulfills a request one step at a time. Each step is matched to an
installed tool, or a new tool is written for it, and every call waits for
your approval before it runs.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch a.output {
			case "table", "json", "yaml":
			default:
				return fmt.Errorf("unknown output format %q (table, json or yaml)", a.output)
			}
			return a.setup()
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML configuration file")
	cmd.PersistentFlags().StringSliceVar(&a.envFiles, "env-file", nil, "env files to load (default .env)")
	cmd.PersistentFlags().StringVarP(&a.output, "output", "o", "table", "Output format: table|json|yaml")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Show tool sources, raw results and debug logs")

	cmd.SetIn(a.stdin)
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	cmd.AddCommand(
		newRunCmd(a),
		newToolsCmd(a),
		newSessionsCmd(a),
		newMCPCmd(a),
	)
	return cmd
}
