package main

import (
	"github.com/spf13/cobra"

	"github.com/spetersoncode/perpetual/mcp"
)

func newMCPCmd(a *app) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the installed tools over MCP on stdin and stdout",
		Long: `Serve the installed tools to an MCP client. The client starts this command
as a subprocess and talks to it over stdin and stdout, so logs go to stderr.
Calls are validated against each tool's schema and run without asking.`,
		Example: `  {"mcpServers": {"perpetual": {"command": "perpetual", "args": ["mcp"]}}}`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.openTools(cmdContext(cmd), nil)
			if err != nil {
				return err
			}
			defer reg.Close()
			a.logger.Info("serving tools over MCP", "tools", reg.Len(), "dir", reg.Dir())
			return mcp.ServeStdio(reg,
				mcp.WithName(name),
				mcp.WithVersion(version),
				mcp.WithLogger(a.logger),
			)
		},
	}
	cmd.Flags().StringVar(&name, "name", "perpetual", "Server name reported to clients")
	return cmd
}
