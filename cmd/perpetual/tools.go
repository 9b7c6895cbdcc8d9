package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spetersoncode/perpetual/tool"
)

func newToolsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tools",
		Aliases: []string{"tool"},
		Short:   "Manage installed tools",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List installed tools",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withTools(cmdContext(cmd), a.listTools)
			},
		},
		&cobra.Command{
			Use:   "show <name>",
			Short: "Print a tool's source and schema",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withTools(cmdContext(cmd), func(_ context.Context, reg *tool.Registry) error {
					return a.showTool(reg, args[0])
				})
			},
		},
		&cobra.Command{
			Use:   "add <file>",
			Short: "Install a tool from a source file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				src, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				return a.withTools(cmdContext(cmd), func(ctx context.Context, reg *tool.Registry) error {
					t, err := reg.Install(ctx, string(src))
					if err != nil {
						return err
					}
					okColor.Fprintf(a.stdout, "installed %s\n", t.Name)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:     "rm <name>",
			Aliases: []string{"remove"},
			Short:   "Remove an installed tool",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withTools(cmdContext(cmd), func(_ context.Context, reg *tool.Registry) error {
					if err := reg.Remove(args[0]); err != nil {
						return err
					}
					fmt.Fprintf(a.stdout, "removed %s\n", args[0])
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "reindex",
			Short: "Re-embed every tool description",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withTools(cmdContext(cmd), func(ctx context.Context, reg *tool.Registry) error {
					if err := reg.Reindex(ctx); err != nil {
						return err
					}
					fmt.Fprintf(a.stdout, "indexed %s\n", plural(reg.Len(), "tool"))
					return nil
				})
			},
		},
	)
	return cmd
}

func (a *app) withTools(ctx context.Context, fn func(context.Context, *tool.Registry) error) error {
	reg, err := a.openTools(ctx, nil)
	if err != nil {
		return err
	}
	defer reg.Close()
	return fn(ctx, reg)
}

func (a *app) listTools(_ context.Context, reg *tool.Registry) error {
	catalog := reg.Catalog()
	return a.printOutput(catalog, []string{"NAME", "DESCRIPTION"}, func() [][]string {
		rows := make([][]string, len(catalog))
		for i, e := range catalog {
			rows[i] = []string{e.Name, firstLine(e.Description)}
		}
		return rows
	})
}

type toolDetail struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Path        string `json:"path" yaml:"path"`
	Schema      any    `json:"schema" yaml:"schema"`
	Source      string `json:"source" yaml:"source"`
}

func (a *app) showTool(reg *tool.Registry, name string) error {
	t, err := reg.ToolOf(name)
	if err != nil {
		return err
	}
	if a.output == "table" {
		stepColor.Fprintln(a.stdout, t.Name)
		fmt.Fprintf(a.stdout, "%s\n\n", t.Path)
		fmt.Fprintln(a.stdout, strings.TrimRight(t.Source, "\n"))
		faintColor.Fprintf(a.stdout, "\n%s\n", t.Descriptor.Schema)
		return nil
	}
	var schema any
	if err := json.Unmarshal(t.Descriptor.Schema, &schema); err != nil {
		return err
	}
	return a.printOutput(toolDetail{
		Name:        t.Name,
		Description: t.Description(),
		Path:        t.Path,
		Schema:      schema,
		Source:      t.Source,
	}, nil, nil)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
