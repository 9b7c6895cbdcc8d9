package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spetersoncode/perpetual/agent"
	"github.com/spetersoncode/perpetual/store"
)

func newSessionsCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session"},
		Short:   "List recorded sessions",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(r store.Reader) error {
				return a.listSessions(cmdContext(cmd), r, limit)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of sessions to show (0 = all)")

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show a session and its steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(r store.Reader) error {
				return a.showSession(cmdContext(cmd), r, args[0])
			})
		},
	})
	return cmd
}

func cmdContext(cmd *cobra.Command) context.Context {
	if c := cmd.Context(); c != nil {
		return c
	}
	return context.Background()
}

func (a *app) withStore(fn func(store.Reader) error) error {
	s, err := a.openStore()
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func (a *app) listSessions(ctx context.Context, r store.Reader, limit int) error {
	sessions, err := r.Sessions(ctx, limit)
	if err != nil {
		return err
	}
	return a.printOutput(sessions, []string{"ID", "STATUS", "AGE", "REQUEST"}, func() [][]string {
		rows := make([][]string, len(sessions))
		for i, s := range sessions {
			rows[i] = []string{s.ID, statusString(s.Status), formatAge(s.StartedAt), agent.TruncateArguments(firstLine(s.Request), 60)}
		}
		return rows
	})
}

type sessionDetail struct {
	Session store.Session `json:"session" yaml:"session"`
	Steps   []store.Step  `json:"steps" yaml:"steps"`
}

func (a *app) showSession(ctx context.Context, r store.Reader, id string) error {
	s, err := r.Session(ctx, id)
	if err != nil {
		return err
	}
	steps, err := r.Steps(ctx, id)
	if err != nil {
		return err
	}
	if a.output != "table" {
		return a.printOutput(sessionDetail{Session: *s, Steps: steps}, nil, nil)
	}

	stepColor.Fprintf(a.stdout, "%s  %s\n", s.ID, statusString(s.Status))
	fmt.Fprintf(a.stdout, "Request:   %s\n", s.Request)
	if s.Improved != "" && s.Improved != s.Request {
		fmt.Fprintf(a.stdout, "Directive: %s\n", s.Improved)
	}
	for _, st := range steps {
		tool := st.Tool
		if st.Synthesized {
			tool += " (new)"
		}
		stepColor.Fprintf(a.stdout, "\n[%d] %s\n", st.Number, st.Text)
		if tool != "" {
			callColor.Fprintf(a.stdout, "    %s(%s)\n", tool, agent.TruncateArguments(st.Args, 120))
		}
		if st.Status == store.StatusOK {
			fmt.Fprintf(a.stdout, "    %s\n", st.Result)
		} else {
			failColor.Fprintf(a.stdout, "    %s\n", st.Result)
		}
	}
	if s.Response != "" {
		finalColor.Fprintf(a.stdout, "\n%s\n", s.Response)
	}
	return nil
}

func statusString(s store.Status) string {
	switch s {
	case store.StatusFulfilled:
		return okColor.Sprint(s)
	case store.StatusRunning, store.StatusMaxSteps:
		return callColor.Sprint(s)
	default:
		return failColor.Sprint(s)
	}
}
