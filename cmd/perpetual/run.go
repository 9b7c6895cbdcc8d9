package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spetersoncode/perpetual/agent"
)

type runFlags struct {
	yes        bool
	model      string
	maxSteps   int
	stepMemory int
	threshold  float64
	noImprove  bool
	noRecord   bool
}

func newRunCmd(a *app) *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run [request]",
		Short: "Fulfill a request",
		Long: `Run the agent loop on a request. Every proposed tool call is shown with its
arguments and runs only after you answer y. The request is read from the
terminal when it is not given as arguments.`,
		Example: `  perpetual run "What is 2 + 3 * 4?"
  perpetual run --yes --max-steps 10 "Hash the word hello with SHA-256"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmdContext(cmd), strings.Join(args, " "), f)
		},
	}

	cmd.Flags().BoolVarP(&f.yes, "yes", "y", false, "Approve every tool call without asking")
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "Chat model (overrides the configuration)")
	cmd.Flags().IntVar(&f.maxSteps, "max-steps", -1, "Stop after this many steps (0 = unlimited)")
	cmd.Flags().IntVar(&f.stepMemory, "step-memory", 0, "Steps kept in the model's history")
	cmd.Flags().Float64Var(&f.threshold, "threshold", -1, "Similarity below which a new tool is written")
	cmd.Flags().BoolVar(&f.noImprove, "no-improve", false, "Plan against the request as typed")
	cmd.Flags().BoolVar(&f.noRecord, "no-record", false, "Do not record the session")

	return cmd
}

func (a *app) run(ctx context.Context, request string, f runFlags) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	cfg := a.cfg
	if f.model != "" {
		cfg.LLM.Model = f.model
	}
	if f.maxSteps >= 0 {
		cfg.Agent.MaxSteps = f.maxSteps
	}
	if f.stepMemory > 0 {
		cfg.Agent.StepMemory = f.stepMemory
	}
	if f.threshold >= 0 {
		cfg.Agent.SimilarityThreshold = f.threshold
	}
	if f.noImprove {
		cfg.Agent.Improve = false
	}
	if a.chat == nil {
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	term := agent.NewTerminal(a.stdin, a.stdout,
		agent.WithArgumentsWidth(cfg.Agent.ArgumentsWidth),
		agent.WithRender(renderCall(cfg.Agent.ArgumentsWidth)),
	)

	if strings.TrimSpace(request) == "" {
		line, err := term.Ask(ctx, stepColor.Sprint("Request: "))
		if err != nil {
			return fmt.Errorf("read request: %w", err)
		}
		request = strings.TrimSpace(line)
		if request == "" {
			return errors.New("no request given")
		}
	}

	tools, err := a.openTools(ctx, term.Acknowledge)
	if err != nil {
		return err
	}
	defer tools.Close()

	p := &printer{w: a.stdout, verbose: a.verbose}
	opts := []agent.Option{
		agent.WithStepMemory(cfg.Agent.StepMemory),
		agent.WithMaxSteps(cfg.Agent.MaxSteps),
		agent.WithSimilarityThreshold(cfg.Agent.SimilarityThreshold),
		agent.WithOnEvent(p.handle),
		agent.WithLogger(a.logger),
		agent.WithModel(cfg.LLM.Model),
	}
	if f.yes {
		opts = append(opts, agent.WithApprover(agent.AutoApprove()))
	} else {
		opts = append(opts, agent.WithApprover(term.Approver()))
	}
	if !cfg.Agent.Improve {
		opts = append(opts, agent.WithoutImprover())
	}
	if !f.noRecord {
		sessions, err := a.openStore()
		if err != nil {
			return err
		}
		defer sessions.Close()
		opts = append(opts, agent.WithRecorder(sessions))
	}

	loop := agent.New(a.chatter(term.Acknowledge), tools, opts...)
	res, err := loop.Run(ctx, request)
	if err != nil {
		return fmt.Errorf("session %s %s after %s: %w", res.SessionID, res.Termination, plural(res.Steps, "step"), err)
	}
	faintColor.Fprintf(a.stdout, "session %s %s after %s\n", res.SessionID, res.Termination, plural(res.Steps, "step"))
	return nil
}
