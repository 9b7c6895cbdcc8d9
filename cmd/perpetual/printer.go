package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	ai "github.com/spetersoncode/perpetual"
	"github.com/spetersoncode/perpetual/agent"
)

var (
	stepColor   = color.New(color.FgCyan, color.Bold)
	callColor   = color.New(color.FgYellow)
	faintColor  = color.New(color.FgHiBlack)
	okColor     = color.New(color.FgGreen)
	failColor   = color.New(color.FgRed)
	finalColor  = color.New(color.FgGreen, color.Bold)
	synthColor  = color.New(color.FgMagenta)
	resultColor = color.New(color.FgWhite)
)

// printer renders loop events on the terminal as they happen.
type printer struct {
	w       io.Writer
	verbose bool
	request string
}

func (p *printer) handle(e agent.Event) {
	switch e.Type {
	case agent.EventSessionStart:
		p.request = e.Text
	case agent.EventRequestImproved:
		if e.Text != p.request {
			faintColor.Fprintf(p.w, "Directive: %s\n", e.Text)
		}
	case agent.EventStepPlanned:
		stepColor.Fprintf(p.w, "\n[%d] %s\n", e.Step, e.Text)
	case agent.EventToolSelected:
		faintColor.Fprintf(p.w, "    using %s (%.2f)\n", e.Tool, e.Score)
	case agent.EventToolSynthesized:
		synthColor.Fprintf(p.w, "    wrote a new tool: %s\n", e.Tool)
		if p.verbose {
			faintColor.Fprintln(p.w, indent(e.Text, "      "))
		}
	case agent.EventToolCallRejected:
		callColor.Fprintln(p.w, "    rejected")
	case agent.EventToolResult:
		if e.Error != nil {
			failColor.Fprintf(p.w, "    %s failed: %v\n", e.Tool, e.Error)
		} else if p.verbose {
			faintColor.Fprintf(p.w, "    -> %s\n", e.Result)
		}
	case agent.EventToolInstalled:
		okColor.Fprintf(p.w, "    installed %s\n", e.Tool)
	case agent.EventStepComplete:
		resultColor.Fprintf(p.w, "    %s\n", e.Result)
	case agent.EventStepFailed:
		failColor.Fprintf(p.w, "    %s\n", e.Result)
	case agent.EventAgentComplete:
		if e.Text != "" {
			finalColor.Fprintf(p.w, "\n%s\n", e.Text)
		}
	case agent.EventError:
		failColor.Fprintf(p.w, "\n%v\n", e.Error)
	}
}

// renderCall is the approval prompt shown for a proposed call.
func renderCall(width int) func(call ai.FunctionCall) string {
	return func(call ai.FunctionCall) string {
		return callColor.Sprintf("    Run %s(%s)? [y/N] ", call.Name, agent.TruncateArguments(call.Arguments, width))
	}
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
