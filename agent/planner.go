package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	ai "github.com/spetersoncode/perpetual"
)

// Fulfilled is the sentinel the planner replies with once the request is done.
const Fulfilled = "[request fulfilled]"

// Chatter is the model surface the agent needs. *llm.Client implements it.
type Chatter interface {
	Chat(ctx context.Context, messages []ai.Message, opts ...ai.Option) (*ai.Response, error)
}

// Planner produces the next single-action instruction for a request.
type Planner struct {
	llm  Chatter
	opts []ai.Option
}

// NewPlanner creates a planner. opts apply to every chat call.
func NewPlanner(llm Chatter, opts ...ai.Option) *Planner {
	return &Planner{llm: llm, opts: opts}
}

// Next returns the next step for request given the steps taken so far, or
// done when the model signals the request is fulfilled.
func (p *Planner) Next(ctx context.Context, request string, history []Exchange) (step string, done bool, err error) {
	var prompt string
	if len(history) == 0 {
		prompt = fmt.Sprintf(plannerFirst, request)
	} else {
		prompt = fmt.Sprintf(plannerNext, request, renderExchanges(history))
	}

	resp, err := p.llm.Chat(ctx, []ai.Message{
		ai.SystemMessage(plannerSystem),
		ai.UserMessage(prompt),
	}, p.opts...)
	if err != nil {
		return "", false, err
	}
	return parseStep(resp.Content)
}

func renderExchanges(history []Exchange) string {
	var sb strings.Builder
	for i, ex := range history {
		fmt.Fprintf(&sb, "%d. Action: %s\n   Result: %s\n", i+1, oneLine(ex.Action), oneLine(ex.Result))
	}
	return sb.String()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var stepPrefix = regexp.MustCompile(`(?i)^(?:[-*•]\s*|\d+[.)]\s+|(?:next\s+)?(?:step|action|instruction)\s*\d*\s*:\s*)+`)

// parseStep reduces a planner reply to the instruction on its first line.
func parseStep(content string) (string, bool, error) {
	text := strings.TrimSpace(content)
	if text == "" {
		return "", false, &PlannerError{Reason: "empty response"}
	}
	if strings.Contains(strings.ToLower(text), Fulfilled) {
		return "", true, nil
	}

	var line string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			line = l
			break
		}
	}
	line = stepPrefix.ReplaceAllString(line, "")
	line = strings.TrimSpace(strings.Trim(line, "\"'`*"))
	if line == "" {
		return "", false, &PlannerError{Reason: "no instruction in response", Response: content}
	}
	if strings.HasPrefix(strings.ToLower(line), "result:") {
		return "", false, &PlannerError{Reason: "response is a result, not an instruction", Response: content}
	}
	return line, false, nil
}
