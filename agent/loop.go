package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	ai "github.com/spetersoncode/perpetual"
	"github.com/spetersoncode/perpetual/llm"
	"github.com/spetersoncode/perpetual/store"
	"github.com/spetersoncode/perpetual/tool"
)

// Loop is the perpetual agent loop. Each step plans one action, selects or
// synthesizes the tool for it, extracts arguments, asks for approval, runs
// the tool and appends the naturalized outcome to a bounded history, until
// the planner declares the request fulfilled or the finalize tool runs.
//
// Planner, extraction, synthesis, rejection and tool failures become failed
// steps the planner sees and reacts to. Only a model call the operator
// abandoned, a misconfigured client or a cancelled context end a session
// with an error.
type Loop struct {
	tools       Tools
	planner     *Planner
	extractor   *Extractor
	naturalizer *Naturalizer
	improver    *Improver
	synthesizer *Synthesizer
	opts        *Options
	logger      *slog.Logger
}

// New creates a loop over the tools of a registry.
func New(chat Chatter, tools Tools, opts ...Option) *Loop {
	o := ApplyOptions(opts...)
	return &Loop{
		tools:       tools,
		planner:     NewPlanner(chat, o.ChatOptions...),
		extractor:   NewExtractor(chat, o.ChatOptions...),
		naturalizer: NewNaturalizer(chat, o.ChatOptions...),
		improver:    NewImprover(chat, o.ChatOptions...),
		synthesizer: NewSynthesizer(chat, tools, o.ChatOptions...),
		opts:        o,
		logger:      o.Logger,
	}
}

type outcome int

const (
	outcomeContinue outcome = iota
	outcomeFulfilled
	outcomeFinalized
)

// Run drives a session for request. The returned error is non-nil only for
// fatal conditions; the Result is always populated.
func (l *Loop) Run(ctx context.Context, request string) (*Result, error) {
	res := &Result{
		SessionID: uuid.NewString(),
		Request:   request,
		Improved:  request,
		history:   NewHistory(l.opts.StepMemory),
	}
	l.emit(Event{Type: EventSessionStart, Text: request})

	if l.opts.Improve {
		improved, err := l.improver.Improve(ctx, request)
		switch {
		case err == nil:
			res.Improved = improved
		case l.fatal(ctx, err):
			return l.abort(ctx, res, err)
		default:
			l.logger.Warn("request improvement failed, planning against the original", "error", err)
		}
	}
	l.emit(Event{Type: EventRequestImproved, Text: res.Improved})
	l.record(func(r store.Recorder) error {
		return r.Begin(ctx, store.Session{ID: res.SessionID, Request: request, Improved: res.Improved})
	})
	l.logger.Info("session started", "session", res.SessionID)

	for {
		if l.opts.MaxSteps > 0 && res.Steps >= l.opts.MaxSteps {
			res.Error = ErrMaxStepsReached
			return l.finish(ctx, res, TerminationMaxSteps, finalResponse(res.Records)), nil
		}

		n := res.Steps + 1
		l.emit(Event{Type: EventStepStart, Step: n})
		rec, out, err := l.step(ctx, n, res.Improved, res.history)
		if err != nil {
			return l.abort(ctx, res, err)
		}
		if out == outcomeFulfilled {
			return l.finish(ctx, res, TerminationFulfilled, finalResponse(res.Records)), nil
		}

		res.Steps = n
		res.Records = append(res.Records, *rec)
		res.history.Append(rec.Text, rec.Result)
		l.recordStep(ctx, res.SessionID, rec)
		if rec.OK() {
			l.emit(Event{Type: EventStepComplete, Step: n, Text: rec.Text, Tool: rec.Tool, Result: rec.Result})
		} else {
			l.emit(Event{Type: EventStepFailed, Step: n, Text: rec.Text, Tool: rec.Tool, Result: rec.Result, Error: rec.Err})
		}

		if out == outcomeFinalized {
			return l.finish(ctx, res, TerminationFinalized, rec.Result), nil
		}
	}
}

// step runs one iteration. A nil record with outcomeFulfilled means the
// planner declared the request done; an error is always fatal.
func (l *Loop) step(ctx context.Context, n int, request string, history *History) (*StepRecord, outcome, error) {
	text, done, err := l.planner.Next(ctx, request, history.Exchanges())
	if err != nil {
		if l.fatal(ctx, err) {
			return nil, outcomeContinue, err
		}
		action := "Plan the next action"
		var pe *PlannerError
		if errors.As(err, &pe) && pe.Response != "" {
			action = oneLine(pe.Response)
		}
		return failed(&StepRecord{Number: n, Text: action}, err), outcomeContinue, nil
	}
	if done {
		l.logger.Info("planner declared the request fulfilled", "step", n)
		return nil, outcomeFulfilled, nil
	}
	l.emit(Event{Type: EventStepPlanned, Step: n, Text: text})
	l.logger.Info("step planned", "step", n, "text", text)

	rec := &StepRecord{Number: n, Text: text}

	t, synthesized, err := l.selectTool(ctx, n, text)
	if err != nil {
		if l.fatal(ctx, err) {
			return nil, outcomeContinue, err
		}
		return failed(rec, err), outcomeContinue, nil
	}
	rec.Tool = t.Name
	rec.Synthesized = synthesized

	args, err := l.extractor.Extract(ctx, history.Messages(), t, text)
	if err != nil {
		if l.fatal(ctx, err) {
			return nil, outcomeContinue, err
		}
		return failed(rec, err), outcomeContinue, nil
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return failed(rec, fmt.Errorf("encode arguments: %w", err)), outcomeContinue, nil
	}
	rec.Arguments = string(encoded)

	call := ai.FunctionCall{ID: "call-" + uuid.NewString(), Name: t.Name, Arguments: rec.Arguments}
	l.emit(Event{Type: EventToolCallRequested, Step: n, Tool: t.Name, Call: &call})
	if l.opts.Approver != nil {
		approved, reason := l.opts.Approver(ctx, call)
		if err := ctx.Err(); err != nil {
			return nil, outcomeContinue, err
		}
		if !approved {
			l.emit(Event{Type: EventToolCallRejected, Step: n, Tool: t.Name, Call: &call, Message: reason})
			rejection := ErrRejected
			if reason != "" {
				rejection = fmt.Errorf("%w: %s", ErrRejected, reason)
			}
			rec.Status = store.StatusRejected
			rec.Err = rejection
			rec.Result = "Failed: " + rejection.Error()
			return rec, outcomeContinue, nil
		}
		l.emit(Event{Type: EventToolCallApproved, Step: n, Tool: t.Name, Call: &call})
	}

	raw, callErr := t.Call(ctx, args)
	if callErr != nil && ctx.Err() != nil {
		return nil, outcomeContinue, ctx.Err()
	}
	rec.Raw = raw
	l.emit(Event{Type: EventToolResult, Step: n, Tool: t.Name, Result: displayValue(raw), Error: callErr})

	if synthesized && callErr == nil {
		if _, err := l.tools.Install(ctx, t.Source); err != nil {
			if l.fatal(ctx, err) {
				return nil, outcomeContinue, err
			}
			l.logger.Warn("failed to install synthesized tool", "tool", t.Name, "error", err)
		} else {
			l.emit(Event{Type: EventToolInstalled, Step: n, Tool: t.Name})
		}
	}

	if t.Name == tool.FinalizeName && callErr == nil {
		rec.Status = store.StatusOK
		rec.Result = displayValue(raw)
		return rec, outcomeFinalized, nil
	}

	summary, err := l.naturalizer.Naturalize(ctx, text, t, rec.Arguments, raw, callErr)
	if err != nil {
		if l.fatal(ctx, err) {
			return nil, outcomeContinue, err
		}
		l.logger.Warn("naturalization failed, recording the raw result", "step", n, "error", err)
		summary = plainResult(t.Name, raw, callErr)
	}
	rec.Result = summary
	if callErr != nil {
		rec.Status = store.StatusFailed
		rec.Err = callErr
	} else {
		rec.Status = store.StatusOK
	}
	return rec, outcomeContinue, nil
}

// selectTool returns the installed tool nearest to text, or a freshly
// synthesized one when none scores above the threshold.
func (l *Loop) selectTool(ctx context.Context, n int, text string) (*tool.Tool, bool, error) {
	matches, err := l.tools.Nearest(ctx, text, 1)
	if err != nil {
		return nil, false, err
	}
	if len(matches) > 0 && matches[0].Score >= l.opts.SimilarityThreshold {
		best := matches[0]
		t, err := l.tools.ToolOf(best.Name)
		if err == nil {
			l.emit(Event{Type: EventToolSelected, Step: n, Tool: t.Name, Score: best.Score})
			l.logger.Debug("tool selected", "step", n, "tool", t.Name, "score", best.Score)
			return t, false, nil
		}
		l.logger.Warn("index names a tool the registry does not hold", "tool", best.Name)
	}

	t, err := l.synthesizer.Synthesize(ctx, text)
	if err != nil {
		return nil, false, err
	}
	l.emit(Event{Type: EventToolSynthesized, Step: n, Tool: t.Name, Text: t.Source})
	l.logger.Info("tool synthesized", "step", n, "tool", t.Name)
	return t, true, nil
}

func failed(rec *StepRecord, err error) *StepRecord {
	rec.Status = store.StatusFailed
	rec.Err = err
	rec.Result = "Failed: " + err.Error()
	return rec
}

// finalResponse is the result of the last successful step, falling back to
// the last step of any kind.
func finalResponse(records []StepRecord) string {
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].OK() {
			return records[i].Result
		}
	}
	if len(records) > 0 {
		return records[len(records)-1].Result
	}
	return ""
}

func (l *Loop) fatal(ctx context.Context, err error) bool {
	return ctx.Err() != nil || llm.IsFatal(err)
}

func (l *Loop) finish(ctx context.Context, res *Result, reason TerminationReason, response string) *Result {
	res.Termination = reason
	res.Response = response
	l.record(func(r store.Recorder) error {
		return r.Finish(context.WithoutCancel(ctx), res.SessionID, reason.status(), response)
	})
	if reason == TerminationMaxSteps {
		l.emit(Event{Type: EventError, Step: res.Steps, Error: res.Error})
	} else {
		l.emit(Event{Type: EventAgentComplete, Step: res.Steps, Text: response})
	}
	l.logger.Info("session finished", "session", res.SessionID, "termination", reason, "steps", res.Steps)
	return res
}

func (l *Loop) abort(ctx context.Context, res *Result, err error) (*Result, error) {
	res.Termination = TerminationAbandoned
	if ctx.Err() != nil {
		res.Termination = TerminationCancelled
	}
	res.Error = err
	res.Response = finalResponse(res.Records)
	l.record(func(r store.Recorder) error {
		return r.Finish(context.WithoutCancel(ctx), res.SessionID, res.Termination.status(), res.Response)
	})
	l.emit(Event{Type: EventError, Step: res.Steps, Error: err})
	l.logger.Error("session ended", "session", res.SessionID, "termination", res.Termination, "error", err)
	return res, err
}

func (l *Loop) recordStep(ctx context.Context, session string, rec *StepRecord) {
	l.record(func(r store.Recorder) error {
		step := store.Step{
			SessionID:   session,
			Number:      rec.Number,
			Text:        rec.Text,
			Tool:        rec.Tool,
			Synthesized: rec.Synthesized,
			Args:        rec.Arguments,
			Result:      rec.Result,
			Status:      rec.Status,
		}
		if rec.Err != nil {
			step.Error = rec.Err.Error()
		}
		return r.RecordStep(ctx, step)
	})
}

func (l *Loop) record(fn func(store.Recorder) error) {
	if l.opts.Recorder == nil {
		return
	}
	if err := fn(l.opts.Recorder); err != nil {
		l.logger.Warn("failed to record session", "error", err)
	}
}

func (l *Loop) emit(e Event) {
	if l.opts.OnEvent == nil {
		return
	}
	e.Timestamp = time.Now()
	l.opts.OnEvent(e)
}
