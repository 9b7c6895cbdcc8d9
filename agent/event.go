package agent

import (
	"time"

	ai "github.com/spetersoncode/perpetual"
	"github.com/spetersoncode/perpetual/store"
)

// EventType identifies the kind of event occurring during a session.
type EventType string

const (
	// EventSessionStart fires once with the original request.
	EventSessionStart EventType = "session_start"

	// EventRequestImproved fires with the directive the loop plans against.
	EventRequestImproved EventType = "request_improved"

	// EventStepStart fires at the beginning of each iteration.
	EventStepStart EventType = "step_start"

	// EventStepPlanned fires with the planner's instruction.
	EventStepPlanned EventType = "step_planned"

	// EventToolSelected fires when an installed tool matched the step.
	EventToolSelected EventType = "tool_selected"

	// EventToolSynthesized fires when a new tool was written for the step.
	EventToolSynthesized EventType = "tool_synthesized"

	// EventToolCallRequested fires with the extracted arguments, before approval.
	EventToolCallRequested EventType = "tool_call_requested"

	// EventToolCallApproved fires when the operator approved the call.
	EventToolCallApproved EventType = "tool_call_approved"

	// EventToolCallRejected fires when the operator declined the call.
	EventToolCallRejected EventType = "tool_call_rejected"

	// EventToolResult fires after the tool ran.
	EventToolResult EventType = "tool_result"

	// EventToolInstalled fires when a synthesized tool was committed.
	EventToolInstalled EventType = "tool_installed"

	// EventStepComplete fires when a step produced a result.
	EventStepComplete EventType = "step_complete"

	// EventStepFailed fires when a step ended with an error result.
	EventStepFailed EventType = "step_failed"

	// EventAgentComplete fires when the session ends with a response.
	EventAgentComplete EventType = "agent_complete"

	// EventError fires when a fatal error ends the session.
	EventError EventType = "error"
)

// Event represents an observable occurrence during a session.
type Event struct {
	// Type identifies the kind of event.
	Type EventType

	// Step is the current iteration number (1-indexed).
	Step int

	// Text is the request, the planned step or the final response,
	// depending on Type.
	Text string

	// Tool names the selected or synthesized tool.
	Tool string

	// Score is the similarity of the selected tool to the step.
	Score float64

	// Call carries the proposed tool call for approval events.
	Call *ai.FunctionCall

	// Result is the tool output or the naturalized step result.
	Result string

	// Error contains the error for failure events.
	Error error

	// Message contains additional context (e.g., rejection reason).
	Message string

	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// TerminationReason indicates why the loop stopped.
type TerminationReason string

const (
	// TerminationFulfilled indicates the planner declared the request fulfilled.
	TerminationFulfilled TerminationReason = "fulfilled"

	// TerminationFinalized indicates the finalize tool delivered the response.
	TerminationFinalized TerminationReason = "finalized"

	// TerminationMaxSteps indicates the step limit was reached.
	TerminationMaxSteps TerminationReason = "max_steps"

	// TerminationAbandoned indicates the operator gave up on a failing model call.
	TerminationAbandoned TerminationReason = "abandoned"

	// TerminationCancelled indicates context cancellation.
	TerminationCancelled TerminationReason = "cancelled"
)

func (r TerminationReason) status() store.Status {
	switch r {
	case TerminationFulfilled, TerminationFinalized:
		return store.StatusFulfilled
	case TerminationMaxSteps:
		return store.StatusMaxSteps
	case TerminationCancelled:
		return store.StatusCancelled
	default:
		return store.StatusAbandoned
	}
}

// StepRecord is the outcome of one iteration.
type StepRecord struct {
	Number int
	Text   string
	Tool   string
	// Synthesized marks a tool written during this step.
	Synthesized bool
	// Arguments is the JSON the tool was called with.
	Arguments string
	// Raw is the tool's return value.
	Raw any
	// Result is the text appended to history.
	Result string
	Status store.Status
	Err    error
}

// OK reports whether the step succeeded.
func (r *StepRecord) OK() bool {
	return r.Status == store.StatusOK
}

// Result represents the final outcome of a session.
type Result struct {
	SessionID string

	// Request is the request as submitted.
	Request string

	// Improved is the directive the loop planned against.
	Improved string

	// Response is the final answer.
	Response string

	// Steps is the number of iterations completed.
	Steps int

	// Records lists every step in order.
	Records []StepRecord

	// Termination indicates why execution stopped.
	Termination TerminationReason

	// Error contains any error that caused termination (if applicable).
	Error error

	history *History
}

// Messages returns the bounded history the session ended with.
func (r *Result) Messages() []ai.Message {
	if r.history == nil {
		return nil
	}
	return r.history.Messages()
}

// MessageCount returns the number of messages in the history.
func (r *Result) MessageCount() int {
	if r.history == nil {
		return 0
	}
	return r.history.Len()
}
