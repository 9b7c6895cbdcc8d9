package agent

import (
	"errors"
	"fmt"
)

// Sentinel errors for step outcomes and termination conditions.
var (
	// ErrRejected marks a tool call the operator declined.
	ErrRejected = errors.New("rejected by operator")

	// ErrMaxStepsReached indicates the loop hit its step limit.
	ErrMaxStepsReached = errors.New("agent: maximum steps reached")
)

// PlannerError is returned when the planner's reply is not a usable step.
type PlannerError struct {
	Reason   string
	Response string
}

func (e *PlannerError) Error() string {
	return "planner: " + e.Reason
}

// ExtractionError is returned when the model's function call cannot be
// turned into arguments for the selected tool.
type ExtractionError struct {
	Tool      string
	Reason    string
	Arguments string
	Err       error
}

func (e *ExtractionError) Error() string {
	msg := fmt.Sprintf("extract arguments for %s: %s", e.Tool, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// SynthesisError is returned when the model did not produce a loadable tool.
// The candidate is never installed.
type SynthesisError struct {
	Reason string
	Source string
	Err    error
}

func (e *SynthesisError) Error() string {
	msg := "synthesize tool: " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}
