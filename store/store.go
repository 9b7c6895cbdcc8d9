// Package store keeps the audit log of agent sessions: the request as the
// operator typed it, the improved directive the loop worked from, every step
// with its tool call and result, and the final response.
//
// Two back-ends implement Recorder. Memory keeps everything in process and
// is what tests use; SQLite persists to a database file and backs the CLI.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrSessionNotFound is returned for an unknown session ID.
var ErrSessionNotFound = errors.New("store: session not found")

// Status is the state of a session or the outcome of a step.
type Status string

const (
	StatusRunning   Status = "running"
	StatusFulfilled Status = "fulfilled"
	StatusAbandoned Status = "abandoned"
	StatusCancelled Status = "cancelled"
	StatusMaxSteps  Status = "max_steps"

	StatusOK       Status = "ok"
	StatusFailed   Status = "failed"
	StatusRejected Status = "rejected"
)

// Session is one run of the agent loop.
type Session struct {
	ID         string    `json:"id" yaml:"id"`
	Request    string    `json:"request" yaml:"request"`
	Improved   string    `json:"improved" yaml:"improved"`
	Response   string    `json:"response" yaml:"response"`
	Status     Status    `json:"status" yaml:"status"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero" yaml:"finished_at,omitempty"`
}

// Step is one iteration of a session.
type Step struct {
	SessionID string `json:"session_id" yaml:"session_id"`
	Number    int    `json:"number" yaml:"number"`
	Text      string `json:"text" yaml:"text"`
	Tool      string `json:"tool,omitempty" yaml:"tool,omitempty"`
	// Synthesized marks a tool written by the agent during this step.
	Synthesized bool `json:"synthesized,omitempty" yaml:"synthesized,omitempty"`
	// Args is the JSON encoding of the extracted arguments.
	Args   string    `json:"args,omitempty" yaml:"args,omitempty"`
	Result string    `json:"result" yaml:"result"`
	Status Status    `json:"status" yaml:"status"`
	Error  string    `json:"error,omitempty" yaml:"error,omitempty"`
	At     time.Time `json:"at" yaml:"at"`
}

// Recorder receives the audit trail of the loop.
type Recorder interface {
	Begin(ctx context.Context, s Session) error
	RecordStep(ctx context.Context, step Step) error
	Finish(ctx context.Context, id string, status Status, response string) error
}

// Reader lists what a Recorder stored.
type Reader interface {
	// Sessions returns the most recent sessions first. A non-positive limit
	// returns all of them.
	Sessions(ctx context.Context, limit int) ([]Session, error)
	Session(ctx context.Context, id string) (*Session, error)
	Steps(ctx context.Context, id string) ([]Step, error)
}

// Store is a Recorder that can be read back.
type Store interface {
	Recorder
	Reader
	Close() error
}

// QueryError wraps a failed database operation.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
