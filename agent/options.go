package agent

import (
	"context"
	"log/slog"

	ai "github.com/spetersoncode/perpetual"
	"github.com/spetersoncode/perpetual/store"
)

const (
	// DefaultStepMemory is the number of steps kept in history.
	DefaultStepMemory = 100

	// DefaultSimilarityThreshold is the cosine similarity an installed tool
	// needs to be selected instead of synthesizing a new one.
	DefaultSimilarityThreshold = 0.5
)

// ApproverFunc is called before every tool call.
// It returns true to approve the call, or false with a reason to reject it.
// The rejection is recorded as the step's result.
type ApproverFunc func(ctx context.Context, call ai.FunctionCall) (approved bool, reason string)

// EventFunc receives events synchronously, in loop order.
type EventFunc func(Event)

// Options contains configuration for the loop.
type Options struct {
	// StepMemory is the number of most recent steps kept in history.
	// Default is 100.
	StepMemory int

	// MaxSteps limits the number of iterations. 0 means unlimited.
	MaxSteps int

	// SimilarityThreshold is the minimum score for selecting an installed
	// tool. Default is 0.5.
	SimilarityThreshold float64

	// Approver confirms tool calls. If nil, every call is approved.
	Approver ApproverFunc

	// OnEvent observes the session.
	OnEvent EventFunc

	// Recorder receives the audit trail. Optional.
	Recorder store.Recorder

	// Improve rewrites the request before planning. Default is true.
	Improve bool

	// Logger receives diagnostics. Default is slog.Default().
	Logger *slog.Logger

	// ChatOptions are applied to every chat call.
	ChatOptions []ai.Option
}

// Option is a functional option for configuring the loop.
type Option func(*Options)

// WithStepMemory sets how many steps the history keeps.
func WithStepMemory(n int) Option {
	return func(o *Options) {
		o.StepMemory = n
	}
}

// WithMaxSteps sets the maximum number of iterations. 0 means unlimited.
func WithMaxSteps(n int) Option {
	return func(o *Options) {
		o.MaxSteps = n
	}
}

// WithSimilarityThreshold sets the score below which a tool is synthesized.
func WithSimilarityThreshold(score float64) Option {
	return func(o *Options) {
		o.SimilarityThreshold = score
	}
}

// WithApprover sets the human-in-the-loop approval function.
// The function is called before each tool execution and must return
// an approval decision.
func WithApprover(fn ApproverFunc) Option {
	return func(o *Options) {
		o.Approver = fn
	}
}

// WithOnEvent sets the event callback.
func WithOnEvent(fn EventFunc) Option {
	return func(o *Options) {
		o.OnEvent = fn
	}
}

// WithRecorder sets the session audit log.
func WithRecorder(r store.Recorder) Option {
	return func(o *Options) {
		o.Recorder = r
	}
}

// WithoutImprover plans against the request exactly as submitted.
func WithoutImprover() Option {
	return func(o *Options) {
		o.Improve = false
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithChatOptions passes options through to every chat call.
func WithChatOptions(opts ...ai.Option) Option {
	return func(o *Options) {
		o.ChatOptions = append(o.ChatOptions, opts...)
	}
}

// WithModel is a convenience option to set the model for chat calls.
func WithModel(model string) Option {
	return func(o *Options) {
		o.ChatOptions = append(o.ChatOptions, ai.WithModel(model))
	}
}

// WithTemperature is a convenience option to set temperature for chat calls.
func WithTemperature(t float64) Option {
	return func(o *Options) {
		o.ChatOptions = append(o.ChatOptions, ai.WithTemperature(t))
	}
}

// ApplyOptions applies functional options to an Options struct with defaults.
func ApplyOptions(opts ...Option) *Options {
	o := &Options{
		StepMemory:          DefaultStepMemory,
		SimilarityThreshold: DefaultSimilarityThreshold,
		Improve:             true,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.StepMemory <= 0 {
		o.StepMemory = DefaultStepMemory
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}
