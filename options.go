package perpetual

// Options contains configuration for a chat request.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature *float64
	// Tools lists the functions the model may call.
	Tools []ToolDef
	// ForceTool names a function from Tools the model must call.
	ForceTool string
	// ReservedTokens is subtracted from the model's context limit before the
	// conversation is fitted. Zero means the client default.
	ReservedTokens int
}

// Option is a functional option for configuring chat requests.
type Option func(*Options)

// WithModel sets the model to use for the request.
func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// WithMaxTokens sets the maximum number of tokens to generate.
func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

// WithTemperature sets the sampling temperature (0.0 to 2.0).
func WithTemperature(t float64) Option {
	return func(o *Options) {
		o.Temperature = &t
	}
}

// WithTools makes the given functions available to the model.
func WithTools(tools ...ToolDef) Option {
	return func(o *Options) {
		o.Tools = append(o.Tools, tools...)
	}
}

// WithForcedTool offers a single function and requires the model to call it.
func WithForcedTool(tool ToolDef) Option {
	return func(o *Options) {
		o.Tools = []ToolDef{tool}
		o.ForceTool = tool.Name
	}
}

// WithReservedTokens sets how many tokens of the context window are kept free
// for the completion.
func WithReservedTokens(n int) Option {
	return func(o *Options) {
		o.ReservedTokens = n
	}
}

// ApplyOptions applies functional options to an Options struct.
func ApplyOptions(opts ...Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
