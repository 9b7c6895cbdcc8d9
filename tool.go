package perpetual

import "encoding/json"

// ToolDef describes a function the model may call.
type ToolDef struct {
	// Name is the unique identifier for the function.
	Name string `json:"name"`
	// Description explains what the function does.
	Description string `json:"description,omitempty"`
	// Parameters is a JSON Schema object defining the function parameters.
	Parameters json.RawMessage `json:"parameters,omitempty"`
}

// FunctionCall is a request from the model to invoke a function.
type FunctionCall struct {
	// ID correlates the call with its result on providers that need it.
	// Adapters generate one when the conversation does not carry it.
	ID string `json:"id,omitempty"`
	// Name is the name of the function to invoke.
	Name string `json:"name"`
	// Arguments is a JSON string containing the arguments to pass.
	Arguments string `json:"arguments"`
}
