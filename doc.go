// Package perpetual is the shared vocabulary of an autonomous, tool-using agent.
//
// A user submits a natural-language request. The agent in
// [github.com/spetersoncode/perpetual/agent] repeatedly plans one step,
// selects an installed tool by semantic similarity (or asks the model to
// write a new one), extracts typed arguments through a forced function call,
// asks the operator for confirmation, runs the tool, and folds a
// natural-language summary of the result back into a bounded history.
//
// This package defines the types every layer agrees on:
//
//   - [Message], [Role], [FunctionCall]: the structured chat format, including
//     assistant function calls and function result messages
//   - [ToolDef]: a function offered to the model with its JSON schema
//   - [ChatProvider], [EmbeddingProvider]: what a model back-end implements
//   - [Error] and [ErrorCategory]: categorized errors that drive retry decisions
//
// Chat requests are configured with functional options:
//
//	resp, err := client.Chat(ctx, messages,
//	    perpetual.WithModel("gpt-4o-mini"),
//	    perpetual.WithForcedTool(def),
//	    perpetual.WithReservedTokens(1024),
//	)
//
// The model client with token budgeting and retries lives in
// [github.com/spetersoncode/perpetual/llm]; tools and their on-disk registry
// live in [github.com/spetersoncode/perpetual/tool].
package perpetual
