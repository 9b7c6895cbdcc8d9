// Package tool loads, runs and stores the agent's tools.
//
// A tool is a single annotated Starlark function in its own ".py" file; see
// package descriptor for the accepted form. Tools run in a Host that
// predeclares these modules:
//
//   - json, math, time: the Starlark standard modules
//   - hashlib: hex digests (md5, sha1, sha256, sha512)
//   - arith: eval(expression, precision=6) for arithmetic expressions
//   - http: get and post, limited by host allow and block lists
//   - files: read, write, list and exists, confined to a base path
//
// A Registry keeps the tools of a directory together with a vector index of
// their descriptions:
//
//	reg, err := tool.Open(ctx, "tools", client)
//	matches, err := reg.Nearest(ctx, "add two numbers", 1)
//	t, err := reg.ToolOf(matches[0].Name)
//	out, err := t.Call(ctx, map[string]any{"what": "2 + 2"})
//
// An empty directory is seeded with calculate and finalize.
package tool
