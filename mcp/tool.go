package mcp

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/spetersoncode/perpetual/tool"
)

// ToMCPTool converts an installed tool into its MCP declaration. The input
// schema is the one derived from the tool's signature.
func ToMCPTool(t *tool.Tool) mcp.Tool {
	schema := t.Descriptor.Schema
	if len(schema) == 0 {
		schema = json.RawMessage(`{"type":"object","properties":{}}`)
	}
	return mcp.NewToolWithRawSchema(t.Name, t.Description(), schema)
}

// ToMCPResult wraps the outcome of a tool call. Strings are sent as text;
// other values are sent as structured content with a JSON text fallback.
func ToMCPResult(value any, err error) *mcp.CallToolResult {
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	switch v := value.(type) {
	case string:
		return mcp.NewToolResultText(v)
	case nil:
		return mcp.NewToolResultText("null")
	}
	data, mErr := json.Marshal(value)
	if mErr != nil {
		return mcp.NewToolResultText(fmt.Sprint(value))
	}
	return mcp.NewToolResultStructured(value, string(data))
}

// ResultText joins the text content of a call result.
func ResultText(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}
	var parts []string
	for _, c := range result.Content {
		if text, ok := mcp.AsTextContent(c); ok {
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "\n")
}
