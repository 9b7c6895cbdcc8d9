package google

import (
	"encoding/json"

	ai "github.com/spetersoncode/perpetual"
	"google.golang.org/genai"
)

func convertTools(tools []ai.ToolDef) []*genai.Tool {
	funcs := make([]*genai.FunctionDeclaration, len(tools))
	for i, t := range tools {
		funcs[i] = &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  convertJSONSchema(t.Parameters),
		}
	}
	return []*genai.Tool{{FunctionDeclarations: funcs}}
}

func forcedToolConfig(name string) *genai.ToolConfig {
	return &genai.ToolConfig{
		FunctionCallingConfig: &genai.FunctionCallingConfig{
			Mode:                 genai.FunctionCallingConfigModeAny,
			AllowedFunctionNames: []string{name},
		},
	}
}

func convertJSONSchema(schemaJSON json.RawMessage) *genai.Schema {
	if len(schemaJSON) == 0 {
		return nil
	}
	var schema map[string]any
	if err := json.Unmarshal(schemaJSON, &schema); err != nil {
		return nil
	}
	return convertSchemaObject(schema)
}

var schemaTypes = map[string]genai.Type{
	"string":  genai.TypeString,
	"number":  genai.TypeNumber,
	"integer": genai.TypeInteger,
	"boolean": genai.TypeBoolean,
	"array":   genai.TypeArray,
	"object":  genai.TypeObject,
	"null":    genai.TypeNULL,
}

func convertSchemaObject(schema map[string]any) *genai.Schema {
	result := &genai.Schema{}

	if t, ok := schema["type"].(string); ok {
		result.Type = schemaTypes[t]
	}
	if desc, ok := schema["description"].(string); ok {
		result.Description = desc
	}
	if enumVal, ok := schema["enum"].([]any); ok {
		for _, e := range enumVal {
			if s, ok := e.(string); ok {
				result.Enum = append(result.Enum, s)
			}
		}
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		result.Properties = make(map[string]*genai.Schema, len(props))
		for name, prop := range props {
			if m, ok := prop.(map[string]any); ok {
				result.Properties[name] = convertSchemaObject(m)
			}
		}
	}
	if required, ok := schema["required"].([]any); ok {
		for _, r := range required {
			if s, ok := r.(string); ok {
				result.Required = append(result.Required, s)
			}
		}
	}
	switch items := schema["items"].(type) {
	case map[string]any:
		result.Items = convertSchemaObject(items)
	case []any:
		// Gemini has no positional items; a tuple degrades to its first type.
		if len(items) > 0 {
			if m, ok := items[0].(map[string]any); ok {
				result.Items = convertSchemaObject(m)
			}
		}
	}
	if anyOf, ok := schema["anyOf"].([]any); ok {
		for _, alt := range anyOf {
			if m, ok := alt.(map[string]any); ok {
				result.AnyOf = append(result.AnyOf, convertSchemaObject(m))
			}
		}
	}
	return result
}
