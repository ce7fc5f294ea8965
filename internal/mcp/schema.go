package mcp

import (
	"slices"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// SimpleSchema creates an object schema from a map of argument names to
// type names.
//
// Type names are Go-ish ("string", "int", "float64", "bool", "[]string") or
// JSON Schema names ("number", "boolean", "object"). A trailing "?" marks
// the argument optional; all others are required.
func SimpleSchema(props map[string]string) *jsonschema.Schema {
	properties := make(map[string]*jsonschema.Schema, len(props))
	required := make([]string, 0, len(props))

	for name, typeName := range props {
		optional := strings.HasSuffix(typeName, "?")
		properties[name] = typeSchema(strings.TrimSuffix(typeName, "?"))

		if !optional {
			required = append(required, name)
		}
	}

	slices.Sort(required)

	return &jsonschema.Schema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

func typeSchema(typeName string) *jsonschema.Schema {
	switch typeName {
	case "string":
		return &jsonschema.Schema{Type: "string"}
	case "int", "int32", "int64", "uint", "uint32", "uint64", "integer":
		return &jsonschema.Schema{Type: "integer"}
	case "float32", "float64", "float", "number":
		return &jsonschema.Schema{Type: "number"}
	case "bool", "boolean":
		return &jsonschema.Schema{Type: "boolean"}
	case "any", "object", "map[string]any":
		return &jsonschema.Schema{Type: "object"}
	}

	if item, ok := strings.CutPrefix(typeName, "[]"); ok {
		return &jsonschema.Schema{Type: "array", Items: typeSchema(item)}
	}

	return &jsonschema.Schema{Type: "string"}
}
