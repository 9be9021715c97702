package schema

import (
	"fmt"
	"sort"
	"strings"

	jsonschema "github.com/swaggest/jsonschema-go"

	"github.com/elee1766/parley/src/model"
)

// ToolParameterTypes are the type names a tool parameter may carry.
var ToolParameterTypes = []string{"string", "number", "boolean", "array", "object"}

// FromToolParameters builds the object schema describing a tool's arguments.
func FromToolParameters(params []model.ToolParameter) *jsonschema.Schema {
	props := make(map[string]*jsonschema.Schema, len(params))
	var required []string
	for _, p := range params {
		prop := typed(normalizeType(p.Type), p.Description)
		if p.Default != nil {
			def := p.Default
			prop.Default = &def
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return CreateObjectSchema(props, required)
}

// ToolParameterType maps a JSON schema type onto the tool parameter types.
// Integers become numbers; untyped schemas become strings.
func ToolParameterType(s *jsonschema.Schema) string {
	switch t := TypeName(s); t {
	case "integer", "number":
		return "number"
	case "boolean", "array", "object", "string":
		return t
	default:
		if s != nil && len(s.Properties) > 0 {
			return "object"
		}
		return "string"
	}
}

func normalizeType(t string) string {
	for _, known := range ToolParameterTypes {
		if t == known {
			return t
		}
	}
	if t == "integer" {
		return "number"
	}
	return "string"
}

// FormatForPrompt renders a schema as indented text for a system prompt.
func FormatForPrompt(schema *jsonschema.Schema, indentLevel int) string {
	if schema == nil {
		return "unknown"
	}

	indent := strings.Repeat("  ", indentLevel)
	parts := []string{}

	if schema.Description != nil && *schema.Description != "" {
		parts = append(parts, fmt.Sprintf("%s# %s", indent, *schema.Description))
	}

	schemaType := TypeName(schema)
	if schemaType == "" {
		schemaType = "object"
	}

	detailParts := []string{}
	if len(schema.Enum) > 0 {
		detailParts = append(detailParts, fmt.Sprintf("(enum: %s)", formatEnum(schema.Enum)))
	}
	if schema.Items == nil && len(schema.Properties) > 0 && len(schema.Required) > 0 {
		detailParts = append(detailParts, fmt.Sprintf("(required: %s)", strings.Join(schema.Required, ", ")))
	}

	if len(detailParts) > 0 {
		parts = append(parts, fmt.Sprintf("%s%s %s", indent, schemaType, strings.Join(detailParts, " ")))
	} else {
		parts = append(parts, fmt.Sprintf("%s%s", indent, schemaType))
	}

	propNames := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		propNames = append(propNames, name)
	}
	sort.Strings(propNames)

	for _, propName := range propNames {
		propSchema := schema.Properties[propName].TypeObject
		if propSchema == nil {
			continue
		}
		propType := TypeName(propSchema)
		if propType == "" {
			propType = "object"
		}
		if len(propSchema.Enum) > 0 {
			propType += fmt.Sprintf(" (enum: %s)", formatEnum(propSchema.Enum))
		}
		if propSchema.Default != nil {
			propType += fmt.Sprintf(" (default: %v)", *propSchema.Default)
		}

		line := fmt.Sprintf("%s  %s: %s", indent, propName, propType)
		if propSchema.Description != nil && *propSchema.Description != "" {
			line += fmt.Sprintf(" # %s", *propSchema.Description)
		}
		parts = append(parts, line)
	}

	if schema.Items != nil && schema.Items.SchemaOrBool != nil && schema.Items.SchemaOrBool.TypeObject != nil {
		itemSchemaString := FormatForPrompt(schema.Items.SchemaOrBool.TypeObject, indentLevel+1)
		parts = append(parts, fmt.Sprintf("%s  items: %s", indent, strings.TrimSpace(itemSchemaString)))
	}

	return strings.Join(parts, "\n")
}

func formatEnum(values []interface{}) string {
	enumStrs := make([]string, 0, len(values))
	for _, e := range values {
		enumStrs = append(enumStrs, fmt.Sprintf(`"%v"`, e))
	}
	return strings.Join(enumStrs, " | ")
}
