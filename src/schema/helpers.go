package schema

import (
	jsonschema "github.com/swaggest/jsonschema-go"
)

// Helper functions to create JSON schemas

func typed(t string, description string) *jsonschema.Schema {
	st := jsonschema.SimpleType(t)
	s := &jsonschema.Schema{Type: &jsonschema.Type{SimpleTypes: &st}}
	if description != "" {
		s.Description = &description
	}
	return s
}

// CreateStringSchema creates a JSON schema for a string field
func CreateStringSchema(description string) *jsonschema.Schema {
	return typed("string", description)
}

// CreateNumberSchema creates a JSON schema for a numeric field
func CreateNumberSchema(description string) *jsonschema.Schema {
	return typed("number", description)
}

// CreateBoolSchema creates a JSON schema for a boolean field with default value
func CreateBoolSchema(description string, defaultValue bool) *jsonschema.Schema {
	s := typed("boolean", description)
	defVal := interface{}(defaultValue)
	s.Default = &defVal
	return s
}

// CreateArraySchema creates a JSON schema for an array; items may be nil
func CreateArraySchema(description string, items *jsonschema.Schema) *jsonschema.Schema {
	s := typed("array", description)
	if items != nil {
		s.Items = &jsonschema.Items{SchemaOrBool: &jsonschema.SchemaOrBool{TypeObject: items}}
	}
	return s
}

// CreateObjectSchema creates a JSON schema for an object with properties and required fields
func CreateObjectSchema(properties map[string]*jsonschema.Schema, required []string) *jsonschema.Schema {
	schemaProps := make(map[string]jsonschema.SchemaOrBool)
	for name, prop := range properties {
		schemaProps[name] = jsonschema.SchemaOrBool{TypeObject: prop}
	}

	s := typed("object", "")
	s.Properties = schemaProps
	s.Required = required
	return s
}

// CreateStringSchemaEnum creates a JSON schema for a string field with enum values
func CreateStringSchemaEnum(description string, enumValues []string) *jsonschema.Schema {
	s := typed("string", description)
	s.Enum = make([]interface{}, len(enumValues))
	for i, v := range enumValues {
		s.Enum[i] = v
	}
	return s
}

// TypeName returns the first simple type of a schema, or "" when untyped.
func TypeName(s *jsonschema.Schema) string {
	if s == nil || s.Type == nil {
		return ""
	}
	if s.Type.SimpleTypes != nil {
		return string(*s.Type.SimpleTypes)
	}
	if len(s.Type.SliceOfSimpleTypeValues) > 0 {
		return string(s.Type.SliceOfSimpleTypeValues[0])
	}
	return ""
}
