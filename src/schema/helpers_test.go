package schema

import (
	"strings"
	"testing"

	jsonschema "github.com/swaggest/jsonschema-go"

	"github.com/elee1766/parley/src/model"
)

func ptr[T any](v T) *T {
	return &v
}

func TestCreateStringSchema(t *testing.T) {
	schema := CreateStringSchema("test description")

	if schema == nil {
		t.Fatal("Expected schema to be non-nil")
	}

	if schema.Description == nil || *schema.Description != "test description" {
		t.Errorf("Expected description 'test description', got %v", schema.Description)
	}

	if TypeName(schema) != "string" {
		t.Errorf("Expected type 'string', got %q", TypeName(schema))
	}
}

func TestCreateBoolSchema(t *testing.T) {
	schema := CreateBoolSchema("test bool", true)

	if TypeName(schema) != "boolean" {
		t.Errorf("Expected type 'boolean', got %q", TypeName(schema))
	}

	if schema.Default == nil || *schema.Default != true {
		t.Errorf("Expected default true, got %v", schema.Default)
	}
}

func TestCreateObjectSchema(t *testing.T) {
	properties := map[string]*jsonschema.Schema{
		"name": CreateStringSchema("The name"),
		"age":  CreateNumberSchema("The age"),
	}
	schema := CreateObjectSchema(properties, []string{"name"})

	if TypeName(schema) != "object" {
		t.Errorf("Expected type 'object', got %q", TypeName(schema))
	}

	if len(schema.Properties) != 2 {
		t.Errorf("Expected 2 properties, got %d", len(schema.Properties))
	}

	if len(schema.Required) != 1 || schema.Required[0] != "name" {
		t.Errorf("Expected required field 'name', got %v", schema.Required)
	}
}

func TestFromToolParameters(t *testing.T) {
	s := FromToolParameters([]model.ToolParameter{
		{Name: "query", Type: "string", Description: "Search terms", Required: true},
		{Name: "limit", Type: "integer", Default: 10},
		{Name: "odd", Type: "weird"},
	})

	if len(s.Required) != 1 || s.Required[0] != "query" {
		t.Errorf("Expected required [query], got %v", s.Required)
	}

	tests := []struct {
		prop     string
		wantType string
	}{
		{"query", "string"},
		{"limit", "number"},
		{"odd", "string"},
	}
	for _, tt := range tests {
		got := TypeName(s.Properties[tt.prop].TypeObject)
		if got != tt.wantType {
			t.Errorf("property %s: expected type %q, got %q", tt.prop, tt.wantType, got)
		}
	}

	limit := s.Properties["limit"].TypeObject
	if limit.Default == nil || *limit.Default != 10 {
		t.Errorf("Expected default 10, got %v", limit.Default)
	}
}

func TestToolParameterType(t *testing.T) {
	tests := []struct {
		name   string
		schema *jsonschema.Schema
		want   string
	}{
		{"nil", nil, "string"},
		{"integer", typed("integer", ""), "number"},
		{"number", typed("number", ""), "number"},
		{"boolean", typed("boolean", ""), "boolean"},
		{"array", CreateArraySchema("", CreateStringSchema("")), "array"},
		{"untyped with properties", &jsonschema.Schema{Properties: map[string]jsonschema.SchemaOrBool{"a": {}}}, "object"},
		{"multi type", &jsonschema.Schema{Type: &jsonschema.Type{SliceOfSimpleTypeValues: []jsonschema.SimpleType{"integer", "null"}}}, "number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToolParameterType(tt.schema); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestFormatForPrompt(t *testing.T) {
	tests := []struct {
		name     string
		schema   *jsonschema.Schema
		expected []string
	}{
		{
			name: "simple string schema",
			schema: &jsonschema.Schema{
				Type:        &jsonschema.Type{SimpleTypes: ptr(jsonschema.SimpleType("string"))},
				Description: ptr("A simple string field"),
			},
			expected: []string{"# A simple string field", "string"},
		},
		{
			name: "tool parameters",
			schema: FromToolParameters([]model.ToolParameter{
				{Name: "query", Type: "string", Description: "Search terms", Required: true},
				{Name: "limit", Type: "number", Default: 5},
			}),
			expected: []string{
				"object (required: query)",
				"query: string # Search terms",
				"limit: number (default: 5)",
			},
		},
		{
			name:     "array with items",
			schema:   CreateArraySchema("", CreateStringSchema("")),
			expected: []string{"array", "items: string"},
		},
		{
			name:     "enum field",
			schema:   CreateStringSchemaEnum("", []string{"pending", "done"}),
			expected: []string{`string (enum: "pending" | "done")`},
		},
		{
			name:     "nil schema",
			schema:   nil,
			expected: []string{"unknown"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatForPrompt(tt.schema, 0)
			for _, want := range tt.expected {
				if !strings.Contains(result, want) {
					t.Errorf("Expected output to contain %q, got:\n%s", want, result)
				}
			}
		})
	}
}

func TestFormatForPromptSortsProperties(t *testing.T) {
	s := FromToolParameters([]model.ToolParameter{{Name: "b"}, {Name: "a"}})
	out := FormatForPrompt(s, 0)
	if strings.Index(out, "a: string") > strings.Index(out, "b: string") {
		t.Errorf("Expected sorted properties, got:\n%s", out)
	}
}
