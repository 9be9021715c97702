// Package schema builds JSON Schema definitions for agent tools.
//
// Tool parameters are stored in the flat form the agent registry uses
// (name, type, description, required, default). FromToolParameters turns
// them into an object schema for providers and for the system prompt, and
// ToolParameterType maps a schema back to the flat type names.
//
// Example usage:
//
//	import "github.com/elee1766/parley/src/schema"
//
//	s := schema.FromToolParameters([]model.ToolParameter{
//		{Name: "query", Type: "string", Description: "Search terms", Required: true},
//		{Name: "limit", Type: "number", Default: 10},
//	})
//	fmt.Println(schema.FormatForPrompt(s, 1))
package schema
