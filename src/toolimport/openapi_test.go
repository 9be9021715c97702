package toolimport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elee1766/parley/src/model"
)

const petstore = `{
  "openapi": "3.0.2",
  "paths": {
    "/pets/{pet_id}": {
      "parameters": [
        {"name": "pet_id", "in": "path", "schema": {"type": "integer"}}
      ],
      "get": {
        "operationId": "read_pet",
        "summary": "Read Pet",
        "parameters": [
          {"name": "verbose", "in": "query", "description": "Include history", "schema": {"type": "boolean", "default": false}},
          {"name": "X-Trace", "in": "header", "schema": {"type": "string"}}
        ]
      },
      "delete": {"summary": "Remove a pet"}
    },
    "/pets": {
      "post": {
        "description": "Create a pet.",
        "requestBody": {
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["name"],
                "properties": {
                  "name": {"type": "string", "description": "Pet name"},
                  "tags": {"type": "array", "items": {"type": "string"}},
                  "age": {"type": "integer", "default": 1},
                  "owner": {"type": "object"}
                }
              }
            }
          }
        }
      }
    }
  }
}`

func TestParse(t *testing.T) {
	tools, err := New(nil, Options{IncludeDefaults: true}).Parse([]byte(petstore))
	require.NoError(t, err)
	require.Len(t, tools, 3)

	create := tools[0]
	assert.Equal(t, "post_pets", create.Name)
	assert.Equal(t, "Create a pet.", create.Description)
	assert.True(t, create.IsActive)
	assert.Equal(t, []model.ToolParameter{
		{Name: "age", Type: "number", Default: float64(1)},
		{Name: "name", Type: "string", Description: "Pet name", Required: true},
		{Name: "owner", Type: "object"},
		{Name: "tags", Type: "array"},
	}, create.Parameters)

	read := tools[1]
	assert.Equal(t, "read_pet", read.Name)
	assert.Equal(t, "Read Pet", read.Description)
	assert.Equal(t, []model.ToolParameter{
		{Name: "verbose", Type: "boolean", Description: "Include history", Default: false},
		{Name: "pet_id", Type: "number", Required: true},
	}, read.Parameters)

	remove := tools[2]
	assert.Equal(t, "delete_pets_pet_id", remove.Name)
	assert.Equal(t, "Remove a pet", remove.Description)
	require.Len(t, remove.Parameters, 1)
	assert.Equal(t, "pet_id", remove.Parameters[0].Name)
}

func TestParseWithoutDefaults(t *testing.T) {
	tools, err := New(nil, Options{}).Parse([]byte(petstore))
	require.NoError(t, err)
	for _, tool := range tools {
		for _, p := range tool.Parameters {
			assert.Nil(t, p.Default, p.Name)
		}
	}
}

func TestParseErrors(t *testing.T) {
	im := New(nil, Options{})

	_, err := im.Parse([]byte(`not json`))
	assert.Error(t, err)

	_, err = im.Parse([]byte(`{"paths": {}}`))
	assert.ErrorIs(t, err, ErrNoOperations)

	_, err = im.Parse([]byte(`{"paths": {"/x": {"parameters": []}}}`))
	assert.ErrorIs(t, err, ErrNoOperations)
}

func TestToolName(t *testing.T) {
	tests := []struct {
		method, path, opID string
		want               string
	}{
		{"get", "/items/{item_id}", "", "get_items_item_id"},
		{"POST", "/v1/chat-completions", "", "post_v1_chat_completions"},
		{"get", "/", "", "get"},
		{"get", "/items", "list_items_items_get", "list_items_items_get"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ToolName(tt.method, tt.path, tt.opID))
	}
}

func TestDocumentURL(t *testing.T) {
	assert.Equal(t, "http://api.local/openapi.json", DocumentURL("http://api.local"))
	assert.Equal(t, "http://api.local/openapi.json", DocumentURL("http://api.local/"))
	assert.Equal(t, "http://api.local/openapi.json", DocumentURL("http://api.local/openapi.json"))
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/openapi.json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(petstore))
	}))
	defer srv.Close()

	im := New(srv.Client(), Options{})
	tools, err := im.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, tools, 3)

	_, err = im.Fetch(context.Background(), srv.URL+"/missing")
	assert.Error(t, err)
}
