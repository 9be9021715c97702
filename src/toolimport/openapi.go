// Package toolimport turns the operations of an OpenAPI document into agent
// tool definitions.
package toolimport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	jsonschema "github.com/swaggest/jsonschema-go"

	"github.com/elee1766/parley/src/model"
	"github.com/elee1766/parley/src/schema"
)

// DocumentPath is appended to a base URL that does not already name the document.
const DocumentPath = "/openapi.json"

// MaxDocumentSize caps a fetched document.
const MaxDocumentSize = 10 << 20

// ErrNoOperations is returned when a document declares no operations.
var ErrNoOperations = errors.New("openapi document has no operations")

var methods = []string{"get", "put", "post", "delete", "options", "head", "patch", "trace"}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_]+`)

type document struct {
	Paths map[string]map[string]json.RawMessage `json:"paths"`
}

type parameter struct {
	Name        string             `json:"name"`
	In          string             `json:"in"`
	Description string             `json:"description"`
	Required    bool               `json:"required"`
	Schema      *jsonschema.Schema `json:"schema"`
}

type operation struct {
	OperationID string      `json:"operationId"`
	Summary     string      `json:"summary"`
	Description string      `json:"description"`
	Parameters  []parameter `json:"parameters"`
	RequestBody *struct {
		Content map[string]struct {
			Schema *jsonschema.Schema `json:"schema"`
		} `json:"content"`
	} `json:"requestBody"`
}

// Options tunes a conversion.
type Options struct {
	// IncludeDefaults copies parameter defaults into the tool definitions.
	IncludeDefaults bool
	Logger          *slog.Logger
}

// Importer fetches and converts OpenAPI documents.
type Importer struct {
	client *http.Client
	opts   Options
	logger *slog.Logger
}

// New creates an importer. A nil client gets a 30 second timeout.
func New(client *http.Client, opts Options) *Importer {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Importer{
		client: client,
		opts:   opts,
		logger: opts.Logger.With("component", "toolimport"),
	}
}

// DocumentURL returns the document location for a service base URL.
func DocumentURL(base string) string {
	base = strings.TrimRight(base, "/")
	if strings.HasSuffix(base, DocumentPath) {
		return base
	}
	return base + DocumentPath
}

// Fetch downloads the document served under base and converts it.
func (im *Importer) Fetch(ctx context.Context, base string) ([]model.ToolInput, error) {
	url := DocumentURL(base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	im.logger.Debug("fetching openapi document", "url", url)
	resp, err := im.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch openapi document: %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read openapi document: %w", err)
	}
	return im.Parse(data)
}

// Parse converts a JSON OpenAPI document into one tool per operation,
// ordered by path and then by method.
func (im *Importer) Parse(data []byte) ([]model.ToolInput, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}

	paths := make([]string, 0, len(doc.Paths))
	for p := range doc.Paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var tools []model.ToolInput
	for _, path := range paths {
		item := doc.Paths[path]

		var shared []parameter
		if raw, ok := item["parameters"]; ok {
			if err := json.Unmarshal(raw, &shared); err != nil {
				return nil, fmt.Errorf("path %s: invalid parameters: %w", path, err)
			}
		}

		for _, method := range methods {
			raw, ok := item[method]
			if !ok {
				continue
			}
			var op operation
			if err := json.Unmarshal(raw, &op); err != nil {
				return nil, fmt.Errorf("%s %s: %w", strings.ToUpper(method), path, err)
			}
			tools = append(tools, im.convert(method, path, op, shared))
		}
	}
	if len(tools) == 0 {
		return nil, ErrNoOperations
	}
	im.logger.Info("converted openapi document", "tools", len(tools))
	return tools, nil
}

func (im *Importer) convert(method, path string, op operation, shared []parameter) model.ToolInput {
	upper := strings.ToUpper(method)
	tool := model.ToolInput{
		Name:        ToolName(method, path, op.OperationID),
		Description: op.Description,
		Parameters:  []model.ToolParameter{},
		IsActive:    true,
	}
	if tool.Description == "" {
		tool.Description = op.Summary
	}
	if tool.Description == "" {
		tool.Description = fmt.Sprintf("API endpoint: %s %s", upper, path)
	}

	for _, p := range append(op.Parameters, shared...) {
		if p.In != "path" && p.In != "query" {
			continue
		}
		tool.Parameters = append(tool.Parameters, im.param(p.Name, p.Description, p.Required || p.In == "path", p.Schema))
	}

	if op.RequestBody != nil {
		if body, ok := op.RequestBody.Content["application/json"]; ok && body.Schema != nil {
			names := make([]string, 0, len(body.Schema.Properties))
			for name := range body.Schema.Properties {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				prop := body.Schema.Properties[name].TypeObject
				desc := ""
				if prop != nil && prop.Description != nil {
					desc = *prop.Description
				}
				required := false
				for _, r := range body.Schema.Required {
					if r == name {
						required = true
						break
					}
				}
				tool.Parameters = append(tool.Parameters, im.param(name, desc, required, prop))
			}
		}
	}
	return tool
}

func (im *Importer) param(name, description string, required bool, s *jsonschema.Schema) model.ToolParameter {
	p := model.ToolParameter{
		Name:        name,
		Type:        schema.ToolParameterType(s),
		Description: description,
		Required:    required,
	}
	if description == "" && s != nil && s.Description != nil {
		p.Description = *s.Description
	}
	if im.opts.IncludeDefaults && s != nil && s.Default != nil {
		p.Default = *s.Default
	}
	return p
}

// ToolName names the tool for an operation: the operationId when present,
// otherwise the method and path joined with underscores.
func ToolName(method, path, operationID string) string {
	if operationID != "" {
		return operationID
	}
	name := strings.ToLower(method) + "_" + path
	name = unsafeName.ReplaceAllString(name, "_")
	return strings.Trim(name, "_")
}
