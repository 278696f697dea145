package agentic

import (
	"context"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ToolFunc executes a tool with already-validated arguments.
type ToolFunc func(ctx context.Context, args map[string]any) (string, error)

// Tool is a registered capability the model may invoke.
type Tool struct {
	Name        string
	Description string
	SchemaJSON  string // JSON schema for the arguments object
	Fn          ToolFunc
	Retryable   bool // false for non-idempotent tools; disables automatic retries
}

// ValidateArgs validates the provided arguments against the tool's JSON schema.
func (t Tool) ValidateArgs(args map[string]any) error {
	schemaLoader := gojsonschema.NewStringLoader(t.SchemaJSON)
	documentLoader := gojsonschema.NewGoLoader(args)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		var errorMsgs []string
		for _, err := range result.Errors() {
			errorMsgs = append(errorMsgs, err.String())
		}
		return &ToolValidationError{
			ToolName: t.Name,
			Errors:   errorMsgs,
		}
	}

	return nil
}

// ToolSchema is the declaration of a tool as sent to the model.
type ToolSchema struct {
	Name        string
	Description string
	JSONSchema  string
}

// ToolRegistry maps tool names to capabilities. A registry holds no run
// state and may be shared read-only across concurrent runs.
type ToolRegistry map[string]Tool

// Register adds a tool under its declared name.
func (r ToolRegistry) Register(t Tool) {
	r[t.Name] = t
}

// Schemas returns the declarations of all registered tools.
func (r ToolRegistry) Schemas() []ToolSchema {
	s := make([]ToolSchema, 0, len(r))
	for _, t := range r {
		s = append(s, ToolSchema{
			Name:        t.Name,
			Description: t.Description,
			JSONSchema:  t.SchemaJSON,
		})
	}
	return s
}

// Names returns the registered tool names, for error messages.
func (r ToolRegistry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	return names
}

// Restrict returns the subset of the registry visible to a run that allows
// only the named tools. A nil allowed list means everything is visible.
// Requesting a name that is not registered is an error so misconfigured
// runs fail at construction instead of silently losing tools.
func (r ToolRegistry) Restrict(allowed []string) (ToolRegistry, error) {
	if allowed == nil {
		return r, nil
	}
	sub := make(ToolRegistry, len(allowed))
	var missing []string
	for _, name := range allowed {
		t, ok := r[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		sub[name] = t
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("allowed tools not registered: %s", strings.Join(missing, ", "))
	}
	return sub, nil
}
