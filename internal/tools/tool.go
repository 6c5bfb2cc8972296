// Package tools holds the authoritative tool catalogue and the dispatcher
// that fronts every transport: auth resolution, group injection, argument
// validation and uniform response envelopes.
package tools

import (
	"context"

	"github.com/gofr-hq/gofr-doc/internal/registry"
)

// Call carries the validated inputs of one tool invocation. Group is the
// authoritative tenancy scope derived from the verified token; it is empty
// only for token-optional tools called anonymously.
type Call struct {
	Args  map[string]any
	Group string
}

// Handler executes one tool and returns its payload.
type Handler func(ctx context.Context, call Call) (any, error)

// Tool is one catalogue entry.
type Tool struct {
	Name         string
	Description  string
	Params       []registry.ParameterSchema
	RequiresAuth bool
	Handler      Handler
}

// InputSchema renders the parameter list as a JSON schema object, the shape
// protocol transports advertise.
func (t Tool) InputSchema() map[string]any {
	properties := make(map[string]any, len(t.Params))
	var required []string
	for _, p := range t.Params {
		prop := map[string]any{"type": string(p.Type)}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		if len(p.Examples) > 0 {
			prop["examples"] = p.Examples
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// reservedArgs are handled by the dispatcher and never validated against or
// passed through to a tool's own schema.
var reservedArgs = map[string]bool{
	"auth_token": true,
	"token":      true,
	"group":      true,
}
