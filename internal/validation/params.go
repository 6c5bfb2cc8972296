// Package validation checks tool-supplied parameter maps against the typed
// schemas of templates and fragments. Errors are structured so agent clients
// can self-correct: every entry names the parameter, the expected and
// received types, and example values when the schema provides them.
package validation

import (
	"fmt"
	"sort"

	"github.com/gofr-hq/gofr-doc/internal/apperr"
	"github.com/gofr-hq/gofr-doc/internal/registry"
)

// ParameterError describes one failed parameter check.
type ParameterError struct {
	Parameter    string `json:"parameter_name"`
	ExpectedType string `json:"expected_type,omitempty"`
	ReceivedType string `json:"received_type,omitempty"`
	Message      string `json:"message"`
	Examples     []any  `json:"examples,omitempty"`
}

// Validator validates parameters against catalogue schemas.
type Validator struct {
	templates *registry.TemplateRegistry
	fragments *registry.FragmentRegistry
}

// New creates a Validator over the loaded catalogues.
func New(templates *registry.TemplateRegistry, fragments *registry.FragmentRegistry) *Validator {
	return &Validator{templates: templates, fragments: fragments}
}

// ValidateGlobalParameters checks params against a template's global
// parameter schemas.
func (v *Validator) ValidateGlobalParameters(templateID, group string, params map[string]any) ([]ParameterError, error) {
	tpl, err := v.templates.Get(templateID, group)
	if err != nil {
		return nil, err
	}
	return CheckAgainst(tpl.GlobalParameters, params), nil
}

// ValidateFragmentParameters checks params against a fragment's schemas. The
// template's embedded definitions win; the standalone catalogue is the
// fallback.
func (v *Validator) ValidateFragmentParameters(templateID, fragmentID, group string, params map[string]any) ([]ParameterError, error) {
	schemas, err := v.FragmentSchemas(templateID, fragmentID, group)
	if err != nil {
		return nil, err
	}
	return CheckAgainst(schemas, params), nil
}

// FragmentSchemas resolves the parameter schemas of a fragment in the
// context of a template.
func (v *Validator) FragmentSchemas(templateID, fragmentID, group string) ([]registry.ParameterSchema, error) {
	tpl, err := v.templates.Get(templateID, group)
	if err != nil {
		return nil, err
	}
	if def, ok := tpl.Fragment(fragmentID); ok {
		return def.Parameters, nil
	}
	if v.fragments != nil {
		if def, err := v.fragments.Get(fragmentID, tpl.Group); err == nil {
			return def.Parameters, nil
		}
	}
	return nil, apperr.New(apperr.CodeFragmentNotFound, "fragment %q is not part of template %q", fragmentID, templateID).
		WithRecovery("Call list_template_fragments to see the template's fragments")
}

// CheckAgainst validates a parameter map against a schema list. Unknown
// names and missing required parameters are errors; values are never
// silently coerced.
func CheckAgainst(schemas []registry.ParameterSchema, params map[string]any) []ParameterError {
	var errs []ParameterError
	byName := make(map[string]registry.ParameterSchema, len(schemas))
	for _, s := range schemas {
		byName[s.Name] = s
	}

	// Deterministic error ordering keeps responses stable for clients.
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		schema, ok := byName[name]
		if !ok {
			errs = append(errs, ParameterError{
				Parameter: name,
				Message:   fmt.Sprintf("unknown parameter %q", name),
			})
			continue
		}
		if err := checkType(schema, params[name]); err != nil {
			errs = append(errs, *err)
		}
	}

	for _, schema := range schemas {
		if !schema.Required {
			continue
		}
		if _, ok := params[schema.Name]; !ok {
			errs = append(errs, ParameterError{
				Parameter:    schema.Name,
				ExpectedType: string(schema.Type),
				Message:      fmt.Sprintf("required parameter %q is missing", schema.Name),
				Examples:     schema.Examples,
			})
		}
	}
	return errs
}

// checkType verifies a decoded JSON value against the schema's semantic
// type. Numbers arrive as float64 from JSON decoding; an integer parameter
// accepts a float64 only when it is integral.
func checkType(schema registry.ParameterSchema, value any) *ParameterError {
	mismatch := func(received string) *ParameterError {
		return &ParameterError{
			Parameter:    schema.Name,
			ExpectedType: string(schema.Type),
			ReceivedType: received,
			Message:      fmt.Sprintf("parameter %q expects %s, received %s", schema.Name, schema.Type, received),
			Examples:     schema.Examples,
		}
	}

	switch schema.Type {
	case registry.TypeString:
		if _, ok := value.(string); !ok {
			return mismatch(typeName(value))
		}
	case registry.TypeInteger:
		switch n := value.(type) {
		case int, int64:
		case float64:
			if n != float64(int64(n)) {
				return mismatch("number")
			}
		default:
			return mismatch(typeName(value))
		}
	case registry.TypeNumber:
		switch value.(type) {
		case int, int64, float64:
		default:
			return mismatch(typeName(value))
		}
	case registry.TypeBoolean:
		if _, ok := value.(bool); !ok {
			return mismatch(typeName(value))
		}
	case registry.TypeArray:
		if _, ok := value.([]any); !ok {
			return mismatch(typeName(value))
		}
	case registry.TypeObject:
		if _, ok := value.(map[string]any); !ok {
			return mismatch(typeName(value))
		}
	default:
		return &ParameterError{
			Parameter: schema.Name,
			Message:   fmt.Sprintf("parameter %q has unsupported schema type %q", schema.Name, schema.Type),
		}
	}
	return nil
}

func typeName(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int64:
		return "integer"
	case float64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", value)
	}
}
