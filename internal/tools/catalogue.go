package tools

import (
	"github.com/gofr-hq/gofr-doc/internal/apperr"
	"github.com/gofr-hq/gofr-doc/internal/imagecheck"
	"github.com/gofr-hq/gofr-doc/internal/logging"
	"github.com/gofr-hq/gofr-doc/internal/plot"
	"github.com/gofr-hq/gofr-doc/internal/registry"
	"github.com/gofr-hq/gofr-doc/internal/render"
	"github.com/gofr-hq/gofr-doc/internal/session"
	"github.com/gofr-hq/gofr-doc/internal/validation"
)

// Deps are the services the tool handlers close over.
type Deps struct {
	Templates *registry.TemplateRegistry
	Fragments *registry.FragmentRegistry
	Styles    *registry.StyleRegistry
	Validator *validation.Validator
	Engine    *session.Engine
	Renderer  *render.Pipeline
	Plots     *plot.Service
	Images    *imagecheck.Checker

	// RequireHTTPS is the default for add_image_fragment when the caller
	// does not pass require_https.
	RequireHTTPS bool
	ServiceName  string
	Version      string
	Logger       logging.Logger
}

// Catalogue assembles the full tool set in its canonical order.
func Catalogue(d Deps) []Tool {
	var out []Tool
	out = append(out, discoveryTools(d)...)
	out = append(out, sessionTools(d)...)
	out = append(out, renderTools(d)...)
	out = append(out, plotTools(d)...)
	return out
}

// visibleGroups is the catalogue scope of a caller: their own group plus
// the shared public one. Anonymous callers see public only.
func visibleGroups(group string) []string {
	if group == "" || group == registry.PublicGroup {
		return []string{registry.PublicGroup}
	}
	return []string{group, registry.PublicGroup}
}

// templateOwner resolves which visible group holds templateID.
func (d Deps) templateOwner(templateID, group string) (string, error) {
	for _, g := range visibleGroups(group) {
		if _, err := d.Templates.Get(templateID, g); err == nil {
			return g, nil
		}
	}
	return "", apperr.New(apperr.CodeTemplateNotFound, "template not found: %s", templateID).
		WithRecovery("Call list_templates to see the available templates")
}

func schema(name string, typ registry.ParamType, required bool, description string) registry.ParameterSchema {
	return registry.ParameterSchema{Name: name, Type: typ, Required: required, Description: description}
}
