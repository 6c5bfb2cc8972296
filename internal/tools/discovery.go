package tools

import (
	"context"

	"github.com/gofr-hq/gofr-doc/internal/apperr"
	"github.com/gofr-hq/gofr-doc/internal/registry"
)

const helpText = `gofr-doc assembles documents from templates and fragments.

Typical workflow:
 1. list_templates / get_template_details to pick a template and learn its
    global parameters.
 2. create_document_session(template_id, alias) with your bearer token.
 3. set_global_parameters(session_id, parameters) to make the session
    render-ready.
 4. add_fragment / add_image_fragment / add_plot_fragment to build the body;
    list_session_fragments shows the current order, remove_fragment edits it.
 5. get_document(session_id, format=html|pdf|md) renders the result; pass
    proxy=true to receive a download URL instead of inline content.
 6. abort_document_session when done.

Sessions can be addressed by UUID or by their alias. All stateful tools need
a token (auth_token argument or Authorization header); discovery tools work
without one.`

func discoveryTools(d Deps) []Tool {
	return []Tool{
		{
			Name:        "ping",
			Description: "Liveness check. Returns the service identity.",
			Handler: func(ctx context.Context, call Call) (any, error) {
				return map[string]any{
					"status":  "ok",
					"service": d.ServiceName,
					"version": d.Version,
				}, nil
			},
		},
		{
			Name:        "help",
			Description: "Workflow guide for assembling documents.",
			Handler: func(ctx context.Context, call Call) (any, error) {
				return map[string]any{
					"guide": helpText,
					"tools": len(Catalogue(d)),
				}, nil
			},
		},
		{
			Name:        "list_templates",
			Description: "List the templates visible to the caller.",
			Handler: func(ctx context.Context, call Call) (any, error) {
				var out []registry.Summary
				for _, g := range visibleGroups(call.Group) {
					out = append(out, d.Templates.List(g)...)
				}
				return map[string]any{"templates": out}, nil
			},
		},
		{
			Name:        "get_template_details",
			Description: "Full schema of one template: global parameters and embedded fragments.",
			Params: []registry.ParameterSchema{
				schema("template_id", registry.TypeString, true, "Template identifier"),
			},
			Handler: func(ctx context.Context, call Call) (any, error) {
				templateID := stringArg(call.Args, "template_id")
				owner, err := d.templateOwner(templateID, call.Group)
				if err != nil {
					return nil, err
				}
				tpl, err := d.Templates.Get(templateID, owner)
				if err != nil {
					return nil, err
				}
				return map[string]any{"template": tpl}, nil
			},
		},
		{
			Name:        "list_template_fragments",
			Description: "List the fragments available to one template.",
			Params: []registry.ParameterSchema{
				schema("template_id", registry.TypeString, true, "Template identifier"),
			},
			Handler: func(ctx context.Context, call Call) (any, error) {
				templateID := stringArg(call.Args, "template_id")
				owner, err := d.templateOwner(templateID, call.Group)
				if err != nil {
					return nil, err
				}
				tpl, err := d.Templates.Get(templateID, owner)
				if err != nil {
					return nil, err
				}
				out := make([]registry.Summary, 0, len(tpl.Fragments))
				for _, f := range tpl.Fragments {
					out = append(out, registry.Summary{
						ID: f.FragmentID, Name: f.Name, Description: f.Description, Group: f.Group,
					})
				}
				// Standalone fragments of the template's group are usable too.
				out = append(out, d.Fragments.List(tpl.Group)...)
				return map[string]any{"fragments": out}, nil
			},
		},
		{
			Name:        "get_fragment_details",
			Description: "Parameter schema of one fragment in the context of a template.",
			Params: []registry.ParameterSchema{
				schema("template_id", registry.TypeString, true, "Template identifier"),
				schema("fragment_id", registry.TypeString, true, "Fragment identifier"),
			},
			Handler: func(ctx context.Context, call Call) (any, error) {
				templateID := stringArg(call.Args, "template_id")
				fragmentID := stringArg(call.Args, "fragment_id")
				owner, err := d.templateOwner(templateID, call.Group)
				if err != nil {
					return nil, err
				}
				tpl, err := d.Templates.Get(templateID, owner)
				if err != nil {
					return nil, err
				}
				if def, ok := tpl.Fragment(fragmentID); ok {
					return map[string]any{"fragment": def}, nil
				}
				if def, err := d.Fragments.Get(fragmentID, tpl.Group); err == nil {
					return map[string]any{"fragment": def}, nil
				}
				return nil, apperr.New(apperr.CodeFragmentNotFound,
					"fragment %q is not part of template %q", fragmentID, templateID).
					WithRecovery("Call list_template_fragments to see the template's fragments")
			},
		},
		{
			Name:        "list_styles",
			Description: "List the styles visible to the caller.",
			Handler: func(ctx context.Context, call Call) (any, error) {
				var out []registry.Summary
				for _, g := range visibleGroups(call.Group) {
					out = append(out, d.Styles.List(g)...)
				}
				return map[string]any{"styles": out}, nil
			},
		},
	}
}
