package tools

import (
	"context"

	"github.com/gofr-hq/gofr-doc/internal/apperr"
	"github.com/gofr-hq/gofr-doc/internal/registry"
	"github.com/gofr-hq/gofr-doc/internal/validation"
)

// fragmentParamErr wraps structural validation failures in the matching
// taxonomy code.
func fragmentParamErr(code apperr.Code, errs []validation.ParameterError) *apperr.Error {
	return apperr.New(code, "parameter validation failed").
		WithDetail("errors", errs).
		WithRecovery("fix the listed parameters and retry")
}

func sessionTools(d Deps) []Tool {
	return []Tool{
		{
			Name:         "create_document_session",
			Description:  "Start a document assembly session from a template.",
			RequiresAuth: true,
			Params: []registry.ParameterSchema{
				schema("template_id", registry.TypeString, true, "Template to assemble"),
				schema("alias", registry.TypeString, true, "Human-friendly session handle, unique within your group"),
			},
			Handler: func(ctx context.Context, call Call) (any, error) {
				templateID := stringArg(call.Args, "template_id")
				if _, err := d.templateOwner(templateID, call.Group); err != nil {
					return nil, err
				}
				s, err := d.Engine.Create(ctx, templateID, stringArg(call.Args, "alias"), call.Group)
				if err != nil {
					return nil, err
				}
				return map[string]any{
					"session_id":  s.ID,
					"alias":       s.Alias,
					"template_id": s.TemplateID,
					"created_at":  s.CreatedAt,
				}, nil
			},
		},
		{
			Name:         "get_session_status",
			Description:  "Current state of a session: readiness, fragments, parameters.",
			RequiresAuth: true,
			Params: []registry.ParameterSchema{
				schema("session_id", registry.TypeString, true, "Session UUID or alias"),
			},
			Handler: func(ctx context.Context, call Call) (any, error) {
				s, err := d.Engine.Get(stringArg(call.Args, "session_id"), call.Group)
				if err != nil {
					return nil, err
				}
				return map[string]any{
					"session_id":        s.ID,
					"alias":             s.Alias,
					"template_id":       s.TemplateID,
					"render_ready":      s.RenderReady,
					"fragment_count":    len(s.Fragments),
					"global_parameters": s.GlobalParameters,
					"created_at":        s.CreatedAt,
					"updated_at":        s.UpdatedAt,
				}, nil
			},
		},
		{
			Name:         "list_active_sessions",
			Description:  "List your group's sessions with their aliases.",
			RequiresAuth: true,
			Handler: func(ctx context.Context, call Call) (any, error) {
				return map[string]any{"sessions": d.Engine.List(call.Group)}, nil
			},
		},
		{
			Name:         "abort_document_session",
			Description:  "Permanently delete a session and free its alias.",
			RequiresAuth: true,
			Params: []registry.ParameterSchema{
				schema("session_id", registry.TypeString, true, "Session UUID or alias"),
			},
			Handler: func(ctx context.Context, call Call) (any, error) {
				if err := d.Engine.Abort(stringArg(call.Args, "session_id"), call.Group); err != nil {
					return nil, err
				}
				return map[string]any{}, nil
			},
		},
		{
			Name:         "set_global_parameters",
			Description:  "Set or merge the session's global template parameters.",
			RequiresAuth: true,
			Params: []registry.ParameterSchema{
				schema("session_id", registry.TypeString, true, "Session UUID or alias"),
				schema("parameters", registry.TypeObject, true, "Global parameter values"),
			},
			Handler: func(ctx context.Context, call Call) (any, error) {
				identifier := stringArg(call.Args, "session_id")
				params := mapArg(call.Args, "parameters")

				s, err := d.Engine.Get(identifier, call.Group)
				if err != nil {
					return nil, err
				}
				owner, err := d.templateOwner(s.TemplateID, call.Group)
				if err != nil {
					return nil, err
				}
				// Merged keys are validated individually; only the keys in
				// this call are checked against the schema.
				errs, err := d.Validator.ValidateGlobalParameters(s.TemplateID, owner, mergedGlobals(s.GlobalParameters, params))
				if err != nil {
					return nil, err
				}
				if len(errs) > 0 {
					return nil, fragmentParamErr(apperr.CodeInvalidGlobalParameters, errs)
				}

				updated, err := d.Engine.SetGlobalParameters(identifier, params, call.Group)
				if err != nil {
					return nil, err
				}
				return map[string]any{
					"session_id": updated.ID,
					"parameters": updated.GlobalParameters,
					"updated_at": updated.UpdatedAt,
				}, nil
			},
		},
		{
			Name:         "add_fragment",
			Description:  "Append or insert a fragment instance into the session body.",
			RequiresAuth: true,
			Params: []registry.ParameterSchema{
				schema("session_id", registry.TypeString, true, "Session UUID or alias"),
				schema("fragment_id", registry.TypeString, true, "Fragment to instantiate"),
				schema("parameters", registry.TypeObject, true, "Fragment parameter values"),
				schema("position", registry.TypeString, false, "start, end, before:<guid> or after:<guid>"),
			},
			Handler: func(ctx context.Context, call Call) (any, error) {
				identifier := stringArg(call.Args, "session_id")
				fragmentID := stringArg(call.Args, "fragment_id")
				params := mapArg(call.Args, "parameters")

				s, err := d.Engine.Get(identifier, call.Group)
				if err != nil {
					return nil, err
				}
				owner, err := d.templateOwner(s.TemplateID, call.Group)
				if err != nil {
					return nil, err
				}
				errs, err := d.Validator.ValidateFragmentParameters(s.TemplateID, fragmentID, owner, params)
				if err != nil {
					return nil, err
				}
				if fragmentID == "table" {
					errs = append(errs, validation.ValidateTableFragment(params)...)
				}
				if len(errs) > 0 {
					return nil, fragmentParamErr(apperr.CodeInvalidFragmentParams, errs)
				}

				out, err := d.Engine.AddFragment(identifier, fragmentID, params, stringArg(call.Args, "position"), call.Group)
				if err != nil {
					return nil, err
				}
				return out, nil
			},
		},
		{
			Name:         "add_image_fragment",
			Description:  "Validate a remote image, embed it, and add it to the session.",
			RequiresAuth: true,
			Params: []registry.ParameterSchema{
				schema("session_id", registry.TypeString, true, "Session UUID or alias"),
				schema("image_url", registry.TypeString, true, "Publicly reachable image URL"),
				schema("title", registry.TypeString, false, "Caption shown under the image"),
				schema("width", registry.TypeInteger, false, "Display width in pixels (max 4096)"),
				schema("height", registry.TypeInteger, false, "Display height in pixels (max 4096)"),
				schema("alt_text", registry.TypeString, false, "Accessibility text"),
				schema("alignment", registry.TypeString, false, "left, center or right"),
				schema("require_https", registry.TypeBoolean, false, "Reject plain http URLs (default true)"),
				schema("position", registry.TypeString, false, "start, end, before:<guid> or after:<guid>"),
			},
			Handler: func(ctx context.Context, call Call) (any, error) {
				identifier := stringArg(call.Args, "session_id")
				requireHTTPS := boolArg(call.Args, "require_https", d.RequireHTTPS)
				imageParams := validation.ImageParams{
					ImageURL:     stringArg(call.Args, "image_url"),
					Title:        stringArg(call.Args, "title"),
					Width:        intArg(call.Args, "width", 0),
					Height:       intArg(call.Args, "height", 0),
					AltText:      stringArg(call.Args, "alt_text"),
					Alignment:    stringArg(call.Args, "alignment"),
					RequireHTTPS: requireHTTPS,
				}

				// Session must be visible before any network traffic.
				if _, err := d.Engine.Get(identifier, call.Group); err != nil {
					return nil, err
				}

				if errs := validation.ValidateImageFragment(imageParams); len(errs) > 0 {
					first := errs[0]
					code := apperr.CodeValidationError
					if first.Parameter == "image_url" {
						code = apperr.CodeInvalidImageURL
					}
					return nil, apperr.New(code, "%s", first.Message).
						WithDetail("reason", first.Message).
						WithDetail("errors", errs)
				}

				dataURI, err := d.Images.Fetch(ctx, imageParams.ImageURL, requireHTTPS)
				if err != nil {
					return nil, err
				}

				params := map[string]any{
					"image_url":         imageParams.ImageURL,
					"embedded_data_uri": dataURI,
				}
				if imageParams.Title != "" {
					params["title"] = imageParams.Title
				}
				if imageParams.AltText != "" {
					params["alt_text"] = imageParams.AltText
				}
				if imageParams.Alignment != "" {
					params["alignment"] = imageParams.Alignment
				}
				if imageParams.Width > 0 {
					params["width"] = imageParams.Width
				}
				if imageParams.Height > 0 {
					params["height"] = imageParams.Height
				}

				out, err := d.Engine.AddFragment(identifier, "image_from_url", params, stringArg(call.Args, "position"), call.Group)
				if err != nil {
					return nil, err
				}
				return map[string]any{"instance_guid": out.InstanceGUID}, nil
			},
		},
		{
			Name:         "remove_fragment",
			Description:  "Remove a fragment instance from the session by GUID.",
			RequiresAuth: true,
			Params: []registry.ParameterSchema{
				schema("session_id", registry.TypeString, true, "Session UUID or alias"),
				schema("instance_guid", registry.TypeString, true, "Fragment instance GUID"),
			},
			Handler: func(ctx context.Context, call Call) (any, error) {
				err := d.Engine.RemoveFragment(stringArg(call.Args, "session_id"),
					stringArg(call.Args, "instance_guid"), call.Group)
				if err != nil {
					return nil, err
				}
				return map[string]any{}, nil
			},
		},
		{
			Name:         "list_session_fragments",
			Description:  "List the session's fragment instances in document order.",
			RequiresAuth: true,
			Params: []registry.ParameterSchema{
				schema("session_id", registry.TypeString, true, "Session UUID or alias"),
			},
			Handler: func(ctx context.Context, call Call) (any, error) {
				fragments, err := d.Engine.ListFragments(stringArg(call.Args, "session_id"), call.Group)
				if err != nil {
					return nil, err
				}
				return map[string]any{"fragments": fragments}, nil
			},
		},
		{
			Name:         "validate_parameters",
			Description:  "Dry-run validation of parameters against a template or fragment schema.",
			RequiresAuth: true,
			Params: []registry.ParameterSchema{
				schema("template_id", registry.TypeString, true, "Template identifier"),
				schema("parameters_type", registry.TypeString, true, "global or fragment"),
				schema("fragment_id", registry.TypeString, false, "Required when parameters_type is fragment"),
				schema("parameters", registry.TypeObject, true, "Values to validate"),
			},
			Handler: func(ctx context.Context, call Call) (any, error) {
				templateID := stringArg(call.Args, "template_id")
				params := mapArg(call.Args, "parameters")
				owner, err := d.templateOwner(templateID, call.Group)
				if err != nil {
					return nil, err
				}

				var errs []validation.ParameterError
				switch stringArg(call.Args, "parameters_type") {
				case "global":
					errs, err = d.Validator.ValidateGlobalParameters(templateID, owner, params)
				case "fragment":
					fragmentID := stringArg(call.Args, "fragment_id")
					if fragmentID == "" {
						return nil, apperr.New(apperr.CodeInvalidArguments,
							"fragment_id is required when parameters_type is fragment")
					}
					errs, err = d.Validator.ValidateFragmentParameters(templateID, fragmentID, owner, params)
				default:
					return nil, apperr.New(apperr.CodeInvalidArguments,
						"parameters_type must be global or fragment")
				}
				if err != nil {
					return nil, err
				}
				if errs == nil {
					errs = []validation.ParameterError{}
				}
				return map[string]any{"is_valid": len(errs) == 0, "errors": errs}, nil
			},
		},
	}
}

// mergedGlobals previews what the session's globals would be after the
// call, so required-parameter checks account for values set earlier.
func mergedGlobals(current, update map[string]any) map[string]any {
	merged := make(map[string]any, len(current)+len(update))
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range update {
		merged[k] = v
	}
	return merged
}
