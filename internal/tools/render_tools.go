package tools

import (
	"context"

	"github.com/gofr-hq/gofr-doc/internal/registry"
)

func renderTools(d Deps) []Tool {
	return []Tool{
		{
			Name:         "get_document",
			Description:  "Render the session to html, pdf or md, inline or as a download proxy.",
			RequiresAuth: true,
			Params: []registry.ParameterSchema{
				schema("session_id", registry.TypeString, true, "Session UUID or alias"),
				schema("format", registry.TypeString, false, "html (default), pdf or md"),
				schema("style_id", registry.TypeString, false, "Style to apply; defaults to the group's first style"),
				schema("proxy", registry.TypeBoolean, false, "Store the result and return a download URL instead of inline content"),
			},
			Handler: func(ctx context.Context, call Call) (any, error) {
				doc, err := d.Renderer.Render(ctx,
					stringArg(call.Args, "session_id"),
					stringArg(call.Args, "format"),
					stringArg(call.Args, "style_id"),
					boolArg(call.Args, "proxy", false),
					call.Group)
				if err != nil {
					return nil, err
				}
				return doc, nil
			},
		},
		{
			Name:         "get_proxy_document",
			Description:  "Fetch a previously rendered document by its proxy GUID.",
			RequiresAuth: true,
			Params: []registry.ParameterSchema{
				schema("proxy_guid", registry.TypeString, true, "GUID returned by get_document with proxy=true"),
			},
			Handler: func(ctx context.Context, call Call) (any, error) {
				doc, err := d.Renderer.GetProxyDocument(ctx, stringArg(call.Args, "proxy_guid"), call.Group)
				if err != nil {
					return nil, err
				}
				return doc, nil
			},
		},
	}
}
