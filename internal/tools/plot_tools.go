package tools

import (
	"context"
	"encoding/base64"

	"github.com/gofr-hq/gofr-doc/internal/plot"
	"github.com/gofr-hq/gofr-doc/internal/registry"
)

// plotParams builds chart parameters from tool arguments. Series y1..y5
// follow the argument naming of the chart tools.
func plotParams(args map[string]any) plot.Params {
	p := plot.Params{
		Kind:   stringArg(args, "kind"),
		Title:  stringArg(args, "title"),
		X:      floatSliceArg(args, "x"),
		Labels: stringSliceArg(args, "labels"),
		Theme:  stringArg(args, "theme"),
		Format: stringArg(args, "format"),
		Width:  intArg(args, "width", 0),
		Height: intArg(args, "height", 0),
		XMin:   floatPtrArg(args, "x_min"),
		XMax:   floatPtrArg(args, "x_max"),
		YMin:   floatPtrArg(args, "y_min"),
		YMax:   floatPtrArg(args, "y_max"),
	}
	for _, name := range []string{"y1", "y2", "y3", "y4", "y5"} {
		if _, present := args[name]; present {
			p.Series = append(p.Series, floatSliceArg(args, name))
		}
	}
	return p
}

func plotArgSchemas() []registry.ParameterSchema {
	out := []registry.ParameterSchema{
		schema("kind", registry.TypeString, true, "line, scatter or bar"),
		schema("title", registry.TypeString, false, "Chart title"),
		schema("x", registry.TypeArray, true, "Shared x values"),
		schema("y1", registry.TypeArray, true, "First y series"),
		schema("y2", registry.TypeArray, false, "Second y series"),
		schema("y3", registry.TypeArray, false, "Third y series"),
		schema("y4", registry.TypeArray, false, "Fourth y series"),
		schema("y5", registry.TypeArray, false, "Fifth y series"),
		schema("labels", registry.TypeArray, false, "Series labels (bar charts: per-bar labels)"),
		schema("theme", registry.TypeString, false, "light, dark, bizlight or bizdark"),
		schema("format", registry.TypeString, false, "png (default), svg or jpg"),
		schema("width", registry.TypeInteger, false, "Image width in pixels"),
		schema("height", registry.TypeInteger, false, "Image height in pixels"),
		schema("x_min", registry.TypeNumber, false, "Lower x axis bound"),
		schema("x_max", registry.TypeNumber, false, "Upper x axis bound"),
		schema("y_min", registry.TypeNumber, false, "Lower y axis bound"),
		schema("y_max", registry.TypeNumber, false, "Upper y axis bound"),
	}
	return out
}

func plotTools(d Deps) []Tool {
	renderGraphParams := append(plotArgSchemas(),
		schema("store", registry.TypeBoolean, false, "Persist the image and return a GUID instead of inline bytes"),
		schema("image_alias", registry.TypeString, false, "Optional alias for a stored image"),
	)

	addPlotFragmentParams := append([]registry.ParameterSchema{
		schema("session_id", registry.TypeString, true, "Session UUID or alias"),
		schema("plot_guid", registry.TypeString, false, "Stored plot GUID or alias; omit to render inline"),
		schema("position", registry.TypeString, false, "start, end, before:<guid> or after:<guid>"),
	}, relaxRequired(plotArgSchemas())...)

	return []Tool{
		{
			Name:         "render_graph",
			Description:  "Render a chart to png, svg or jpg, inline or stored for reuse.",
			RequiresAuth: true,
			Params:       renderGraphParams,
			Handler: func(ctx context.Context, call Call) (any, error) {
				g, err := d.Plots.RenderGraph(ctx, plotParams(call.Args),
					boolArg(call.Args, "store", false),
					stringArg(call.Args, "image_alias"),
					call.Group)
				if err != nil {
					return nil, err
				}
				return g, nil
			},
		},
		{
			Name:         "get_image",
			Description:  "Fetch a stored plot image by GUID or alias.",
			RequiresAuth: true,
			Params: []registry.ParameterSchema{
				schema("identifier", registry.TypeString, true, "Plot GUID or alias"),
			},
			Handler: func(ctx context.Context, call Call) (any, error) {
				data, record, err := d.Plots.GetImage(ctx, stringArg(call.Args, "identifier"), call.Group)
				if err != nil {
					return nil, err
				}
				return map[string]any{
					"guid":       record.GUID,
					"alias":      record.Extra["alias"],
					"media_type": record.Extra["media_type"],
					"size":       len(data),
					"content":    base64.StdEncoding.EncodeToString(data),
				}, nil
			},
		},
		{
			Name:         "list_images",
			Description:  "List your group's stored plot images.",
			RequiresAuth: true,
			Handler: func(ctx context.Context, call Call) (any, error) {
				records, err := d.Plots.ListImages(ctx, call.Group)
				if err != nil {
					return nil, err
				}
				return map[string]any{"images": records}, nil
			},
		},
		{
			Name:        "list_themes",
			Description: "List the chart color themes.",
			Handler: func(ctx context.Context, call Call) (any, error) {
				return map[string]any{"themes": plot.Themes()}, nil
			},
		},
		{
			Name:        "list_handlers",
			Description: "List the supported chart kinds.",
			Handler: func(ctx context.Context, call Call) (any, error) {
				return map[string]any{"handlers": plot.Handlers()}, nil
			},
		},
		{
			Name:         "add_plot_fragment",
			Description:  "Embed a stored or freshly rendered chart into the session.",
			RequiresAuth: true,
			Params:       addPlotFragmentParams,
			Handler: func(ctx context.Context, call Call) (any, error) {
				plotID := stringArg(call.Args, "plot_guid")
				var inline *plot.Params
				if plotID == "" {
					p := plotParams(call.Args)
					inline = &p
				}
				out, err := d.Plots.AddPlotFragment(ctx,
					stringArg(call.Args, "session_id"),
					plotID, inline,
					stringArg(call.Args, "title"),
					stringArg(call.Args, "position"),
					call.Group)
				if err != nil {
					return nil, err
				}
				return map[string]any{"instance_guid": out.InstanceGUID, "position_index": out.PositionIndex}, nil
			},
		},
	}
}

// relaxRequired makes every schema optional, for tools where the chart
// parameters are one of two alternative input modes.
func relaxRequired(schemas []registry.ParameterSchema) []registry.ParameterSchema {
	out := make([]registry.ParameterSchema, len(schemas))
	copy(out, schemas)
	for i := range out {
		out[i].Required = false
	}
	return out
}
