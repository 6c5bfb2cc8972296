package tools

import (
	"context"
	"sort"

	"github.com/gofr-hq/gofr-doc/internal/apperr"
	"github.com/gofr-hq/gofr-doc/internal/auth"
	"github.com/gofr-hq/gofr-doc/internal/logging"
	"github.com/gofr-hq/gofr-doc/internal/validation"
)

// SuccessEnvelope is the uniform wire shape for successful tool calls.
type SuccessEnvelope struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

// Dispatcher owns the tool catalogue and runs the per-call protocol.
type Dispatcher struct {
	tools  map[string]Tool
	order  []string
	auth   *auth.Service
	logger logging.Logger
}

// NewDispatcher builds a Dispatcher over the given catalogue. Registration
// order is preserved for listings.
func NewDispatcher(authService *auth.Service, catalogue []Tool, logger logging.Logger) *Dispatcher {
	d := &Dispatcher{
		tools:  make(map[string]Tool, len(catalogue)),
		auth:   authService,
		logger: logging.OrNop(logger),
	}
	for _, t := range catalogue {
		if _, dup := d.tools[t.Name]; dup {
			continue
		}
		d.tools[t.Name] = t
		d.order = append(d.order, t.Name)
	}
	return d
}

// Tools returns the catalogue in registration order.
func (d *Dispatcher) Tools() []Tool {
	out := make([]Tool, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.tools[name])
	}
	return out
}

// Lookup returns a tool by name.
func (d *Dispatcher) Lookup(name string) (Tool, bool) {
	t, ok := d.tools[name]
	return t, ok
}

// Call runs the dispatch protocol for one tool invocation: resolve auth,
// inject the token's group, validate arguments, invoke the handler. The
// returned payload is the tool's raw data; errors are typed.
func (d *Dispatcher) Call(ctx context.Context, name string, args map[string]any, authorizationHeader string) (any, error) {
	tool, ok := d.tools[name]
	if !ok {
		return nil, apperr.New(apperr.CodeNotFound, "unknown tool %q", name).
			WithRecovery("call help to see the available tools")
	}
	if args == nil {
		args = map[string]any{}
	}

	token := auth.ResolveToken(args, authorizationHeader)
	group := ""
	if tool.RequiresAuth {
		info, err := d.auth.Authenticate(ctx, token)
		if err != nil {
			d.logger.Warn("tool %s rejected: %v", name, err)
			return nil, err
		}
		group = info.Group
	} else if token != "" {
		// Token-optional tools still honor a valid token's group so
		// discovery can include the caller's own catalogue.
		if info, err := d.auth.Authenticate(ctx, token); err == nil {
			group = info.Group
		}
	}

	call := Call{Args: make(map[string]any, len(args)), Group: group}
	for k, v := range args {
		if !reservedArgs[k] {
			call.Args[k] = v
		}
	}

	if errs := validation.CheckAgainst(tool.Params, call.Args); len(errs) > 0 {
		sort.Slice(errs, func(i, j int) bool { return errs[i].Parameter < errs[j].Parameter })
		return nil, apperr.New(apperr.CodeInvalidArguments, "invalid arguments for %s", name).
			WithDetail("errors", errs).
			WithRecovery("fix the listed parameters and retry")
	}

	payload, err := tool.Handler(ctx, call)
	if err != nil {
		d.logger.Warn("tool %s failed: %s", name, err)
		return nil, err
	}
	return payload, nil
}

// Dispatch runs Call and wraps the outcome in the uniform wire envelope,
// returning the matching HTTP status alongside.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]any, authorizationHeader string) (any, int) {
	payload, err := d.Call(ctx, name, args, authorizationHeader)
	if err != nil {
		resp := apperr.ToResponse(err)
		return resp, apperr.HTTPStatus(resp.ErrorCode)
	}
	return SuccessEnvelope{Status: "success", Data: payload}, 200
}
