package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofr-hq/gofr-doc/internal/apperr"
	"github.com/gofr-hq/gofr-doc/internal/auth"
	"github.com/gofr-hq/gofr-doc/internal/imagecheck"
	"github.com/gofr-hq/gofr-doc/internal/logging"
	"github.com/gofr-hq/gofr-doc/internal/plot"
	"github.com/gofr-hq/gofr-doc/internal/registry"
	"github.com/gofr-hq/gofr-doc/internal/render"
	"github.com/gofr-hq/gofr-doc/internal/session"
	"github.com/gofr-hq/gofr-doc/internal/storage"
	"github.com/gofr-hq/gofr-doc/internal/validation"
)

const testSecret = "unit-test-secret"

type harness struct {
	dispatcher *Dispatcher
	auth       *auth.Service
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	base := t.TempDir()

	tmplRoot := filepath.Join(base, "templates")
	write(t, filepath.Join(tmplRoot, "public", "basic_report", "template.yaml"), `template_id: basic_report
group: public
name: Basic Report
global_parameters:
  - name: title
    type: string
    required: true
  - name: author
    type: string
fragments:
  - fragment_id: paragraph
    name: Paragraph
    parameters:
      - name: text
        type: string
        required: true
`)
	write(t, filepath.Join(tmplRoot, "public", "basic_report", "document.jinja"),
		"<html><body><h1>{{ title }}</h1>{{ fragments_html | safe }}</body></html>")
	write(t, filepath.Join(tmplRoot, "public", "basic_report", "fragments", "paragraph.jinja"),
		"<p>{{ text }}</p>")

	fragRoot := filepath.Join(base, "fragments")
	write(t, filepath.Join(fragRoot, "public", "image_from_url", "fragment.yaml"), `fragment_id: image_from_url
group: public
name: Image
parameters:
  - name: image_url
    type: string
    required: true
  - name: embedded_data_uri
    type: string
  - name: title
    type: string
  - name: alt_text
    type: string
  - name: alignment
    type: string
  - name: width
    type: integer
  - name: height
    type: integer
`)
	write(t, filepath.Join(fragRoot, "public", "image_from_url", "fragment.jinja"),
		`<img src="{{ embedded_data_uri }}" alt="{{ alt_text }}"/>`)

	styleRoot := filepath.Join(base, "styles")
	write(t, filepath.Join(styleRoot, "public", "clean", "style.yaml"), "style_id: clean\ngroup: public\nname: Clean\n")
	write(t, filepath.Join(styleRoot, "public", "clean", "style.css"), "body {}")

	templates, err := registry.LoadTemplates(tmplRoot, logging.Nop())
	if err != nil {
		t.Fatalf("LoadTemplates() error: %v", err)
	}
	fragments, err := registry.LoadFragments(fragRoot, logging.Nop())
	if err != nil {
		t.Fatalf("LoadFragments() error: %v", err)
	}
	styles, err := registry.LoadStyles(styleRoot, logging.Nop())
	if err != nil {
		t.Fatalf("LoadStyles() error: %v", err)
	}
	engine, err := session.NewEngine(filepath.Join(base, "sessions"))
	if err != nil {
		t.Fatalf("NewEngine() error: %v", err)
	}
	store, err := storage.New(filepath.Join(base, "storage"))
	if err != nil {
		t.Fatalf("storage.New() error: %v", err)
	}

	secrets := auth.NewSecretProvider(auth.StaticSecretSource(testSecret), time.Minute, logging.Nop())
	authService := auth.NewService(secrets, nil)

	deps := Deps{
		Templates:    templates,
		Fragments:    fragments,
		Styles:       styles,
		Validator:    validation.New(templates, fragments),
		Engine:       engine,
		Renderer:     render.NewPipeline(templates, fragments, styles, engine, store),
		Plots:        plot.NewService(store, engine, logging.Nop()),
		Images:       imagecheck.NewChecker(),
		RequireHTTPS: true,
		ServiceName:  "gofr-doc",
		Version:      "test",
	}
	return &harness{
		dispatcher: NewDispatcher(authService, Catalogue(deps), logging.Nop()),
		auth:       authService,
	}
}

func (h *harness) token(t *testing.T, group string) string {
	t.Helper()
	token, err := h.auth.Verifier.Issue(context.Background(), group, time.Hour)
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	return token
}

// call invokes a tool with a valid token for group and fails the test on a
// typed error.
func (h *harness) call(t *testing.T, group, name string, args map[string]any) map[string]any {
	t.Helper()
	payload, err := h.dispatcher.Call(context.Background(), name, args, "Bearer "+h.token(t, group))
	if err != nil {
		t.Fatalf("Call(%s) error: %v", name, err)
	}
	out, ok := payload.(map[string]any)
	if !ok {
		t.Fatalf("Call(%s) payload type %T", name, payload)
	}
	return out
}

func TestCatalogueSize(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	if got := len(h.dispatcher.Tools()); got != 25 {
		t.Fatalf("catalogue has %d tools, want 25", got)
	}
}

func TestUnknownTool(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	_, err := h.dispatcher.Call(context.Background(), "make_coffee", nil, "")
	if !apperr.Is(err, apperr.CodeNotFound) {
		t.Fatalf("error = %v, want NotFound", err)
	}
}

func TestAuthRequired(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.dispatcher.Call(ctx, "list_active_sessions", nil, "")
	if !apperr.Is(err, apperr.CodeAuthRequired) {
		t.Fatalf("no token error = %v, want AuthRequired", err)
	}
	_, err = h.dispatcher.Call(ctx, "list_active_sessions", nil, "Bearer not-a-jwt")
	if !apperr.Is(err, apperr.CodeAuthFailed) {
		t.Fatalf("bad token error = %v, want AuthFailed", err)
	}
	// Discovery works anonymously, even with a garbage token.
	if _, err := h.dispatcher.Call(ctx, "ping", nil, "Bearer not-a-jwt"); err != nil {
		t.Fatalf("ping error = %v", err)
	}
}

func TestGroupInjectionOverridesClientValue(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	// The client claims another group; the token's group wins and the
	// engineering session stays invisible.
	h.call(t, "engineering", "create_document_session",
		map[string]any{"template_id": "basic_report", "alias": "secret-report"})

	_, err := h.dispatcher.Call(context.Background(), "get_session_status",
		map[string]any{"session_id": "secret-report", "group": "engineering"},
		"Bearer "+h.token(t, "research"))
	if !apperr.Is(err, apperr.CodeSessionNotFound) {
		t.Fatalf("cross-group error = %v, want SessionNotFound", err)
	}
}

func TestArgumentSchemaValidation(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	_, err := h.dispatcher.Call(context.Background(), "create_document_session",
		map[string]any{"template_id": 42, "alias": "x-report", "bogus": true},
		"Bearer "+h.token(t, "g"))
	if !apperr.Is(err, apperr.CodeInvalidArguments) {
		t.Fatalf("error = %v, want InvalidArguments", err)
	}
	details := apperr.As(err).Details["errors"].([]validation.ParameterError)
	if len(details) != 2 {
		t.Fatalf("details = %+v, want 2 parameter errors", details)
	}
}

func TestDocumentWorkflow(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	created := h.call(t, "g", "create_document_session",
		map[string]any{"template_id": "basic_report", "alias": "q4-report"})
	if created["alias"] != "q4-report" {
		t.Fatalf("created = %+v", created)
	}

	h.call(t, "g", "set_global_parameters", map[string]any{
		"session_id": "q4-report",
		"parameters": map[string]any{"title": "Q4 Report", "author": "Data Team"},
	})

	added, err := h.dispatcher.Call(context.Background(), "add_fragment", map[string]any{
		"session_id":  "q4-report",
		"fragment_id": "paragraph",
		"parameters":  map[string]any{"text": "Intro"},
	}, "Bearer "+h.token(t, "g"))
	if err != nil {
		t.Fatalf("add_fragment error: %v", err)
	}
	out := added.(session.AddOutput)
	if out.PositionIndex != 0 || out.InstanceGUID == "" {
		t.Fatalf("add_fragment = %+v", out)
	}

	listed := h.call(t, "g", "list_session_fragments", map[string]any{"session_id": "q4-report"})
	fragments := listed["fragments"].([]session.FragmentInstance)
	if len(fragments) != 1 || fragments[0].GUID != out.InstanceGUID {
		t.Fatalf("fragments = %+v", fragments)
	}

	rendered, err := h.dispatcher.Call(context.Background(), "get_document",
		map[string]any{"session_id": "q4-report", "format": "html"},
		"Bearer "+h.token(t, "g"))
	if err != nil {
		t.Fatalf("get_document error: %v", err)
	}
	doc := rendered.(*render.Document)
	for _, want := range []string{"Q4 Report", "Intro"} {
		if !strings.Contains(doc.Content, want) {
			t.Fatalf("rendered HTML missing %q", want)
		}
	}

	h.call(t, "g", "abort_document_session", map[string]any{"session_id": "q4-report"})
	_, err = h.dispatcher.Call(context.Background(), "get_session_status",
		map[string]any{"session_id": "q4-report"}, "Bearer "+h.token(t, "g"))
	if !apperr.Is(err, apperr.CodeSessionNotFound) {
		t.Fatalf("status after abort error = %v, want SessionNotFound", err)
	}
}

func TestSetGlobalParametersRejectsBadValues(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.call(t, "g", "create_document_session",
		map[string]any{"template_id": "basic_report", "alias": "typed-report"})

	_, err := h.dispatcher.Call(context.Background(), "set_global_parameters", map[string]any{
		"session_id": "typed-report",
		"parameters": map[string]any{"title": 42},
	}, "Bearer "+h.token(t, "g"))
	if !apperr.Is(err, apperr.CodeInvalidGlobalParameters) {
		t.Fatalf("error = %v, want InvalidGlobalParameters", err)
	}
}

func TestAddFragmentRejectsUnknownFragment(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.call(t, "g", "create_document_session",
		map[string]any{"template_id": "basic_report", "alias": "frag-report"})

	_, err := h.dispatcher.Call(context.Background(), "add_fragment", map[string]any{
		"session_id":  "frag-report",
		"fragment_id": "nonexistent",
		"parameters":  map[string]any{},
	}, "Bearer "+h.token(t, "g"))
	if !apperr.Is(err, apperr.CodeFragmentNotFound) {
		t.Fatalf("error = %v, want FragmentNotFound", err)
	}
}

func TestValidateParametersTool(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	valid := h.call(t, "g", "validate_parameters", map[string]any{
		"template_id":     "basic_report",
		"parameters_type": "global",
		"parameters":      map[string]any{"title": "T"},
	})
	if valid["is_valid"] != true {
		t.Fatalf("valid = %+v", valid)
	}

	invalid := h.call(t, "g", "validate_parameters", map[string]any{
		"template_id":     "basic_report",
		"parameters_type": "fragment",
		"fragment_id":     "paragraph",
		"parameters":      map[string]any{"text": 7},
	})
	if invalid["is_valid"] != false {
		t.Fatalf("invalid = %+v", invalid)
	}
	if errs := invalid["errors"].([]validation.ParameterError); len(errs) != 1 {
		t.Fatalf("errors = %+v", errs)
	}
}

func TestAddImageFragmentEmbedsDataURI(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		if r.Method == http.MethodGet {
			w.Write([]byte("png-bytes"))
		}
	}))
	t.Cleanup(srv.Close)

	h.call(t, "g", "create_document_session",
		map[string]any{"template_id": "basic_report", "alias": "img-report"})

	// The test server is plain http, so require_https must be lowered.
	added := h.call(t, "g", "add_image_fragment", map[string]any{
		"session_id":    "img-report",
		"image_url":     srv.URL,
		"alt_text":      "chart",
		"require_https": false,
	})
	if added["instance_guid"] == "" {
		t.Fatalf("added = %+v", added)
	}

	listed := h.call(t, "g", "list_session_fragments", map[string]any{"session_id": "img-report"})
	fragments := listed["fragments"].([]session.FragmentInstance)
	if len(fragments) != 1 || fragments[0].FragmentID != "image_from_url" {
		t.Fatalf("fragments = %+v", fragments)
	}
	uri, _ := fragments[0].Parameters["embedded_data_uri"].(string)
	if !strings.HasPrefix(uri, "data:image/png;base64,") {
		t.Fatalf("embedded_data_uri = %q", uri)
	}
}

func TestAddImageFragmentRequiresHTTPSByDefault(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.call(t, "g", "create_document_session",
		map[string]any{"template_id": "basic_report", "alias": "https-report"})

	_, err := h.dispatcher.Call(context.Background(), "add_image_fragment", map[string]any{
		"session_id": "https-report",
		"image_url":  "http://example.com/a.png",
	}, "Bearer "+h.token(t, "g"))
	if !apperr.Is(err, apperr.CodeInvalidImageURL) {
		t.Fatalf("error = %v, want InvalidImageURL", err)
	}
	if reason := apperr.As(err).Details["reason"]; reason != "Non-HTTPS URL with require_https=true" {
		t.Fatalf("reason = %v", reason)
	}
}

func TestPlotWorkflow(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	stored, err := h.dispatcher.Call(context.Background(), "render_graph", map[string]any{
		"kind":        "line",
		"x":           []any{1.0, 2.0, 3.0},
		"y1":          []any{10.0, 20.0, 15.0},
		"store":       true,
		"image_alias": "rev",
	}, "Bearer "+h.token(t, "g"))
	if err != nil {
		t.Fatalf("render_graph error: %v", err)
	}
	graph := stored.(*plot.Graph)
	if graph.GUID == "" {
		t.Fatalf("graph = %+v", graph)
	}

	image := h.call(t, "g", "get_image", map[string]any{"identifier": "rev"})
	if image["guid"] != graph.GUID {
		t.Fatalf("get_image = %+v", image)
	}

	h.call(t, "g", "create_document_session",
		map[string]any{"template_id": "basic_report", "alias": "plot-report"})
	added := h.call(t, "g", "add_plot_fragment", map[string]any{
		"session_id": "plot-report",
		"plot_guid":  graph.GUID,
	})
	if added["instance_guid"] == "" {
		t.Fatalf("add_plot_fragment = %+v", added)
	}
}

func TestDispatchEnvelope(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	payload, status := h.dispatcher.Dispatch(ctx, "ping", nil, "")
	if status != 200 {
		t.Fatalf("status = %d", status)
	}
	env := payload.(SuccessEnvelope)
	if env.Status != "success" {
		t.Fatalf("envelope = %+v", env)
	}

	payload, status = h.dispatcher.Dispatch(ctx, "list_active_sessions", nil, "")
	if status != 401 {
		t.Fatalf("status = %d, want 401", status)
	}
	resp := payload.(apperr.Response)
	if resp.Status != "error" || resp.ErrorCode != apperr.CodeAuthRequired {
		t.Fatalf("response = %+v", resp)
	}
}
