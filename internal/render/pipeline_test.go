package render

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofr-hq/gofr-doc/internal/apperr"
	"github.com/gofr-hq/gofr-doc/internal/logging"
	"github.com/gofr-hq/gofr-doc/internal/registry"
	"github.com/gofr-hq/gofr-doc/internal/session"
	"github.com/gofr-hq/gofr-doc/internal/storage"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

type fixture struct {
	pipeline *Pipeline
	engine   *session.Engine
	store    *storage.Store
}

// newFixture scaffolds a public basic_report template, one public style,
// and an empty standalone fragment catalogue.
func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	base := t.TempDir()

	tmplRoot := filepath.Join(base, "templates")
	writeFile(t, filepath.Join(tmplRoot, "public", "basic_report", "template.yaml"), `template_id: basic_report
group: public
name: Basic Report
global_parameters:
  - name: title
    type: string
    required: true
fragments:
  - fragment_id: paragraph
    name: Paragraph
    parameters:
      - name: text
        type: string
        required: true
`)
	writeFile(t, filepath.Join(tmplRoot, "public", "basic_report", "document.jinja"),
		"<html><head><style>{{ style_css }}</style></head><body><h1>{{ title }}</h1>\n{{ fragments_html | safe }}</body></html>")
	writeFile(t, filepath.Join(tmplRoot, "public", "basic_report", "fragments", "paragraph.jinja"),
		"<p>{{ text }}</p>")

	fragRoot := filepath.Join(base, "fragments")
	writeFile(t, filepath.Join(fragRoot, "public", "pullquote", "fragment.yaml"), `fragment_id: pullquote
group: public
name: Pull Quote
parameters:
  - name: quote
    type: string
    required: true
`)
	writeFile(t, filepath.Join(fragRoot, "public", "pullquote", "fragment.jinja"),
		"<blockquote>{{ quote }}</blockquote>")

	styleRoot := filepath.Join(base, "styles")
	writeFile(t, filepath.Join(styleRoot, "public", "clean", "style.yaml"), `style_id: clean
group: public
name: Clean
`)
	writeFile(t, filepath.Join(styleRoot, "public", "clean", "style.css"),
		"body { font-family: serif; }")

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

	return &fixture{
		pipeline: NewPipeline(templates, fragments, styles, engine, store, opts...),
		engine:   engine,
		store:    store,
	}
}

// readySession creates a render-ready session with two fragments.
func (f *fixture) readySession(t *testing.T, group string) *session.Session {
	t.Helper()
	ctx := context.Background()
	s, err := f.engine.Create(ctx, "basic_report", "report", group)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if _, err := f.engine.SetGlobalParameters(s.ID, map[string]any{"title": "Q4 Report"}, group); err != nil {
		t.Fatalf("SetGlobalParameters() error: %v", err)
	}
	if _, err := f.engine.AddFragment(s.ID, "paragraph", map[string]any{"text": "Intro"}, "", group); err != nil {
		t.Fatalf("AddFragment() error: %v", err)
	}
	if _, err := f.engine.AddFragment(s.ID, "pullquote", map[string]any{"quote": "Numbers up"}, "end", group); err != nil {
		t.Fatalf("AddFragment() error: %v", err)
	}
	return s
}

func TestRenderHTML(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	s := f.readySession(t, "public")

	doc, err := f.pipeline.Render(context.Background(), s.ID, "html", "", false, "public")
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if doc.Format != "html" || doc.MediaType != "text/html" {
		t.Fatalf("doc = %+v", doc)
	}
	for _, want := range []string{"Q4 Report", "<p>Intro</p>", "<blockquote>Numbers up</blockquote>", "font-family: serif"} {
		if !strings.Contains(doc.Content, want) {
			t.Fatalf("rendered HTML missing %q:\n%s", want, doc.Content)
		}
	}
	// Insertion order is preserved.
	if strings.Index(doc.Content, "Intro") > strings.Index(doc.Content, "Numbers up") {
		t.Fatalf("fragments out of order:\n%s", doc.Content)
	}
}

func TestRenderMarksFragmentInstances(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	s := f.readySession(t, "public")

	fragments, err := f.engine.ListFragments(s.ID, "public")
	if err != nil {
		t.Fatalf("ListFragments() error: %v", err)
	}
	doc, err := f.pipeline.Render(context.Background(), s.ID, "html", "", false, "public")
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	for _, frag := range fragments {
		if !strings.Contains(doc.Content, `data-fragment-instance="`+frag.GUID+`"`) {
			t.Fatalf("HTML missing marker for instance %s", frag.GUID)
		}
	}
}

func TestRenderFromOtherGroupUsesPublicCatalogue(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	s := f.readySession(t, "engineering")

	doc, err := f.pipeline.Render(context.Background(), s.ID, "html", "", false, "engineering")
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !strings.Contains(doc.Content, "Q4 Report") {
		t.Fatalf("rendered HTML missing title:\n%s", doc.Content)
	}
}

func TestRenderNotReady(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	s, err := f.engine.Create(context.Background(), "basic_report", "fresh", "public")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	_, err = f.pipeline.Render(context.Background(), s.ID, "html", "", false, "public")
	if !apperr.Is(err, apperr.CodeSessionNotReady) {
		t.Fatalf("error = %v, want SessionNotReady", err)
	}
}

func TestRenderUnknownStyle(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	s := f.readySession(t, "public")

	_, err := f.pipeline.Render(context.Background(), s.ID, "html", "neon", false, "public")
	if !apperr.Is(err, apperr.CodeStyleNotFound) {
		t.Fatalf("error = %v, want StyleNotFound", err)
	}
}

func TestRenderUnknownFormat(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	s := f.readySession(t, "public")

	_, err := f.pipeline.Render(context.Background(), s.ID, "docx", "", false, "public")
	if !apperr.Is(err, apperr.CodeInvalidArguments) {
		t.Fatalf("error = %v, want InvalidArguments", err)
	}
}

func TestRenderMarkdown(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	s := f.readySession(t, "public")

	doc, err := f.pipeline.Render(context.Background(), s.ID, "md", "", false, "public")
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if doc.MediaType != "text/markdown" {
		t.Fatalf("media type = %q", doc.MediaType)
	}
	if !strings.Contains(doc.Content, "Q4 Report") || !strings.Contains(doc.Content, "Intro") {
		t.Fatalf("markdown missing content:\n%s", doc.Content)
	}
	if strings.Contains(doc.Content, "<p>") {
		t.Fatalf("markdown still contains HTML:\n%s", doc.Content)
	}
}

type stubPDF struct{ out []byte }

func (s stubPDF) Convert(context.Context, string) ([]byte, error) { return s.out, nil }

func TestRenderPDFBase64(t *testing.T) {
	t.Parallel()
	f := newFixture(t, WithPDFConverter(stubPDF{out: []byte("%PDF-1.7 fake")}))
	s := f.readySession(t, "public")

	doc, err := f.pipeline.Render(context.Background(), s.ID, "pdf", "", false, "public")
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	decoded, err := base64.StdEncoding.DecodeString(doc.Content)
	if err != nil {
		t.Fatalf("content is not base64: %v", err)
	}
	if string(decoded) != "%PDF-1.7 fake" {
		t.Fatalf("decoded = %q", decoded)
	}
	if doc.Size != len(decoded) {
		t.Fatalf("size = %d, want %d", doc.Size, len(decoded))
	}
}

func TestRenderProxyAndRetrieve(t *testing.T) {
	t.Parallel()
	f := newFixture(t, WithBaseURL("http://localhost:8080/"))
	s := f.readySession(t, "public")
	ctx := context.Background()

	doc, err := f.pipeline.Render(ctx, s.ID, "html", "", true, "public")
	if err != nil {
		t.Fatalf("Render(proxy) error: %v", err)
	}
	if doc.Content != "" || doc.ProxyGUID == "" {
		t.Fatalf("proxy doc = %+v, want empty content and a GUID", doc)
	}
	if doc.DownloadURL != "http://localhost:8080/proxy/"+doc.ProxyGUID {
		t.Fatalf("download URL = %q", doc.DownloadURL)
	}

	stored, err := f.pipeline.GetProxyDocument(ctx, doc.ProxyGUID, "public")
	if err != nil {
		t.Fatalf("GetProxyDocument() error: %v", err)
	}
	if stored.Format != "html" || !strings.Contains(stored.Content, "Q4 Report") {
		t.Fatalf("stored doc = %+v", stored)
	}

	// Another group cannot see the artefact.
	if _, err := f.pipeline.GetProxyDocument(ctx, doc.ProxyGUID, "research"); !apperr.Is(err, apperr.CodeNotFound) {
		t.Fatalf("cross-group error = %v, want NotFound", err)
	}

	data, mediaType, err := f.pipeline.ProxyBytes(ctx, doc.ProxyGUID, "public")
	if err != nil {
		t.Fatalf("ProxyBytes() error: %v", err)
	}
	if mediaType != "text/html" || !strings.Contains(string(data), "Q4 Report") {
		t.Fatalf("ProxyBytes = (%q, %d bytes)", mediaType, len(data))
	}
}
