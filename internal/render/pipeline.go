// Package render composes a session's template, fragment instances and
// style into HTML and converts it to the requested output format.
package render

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/flosch/pongo2/v6"

	"github.com/gofr-hq/gofr-doc/internal/apperr"
	"github.com/gofr-hq/gofr-doc/internal/logging"
	"github.com/gofr-hq/gofr-doc/internal/registry"
	"github.com/gofr-hq/gofr-doc/internal/session"
	"github.com/gofr-hq/gofr-doc/internal/storage"
)

// ArtifactTypeProxy tags stored rendered documents in the blob store.
const ArtifactTypeProxy = "document_proxy"

// Document is the result of a render call. Either Content is populated
// (inline) or ProxyGUID and DownloadURL are (proxy mode).
type Document struct {
	Format      string `json:"format"`
	Content     string `json:"content"`
	MediaType   string `json:"media_type"`
	Size        int    `json:"size"`
	ProxyGUID   string `json:"proxy_guid,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
}

func mediaTypeFor(format string) string {
	switch format {
	case "pdf":
		return "application/pdf"
	case "md":
		return "text/markdown"
	default:
		return "text/html"
	}
}

// Pipeline renders sessions. It reads sessions and catalogues and only
// appends to the blob store, never mutating session state.
type Pipeline struct {
	templates *registry.TemplateRegistry
	fragments *registry.FragmentRegistry
	styles    *registry.StyleRegistry
	engine    *session.Engine
	store     *storage.Store
	pdf       PDFConverter
	baseURL   string
	logger    logging.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPDFConverter replaces the default wkhtmltopdf converter.
func WithPDFConverter(c PDFConverter) Option {
	return func(p *Pipeline) { p.pdf = c }
}

// WithBaseURL sets the public base used to build proxy download URLs.
func WithBaseURL(u string) Option {
	return func(p *Pipeline) { p.baseURL = strings.TrimRight(u, "/") }
}

// WithLogger sets the pipeline's logger.
func WithLogger(logger logging.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// NewPipeline wires the rendering pipeline to its collaborators.
func NewPipeline(
	templates *registry.TemplateRegistry,
	fragments *registry.FragmentRegistry,
	styles *registry.StyleRegistry,
	engine *session.Engine,
	store *storage.Store,
	opts ...Option,
) *Pipeline {
	p := &Pipeline{
		templates: templates,
		fragments: fragments,
		styles:    styles,
		engine:    engine,
		store:     store,
		pdf:       WKConverter{},
		logger:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// templateGroup finds the group owning templateID as seen by the caller:
// the caller's own catalogue wins, the shared public catalogue is the
// fallback.
func (p *Pipeline) templateGroup(templateID, group string) (string, error) {
	if _, err := p.templates.Get(templateID, group); err == nil {
		return group, nil
	} else if group == registry.PublicGroup {
		return "", err
	}
	if _, err := p.templates.Get(templateID, registry.PublicGroup); err != nil {
		return "", apperr.New(apperr.CodeTemplateNotFound, "template not found: %s", templateID).
			WithRecovery("Call list_templates to see the available templates")
	}
	return registry.PublicGroup, nil
}

// fragmentTemplate resolves a fragment rendering text: a definition
// embedded in the session's template wins, the standalone catalogue is the
// fallback.
func (p *Pipeline) fragmentTemplate(templateID, fragmentID, group string) (*pongo2.Template, error) {
	tmpl, err := p.templates.FragmentTemplate(templateID, fragmentID, group)
	if err == nil {
		return tmpl, nil
	}
	if !apperr.Is(err, apperr.CodeFragmentNotFound) {
		return nil, err
	}
	tmpl, fragErr := p.fragments.Text(fragmentID, group)
	if fragErr == nil {
		return tmpl, nil
	}
	if group != registry.PublicGroup {
		if tmpl, pubErr := p.fragments.Text(fragmentID, registry.PublicGroup); pubErr == nil {
			return tmpl, nil
		}
	}
	return nil, fragErr
}

// ComposeHTML builds the full HTML document for a session. Each fragment
// block is wrapped in a div carrying its instance GUID so output order is
// observable.
func (p *Pipeline) ComposeHTML(ctx context.Context, identifier, styleID, group string) (string, error) {
	s, err := p.engine.Get(identifier, group)
	if err != nil {
		return "", err
	}
	if !s.RenderReady {
		return "", apperr.New(apperr.CodeSessionNotReady,
			"session %q has no global parameters set", identifier).
			WithRecovery("call set_global_parameters before rendering")
	}

	owner, err := p.templateGroup(s.TemplateID, group)
	if err != nil {
		return "", err
	}
	docTmpl, err := p.templates.DocumentTemplate(s.TemplateID, owner)
	if err != nil {
		return "", err
	}

	var style *registry.Style
	if styleID != "" {
		style, err = p.styles.Get(styleID, group)
		if err != nil && group != registry.PublicGroup && apperr.Is(err, apperr.CodeStyleNotFound) {
			style, err = p.styles.Get(styleID, registry.PublicGroup)
		}
		if err != nil {
			return "", err
		}
	} else {
		style = p.styles.Default(group)
	}

	var blocks strings.Builder
	for _, instance := range s.Fragments {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		fragTmpl, err := p.fragmentTemplate(s.TemplateID, instance.FragmentID, owner)
		if err != nil {
			return "", err
		}
		fragCtx := pongo2.Context{"globals": s.GlobalParameters}
		for k, v := range instance.Parameters {
			fragCtx[k] = v
		}
		html, err := fragTmpl.Execute(fragCtx)
		if err != nil {
			return "", apperr.Wrap(apperr.CodeRenderFailed, err,
				"rendering fragment %s (instance %s)", instance.FragmentID, instance.GUID)
		}
		fmt.Fprintf(&blocks, "<div class=\"fragment\" data-fragment-instance=\"%s\">\n%s\n</div>\n",
			instance.GUID, html)
	}

	docCtx := pongo2.Context{
		"fragments_html": blocks.String(),
	}
	for k, v := range s.GlobalParameters {
		docCtx[k] = v
	}
	if style != nil {
		docCtx["style_css"] = style.CSS
	}

	html, err := docTmpl.Execute(docCtx)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeRenderFailed, err,
			"rendering document for template %s", s.TemplateID)
	}
	return html, nil
}

// Render produces the session's document in format (html, pdf or md). With
// proxy=true the bytes are persisted to the blob store instead of being
// returned inline.
func (p *Pipeline) Render(ctx context.Context, identifier, format, styleID string, proxy bool, group string) (*Document, error) {
	switch format {
	case "", "html":
		format = "html"
	case "pdf", "md":
	default:
		return nil, apperr.New(apperr.CodeInvalidArguments,
			"unsupported output format %q", format).
			WithRecovery("request html, pdf or md")
	}

	html, err := p.ComposeHTML(ctx, identifier, styleID, group)
	if err != nil {
		return nil, err
	}

	var raw []byte
	var content string
	switch format {
	case "html":
		raw = []byte(html)
		content = html
	case "md":
		markdown, err := toMarkdown(html)
		if err != nil {
			return nil, err
		}
		raw = []byte(markdown)
		content = markdown
	case "pdf":
		raw, err = p.pdf.Convert(ctx, html)
		if err != nil {
			return nil, err
		}
		content = base64.StdEncoding.EncodeToString(raw)
	}

	doc := &Document{
		Format:    format,
		MediaType: mediaTypeFor(format),
		Size:      len(raw),
	}
	if !proxy {
		doc.Content = content
		return doc, nil
	}

	guid, err := p.store.Save(ctx, raw, format, group, map[string]string{
		"artifact_type": ArtifactTypeProxy,
		"media_type":    doc.MediaType,
	})
	if err != nil {
		return nil, err
	}
	doc.ProxyGUID = guid
	doc.DownloadURL = p.baseURL + "/proxy/" + guid
	p.logger.Info("stored rendered %s document %s for group %s (%d bytes)", format, guid, group, len(raw))
	return doc, nil
}

// GetProxyDocument fetches a previously stored rendered document. Group
// mismatch surfaces as the store's generic not-found.
func (p *Pipeline) GetProxyDocument(ctx context.Context, guid, group string) (*Document, error) {
	data, record, err := p.store.Get(ctx, guid, group)
	if err != nil {
		return nil, err
	}
	doc := &Document{
		Format:    record.Format,
		MediaType: record.Extra["media_type"],
		Size:      len(data),
	}
	if doc.MediaType == "" {
		doc.MediaType = mediaTypeFor(record.Format)
	}
	if record.Format == "pdf" {
		doc.Content = base64.StdEncoding.EncodeToString(data)
	} else {
		doc.Content = string(data)
	}
	return doc, nil
}

// ProxyBytes returns the raw stored bytes for streaming over HTTP.
func (p *Pipeline) ProxyBytes(ctx context.Context, guid, group string) ([]byte, string, error) {
	data, record, err := p.store.Get(ctx, guid, group)
	if err != nil {
		return nil, "", err
	}
	mediaType := record.Extra["media_type"]
	if mediaType == "" {
		mediaType = mediaTypeFor(record.Format)
	}
	return data, mediaType, nil
}
