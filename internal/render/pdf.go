package render

import (
	"context"
	"strings"

	wkhtmltopdf "github.com/SebastiaanKlippert/go-wkhtmltopdf"

	"github.com/gofr-hq/gofr-doc/internal/apperr"
)

// PDFConverter turns a rendered HTML document into PDF bytes.
type PDFConverter interface {
	Convert(ctx context.Context, html string) ([]byte, error)
}

// WKConverter shells out to wkhtmltopdf. The binary must be on PATH or
// named via the WKHTMLTOPDF_PATH environment variable.
type WKConverter struct{}

func (WKConverter) Convert(ctx context.Context, html string) ([]byte, error) {
	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeRenderFailed, err, "wkhtmltopdf is not available").
			WithRecovery("install wkhtmltopdf or request format=html")
	}

	page := wkhtmltopdf.NewPageReader(strings.NewReader(html))
	page.EnableLocalFileAccess.Set(true)
	pdfg.AddPage(page)

	if err := pdfg.CreateContext(ctx); err != nil {
		return nil, apperr.Wrap(apperr.CodeRenderFailed, err, "pdf conversion failed")
	}
	return pdfg.Bytes(), nil
}
