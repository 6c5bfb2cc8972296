package render

import (
	md "github.com/JohannesKaufmann/html-to-markdown"

	"github.com/gofr-hq/gofr-doc/internal/apperr"
)

// toMarkdown converts rendered HTML to Markdown, keeping links and images.
func toMarkdown(html string) (string, error) {
	converter := md.NewConverter("", true, nil)
	out, err := converter.ConvertString(html)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeRenderFailed, err, "markdown conversion failed")
	}
	return out, nil
}
