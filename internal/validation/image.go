package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// ImageParams are the structural inputs of add_image_fragment. Network-level
// checks (HEAD, content type, size) live in the imagecheck package; this
// validator covers everything knowable without touching the URL.
type ImageParams struct {
	ImageURL     string
	Title        string
	Width        int
	Height       int
	AltText      string
	Alignment    string
	RequireHTTPS bool
}

// ValidateImageFragment checks scheme, well-formedness and presentation
// parameters of an image fragment.
func ValidateImageFragment(p ImageParams) []ParameterError {
	var errs []ParameterError
	add := func(param, msg string, args ...any) {
		errs = append(errs, ParameterError{Parameter: param, Message: fmt.Sprintf(msg, args...)})
	}

	raw := strings.TrimSpace(p.ImageURL)
	if raw == "" {
		add("image_url", "image_url is required")
	} else {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			add("image_url", "image_url is not a well-formed URL")
		} else {
			switch u.Scheme {
			case "https":
			case "http":
				if p.RequireHTTPS {
					add("image_url", "Non-HTTPS URL with require_https=true")
				}
			default:
				add("image_url", "image_url scheme must be http or https, got %q", u.Scheme)
			}
		}
	}

	if p.Alignment != "" {
		switch p.Alignment {
		case "left", "center", "right":
		default:
			add("alignment", "alignment must be left, center or right, got %q", p.Alignment)
		}
	}
	if p.Width < 0 || p.Width > 4096 {
		add("width", "width must be between 0 and 4096 pixels")
	}
	if p.Height < 0 || p.Height > 4096 {
		add("height", "height must be between 0 and 4096 pixels")
	}
	return errs
}
