// Package imagecheck validates remote image URLs at add-time and embeds
// their bytes as data URIs so rendered documents stay self-contained.
package imagecheck

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofr-hq/gofr-doc/internal/apperr"
	"github.com/gofr-hq/gofr-doc/internal/logging"
)

// Allowed content types, compared after stripping parameters and case.
var allowedContentTypes = map[string]bool{
	"image/png":     true,
	"image/jpeg":    true,
	"image/gif":     true,
	"image/webp":    true,
	"image/svg+xml": true,
}

const (
	DefaultTimeout = 10 * time.Second
	DefaultMaxSize = 10 << 20 // 10 MiB
)

// Checker performs the network half of image fragment validation.
type Checker struct {
	client  *http.Client
	timeout time.Duration
	maxSize int64
	logger  logging.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithTimeout bounds each HEAD and download request.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxSize caps accepted image sizes in bytes.
func WithMaxSize(n int64) Option {
	return func(c *Checker) {
		if n > 0 {
			c.maxSize = n
		}
	}
}

// WithLogger sets the checker's logger.
func WithLogger(logger logging.Logger) Option {
	return func(c *Checker) { c.logger = logger }
}

// WithHTTPClient replaces the underlying client. Redirect following stays
// at the client's default.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Checker) { c.client = client }
}

// NewChecker builds a Checker with the default timeout and size cap.
func NewChecker(opts ...Option) *Checker {
	c := &Checker{
		client:  &http.Client{},
		timeout: DefaultTimeout,
		maxSize: DefaultMaxSize,
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Result carries what Check learned about a valid image URL.
type Result struct {
	ContentType   string
	ContentLength int64 // -1 when the server did not say
}

// checkURL applies the structural rules shared by Check and Fetch.
func checkURL(rawURL string, requireHTTPS bool) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return apperr.New(apperr.CodeInvalidImageURL, "malformed image URL %q", rawURL).
			WithDetail("image_url", rawURL)
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
	case "http":
		if requireHTTPS {
			return apperr.New(apperr.CodeInvalidImageURL, "Non-HTTPS URL with require_https=true").
				WithDetail("image_url", rawURL).
				WithRecovery("use an https:// URL or pass require_https=false")
		}
	default:
		return apperr.New(apperr.CodeInvalidImageURL, "unsupported URL scheme %q", u.Scheme).
			WithDetail("image_url", rawURL)
	}
	return nil
}

func normalizeContentType(header string) string {
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.SplitN(header, ";", 2)[0]))
	}
	return strings.ToLower(mediaType)
}

// transportError maps a failed round trip onto the image error taxonomy.
func transportError(rawURL string, err error) *apperr.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.New(apperr.CodeImageURLTimeout, "image URL %q timed out", rawURL).
			WithDetail("image_url", rawURL)
	}
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return apperr.New(apperr.CodeImageURLTimeout, "image URL %q timed out", rawURL).
			WithDetail("image_url", rawURL)
	}
	return apperr.Wrap(apperr.CodeImageValidationError, err, "image URL %q could not be validated", rawURL).
		WithDetail("image_url", rawURL)
}

// Check validates rawURL with a HEAD request: scheme, reachability,
// content type, and declared size.
func (c *Checker) Check(ctx context.Context, rawURL string, requireHTTPS bool) (*Result, error) {
	if err := checkURL(rawURL, requireHTTPS); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return nil, apperr.New(apperr.CodeInvalidImageURL, "malformed image URL %q", rawURL).
			WithDetail("image_url", rawURL)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, transportError(rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.New(apperr.CodeImageURLNotAccessible,
			"image URL returned status %d", resp.StatusCode).
			WithDetail("image_url", rawURL).
			WithDetail("status", resp.StatusCode)
	}

	contentType := normalizeContentType(resp.Header.Get("Content-Type"))
	if !allowedContentTypes[contentType] {
		return nil, apperr.New(apperr.CodeInvalidImageContentType,
			"content type %q is not an accepted image type", contentType).
			WithDetail("image_url", rawURL).
			WithDetail("content_type", contentType).
			WithRecovery("serve the image as png, jpeg, gif, webp or svg+xml")
	}

	if resp.ContentLength > c.maxSize {
		return nil, apperr.New(apperr.CodeImageTooLarge,
			"image is %d bytes, limit is %d", resp.ContentLength, c.maxSize).
			WithDetail("image_url", rawURL).
			WithDetail("content_length", resp.ContentLength).
			WithDetail("max_bytes", c.maxSize)
	}

	return &Result{ContentType: contentType, ContentLength: resp.ContentLength}, nil
}

// Fetch validates rawURL and downloads its bytes as a data URI. The size
// cap is enforced during the download as well, guarding against servers
// that omit or understate Content-Length.
func (c *Checker) Fetch(ctx context.Context, rawURL string, requireHTTPS bool) (string, error) {
	result, err := c.Check(ctx, rawURL, requireHTTPS)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", apperr.Internal(err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", transportError(rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperr.New(apperr.CodeImageURLNotAccessible,
			"image URL returned status %d", resp.StatusCode).
			WithDetail("image_url", rawURL).
			WithDetail("status", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxSize+1))
	if err != nil {
		return "", transportError(rawURL, err)
	}
	if int64(len(body)) > c.maxSize {
		return "", apperr.New(apperr.CodeImageTooLarge,
			"image exceeds the %d byte limit", c.maxSize).
			WithDetail("image_url", rawURL).
			WithDetail("max_bytes", c.maxSize)
	}

	c.logger.Debug("embedded image %s (%d bytes, %s)", rawURL, len(body), result.ContentType)
	return fmt.Sprintf("data:%s;base64,%s", result.ContentType,
		base64.StdEncoding.EncodeToString(body)), nil
}
