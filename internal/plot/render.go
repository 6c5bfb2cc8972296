// Package plot renders line, scatter and bar charts to image bytes and
// manages their storage alongside the document artefacts.
package plot

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"image/png"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/gofr-hq/gofr-doc/internal/apperr"
)

// Params is one chart request. X is shared by every series; up to five
// series are drawn.
type Params struct {
	Kind   string      `json:"kind"`
	Title  string      `json:"title"`
	X      []float64   `json:"x"`
	Series [][]float64 `json:"series"`
	Labels []string    `json:"labels,omitempty"`
	Theme  string      `json:"theme,omitempty"`
	Format string      `json:"format,omitempty"`
	Width  int         `json:"width,omitempty"`
	Height int         `json:"height,omitempty"`
	XMin   *float64    `json:"x_min,omitempty"`
	XMax   *float64    `json:"x_max,omitempty"`
	YMin   *float64    `json:"y_min,omitempty"`
	YMax   *float64    `json:"y_max,omitempty"`
}

const maxSeries = 5

func paramErr(param, format string, args ...any) *apperr.Error {
	return apperr.New(apperr.CodeValidationError, format, args...).
		WithDetail("parameter_name", param)
}

// validate applies the structural rules shared by all chart kinds.
func (p *Params) validate() error {
	switch p.Kind {
	case "line", "scatter", "bar":
	default:
		return paramErr("kind", "unsupported chart kind %q", p.Kind).
			WithRecovery("use line, scatter or bar")
	}
	if len(p.X) == 0 {
		return paramErr("x", "x values must be a non-empty numeric array")
	}
	if len(p.Series) == 0 {
		return paramErr("series", "at least one y series is required")
	}
	if len(p.Series) > maxSeries {
		return paramErr("series", "at most %d y series are supported, got %d", maxSeries, len(p.Series))
	}
	for i, s := range p.Series {
		if len(s) != len(p.X) {
			return paramErr("series", "series %d has %d values, x has %d", i+1, len(s), len(p.X))
		}
	}
	if p.Theme == "" {
		p.Theme = DefaultTheme
	}
	if _, ok := themes[p.Theme]; !ok {
		return paramErr("theme", "unknown theme %q", p.Theme).
			WithRecovery("call list_themes to see the available themes")
	}
	switch p.Format {
	case "":
		p.Format = "png"
	case "png", "svg", "jpg":
	default:
		return paramErr("format", "unsupported image format %q", p.Format).
			WithRecovery("use png, svg or jpg")
	}
	if p.Width <= 0 {
		p.Width = 800
	}
	if p.Height <= 0 {
		p.Height = 500
	}
	return nil
}

func (p *Params) mediaType() string {
	switch p.Format {
	case "svg":
		return "image/svg+xml"
	case "jpg":
		return "image/jpeg"
	default:
		return "image/png"
	}
}

func (p *Params) rendererProvider() chart.RendererProvider {
	if p.Format == "svg" {
		return chart.SVG
	}
	// jpg goes through the png raster and is re-encoded afterwards.
	return chart.PNG
}

func (p *Params) seriesLabel(i int) string {
	if i < len(p.Labels) {
		return p.Labels[i]
	}
	return fmt.Sprintf("y%d", i+1)
}

// Render draws the chart described by p and returns the encoded bytes plus
// their media type.
func Render(ctx context.Context, p Params) ([]byte, string, error) {
	if err := p.validate(); err != nil {
		return nil, "", err
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	theme := themes[p.Theme]

	var buf bytes.Buffer
	var err error
	if p.Kind == "bar" {
		err = renderBar(&buf, p, theme)
	} else {
		err = renderXY(&buf, p, theme)
	}
	if err != nil {
		return nil, "", apperr.Wrap(apperr.CodeRenderFailed, err, "rendering %s chart", p.Kind)
	}

	out := buf.Bytes()
	if p.Format == "jpg" {
		if out, err = pngToJPEG(out); err != nil {
			return nil, "", apperr.Wrap(apperr.CodeRenderFailed, err, "encoding %s chart as jpeg", p.Kind)
		}
	}
	return out, p.mediaType(), nil
}

// pngToJPEG re-encodes a png raster as jpeg. Chart backgrounds are always
// opaque so the alpha channel jpeg drops carries no information.
func pngToJPEG(data []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func axisStyle(theme Theme) chart.Style {
	return chart.Style{
		FontColor:   theme.Text,
		StrokeColor: theme.Grid,
	}
}

func renderXY(buf *bytes.Buffer, p Params, theme Theme) error {
	series := make([]chart.Series, 0, len(p.Series))
	for i, ys := range p.Series {
		color := theme.Series[i%len(theme.Series)]
		style := chart.Style{StrokeColor: color, StrokeWidth: 2}
		if p.Kind == "scatter" {
			style = chart.Style{
				StrokeWidth: chart.Disabled,
				DotColor:    color,
				DotWidth:    5,
			}
		}
		series = append(series, chart.ContinuousSeries{
			Name:    p.seriesLabel(i),
			XValues: p.X,
			YValues: ys,
			Style:   style,
		})
	}

	xAxis := chart.XAxis{Style: axisStyle(theme)}
	if p.XMin != nil && p.XMax != nil {
		xAxis.Range = &chart.ContinuousRange{Min: *p.XMin, Max: *p.XMax}
	}
	yAxis := chart.YAxis{Style: axisStyle(theme)}
	if p.YMin != nil && p.YMax != nil {
		yAxis.Range = &chart.ContinuousRange{Min: *p.YMin, Max: *p.YMax}
	}

	c := chart.Chart{
		Title:      p.Title,
		TitleStyle: chart.Style{FontColor: theme.Text},
		Width:      p.Width,
		Height:     p.Height,
		Background: chart.Style{FillColor: theme.Background},
		Canvas:     chart.Style{FillColor: theme.Canvas},
		XAxis:      xAxis,
		YAxis:      yAxis,
		Series:     series,
	}
	return c.Render(p.rendererProvider(), buf)
}

// renderBar draws the first series as a bar chart; x values become labels
// unless explicit labels are provided.
func renderBar(buf *bytes.Buffer, p Params, theme Theme) error {
	values := make([]chart.Value, len(p.X))
	for i, y := range p.Series[0] {
		label := fmt.Sprintf("%g", p.X[i])
		if i < len(p.Labels) {
			label = p.Labels[i]
		}
		values[i] = chart.Value{
			Value: y,
			Label: label,
			Style: chart.Style{FillColor: theme.Series[i%len(theme.Series)], StrokeColor: theme.Grid},
		}
	}

	c := chart.BarChart{
		Title:      p.Title,
		TitleStyle: chart.Style{FontColor: theme.Text},
		Width:      p.Width,
		Height:     p.Height,
		Background: chart.Style{FillColor: theme.Background},
		Canvas:     chart.Style{FillColor: theme.Canvas},
		XAxis:      axisStyle(theme),
		YAxis:      chart.YAxis{Style: axisStyle(theme)},
		Bars:       values,
	}
	return c.Render(p.rendererProvider(), buf)
}
