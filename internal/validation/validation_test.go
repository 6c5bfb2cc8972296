package validation

import (
	"testing"

	"github.com/gofr-hq/gofr-doc/internal/registry"
)

func schemas() []registry.ParameterSchema {
	return []registry.ParameterSchema{
		{Name: "title", Type: registry.TypeString, Required: true, Examples: []any{"Q4 Report"}},
		{Name: "count", Type: registry.TypeInteger},
		{Name: "ratio", Type: registry.TypeNumber},
		{Name: "draft", Type: registry.TypeBoolean},
		{Name: "tags", Type: registry.TypeArray},
		{Name: "meta", Type: registry.TypeObject},
	}
}

func TestCheckAgainst_Valid(t *testing.T) {
	t.Parallel()

	errs := CheckAgainst(schemas(), map[string]any{
		"title": "Q4",
		"count": float64(3), // JSON number
		"ratio": 0.5,
		"draft": true,
		"tags":  []any{"a"},
		"meta":  map[string]any{"k": "v"},
	})
	if len(errs) != 0 {
		t.Fatalf("CheckAgainst() errs = %+v, want none", errs)
	}
}

func TestCheckAgainst_MissingRequired(t *testing.T) {
	t.Parallel()

	errs := CheckAgainst(schemas(), map[string]any{})
	if len(errs) != 1 {
		t.Fatalf("errs = %+v, want 1", errs)
	}
	if errs[0].Parameter != "title" || errs[0].ExpectedType != "string" {
		t.Fatalf("err = %+v", errs[0])
	}
	if len(errs[0].Examples) == 0 {
		t.Fatalf("error should carry schema examples")
	}
}

func TestCheckAgainst_UnknownParameter(t *testing.T) {
	t.Parallel()

	errs := CheckAgainst(schemas(), map[string]any{"title": "x", "bogus": 1})
	if len(errs) != 1 || errs[0].Parameter != "bogus" {
		t.Fatalf("errs = %+v", errs)
	}
}

func TestCheckAgainst_TypeMismatches(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		params   map[string]any
		expected string
		received string
	}{
		{"string gets number", map[string]any{"title": 42}, "string", "integer"},
		{"integer gets fraction", map[string]any{"title": "x", "count": 1.5}, "integer", "number"},
		{"boolean gets string", map[string]any{"title": "x", "draft": "yes"}, "boolean", "string"},
		{"array gets object", map[string]any{"title": "x", "tags": map[string]any{}}, "array", "object"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			errs := CheckAgainst(schemas(), tc.params)
			if len(errs) != 1 {
				t.Fatalf("errs = %+v, want 1", errs)
			}
			if errs[0].ExpectedType != tc.expected || errs[0].ReceivedType != tc.received {
				t.Fatalf("err = %+v, want expected=%s received=%s", errs[0], tc.expected, tc.received)
			}
		})
	}
}

func rows(vals ...[]any) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

func TestValidateTableFragment_Valid(t *testing.T) {
	t.Parallel()

	errs := ValidateTableFragment(map[string]any{
		"rows": rows(
			[]any{"Region", "Revenue"},
			[]any{"EMEA", 1200.5},
		),
		"has_header":        true,
		"column_alignments": []any{"left", "right"},
		"number_format":     map[string]any{"Revenue": "currency:EUR"},
		"header_color":      "#336699",
		"highlight_rows":    []any{float64(1)},
		"sort_by":           "Revenue",
		"column_widths":     []any{float64(40), float64(60)},
	})
	if len(errs) != 0 {
		t.Fatalf("errs = %+v, want none", errs)
	}
}

func TestValidateTableFragment_RaggedRows(t *testing.T) {
	t.Parallel()

	errs := ValidateTableFragment(map[string]any{
		"rows": rows([]any{"a", "b"}, []any{"c"}),
	})
	if len(errs) != 1 || errs[0].Parameter != "rows" {
		t.Fatalf("errs = %+v", errs)
	}
}

func TestValidateTableFragment_BadFormatsAndColors(t *testing.T) {
	t.Parallel()

	errs := ValidateTableFragment(map[string]any{
		"rows":          rows([]any{"a"}),
		"number_format": map[string]any{"a": "currency:EURO"},
		"header_color":  "#33669",
	})
	if len(errs) != 2 {
		t.Fatalf("errs = %+v, want 2", errs)
	}
}

func TestValidateTableFragment_SortByNeedsHeader(t *testing.T) {
	t.Parallel()

	errs := ValidateTableFragment(map[string]any{
		"rows":    rows([]any{"x"}),
		"sort_by": "x",
	})
	if len(errs) != 1 || errs[0].Parameter != "sort_by" {
		t.Fatalf("errs = %+v", errs)
	}
}

func TestValidateTableFragment_WidthsOver100(t *testing.T) {
	t.Parallel()

	errs := ValidateTableFragment(map[string]any{
		"rows":          rows([]any{"a", "b"}),
		"column_widths": []any{float64(70), float64(40)},
	})
	if len(errs) != 1 || errs[0].Parameter != "column_widths" {
		t.Fatalf("errs = %+v", errs)
	}
}

func TestValidateTableFragment_HighlightOutOfRange(t *testing.T) {
	t.Parallel()

	errs := ValidateTableFragment(map[string]any{
		"rows":           rows([]any{"a"}),
		"highlight_rows": []any{float64(5)},
	})
	if len(errs) != 1 || errs[0].Parameter != "highlight_rows" {
		t.Fatalf("errs = %+v", errs)
	}
}

func TestValidateImageFragment(t *testing.T) {
	t.Parallel()

	if errs := ValidateImageFragment(ImageParams{ImageURL: "https://example.com/a.png", RequireHTTPS: true}); len(errs) != 0 {
		t.Fatalf("valid https url: errs = %+v", errs)
	}

	errs := ValidateImageFragment(ImageParams{ImageURL: "http://example.com/a.png", RequireHTTPS: true})
	if len(errs) != 1 || errs[0].Message != "Non-HTTPS URL with require_https=true" {
		t.Fatalf("http with require_https: errs = %+v", errs)
	}

	if errs := ValidateImageFragment(ImageParams{ImageURL: "ftp://example.com/a.png"}); len(errs) != 1 {
		t.Fatalf("ftp scheme: errs = %+v", errs)
	}

	if errs := ValidateImageFragment(ImageParams{ImageURL: "https://example.com/a.png", Alignment: "top"}); len(errs) != 1 {
		t.Fatalf("bad alignment: errs = %+v", errs)
	}
}
