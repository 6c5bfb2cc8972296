package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Theme palette names accepted wherever a table color is expected, next to
// literal #RRGGBB values.
var themePalette = map[string]bool{
	"default": true,
	"primary": true,
	"accent":  true,
	"blue":    true,
	"green":   true,
	"red":     true,
	"yellow":  true,
	"gray":    true,
	"dark":    true,
	"light":   true,
}

var (
	hexColorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
	iso4217Re  = regexp.MustCompile(`^[A-Z]{3}$`)
)

func validColor(c string) bool {
	return themePalette[strings.ToLower(c)] || hexColorRe.MatchString(c)
}

func validNumberFormat(f string) bool {
	switch {
	case f == "percent", f == "integer", f == "accounting":
		return true
	case strings.HasPrefix(f, "currency:"):
		return iso4217Re.MatchString(strings.TrimPrefix(f, "currency:"))
	case strings.HasPrefix(f, "decimal:"):
		n, err := strconv.Atoi(strings.TrimPrefix(f, "decimal:"))
		return err == nil && n >= 0 && n <= 10
	}
	return false
}

// ValidateTableFragment checks the structural constraints of the built-in
// table fragment.
func ValidateTableFragment(params map[string]any) []ParameterError {
	var errs []ParameterError
	add := func(param, msg string, args ...any) {
		errs = append(errs, ParameterError{Parameter: param, Message: fmt.Sprintf(msg, args...)})
	}

	rawRows, ok := params["rows"].([]any)
	if !ok || len(rawRows) == 0 {
		add("rows", "rows must be a non-empty array of arrays")
		return errs
	}

	width := -1
	rows := make([][]any, 0, len(rawRows))
	for i, raw := range rawRows {
		row, ok := raw.([]any)
		if !ok {
			add("rows", "row %d is not an array", i)
			return errs
		}
		if width == -1 {
			width = len(row)
		} else if len(row) != width {
			add("rows", "row %d has %d columns, expected %d", i, len(row), width)
		}
		rows = append(rows, row)
	}
	if width == 0 {
		add("rows", "rows must have at least one column")
		return errs
	}

	hasHeader, _ := params["has_header"].(bool)

	if raw, present := params["column_alignments"]; present {
		aligns, ok := raw.([]any)
		if !ok {
			add("column_alignments", "column_alignments must be an array")
		} else {
			if len(aligns) > width {
				add("column_alignments", "%d alignments for %d columns", len(aligns), width)
			}
			for i, a := range aligns {
				s, _ := a.(string)
				switch s {
				case "left", "center", "right":
				default:
					add("column_alignments", "alignment %d must be left, center or right, got %q", i, s)
				}
			}
		}
	}

	if raw, present := params["number_format"]; present {
		formats, ok := raw.(map[string]any)
		if !ok {
			add("number_format", "number_format must be an object keyed by column")
		} else {
			for col, f := range formats {
				s, _ := f.(string)
				if !validNumberFormat(s) {
					add("number_format", "column %q has invalid number format %q", col, s)
				}
			}
		}
	}

	for _, param := range []string{"header_color", "highlight_color"} {
		if raw, present := params[param]; present {
			s, _ := raw.(string)
			if !validColor(s) {
				add(param, "%s %q is neither a palette name nor #RRGGBB", param, s)
			}
		}
	}

	checkIndices := func(param string, limit int) {
		raw, present := params[param]
		if !present {
			return
		}
		indices, ok := raw.([]any)
		if !ok {
			add(param, "%s must be an array of indices", param)
			return
		}
		for _, idx := range indices {
			n, ok := asInt(idx)
			if !ok || n < 0 || n >= limit {
				add(param, "%s index %v out of range [0, %d)", param, idx, limit)
			}
		}
	}
	checkIndices("highlight_rows", len(rows))
	checkIndices("highlight_columns", width)

	if raw, present := params["sort_by"]; present {
		if !hasHeader {
			add("sort_by", "sort_by requires has_header=true")
		} else {
			header := rows[0]
			headerSet := make(map[string]bool, len(header))
			for _, h := range header {
				if s, ok := h.(string); ok {
					headerSet[s] = true
				}
			}
			var cols []any
			switch v := raw.(type) {
			case []any:
				cols = v
			case string:
				cols = []any{v}
			default:
				add("sort_by", "sort_by must be a column name or array of column names")
			}
			for _, c := range cols {
				s, _ := c.(string)
				if !headerSet[s] {
					add("sort_by", "sort_by column %q not present in header row", s)
				}
			}
		}
	}

	if raw, present := params["column_widths"]; present {
		widths, ok := raw.([]any)
		if !ok {
			add("column_widths", "column_widths must be an array of percentages")
		} else {
			total := 0.0
			for i, w := range widths {
				f, ok := asFloat(w)
				if !ok || f <= 0 {
					add("column_widths", "width %d must be a positive percentage", i)
					continue
				}
				total += f
			}
			if total > 100 {
				add("column_widths", "column widths sum to %.1f%%, exceeding 100%%", total)
			}
		}
	}

	return errs
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int64(n)) {
			return int(n), true
		}
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
