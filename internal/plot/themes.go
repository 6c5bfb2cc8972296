package plot

import (
	"sort"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Theme is a named color scheme applied to rendered charts.
type Theme struct {
	Name       string
	Background drawing.Color
	Canvas     drawing.Color
	Text       drawing.Color
	Grid       drawing.Color
	Series     []drawing.Color
}

var themes = map[string]Theme{
	"light": {
		Name:       "light",
		Background: drawing.ColorFromHex("ffffff"),
		Canvas:     drawing.ColorFromHex("ffffff"),
		Text:       drawing.ColorFromHex("1f2933"),
		Grid:       drawing.ColorFromHex("d9dde3"),
		Series: []drawing.Color{
			drawing.ColorFromHex("2563eb"),
			drawing.ColorFromHex("dc2626"),
			drawing.ColorFromHex("16a34a"),
			drawing.ColorFromHex("d97706"),
			drawing.ColorFromHex("7c3aed"),
		},
	},
	"dark": {
		Name:       "dark",
		Background: drawing.ColorFromHex("111827"),
		Canvas:     drawing.ColorFromHex("1f2937"),
		Text:       drawing.ColorFromHex("e5e7eb"),
		Grid:       drawing.ColorFromHex("374151"),
		Series: []drawing.Color{
			drawing.ColorFromHex("60a5fa"),
			drawing.ColorFromHex("f87171"),
			drawing.ColorFromHex("4ade80"),
			drawing.ColorFromHex("fbbf24"),
			drawing.ColorFromHex("a78bfa"),
		},
	},
	"bizlight": {
		Name:       "bizlight",
		Background: drawing.ColorFromHex("fafaf8"),
		Canvas:     drawing.ColorFromHex("ffffff"),
		Text:       drawing.ColorFromHex("30343b"),
		Grid:       drawing.ColorFromHex("e3e1dc"),
		Series: []drawing.Color{
			drawing.ColorFromHex("1f4e79"),
			drawing.ColorFromHex("9c3d2e"),
			drawing.ColorFromHex("4d6b3c"),
			drawing.ColorFromHex("8a6d3b"),
			drawing.ColorFromHex("5b4a68"),
		},
	},
	"bizdark": {
		Name:       "bizdark",
		Background: drawing.ColorFromHex("1c2330"),
		Canvas:     drawing.ColorFromHex("232b3a"),
		Text:       drawing.ColorFromHex("d6dae2"),
		Grid:       drawing.ColorFromHex("3a4354"),
		Series: []drawing.Color{
			drawing.ColorFromHex("6ea8d8"),
			drawing.ColorFromHex("d88c7a"),
			drawing.ColorFromHex("8fbc8f"),
			drawing.ColorFromHex("c9ae6d"),
			drawing.ColorFromHex("a390bd"),
		},
	},
}

// DefaultTheme is used when the caller does not pick one.
const DefaultTheme = "light"

// Themes returns the available theme names, sorted.
func Themes() []string {
	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Handlers returns the supported chart kinds.
func Handlers() []string {
	return []string{"bar", "line", "scatter"}
}
