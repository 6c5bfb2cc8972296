package registry

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/gofr-hq/gofr-doc/internal/apperr"
	"github.com/gofr-hq/gofr-doc/internal/logging"
)

const (
	styleMetaFile = "style.yaml"
	styleCSSFile  = "style.css"
)

// StyleRegistry holds the CSS bundle catalogue. The first successfully
// loaded style of a group (alphabetical by id) is that group's default.
type StyleRegistry struct {
	byKey    map[string]*Style
	byGroup  map[string][]*Style
	defaults map[string]*Style
	logger   logging.Logger
}

// LoadStyles walks <root>/<group>/<style_id>/.
func LoadStyles(root string, logger logging.Logger) (*StyleRegistry, error) {
	logger = logging.OrNop(logger)
	if err := migrateFlatLayout(root, styleMetaFile, logger); err != nil {
		return nil, err
	}

	r := &StyleRegistry{
		byKey:    map[string]*Style{},
		byGroup:  map[string][]*Style{},
		defaults: map[string]*Style{},
		logger:   logger,
	}

	groups, err := discoverGroups(root)
	if err != nil {
		return nil, err
	}
	for _, group := range groups {
		items, err := itemDirs(root, group)
		if err != nil {
			return nil, err
		}
		sort.Strings(items)
		for _, item := range items {
			style := &Style{}
			if err := readMeta(filepath.Join(root, group, item, styleMetaFile), style); err != nil {
				return nil, err
			}
			if style.StyleID == "" {
				style.StyleID = item
			}
			if err := checkGroup(style.StyleID, group, style.Group); err != nil {
				return nil, err
			}
			css, err := os.ReadFile(filepath.Join(root, group, item, styleCSSFile))
			if err != nil {
				return nil, apperr.Wrap(apperr.CodeLoadError, err, "read stylesheet for %s", style.StyleID)
			}
			style.CSS = string(css)
			r.byKey[keyOf(group, style.StyleID)] = style
			r.byGroup[group] = append(r.byGroup[group], style)
			if _, ok := r.defaults[group]; !ok {
				r.defaults[group] = style
			}
		}
	}
	logger.Info("loaded %d styles across %d groups", len(r.byKey), len(r.byGroup))
	return r, nil
}

// List returns style summaries, optionally filtered by group.
func (r *StyleRegistry) List(group string) []Summary {
	var out []Summary
	appendGroup := func(styles []*Style) {
		for _, s := range styles {
			out = append(out, Summary{ID: s.StyleID, Name: s.Name, Description: s.Description, Group: s.Group})
		}
	}
	if group != "" {
		appendGroup(r.byGroup[group])
	} else {
		for _, styles := range r.byGroup {
			appendGroup(styles)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Group != out[j].Group {
			return out[i].Group < out[j].Group
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Get returns a style by id within a group.
func (r *StyleRegistry) Get(styleID, group string) (*Style, error) {
	if s, ok := r.byKey[keyOf(group, styleID)]; ok {
		return s, nil
	}
	return nil, apperr.New(apperr.CodeStyleNotFound, "style not found: %s", styleID).
		WithRecovery("Call list_styles to see the available styles")
}

// Default returns the group's default style, or nil when the group has none.
func (r *StyleRegistry) Default(group string) *Style {
	if s, ok := r.defaults[group]; ok {
		return s
	}
	// Groups without own styles fall back to the public defaults.
	return r.defaults[PublicGroup]
}

// ListGroups returns the loaded group names, sorted.
func (r *StyleRegistry) ListGroups() []string {
	groups := make([]string, 0, len(r.byGroup))
	for g := range r.byGroup {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}
