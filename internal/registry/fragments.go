package registry

import (
	"path/filepath"
	"sort"

	"github.com/flosch/pongo2/v6"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gofr-hq/gofr-doc/internal/apperr"
	"github.com/gofr-hq/gofr-doc/internal/logging"
)

const (
	fragmentMetaFile = "fragment.yaml"
	fragmentTextFile = "fragment.jinja"
)

// FragmentRegistry holds the standalone fragment catalogue. Embedded
// template fragments live on their template, never here.
type FragmentRegistry struct {
	root     string
	byKey    map[string]*FragmentDef
	byGroup  map[string][]*FragmentDef
	sets     map[string]*pongo2.TemplateSet
	compiled *lru.Cache[string, *pongo2.Template]
	logger   logging.Logger
}

// LoadFragments walks <root>/<group>/<fragment_id>/.
func LoadFragments(root string, logger logging.Logger) (*FragmentRegistry, error) {
	logger = logging.OrNop(logger)
	if err := migrateFlatLayout(root, fragmentMetaFile, logger); err != nil {
		return nil, err
	}

	compiled, err := lru.New[string, *pongo2.Template](256)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternalError, err, "create fragment cache")
	}
	r := &FragmentRegistry{
		root:     root,
		byKey:    map[string]*FragmentDef{},
		byGroup:  map[string][]*FragmentDef{},
		sets:     map[string]*pongo2.TemplateSet{},
		compiled: compiled,
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
		for _, item := range items {
			def := &FragmentDef{}
			if err := readMeta(filepath.Join(root, group, item, fragmentMetaFile), def); err != nil {
				return nil, err
			}
			if def.FragmentID == "" {
				def.FragmentID = item
			}
			if err := checkGroup(def.FragmentID, group, def.Group); err != nil {
				return nil, err
			}
			r.byKey[keyOf(group, def.FragmentID)] = def
			r.byGroup[group] = append(r.byGroup[group], def)
		}
		loader, err := pongo2.NewLocalFileSystemLoader(filepath.Join(root, group))
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeLoadError, err, "create fragment loader for group %s", group)
		}
		r.sets[group] = pongo2.NewSet("fragments-"+group, loader)
	}
	for _, defs := range r.byGroup {
		sort.Slice(defs, func(i, j int) bool { return defs[i].FragmentID < defs[j].FragmentID })
	}
	logger.Info("loaded %d standalone fragments across %d groups", len(r.byKey), len(r.byGroup))
	return r, nil
}

// List returns fragment summaries, optionally filtered by group.
func (r *FragmentRegistry) List(group string) []Summary {
	var out []Summary
	appendGroup := func(defs []*FragmentDef) {
		for _, d := range defs {
			out = append(out, Summary{ID: d.FragmentID, Name: d.Name, Description: d.Description, Group: d.Group})
		}
	}
	if group != "" {
		appendGroup(r.byGroup[group])
	} else {
		for _, defs := range r.byGroup {
			appendGroup(defs)
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

// Get returns the full fragment schema.
func (r *FragmentRegistry) Get(fragmentID, group string) (*FragmentDef, error) {
	if group != "" {
		if d, ok := r.byKey[keyOf(group, fragmentID)]; ok {
			return d, nil
		}
		return nil, apperr.New(apperr.CodeFragmentNotFound, "fragment not found: %s", fragmentID)
	}
	for _, d := range r.byKey {
		if d.FragmentID == fragmentID {
			return d, nil
		}
	}
	return nil, apperr.New(apperr.CodeFragmentNotFound, "fragment not found: %s", fragmentID)
}

// ListGroups returns the loaded group names, sorted.
func (r *FragmentRegistry) ListGroups() []string {
	groups := make([]string, 0, len(r.byGroup))
	for g := range r.byGroup {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}

// Text returns the compiled rendering template of a standalone fragment.
func (r *FragmentRegistry) Text(fragmentID, group string) (*pongo2.Template, error) {
	d, err := r.Get(fragmentID, group)
	if err != nil {
		return nil, err
	}
	cacheKey := keyOf(d.Group, d.FragmentID)
	if tpl, ok := r.compiled.Get(cacheKey); ok {
		return tpl, nil
	}
	set, ok := r.sets[d.Group]
	if !ok {
		return nil, apperr.New(apperr.CodeLoadError, "no fragment set for group %s", d.Group)
	}
	tpl, err := set.FromFile(filepath.Join(d.FragmentID, fragmentTextFile))
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeLoadError, err, "compile fragment %s", d.FragmentID)
	}
	r.compiled.Add(cacheKey, tpl)
	return tpl, nil
}
