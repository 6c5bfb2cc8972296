package registry

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/flosch/pongo2/v6"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gofr-hq/gofr-doc/internal/apperr"
	"github.com/gofr-hq/gofr-doc/internal/logging"
)

const (
	templateMetaFile = "template.yaml"
	documentFile     = "document.jinja"
	fragmentsSubdir  = "fragments"
)

// TemplateRegistry holds every template catalogue loaded at startup.
type TemplateRegistry struct {
	root     string
	byKey    map[string]*Template // group/id
	byGroup  map[string][]*Template
	sets     map[string]*pongo2.TemplateSet // per group, loader rooted at <root>/<group>
	compiled *lru.Cache[string, *pongo2.Template]
	logger   logging.Logger
}

// LoadTemplates walks <root>/<group>/<template_id>/, migrating any flat
// layout first. Metadata/directory group mismatch is a hard error.
func LoadTemplates(root string, logger logging.Logger) (*TemplateRegistry, error) {
	logger = logging.OrNop(logger)
	if err := migrateFlatLayout(root, templateMetaFile, logger); err != nil {
		return nil, err
	}

	compiled, err := lru.New[string, *pongo2.Template](256)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternalError, err, "create template cache")
	}
	r := &TemplateRegistry{
		root:     root,
		byKey:    map[string]*Template{},
		byGroup:  map[string][]*Template{},
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
			tpl := &Template{}
			metaPath := filepath.Join(root, group, item, templateMetaFile)
			if err := readMeta(metaPath, tpl); err != nil {
				return nil, err
			}
			if tpl.TemplateID == "" {
				tpl.TemplateID = item
			}
			if err := checkGroup(tpl.TemplateID, group, tpl.Group); err != nil {
				return nil, err
			}
			// Embedded fragment defs inherit the template's group and are
			// never entered into the standalone fragment catalogue.
			for i := range tpl.Fragments {
				tpl.Fragments[i].Group = group
			}
			r.byKey[keyOf(group, tpl.TemplateID)] = tpl
			r.byGroup[group] = append(r.byGroup[group], tpl)
		}
		loader, err := pongo2.NewLocalFileSystemLoader(filepath.Join(root, group))
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeLoadError, err, "create template loader for group %s", group)
		}
		r.sets[group] = pongo2.NewSet("templates-"+group, loader)
	}
	for _, templates := range r.byGroup {
		sort.Slice(templates, func(i, j int) bool { return templates[i].TemplateID < templates[j].TemplateID })
	}
	logger.Info("loaded %d templates across %d groups", len(r.byKey), len(r.byGroup))
	return r, nil
}

// List returns template summaries, optionally filtered by group.
func (r *TemplateRegistry) List(group string) []Summary {
	var out []Summary
	for _, templates := range r.groupsFor(group) {
		for _, t := range templates {
			out = append(out, Summary{ID: t.TemplateID, Name: t.Name, Description: t.Description, Group: t.Group})
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

// Get returns the full template schema.
func (r *TemplateRegistry) Get(templateID, group string) (*Template, error) {
	if group != "" {
		if t, ok := r.byKey[keyOf(group, templateID)]; ok {
			return t, nil
		}
		return nil, apperr.New(apperr.CodeTemplateNotFound, "template not found: %s", templateID).
			WithRecovery("Call list_templates to see the available templates")
	}
	for _, t := range r.byKey {
		if t.TemplateID == templateID {
			return t, nil
		}
	}
	return nil, apperr.New(apperr.CodeTemplateNotFound, "template not found: %s", templateID).
		WithRecovery("Call list_templates to see the available templates")
}

// ListGroups returns the loaded group names, sorted.
func (r *TemplateRegistry) ListGroups() []string {
	groups := make([]string, 0, len(r.byGroup))
	for g := range r.byGroup {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}

// ItemsByGroup returns every template of one group.
func (r *TemplateRegistry) ItemsByGroup(group string) []*Template {
	return r.byGroup[group]
}

func (r *TemplateRegistry) groupsFor(group string) map[string][]*Template {
	if group == "" {
		return r.byGroup
	}
	if templates, ok := r.byGroup[group]; ok {
		return map[string][]*Template{group: templates}
	}
	return nil
}

// DocumentTemplate returns the compiled document rendering template. The
// set's loader is rooted at the group directory, so template text cannot
// reference files outside it.
func (r *TemplateRegistry) DocumentTemplate(templateID, group string) (*pongo2.Template, error) {
	t, err := r.Get(templateID, group)
	if err != nil {
		return nil, err
	}
	return r.compile(t.Group, filepath.Join(t.TemplateID, documentFile))
}

// FragmentTemplate returns the compiled rendering template of one fragment
// belonging to templateID. The lookup is lazy: a template may be authored
// before all its fragment texts exist.
func (r *TemplateRegistry) FragmentTemplate(templateID, fragmentID, group string) (*pongo2.Template, error) {
	t, err := r.Get(templateID, group)
	if err != nil {
		return nil, err
	}
	rel := filepath.Join(t.TemplateID, fragmentsSubdir, fragmentID+".jinja")
	if _, statErr := os.Stat(filepath.Join(r.root, t.Group, rel)); statErr != nil {
		return nil, apperr.New(apperr.CodeFragmentNotFound, "fragment %q has no rendering template in %q", fragmentID, templateID).
			WithRecovery("Call list_template_fragments to see the template's fragments")
	}
	return r.compile(t.Group, rel)
}

func (r *TemplateRegistry) compile(group, rel string) (*pongo2.Template, error) {
	cacheKey := keyOf(group, rel)
	if tpl, ok := r.compiled.Get(cacheKey); ok {
		return tpl, nil
	}
	set, ok := r.sets[group]
	if !ok {
		return nil, apperr.New(apperr.CodeLoadError, "no template set for group %s", group)
	}
	tpl, err := set.FromFile(rel)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeLoadError, err, "compile template %s", rel)
	}
	r.compiled.Add(cacheKey, tpl)
	return tpl, nil
}
