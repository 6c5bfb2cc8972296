// Package registry loads the group-partitioned catalogues of templates,
// fragments and styles from disk. Catalogues are immutable after load, so
// queries are lock-free.
package registry

// ParamType is the semantic type of a parameter.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeArray   ParamType = "array"
	TypeObject  ParamType = "object"
)

// ValidParamType reports whether t is one of the supported semantic types.
func ValidParamType(t ParamType) bool {
	switch t {
	case TypeString, TypeInteger, TypeNumber, TypeBoolean, TypeArray, TypeObject:
		return true
	}
	return false
}

// ParameterSchema describes one typed parameter of a template or fragment.
type ParameterSchema struct {
	Name        string    `yaml:"name" json:"name"`
	Type        ParamType `yaml:"type" json:"type"`
	Required    bool      `yaml:"required" json:"required"`
	Default     any       `yaml:"default,omitempty" json:"default,omitempty"`
	Examples    []any     `yaml:"examples,omitempty" json:"examples,omitempty"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
}

// FragmentDef is a typed content block, either embedded in a template or
// standalone in the fragment catalogue.
type FragmentDef struct {
	FragmentID  string            `yaml:"fragment_id" json:"fragment_id"`
	Group       string            `yaml:"group" json:"group"`
	Name        string            `yaml:"name" json:"name"`
	Description string            `yaml:"description,omitempty" json:"description,omitempty"`
	Parameters  []ParameterSchema `yaml:"parameters" json:"parameters"`
}

// Template is a document skeleton: global parameters plus an ordered list of
// embedded fragment definitions.
type Template struct {
	TemplateID       string            `yaml:"template_id" json:"template_id"`
	Group            string            `yaml:"group" json:"group"`
	Name             string            `yaml:"name" json:"name"`
	Description      string            `yaml:"description,omitempty" json:"description,omitempty"`
	GlobalParameters []ParameterSchema `yaml:"global_parameters" json:"global_parameters"`
	Fragments        []FragmentDef     `yaml:"fragments" json:"fragments"`
}

// Fragment looks up an embedded fragment definition by id.
func (t *Template) Fragment(fragmentID string) (FragmentDef, bool) {
	for _, f := range t.Fragments {
		if f.FragmentID == fragmentID {
			return f, true
		}
	}
	return FragmentDef{}, false
}

// Style is a CSS bundle selectable at render time.
type Style struct {
	StyleID     string `yaml:"style_id" json:"style_id"`
	Group       string `yaml:"group" json:"group"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	CSS         string `yaml:"-" json:"-"`
}

// Summary is the listing shape shared by all three catalogues.
type Summary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Group       string `json:"group"`
}
