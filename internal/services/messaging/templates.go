package messaging

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Kind string

const (
	Individual Kind = "individual"
	Bulk       Kind = "bulk"
)

type Template struct {
	ID       string `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	Kind     Kind   `yaml:"kind" json:"kind"`
	Category string `yaml:"category" json:"category"`
	// Stage is the stage id the template is suggested for, if any.
	Stage   string `yaml:"stage,omitempty" json:"stage,omitempty"`
	Subject string `yaml:"subject" json:"subject"`
	Body    string `yaml:"body" json:"body"`
}

//go:embed templates.yaml
var builtinTemplates []byte

// Catalogue is an ordered, id-addressable set of templates.
type Catalogue struct {
	templates []Template
}

func parseTemplates(data []byte) ([]Template, error) {
	var list []Template
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	for i, t := range list {
		if strings.TrimSpace(t.ID) == "" {
			return nil, fmt.Errorf("template %d: id is required", i)
		}
		if t.Kind != Individual && t.Kind != Bulk {
			return nil, fmt.Errorf("template %s: kind must be %q or %q", t.ID, Individual, Bulk)
		}
	}
	return list, nil
}

// DefaultCatalogue returns the built-in templates.
func DefaultCatalogue() *Catalogue {
	list, err := parseTemplates(builtinTemplates)
	if err != nil {
		panic(fmt.Sprintf("builtin templates: %v", err))
	}
	return &Catalogue{templates: list}
}

// LoadCatalogue reads a YAML template list from path and layers it over the
// built-in set: entries with a known id replace it, new ids are appended.
// An empty path yields the built-in set.
func LoadCatalogue(path string) (*Catalogue, error) {
	c := DefaultCatalogue()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}
	overrides, err := parseTemplates(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for _, t := range overrides {
		c.put(t)
	}
	return c, nil
}

func (c *Catalogue) put(t Template) {
	for i := range c.templates {
		if c.templates[i].ID == t.ID {
			c.templates[i] = t
			return
		}
	}
	c.templates = append(c.templates, t)
}

func (c *Catalogue) Get(id string) (Template, bool) {
	for _, t := range c.templates {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}

// List returns the templates of the given kind, or all of them when kind is empty.
func (c *Catalogue) List(kind Kind) []Template {
	out := make([]Template, 0, len(c.templates))
	for _, t := range c.templates {
		if kind == "" || t.Kind == kind {
			out = append(out, t)
		}
	}
	return out
}

// ForStage lists individual templates suggested for a stage first, then the rest.
func (c *Catalogue) ForStage(stageID string) []Template {
	var relevant, rest []Template
	for _, t := range c.List(Individual) {
		if t.Stage == stageID {
			relevant = append(relevant, t)
		} else {
			rest = append(rest, t)
		}
	}
	return append(relevant, rest...)
}
