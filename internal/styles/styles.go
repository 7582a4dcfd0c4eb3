// Package styles holds the static art style catalog. The catalog is embedded
// at build time and loaded once at process start; it is never mutated at
// runtime.
package styles

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

// PromptVariants is the number of generation prompts every style carries.
// Each prompt produces one preview variant, in catalog order.
const PromptVariants = 2

//go:embed catalog.yaml
var catalogYAML []byte

// Style is a named visual treatment with exactly two generation prompts.
type Style struct {
	ID        string   `yaml:"id" json:"id"`
	Title     string   `yaml:"title" json:"title"`
	Tagline   string   `yaml:"tagline" json:"tagline"`
	Thumbnail string   `yaml:"thumbnail" json:"thumbnail"`
	Prompts   []string `yaml:"prompts" json:"prompts"`
}

// Catalog is an ordered, read-only set of styles.
type Catalog struct {
	styles []Style
	byID   map[string]int
}

// Load parses the embedded catalog. It fails on duplicate ids or styles that
// do not carry exactly two prompts, so a bad catalog is caught at startup
// rather than mid-wizard.
func Load() (*Catalog, error) {
	return parse(catalogYAML)
}

func parse(data []byte) (*Catalog, error) {
	var doc struct {
		Styles []Style `yaml:"styles"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse style catalog: %w", err)
	}
	if len(doc.Styles) == 0 {
		return nil, fmt.Errorf("style catalog is empty")
	}

	c := &Catalog{
		styles: doc.Styles,
		byID:   make(map[string]int, len(doc.Styles)),
	}
	for i, s := range doc.Styles {
		if s.ID == "" {
			return nil, fmt.Errorf("style %d has no id", i)
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, fmt.Errorf("duplicate style id %q", s.ID)
		}
		if len(s.Prompts) != PromptVariants {
			return nil, fmt.Errorf("style %q has %d prompts, want %d", s.ID, len(s.Prompts), PromptVariants)
		}
		c.byID[s.ID] = i
	}
	return c, nil
}

// All returns the styles in catalog order.
func (c *Catalog) All() []Style {
	out := make([]Style, len(c.styles))
	copy(out, c.styles)
	return out
}

// Get looks up a style by id.
func (c *Catalog) Get(id string) (Style, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Style{}, false
	}
	return c.styles[i], true
}

// Len returns the number of styles in the catalog.
func (c *Catalog) Len() int {
	return len(c.styles)
}
