package taxonomy

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed taxonomy.yaml
var defaultTaxonomy []byte

// Category is one top-level storage partition with its ordered subcategories.
type Category struct {
	Name          string   `yaml:"name"`
	Subcategories []string `yaml:"subcategories,omitempty"`
}

// Taxonomy is the fixed, ordered category -> subcategory mapping.
type Taxonomy struct {
	Categories []Category `yaml:"categories"`
}

// Default returns the taxonomy compiled into the binary.
func Default() (*Taxonomy, error) {
	return Parse(defaultTaxonomy)
}

// LoadFile reads a taxonomy definition from path.
func LoadFile(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy %s: %w", path, err)
	}
	return Parse(data)
}

// Load returns the taxonomy at path, or the embedded default when path is empty.
func Load(path string) (*Taxonomy, error) {
	if path == "" {
		return Default()
	}
	return LoadFile(path)
}

// Parse decodes and validates a YAML taxonomy document.
func Parse(data []byte) (*Taxonomy, error) {
	var t Taxonomy
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse taxonomy: %w", err)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Taxonomy) validate() error {
	if len(t.Categories) == 0 {
		return fmt.Errorf("taxonomy: no categories defined")
	}
	seen := make(map[string]struct{}, len(t.Categories))
	for _, c := range t.Categories {
		if err := checkSegment(c.Name); err != nil {
			return fmt.Errorf("taxonomy: category %q: %w", c.Name, err)
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("taxonomy: duplicate category %q", c.Name)
		}
		seen[c.Name] = struct{}{}

		subs := make(map[string]struct{}, len(c.Subcategories))
		for _, s := range c.Subcategories {
			if err := checkSegment(s); err != nil {
				return fmt.Errorf("taxonomy: subcategory %q of %q: %w", s, c.Name, err)
			}
			if _, dup := subs[s]; dup {
				return fmt.Errorf("taxonomy: duplicate subcategory %q in %q", s, c.Name)
			}
			subs[s] = struct{}{}
		}
	}
	return nil
}

func checkSegment(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("empty name")
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("not a single path segment")
	}
	return nil
}

// Names returns category names in declared order.
func (t *Taxonomy) Names() []string {
	out := make([]string, 0, len(t.Categories))
	for _, c := range t.Categories {
		out = append(out, c.Name)
	}
	return out
}

// HasCategory reports whether name is a declared category.
func (t *Taxonomy) HasCategory(name string) bool {
	_, ok := t.category(name)
	return ok
}

// Subcategories returns the declared subcategories of category, nil if it has none.
func (t *Taxonomy) Subcategories(category string) []string {
	c, ok := t.category(category)
	if !ok {
		return nil
	}
	return c.Subcategories
}

// ValidSubcategory reports whether sub is declared under category.
func (t *Taxonomy) ValidSubcategory(category, sub string) bool {
	if sub == "" {
		return false
	}
	for _, s := range t.Subcategories(category) {
		if s == sub {
			return true
		}
	}
	return false
}

func (t *Taxonomy) category(name string) (Category, bool) {
	for _, c := range t.Categories {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}
