package sizes

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog is the read-only preset lookup. It is safe for concurrent use
// because nothing mutates it after construction.
type Catalog struct {
	categories []Category
	specs      []SizeSpec
	byID       map[string]int
}

// catalogFile is the on-disk shape of a catalog extension.
type catalogFile struct {
	Categories []Category `yaml:"categories"`
	Sizes      []SizeSpec `yaml:"sizes"`
}

// Builtin returns the catalog of built-in presets.
func Builtin() *Catalog {
	c, err := NewCatalog(builtinCategories, builtinPresets)
	if err != nil {
		panic(err)
	}
	return c
}

// NewCatalog validates specs and indexes them by id. Ids and filenames must be unique,
// custom ids are reserved and every spec must belong to a listed category.
func NewCatalog(categories []Category, specs []SizeSpec) (*Catalog, error) {
	c := &Catalog{
		categories: append([]Category(nil), categories...),
		specs:      make([]SizeSpec, 0, len(specs)),
		byID:       make(map[string]int, len(specs)),
	}

	known := make(map[string]bool, len(categories))
	for _, cat := range categories {
		if cat.ID == "" {
			return nil, fmt.Errorf("category without id")
		}
		if known[cat.ID] {
			return nil, fmt.Errorf("duplicate category %q", cat.ID)
		}
		known[cat.ID] = true
	}

	filenames := make(map[string]string, len(specs))
	for _, s := range specs {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, _, err := ParseCustomID(s.ID); err != ErrNotCustom {
			return nil, fmt.Errorf("size %q: ids starting with %q are reserved", s.ID, CustomPrefix)
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, fmt.Errorf("duplicate size id %q", s.ID)
		}
		if other, dup := filenames[s.Filename]; dup {
			return nil, fmt.Errorf("sizes %q and %q share filename %q", other, s.ID, s.Filename)
		}
		if !known[s.Category] {
			return nil, fmt.Errorf("size %q: unknown category %q", s.ID, s.Category)
		}
		s.IconResolutions = append([]int(nil), s.IconResolutions...)
		filenames[s.Filename] = s.ID
		c.byID[s.ID] = len(c.specs)
		c.specs = append(c.specs, s)
	}

	return c, nil
}

// Load returns the built-in catalog extended with the YAML file at path.
// File entries are appended after the built-ins; an empty path returns Builtin().
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Builtin(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	categories := append(append([]Category(nil), builtinCategories...), file.Categories...)
	specs := append(append([]SizeSpec(nil), builtinPresets...), file.Sizes...)
	c, err := NewCatalog(categories, specs)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Lookup returns a copy of the preset with the given id.
func (c *Catalog) Lookup(id string) (SizeSpec, bool) {
	i, ok := c.byID[id]
	if !ok {
		return SizeSpec{}, false
	}
	return c.copyOf(i), true
}

// All returns every preset in catalog order.
func (c *Catalog) All() []SizeSpec {
	out := make([]SizeSpec, len(c.specs))
	for i := range c.specs {
		out[i] = c.copyOf(i)
	}
	return out
}

func (c *Catalog) Categories() []Category {
	return append([]Category(nil), c.categories...)
}

// ByCategory returns the presets of one category; ok is false for an unknown category.
func (c *Catalog) ByCategory(id string) (specs []SizeSpec, ok bool) {
	for _, cat := range c.categories {
		if cat.ID == id {
			ok = true
			break
		}
	}
	if !ok {
		return nil, false
	}

	specs = []SizeSpec{}
	for i, s := range c.specs {
		if s.Category == id {
			specs = append(specs, c.copyOf(i))
		}
	}
	return specs, true
}

func (c *Catalog) Len() int {
	return len(c.specs)
}

func (c *Catalog) copyOf(i int) SizeSpec {
	s := c.specs[i]
	s.IconResolutions = append([]int(nil), s.IconResolutions...)
	return s
}
