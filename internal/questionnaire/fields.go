// Package questionnaire maps vendor form submissions onto question records,
// computes completion, and runs the transactional save and fetch paths.
package questionnaire

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed fields.yaml
var defaultCatalogYAML []byte

// FieldDefinition binds a form field name to its question and section.
type FieldDefinition struct {
	Name     string `yaml:"name" json:"name"`
	Section  string `yaml:"section" json:"section"`
	Question string `yaml:"question" json:"question"`
	Required bool   `yaml:"required" json:"required"`
}

// Catalog is the ordered list of known fields. Mapping output follows its order.
type Catalog []FieldDefinition

type catalogDocument struct {
	Fields Catalog `yaml:"fields"`
}

var parseDefaultCatalog = sync.OnceValues(func() (Catalog, error) {
	return ParseCatalog(defaultCatalogYAML)
})

// DefaultCatalog returns a copy of the built-in 18 field catalog. The
// embedded document is decoded once per process.
func DefaultCatalog() Catalog {
	c, err := parseDefaultCatalog()
	if err != nil {
		panic(fmt.Sprintf("questionnaire: embedded catalog invalid: %v", err))
	}
	return slices.Clone(c)
}

// LoadCatalog reads a catalog from path, falling back to DefaultCatalog when path is empty.
func LoadCatalog(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read field catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog document.
func ParseCatalog(data []byte) (Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var doc catalogDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode field catalog: %w", err)
	}
	if err := doc.Fields.Validate(); err != nil {
		return nil, err
	}
	return doc.Fields, nil
}

// Validate checks that every definition is complete and names are unique.
func (c Catalog) Validate() error {
	if len(c) == 0 {
		return errors.New("field catalog is empty")
	}
	seen := make(map[string]struct{}, len(c))
	for i, f := range c {
		switch {
		case f.Name == "":
			return fmt.Errorf("field %d: name required", i)
		case f.Section == "":
			return fmt.Errorf("field %s: section required", f.Name)
		case f.Question == "":
			return fmt.Errorf("field %s: question required", f.Name)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("field %s: duplicate name", f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

// Sections returns section names in first-seen order.
func (c Catalog) Sections() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, f := range c {
		if _, ok := seen[f.Section]; ok {
			continue
		}
		seen[f.Section] = struct{}{}
		out = append(out, f.Section)
	}
	return out
}

// Required returns the number of required fields.
func (c Catalog) Required() int {
	n := 0
	for _, f := range c {
		if f.Required {
			n++
		}
	}
	return n
}
