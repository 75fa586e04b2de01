// Package fields holds the catalog of canonical target fields that OCR
// output is mapped onto.
package fields

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Type is the value type a field is expected to carry.
type Type string

const (
	TypeString Type = "string"
	TypeNumber Type = "number"
	TypeDate   Type = "date"
)

// Field is a canonical target attribute.
type Field struct {
	ID          string `json:"id" yaml:"id"`
	DisplayName string `json:"name" yaml:"name"`
	Type        Type   `json:"type,omitempty" yaml:"type"`
	Mandatory   bool   `json:"mandatory" yaml:"mandatory"`
}

//go:embed standard.yaml
var standardYAML []byte

type catalogFile struct {
	Fields []Field `yaml:"fields"`
}

// Standard returns the built-in logistics field catalog.
func Standard() []Field {
	list, err := Parse(standardYAML)
	if err != nil {
		panic(fmt.Sprintf("fields: embedded catalog: %v", err))
	}
	return list
}

// Load reads a catalog file. An empty path returns the standard catalog.
func Load(path string) ([]Field, error) {
	if path == "" {
		return Standard(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading field catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog and checks ids are present and unique.
func Parse(data []byte) ([]Field, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing field catalog: %w", err)
	}

	seen := make(map[string]bool, len(file.Fields))
	for i, f := range file.Fields {
		if f.ID == "" {
			return nil, fmt.Errorf("field %d: id is required", i)
		}
		if seen[f.ID] {
			return nil, fmt.Errorf("field %q: duplicate id", f.ID)
		}
		seen[f.ID] = true
		if f.Type == "" {
			file.Fields[i].Type = TypeString
		}
	}
	return file.Fields, nil
}

// Find returns the field with the given id.
func Find(list []Field, id string) (Field, bool) {
	for _, f := range list {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}
