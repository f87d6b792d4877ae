package schema

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type yamlFile struct {
	Models []yamlModel `yaml:"models"`
}

type yamlModel struct {
	Name      string              `yaml:"name"`
	Table     string              `yaml:"table"`
	Fields    []Field             `yaml:"fields"`
	Relations map[string]Relation `yaml:"relations"`
}

// LoadYAML reads a schema document of the form
//
//	models:
//	  - name: Order
//	    fields:
//	      - {name: id, type: int, primaryKey: true}
//	      - {name: customerId, type: int, nullable: true}
//	    relations:
//	      customer: {type: belongsTo, model: Customer, fields: [customerId], references: [id]}
//
// and returns a validated registry.
func LoadYAML(r io.Reader) (*Registry, error) {
	var doc yamlFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}

	registry := NewRegistry()
	for _, m := range doc.Models {
		s := New(m.Name)
		if m.Table != "" {
			s.WithTableName(m.Table)
		}
		for _, f := range m.Fields {
			if f.Type == "" {
				f.Type = FieldTypeString
			}
			s.AddField(f)
		}
		for alias, relation := range m.Relations {
			s.AddRelation(alias, relation)
		}
		if err := registry.RegisterSchema(s); err != nil {
			return nil, err
		}
	}

	if err := registry.Validate(); err != nil {
		return nil, err
	}
	return registry, nil
}

// LoadYAMLFile is LoadYAML over a file path
func LoadYAMLFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open schema file: %w", err)
	}
	defer f.Close()
	return LoadYAML(f)
}
