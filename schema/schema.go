// Package schema holds the model metadata the eager loader resolves relation
// paths against: models, their fields and column mapping, and their relations.
package schema

import (
	"fmt"

	"github.com/rediwo/redi-eager/utils"
)

type FieldType string

const (
	FieldTypeString   FieldType = "string"
	FieldTypeInt      FieldType = "int"
	FieldTypeInt64    FieldType = "int64"
	FieldTypeFloat    FieldType = "float"
	FieldTypeBool     FieldType = "bool"
	FieldTypeDateTime FieldType = "datetime"
)

type Field struct {
	Name       string    `yaml:"name"`
	Type       FieldType `yaml:"type"`
	PrimaryKey bool      `yaml:"primaryKey"`
	Nullable   bool      `yaml:"nullable"`
	Map        string    `yaml:"map"` // explicit column name
}

// GetColumnName returns the database column for the field, snake_cased unless mapped
func (f Field) GetColumnName() string {
	if f.Map != "" {
		return f.Map
	}
	return utils.ToSnakeCase(f.Name)
}

type Schema struct {
	Name      string
	TableName string
	Fields    []Field
	Relations map[string]Relation
}

func New(name string) *Schema {
	return &Schema{
		Name:      name,
		TableName: utils.ModelToTable(name),
		Relations: make(map[string]Relation),
	}
}

func (s *Schema) WithTableName(name string) *Schema {
	s.TableName = name
	return s
}

func (s *Schema) AddField(field Field) *Schema {
	s.Fields = append(s.Fields, field)
	return s
}

// AddRelation registers a relation under the alias it is loaded by
func (s *Schema) AddRelation(alias string, relation Relation) *Schema {
	relation.Alias = alias
	s.Relations[alias] = relation
	return s
}

func (s *Schema) GetField(name string) (*Field, error) {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i], nil
		}
	}
	return nil, fmt.Errorf("field %s not found in model %s", name, s.Name)
}

func (s *Schema) GetPrimaryKey() (*Field, error) {
	for i := range s.Fields {
		if s.Fields[i].PrimaryKey {
			return &s.Fields[i], nil
		}
	}
	return nil, fmt.Errorf("model %s has no primary key", s.Name)
}

func (s *Schema) GetRelation(alias string) (Relation, bool) {
	relation, ok := s.Relations[alias]
	return relation, ok
}

// GetColumnNameByFieldName maps a field to its column. Unknown names fall
// through snake_cased so raw columns still work in constraints.
func (s *Schema) GetColumnNameByFieldName(fieldName string) string {
	if field, err := s.GetField(fieldName); err == nil {
		return field.GetColumnName()
	}
	return utils.ToSnakeCase(fieldName)
}

// MapColumnDataToSchema renames a scanned row from column names to field
// names; columns without a field are kept as they are.
func (s *Schema) MapColumnDataToSchema(row map[string]any) map[string]any {
	byColumn := make(map[string]string, len(s.Fields))
	for _, field := range s.Fields {
		byColumn[field.GetColumnName()] = field.Name
	}

	mapped := make(map[string]any, len(row))
	for column, value := range row {
		if name, ok := byColumn[column]; ok {
			mapped[name] = value
		} else {
			mapped[column] = value
		}
	}
	return mapped
}

func (s *Schema) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("schema name cannot be empty")
	}
	if s.TableName == "" {
		return fmt.Errorf("table name cannot be empty for model %s", s.Name)
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("model %s must have at least one field", s.Name)
	}

	seen := make(map[string]bool, len(s.Fields))
	for _, field := range s.Fields {
		if field.Name == "" {
			return fmt.Errorf("model %s has a field without a name", s.Name)
		}
		if seen[field.Name] {
			return fmt.Errorf("model %s declares field %s twice", s.Name, field.Name)
		}
		seen[field.Name] = true
	}
	return nil
}
