package schema

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is the relation-metadata registry: schemas by model name.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
}

func NewRegistry(schemas ...*Schema) *Registry {
	r := &Registry{schemas: make(map[string]*Schema)}
	for _, s := range schemas {
		r.schemas[s.Name] = s
	}
	return r
}

// RegisterSchema adds or replaces a model
func (r *Registry) RegisterSchema(s *Schema) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid schema: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[s.Name] = s
	return nil
}

func (r *Registry) GetSchema(modelName string) (*Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[modelName]
	if !ok {
		return nil, fmt.Errorf("schema for model '%s' not registered", modelName)
	}
	return s, nil
}

// ResolveRelation looks up the relation registered under alias on ownerModel
func (r *Registry) ResolveRelation(ownerModel, alias string) (Relation, bool) {
	s, err := r.GetSchema(ownerModel)
	if err != nil {
		return Relation{}, false
	}
	return s.GetRelation(alias)
}

// ModelToTable returns the table (or collection) backing a model
func (r *Registry) ModelToTable(modelName string) (string, error) {
	s, err := r.GetSchema(modelName)
	if err != nil {
		return "", err
	}
	return s.TableName, nil
}

// Models lists the registered model names in sorted order
func (r *Registry) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks every relation against the models it references
func (r *Registry) Validate() error {
	for _, name := range r.Models() {
		owner, _ := r.GetSchema(name)
		aliases := make([]string, 0, len(owner.Relations))
		for alias := range owner.Relations {
			aliases = append(aliases, alias)
		}
		sort.Strings(aliases)

		for _, alias := range aliases {
			relation := owner.Relations[alias]
			related, _ := r.GetSchema(relation.Model)
			var pivot *Schema
			if relation.Through != nil {
				pivot, _ = r.GetSchema(relation.Through.Model)
			}
			if err := ValidateRelation(relation, owner, related, pivot); err != nil {
				return fmt.Errorf("invalid relation %s.%s: %w", name, alias, err)
			}
		}
	}
	return nil
}
