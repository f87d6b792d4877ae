package schema

import (
	"fmt"
	"sort"
)

// dependencyNode is a model in the foreign-key dependency graph
type dependencyNode struct {
	name         string
	dependencies []string
	visited      bool
	inStack      bool
}

// DependencyOrder returns the model names so that every model comes after
// the models its foreign keys point at. The owner of a belongsTo key depends
// on the referenced model, the referenced model of a hasOne or hasMany
// depends on the owner, and a through pivot depends on both ends.
// Self-references are ignored; any other cycle is an error.
func (r *Registry) DependencyOrder() ([]string, error) {
	names := r.Models()
	nodes := make(map[string]*dependencyNode, len(names))
	for _, name := range names {
		nodes[name] = &dependencyNode{name: name}
	}

	depend := func(model, on string) {
		node, ok := nodes[model]
		if !ok || model == on {
			return
		}
		for _, dep := range node.dependencies {
			if dep == on {
				return
			}
		}
		node.dependencies = append(node.dependencies, on)
	}

	for _, name := range names {
		owner, _ := r.GetSchema(name)
		for _, relation := range owner.Relations {
			switch relation.Type {
			case RelationBelongsTo:
				depend(name, relation.Model)
			case RelationHasOne, RelationHasMany:
				depend(relation.Model, name)
			case RelationHasManyThrough:
				if relation.Through != nil {
					depend(relation.Through.Model, name)
					depend(relation.Through.Model, relation.Model)
				}
			}
		}
	}
	for _, node := range nodes {
		sort.Strings(node.dependencies)
	}

	sorted := make([]string, 0, len(names))
	var visit func(name string) error
	visit = func(name string) error {
		node, exists := nodes[name]
		if !exists {
			// Referenced model not registered, skip
			return nil
		}
		if node.inStack {
			return fmt.Errorf("circular dependency detected involving model: %s", name)
		}
		if node.visited {
			return nil
		}

		node.inStack = true
		for _, dep := range node.dependencies {
			if err := visit(dep); err != nil {
				return err
			}
		}
		node.inStack = false
		node.visited = true
		sorted = append(sorted, name)
		return nil
	}

	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return sorted, nil
}
