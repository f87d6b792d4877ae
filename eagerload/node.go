package eagerload

import (
	"reflect"

	"github.com/rediwo/redi-eager/types"
	"github.com/rediwo/redi-eager/utils"
)

// parents returns the entities this node populates: the subject for depth-0
// nodes, otherwise whatever the parent node attached.
func (n *loadNode) parents(tree *loadTree, subject []types.Entity) []types.Entity {
	if n.parent == rootID {
		return subject
	}
	return tree.nodes[n.parent].loaded
}

// keyValues collects the distinct, non-nil owning-side key values of parents
// in first-seen order.
func (n *loadNode) keyValues(parents []types.Entity) []any {
	field := n.relation.OwnerKey()
	seen := make(map[string]struct{}, len(parents))
	values := make([]any, 0, len(parents))

	for _, p := range parents {
		value := p.Field(field)
		key, ok := utils.KeyOf(value)
		if !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		values = append(values, value)
	}
	return values
}

func (n *loadNode) request(values []any) types.BatchRequest {
	return types.BatchRequest{
		Path:       n.path,
		Relation:   n.relation,
		Values:     values,
		Constraint: n.constraint,
	}
}

// assign attaches the grouped batch to every parent according to the
// relation's cardinality and records each distinct attached entity for child
// nodes. A nil batch assigns empty results.
func (n *loadNode) assign(parents []types.Entity, batch types.Batch) {
	field := n.relation.OwnerKey()
	alias := n.relation.Alias
	toMany := n.relation.Type.IsToMany()
	n.loaded = n.loaded[:0]
	seen := make(map[types.Entity]struct{})
	track := func(e types.Entity) {
		t := reflect.TypeOf(e)
		if t == nil {
			return
		}
		// only pointers are safe map keys; other entities may hold maps
		if t.Kind() != reflect.Pointer {
			n.loaded = append(n.loaded, e)
			return
		}
		if _, dup := seen[e]; !dup {
			seen[e] = struct{}{}
			n.loaded = append(n.loaded, e)
		}
	}

	for _, p := range parents {
		var group []types.Entity
		if key, ok := utils.KeyOf(p.Field(field)); ok {
			group = batch[key]
		}

		if toMany {
			related := make([]types.Entity, len(group))
			copy(related, group)
			p.SetRelation(alias, related)
			for _, e := range related {
				track(e)
			}
			continue
		}

		if len(group) == 0 {
			p.SetRelation(alias, nil)
			continue
		}
		p.SetRelation(alias, group[0])
		track(group[0])
	}
}
