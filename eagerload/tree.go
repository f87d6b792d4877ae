package eagerload

import (
	"sort"
	"strings"

	"github.com/rediwo/redi-eager/schema"
	"github.com/rediwo/redi-eager/types"
)

// RelationResolver looks up the relation registered under alias on a model.
// *schema.Registry implements it.
type RelationResolver interface {
	ResolveRelation(ownerModel, alias string) (schema.Relation, bool)
}

// rootID is the parent of depth-0 nodes: the subject itself
const rootID = -1

// loadNode is one resolved relation at one path position. It lives for a
// single load pass.
type loadNode struct {
	id         int
	parent     int
	depth      int
	path       string
	owner      string
	relation   schema.Relation
	constraint types.Constraint

	// loaded holds the entities this node attached to its parents; children
	// walk these.
	loaded []types.Entity
}

// loadTree is the arena of nodes in execution order: every node's parent has
// a smaller id.
type loadTree struct {
	nodes []*loadNode
}

// buildTree turns canonical requests into a load tree. Paths are processed
// shortest first (then lexicographically), so a node's parent always exists
// before it and a requested path is never first created as a bare
// intermediate segment. Shared prefixes resolve to one node.
func buildTree(rootModel string, requests map[string]types.Constraint, resolver RelationResolver) (*loadTree, error) {
	paths := make([][]string, 0, len(requests))
	for path := range requests {
		paths = append(paths, strings.Split(path, "."))
	}
	sort.Slice(paths, func(i, j int) bool {
		if len(paths[i]) != len(paths[j]) {
			return len(paths[i]) < len(paths[j])
		}
		return strings.Join(paths[i], ".") < strings.Join(paths[j], ".")
	})

	tree := &loadTree{}
	index := make(map[string]int, len(requests))

	for _, segments := range paths {
		full := strings.Join(segments, ".")
		parent := rootID

		for depth, alias := range segments {
			prefix := strings.Join(segments[:depth+1], ".")
			last := depth == len(segments)-1

			if id, ok := index[prefix]; ok {
				parent = id
				continue
			}

			owner := rootModel
			if parent != rootID {
				owner = tree.nodes[parent].relation.Model
			}

			relation, err := resolveRelation(resolver, prefix, owner, alias)
			if err != nil {
				return nil, err
			}

			node := &loadNode{
				id:       len(tree.nodes),
				parent:   parent,
				depth:    depth,
				path:     prefix,
				owner:    owner,
				relation: relation,
			}
			if last {
				node.constraint = requests[full]
			}

			tree.nodes = append(tree.nodes, node)
			index[prefix] = node.id
			parent = node.id
		}
	}

	return tree, nil
}

func resolveRelation(resolver RelationResolver, path, owner, alias string) (schema.Relation, error) {
	relation, ok := resolver.ResolveRelation(owner, alias)
	if !ok {
		return schema.Relation{}, &RelationError{Path: path, Model: owner, Alias: alias, Err: ErrUnknownRelation}
	}
	relation.Alias = alias

	if !relation.Type.IsSupported() || (relation.Type == schema.RelationHasManyThrough && relation.Through == nil) {
		return schema.Relation{}, &RelationError{Path: path, Model: owner, Alias: alias, Kind: relation.Type, Err: ErrUnsupportedRelationKind}
	}
	if relation.IsComposite() {
		return schema.Relation{}, &RelationError{Path: path, Model: owner, Alias: alias, Kind: relation.Type, Err: ErrCompositeKeyUnsupported}
	}
	return relation, nil
}

// levels groups node ids by depth, preserving execution order inside a level
func (t *loadTree) levels() [][]*loadNode {
	var levels [][]*loadNode
	for _, node := range t.nodes {
		for len(levels) <= node.depth {
			levels = append(levels, nil)
		}
		levels[node.depth] = append(levels[node.depth], node)
	}
	return levels
}

// PlanNode describes one node of a built load tree
type PlanNode struct {
	Path        string
	Parent      string // empty for nodes loaded from the subject
	Depth       int
	Owner       string
	Alias       string
	Kind        schema.RelationType
	Target      string
	Constrained bool
}

func (t *loadTree) plan() []PlanNode {
	plan := make([]PlanNode, len(t.nodes))
	for i, node := range t.nodes {
		parent := ""
		if node.parent != rootID {
			parent = t.nodes[node.parent].path
		}
		plan[i] = PlanNode{
			Path:        node.path,
			Parent:      parent,
			Depth:       node.depth,
			Owner:       node.owner,
			Alias:       node.relation.Alias,
			Kind:        node.relation.Type,
			Target:      node.relation.Model,
			Constrained: node.constraint != nil,
		}
	}
	return plan
}
