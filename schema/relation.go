package schema

import "fmt"

// RelationType is the closed set of relation shapes. The shape decides how
// fetched records are assigned back: a single record for BelongsTo/HasOne,
// a list for HasMany/HasManyThrough.
type RelationType string

const (
	RelationBelongsTo      RelationType = "belongsTo"
	RelationHasOne         RelationType = "hasOne"
	RelationHasMany        RelationType = "hasMany"
	RelationHasManyThrough RelationType = "hasManyThrough"
)

// IsSupported reports whether t is one of the four known shapes
func (t RelationType) IsSupported() bool {
	switch t {
	case RelationBelongsTo, RelationHasOne, RelationHasMany, RelationHasManyThrough:
		return true
	}
	return false
}

// IsToMany reports whether the relation assigns a list
func (t RelationType) IsToMany() bool {
	return t == RelationHasMany || t == RelationHasManyThrough
}

// Relation describes one relation of an owning model.
//
// Fields are the owning-side key fields, References the referenced-side key
// fields on Model. For BelongsTo the owner holds the foreign key
// (Order.customerId -> Customer.id); for HasOne/HasMany the referenced model does
// (Order.id -> OrderItem.orderId). HasManyThrough joins via the Through pivot.
type Relation struct {
	Alias      string       `yaml:"-"`
	Type       RelationType `yaml:"type"`
	Model      string       `yaml:"model"`
	Fields     []string     `yaml:"fields"`
	References []string     `yaml:"references"`
	Through    *Through     `yaml:"through,omitempty"`
}

// Through describes the pivot model of a HasManyThrough relation. Fields hold
// the pivot columns matching the owner key, References the pivot columns
// matching the referenced key.
type Through struct {
	Model      string   `yaml:"model"`
	Fields     []string `yaml:"fields"`
	References []string `yaml:"references"`
}

func BelongsTo(model, foreignKey, references string) Relation {
	return Relation{Type: RelationBelongsTo, Model: model, Fields: []string{foreignKey}, References: []string{references}}
}

func HasOne(model, localKey, foreignKey string) Relation {
	return Relation{Type: RelationHasOne, Model: model, Fields: []string{localKey}, References: []string{foreignKey}}
}

func HasMany(model, localKey, foreignKey string) Relation {
	return Relation{Type: RelationHasMany, Model: model, Fields: []string{localKey}, References: []string{foreignKey}}
}

// HasManyThrough relates owner.localKey = pivot.pivotOwnerKey and
// pivot.pivotRelatedKey = model.references.
func HasManyThrough(model, localKey, pivot, pivotOwnerKey, pivotRelatedKey, references string) Relation {
	return Relation{
		Type:       RelationHasManyThrough,
		Model:      model,
		Fields:     []string{localKey},
		References: []string{references},
		Through: &Through{
			Model:      pivot,
			Fields:     []string{pivotOwnerKey},
			References: []string{pivotRelatedKey},
		},
	}
}

// IsComposite reports whether any key in the relation's chain spans more
// than one column (or is missing).
func (r Relation) IsComposite() bool {
	if len(r.Fields) != 1 || len(r.References) != 1 {
		return true
	}
	if r.Through != nil && (len(r.Through.Fields) != 1 || len(r.Through.References) != 1) {
		return true
	}
	return false
}

// OwnerKey is the single owning-side key field. Callers check IsComposite first.
func (r Relation) OwnerKey() string {
	return r.Fields[0]
}

// ReferencedKey is the single referenced-side key field.
func (r Relation) ReferencedKey() string {
	return r.References[0]
}

// ValidateRelation checks that the relation's key fields exist on the models
// they belong to. Composite keys are allowed here; the loader rejects them.
func ValidateRelation(relation Relation, owner, related, pivot *Schema) error {
	if related == nil {
		return fmt.Errorf("related model %s not found", relation.Model)
	}
	for _, name := range relation.Fields {
		if _, err := owner.GetField(name); err != nil {
			return err
		}
	}
	for _, name := range relation.References {
		if _, err := related.GetField(name); err != nil {
			return err
		}
	}
	if relation.Type != RelationHasManyThrough {
		return nil
	}
	if relation.Through == nil {
		return fmt.Errorf("relation %s needs a through model", relation.Alias)
	}
	if pivot == nil {
		return fmt.Errorf("through model %s not found", relation.Through.Model)
	}
	for _, name := range append(append([]string{}, relation.Through.Fields...), relation.Through.References...) {
		if _, err := pivot.GetField(name); err != nil {
			return err
		}
	}
	return nil
}
