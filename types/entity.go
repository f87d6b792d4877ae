package types

import (
	"encoding/json"
	"fmt"
)

// Entity is a mapped record the loader can read keys from and attach
// relations to. Implementations used as loader subjects must be comparable
// (pointer types), since the loader identifies them by value.
type Entity interface {
	// ModelName is the schema model the entity belongs to
	ModelName() string
	// Field returns a field value by schema field name, nil if absent
	Field(name string) any
	// SetRelation attaches a loaded relation: an Entity (or nil) for
	// single-valued relations, a []Entity for to-many relations
	SetRelation(alias string, value any)
	// Relation returns a previously attached relation
	Relation(alias string) (any, bool)
}

// Record is the map-backed Entity produced by the drivers
type Record struct {
	model     string
	fields    map[string]any
	relations map[string]any
}

func NewRecord(model string, fields map[string]any) *Record {
	if fields == nil {
		fields = make(map[string]any)
	}
	return &Record{model: model, fields: fields}
}

func (r *Record) ModelName() string {
	return r.model
}

func (r *Record) Field(name string) any {
	return r.fields[name]
}

// Set assigns a plain field value
func (r *Record) Set(name string, value any) {
	r.fields[name] = value
}

// Fields returns the record's own field values, without relations
func (r *Record) Fields() map[string]any {
	return r.fields
}

func (r *Record) SetRelation(alias string, value any) {
	if r.relations == nil {
		r.relations = make(map[string]any)
	}
	r.relations[alias] = value
}

func (r *Record) Relation(alias string) (any, bool) {
	value, ok := r.relations[alias]
	return value, ok
}

// One returns a single-valued relation, nil when unset or empty
func (r *Record) One(alias string) Entity {
	value, _ := r.relations[alias].(Entity)
	return value
}

// Many returns a to-many relation, nil when unset
func (r *Record) Many(alias string) []Entity {
	value, _ := r.relations[alias].([]Entity)
	return value
}

// MarshalJSON renders fields and loaded relations as one object. A relation
// alias shadows a field with the same name.
func (r *Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.fields)+len(r.relations))
	for k, v := range r.fields {
		out[k] = v
	}
	for k, v := range r.relations {
		out[k] = v
	}
	return json.Marshal(out)
}

func (r *Record) String() string {
	return fmt.Sprintf("%s%v", r.model, r.fields)
}
