package eagerload

import (
	"fmt"
	"iter"
	"reflect"

	"github.com/rediwo/redi-eager/types"
)

// Subject is the normalized set of root entities: an ordered, non-empty list
// of entities of one model, or absent when there is nothing to load.
type Subject struct {
	entities []types.Entity
	model    string
	single   bool
}

// FromEntity wraps one entity. The loader hands it back unwrapped. A nil
// entity gives an absent subject.
func FromEntity(e types.Entity) Subject {
	if isNil(e) {
		return Subject{single: true}
	}
	return Subject{entities: []types.Entity{e}, model: e.ModelName(), single: true}
}

// FromEntities normalizes a collection. Nil elements are dropped; an empty
// result is an absent subject. The remaining entities must share one model
// and one concrete pointer type, so relations attached to them are visible to
// the caller.
func FromEntities(entities []types.Entity) (Subject, error) {
	kept := make([]types.Entity, 0, len(entities))
	for _, e := range entities {
		if !isNil(e) {
			kept = append(kept, e)
		}
	}
	return newCollection(kept)
}

// FromSlice is FromEntities for typed slices such as []*types.Record
func FromSlice[E types.Entity](entities []E) (Subject, error) {
	converted := make([]types.Entity, len(entities))
	for i, e := range entities {
		converted[i] = e
	}
	return FromEntities(converted)
}

// FromStream materializes a lazily iterated result. Batching needs random
// access and several passes, so the stream is drained completely; an error
// yielded by the stream is returned as is.
func FromStream(rows iter.Seq2[types.Entity, error]) (Subject, error) {
	var kept []types.Entity
	for e, err := range rows {
		if err != nil {
			return Subject{}, err
		}
		if !isNil(e) {
			kept = append(kept, e)
		}
	}
	return newCollection(kept)
}

func newCollection(entities []types.Entity) (Subject, error) {
	if len(entities) == 0 {
		return Subject{}, nil
	}

	first := entities[0]
	model, goType := first.ModelName(), reflect.TypeOf(first)
	if goType.Kind() != reflect.Pointer {
		return Subject{}, fmt.Errorf("%w: %s entities must be pointers, got %s", ErrInvalidSubject, model, goType)
	}
	for i, e := range entities[1:] {
		if e.ModelName() != model || reflect.TypeOf(e) != goType {
			return Subject{}, fmt.Errorf("%w: element %d is a %s (%s), expected %s (%s)",
				ErrInvalidSubject, i+1, e.ModelName(), reflect.TypeOf(e), model, goType)
		}
	}
	return Subject{entities: entities, model: model}, nil
}

// IsAbsent reports whether there is nothing to load
func (s Subject) IsAbsent() bool {
	return len(s.entities) == 0
}

// IsSingle reports whether the subject was built from one entity
func (s Subject) IsSingle() bool {
	return s.single
}

// ModelName is the model shared by all entities, empty when absent
func (s Subject) ModelName() string {
	return s.model
}

func (s Subject) Len() int {
	return len(s.entities)
}

// Entities returns the entities in their original order
func (s Subject) Entities() []types.Entity {
	return s.entities
}

func isNil(e types.Entity) bool {
	if e == nil {
		return true
	}
	v := reflect.ValueOf(e)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func:
		return v.IsNil()
	}
	return false
}
