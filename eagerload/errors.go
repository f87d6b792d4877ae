package eagerload

import (
	"errors"
	"fmt"

	"github.com/rediwo/redi-eager/schema"
)

var (
	// ErrInvalidSubject is returned when the subject is not a single entity,
	// a homogeneous collection of entities or a result stream.
	ErrInvalidSubject = errors.New("expected a single entity, a homogeneous collection of entities or a result stream")

	// ErrEmptyArguments is returned when no usable eager load path was given
	ErrEmptyArguments = errors.New("eager load arguments can not be empty")

	// ErrUnknownRelation is returned when an alias has no relation on its owning model
	ErrUnknownRelation = errors.New("no relation defined for alias")

	// ErrUnsupportedRelationKind is returned for relation types outside
	// belongsTo, hasOne, hasMany and hasManyThrough
	ErrUnsupportedRelationKind = errors.New("unsupported relation kind")

	// ErrCompositeKeyUnsupported is returned for relations keyed on more than one column
	ErrCompositeKeyUnsupported = errors.New("relations with composite keys are not supported")

	// ErrNotConfigured is returned by New without a resolver and by Execute
	// without a fetcher
	ErrNotConfigured = errors.New("eager loader is not configured")
)

// RelationError reports a relation path that could not be planned. It wraps
// one of ErrUnknownRelation, ErrUnsupportedRelationKind or
// ErrCompositeKeyUnsupported.
type RelationError struct {
	Path  string
	Model string
	Alias string
	Kind  schema.RelationType
	Err   error
}

func (e *RelationError) Error() string {
	switch {
	case errors.Is(e.Err, ErrUnknownRelation):
		return fmt.Sprintf("eager load %q: there is no defined relation for the model `%s` using alias `%s`", e.Path, e.Model, e.Alias)
	case errors.Is(e.Err, ErrUnsupportedRelationKind):
		return fmt.Sprintf("eager load %q: %s `%s` on %s.%s", e.Path, e.Err, e.Kind, e.Model, e.Alias)
	default:
		return fmt.Sprintf("eager load %q: %s.%s: %s", e.Path, e.Model, e.Alias, e.Err)
	}
}

func (e *RelationError) Unwrap() error {
	return e.Err
}
