package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rediwo/redi-eager/types"
)

var (
	// ErrProjectionForbidden is reported when a constraint selects columns or
	// asks for DISTINCT rows. Loaded relations must be whole records.
	ErrProjectionForbidden = errors.New("column projection and distinct are not allowed while eager loading")

	ErrUnsupportedOperator = errors.New("unsupported operator")
)

// Supported Where operators
const (
	OpEqual        = "="
	OpNotEqual     = "!="
	OpGreater      = ">"
	OpGreaterEqual = ">="
	OpLess         = "<"
	OpLessEqual    = "<="
	OpLike         = "LIKE"
	OpIn           = "IN"
)

// Condition is one AND-ed filter on a schema field
type Condition struct {
	Field    string
	Operator string
	Value    any
	Values   []any // for OpIn
}

// OrderClause orders by a schema field
type OrderClause struct {
	Field     string
	Direction types.Order
}

// Builder collects the filters, ordering and paging of a relation fetch. It
// implements types.RelationQuery; every call returns a modified copy.
type Builder struct {
	conditions []Condition
	orderBy    []OrderClause
	limit      *int
	offset     *int
	err        error
}

// NewBuilder creates an empty builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Apply runs constraint on a fresh builder and returns the resulting query.
// A nil constraint yields an empty builder.
func Apply(constraint types.Constraint) (*Builder, error) {
	b := NewBuilder()
	if constraint == nil {
		return b, nil
	}

	result := constraint(b)
	if result == nil {
		return b, nil
	}
	built, ok := result.(*Builder)
	if !ok {
		return nil, fmt.Errorf("constraint returned %T, expected the query it was given", result)
	}
	if err := built.Err(); err != nil {
		return nil, err
	}
	return built, nil
}

// Where adds a condition on a field
func (b *Builder) Where(field string, operator string, value any) types.RelationQuery {
	q := b.clone()
	op := strings.ToUpper(strings.TrimSpace(operator))
	if op == "<>" {
		op = OpNotEqual
	}
	switch op {
	case OpEqual, OpNotEqual, OpGreater, OpGreaterEqual, OpLess, OpLessEqual, OpLike:
		q.conditions = append(q.conditions, Condition{Field: field, Operator: op, Value: value})
	default:
		q.fail(fmt.Errorf("%w: %q", ErrUnsupportedOperator, operator))
	}
	return q
}

// WhereIn adds a field IN (values) condition
func (b *Builder) WhereIn(field string, values []any) types.RelationQuery {
	q := b.clone()
	q.conditions = append(q.conditions, Condition{Field: field, Operator: OpIn, Values: append([]any{}, values...)})
	return q
}

// OrderBy adds ordering
func (b *Builder) OrderBy(field string, direction types.Order) types.RelationQuery {
	q := b.clone()
	q.orderBy = append(q.orderBy, OrderClause{Field: field, Direction: direction})
	return q
}

// Limit sets the limit
func (b *Builder) Limit(limit int) types.RelationQuery {
	q := b.clone()
	q.limit = &limit
	return q
}

// Offset sets the offset
func (b *Builder) Offset(offset int) types.RelationQuery {
	q := b.clone()
	q.offset = &offset
	return q
}

func (b *Builder) Columns(fields ...string) types.RelationQuery {
	q := b.clone()
	q.fail(fmt.Errorf("%w: columns %v", ErrProjectionForbidden, fields))
	return q
}

func (b *Builder) Distinct() types.RelationQuery {
	q := b.clone()
	q.fail(fmt.Errorf("%w: distinct", ErrProjectionForbidden))
	return q
}

// Err returns the first invalid call made on the query
func (b *Builder) Err() error {
	return b.err
}

func (b *Builder) Conditions() []Condition {
	return b.conditions
}

func (b *Builder) Orders() []OrderClause {
	return b.orderBy
}

// LimitValue returns the limit and whether one was set
func (b *Builder) LimitValue() (int, bool) {
	if b.limit == nil {
		return 0, false
	}
	return *b.limit, true
}

// OffsetValue returns the offset and whether one was set
func (b *Builder) OffsetValue() (int, bool) {
	if b.offset == nil {
		return 0, false
	}
	return *b.offset, true
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *Builder) clone() *Builder {
	return &Builder{
		conditions: append([]Condition{}, b.conditions...),
		orderBy:    append([]OrderClause{}, b.orderBy...),
		limit:      b.limit,
		offset:     b.offset,
		err:        b.err,
	}
}
