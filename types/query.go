package types

import (
	"context"

	"github.com/rediwo/redi-eager/schema"
)

type Order int

const (
	ASC Order = iota
	DESC
)

func (o Order) String() string {
	if o == DESC {
		return "DESC"
	}
	return "ASC"
}

// RelationQuery is the query-building façade handed to constraint functions.
// Filtering, ordering and paging are allowed. Column projection and DISTINCT
// are rejected while eager loading, since partial rows break assignment.
type RelationQuery interface {
	Where(field string, operator string, value any) RelationQuery
	WhereIn(field string, values []any) RelationQuery
	OrderBy(field string, direction Order) RelationQuery
	Limit(limit int) RelationQuery
	Offset(offset int) RelationQuery

	Columns(fields ...string) RelationQuery
	Distinct() RelationQuery

	// Err reports the first invalid call made on the query
	Err() error
}

// Constraint narrows the fetch for one relation path
type Constraint func(q RelationQuery) RelationQuery

// BatchRequest asks a fetcher for every record of Relation.Model related to
// any of Values, the distinct owning-side key values of the parents.
type BatchRequest struct {
	Path       string
	Relation   schema.Relation
	Values     []any
	Constraint Constraint
}

// Batch groups fetched records by the normalized owning-side key value they
// belong to (see utils.KeyOf). Order inside a group is fetch order.
type Batch map[string][]Entity

// Fetcher is the query engine the loader drives, one call per load node
type Fetcher interface {
	FetchBatch(ctx context.Context, req BatchRequest) (Batch, error)
}

// Database is a connected driver: a Fetcher that can also produce root rows
type Database interface {
	Fetcher

	Connect(ctx context.Context) error
	Close() error

	// FindMany returns records of a model, optionally constrained
	FindMany(ctx context.Context, modelName string, constraint Constraint) ([]Entity, error)

	GetDriverType() string
	Schemas() *schema.Registry
}

// URIParser turns a redi URI into the driver's native DSN
type URIParser interface {
	ParseURI(uri string) (string, error)
	GetSupportedSchemes() []string
	GetDriverType() string
}
