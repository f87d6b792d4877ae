package query

import (
	"fmt"
	"math"
	"strings"

	"github.com/rediwo/redi-eager/schema"
	"github.com/rediwo/redi-eager/types"
)

// OwnerKeyColumn is the extra column a pivot query selects to tell which
// owner a related row was reached from.
const OwnerKeyColumn = "__redi_owner_key"

const (
	relatedAlias = "r"
	pivotAlias   = "p"
)

// selectStatement assembles one SELECT. Field names are mapped to columns
// through the model's schema.
type selectStatement struct {
	dialect types.DriverCapabilities
	model   *schema.Schema
	alias   string

	columns []string
	from    string
	where   []string
	orderBy []string
	args    []any
	limit   *int
	offset  *int
}

func newSelect(dialect types.DriverCapabilities, model *schema.Schema, alias string) *selectStatement {
	s := &selectStatement{dialect: dialect, model: model, alias: alias}
	s.from = dialect.QuoteIdentifier(model.TableName)
	if alias != "" {
		s.from += " " + alias
		s.columns = []string{alias + ".*"}
	} else {
		s.columns = []string{"*"}
	}
	return s
}

// column returns the qualified, quoted column of a field of the statement's model
func (s *selectStatement) column(field string) string {
	return s.qualify(s.alias, s.model.GetColumnNameByFieldName(field))
}

func (s *selectStatement) qualify(alias, column string) string {
	if alias == "" {
		return s.dialect.QuoteIdentifier(column)
	}
	return alias + "." + s.dialect.QuoteIdentifier(column)
}

func (s *selectStatement) bind(value any) string {
	s.args = append(s.args, value)
	return s.dialect.GetPlaceholder(len(s.args))
}

func (s *selectStatement) whereIn(column string, values []any) {
	if len(values) == 0 {
		s.where = append(s.where, "1 = 0")
		return
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = s.bind(v)
	}
	s.where = append(s.where, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")))
}

// apply adds the builder's conditions, ordering and paging
func (s *selectStatement) apply(b *Builder) error {
	if b == nil {
		return nil
	}
	if err := b.Err(); err != nil {
		return err
	}

	for _, c := range b.Conditions() {
		column := s.column(c.Field)
		switch {
		case c.Operator == OpIn:
			s.whereIn(column, c.Values)
		case c.Value == nil && c.Operator == OpEqual:
			s.where = append(s.where, column+" IS NULL")
		case c.Value == nil && c.Operator == OpNotEqual:
			s.where = append(s.where, column+" IS NOT NULL")
		default:
			s.where = append(s.where, fmt.Sprintf("%s %s %s", column, c.Operator, s.bind(c.Value)))
		}
	}

	for _, o := range b.Orders() {
		s.orderBy = append(s.orderBy, s.column(o.Field)+" "+o.Direction.String())
	}
	s.limit, s.offset = b.limit, b.offset
	return nil
}

func (s *selectStatement) build() (string, []any) {
	parts := []string{"SELECT " + strings.Join(s.columns, ", "), "FROM " + s.from}

	if len(s.where) > 0 {
		parts = append(parts, "WHERE "+strings.Join(s.where, " AND "))
	}
	if len(s.orderBy) > 0 {
		parts = append(parts, "ORDER BY "+strings.Join(s.orderBy, ", "))
	}
	switch {
	case s.limit != nil:
		parts = append(parts, fmt.Sprintf("LIMIT %d", *s.limit))
	case s.offset != nil && s.dialect.RequiresLimitForOffset():
		parts = append(parts, fmt.Sprintf("LIMIT %d", int64(math.MaxInt64)))
	}
	if s.offset != nil {
		parts = append(parts, fmt.Sprintf("OFFSET %d", *s.offset))
	}

	return strings.Join(parts, " "), s.args
}

// BuildBatchSQL renders the query fetching every related row whose keyField
// is one of values.
func BuildBatchSQL(dialect types.DriverCapabilities, related *schema.Schema, keyField string, values []any, b *Builder) (string, []any, error) {
	s := newSelect(dialect, related, "")
	s.whereIn(s.column(keyField), values)
	if err := s.apply(b); err != nil {
		return "", nil, err
	}
	sql, args := s.build()
	return sql, args, nil
}

// BuildThroughSQL renders the pivot join of a hasManyThrough relation. Each
// row carries the pivot's owner key in OwnerKeyColumn.
func BuildThroughSQL(dialect types.DriverCapabilities, related, pivot *schema.Schema, relation schema.Relation, values []any, b *Builder) (string, []any, error) {
	through := relation.Through
	if through == nil || len(through.Fields) != 1 || len(through.References) != 1 {
		return "", nil, fmt.Errorf("relation %s: invalid through definition", relation.Alias)
	}

	s := newSelect(dialect, related, relatedAlias)
	ownerColumn := s.qualify(pivotAlias, pivot.GetColumnNameByFieldName(through.Fields[0]))
	s.columns = append(s.columns, ownerColumn+" AS "+dialect.QuoteIdentifier(OwnerKeyColumn))
	s.from += fmt.Sprintf(" INNER JOIN %s %s ON %s = %s",
		dialect.QuoteIdentifier(pivot.TableName), pivotAlias,
		s.qualify(pivotAlias, pivot.GetColumnNameByFieldName(through.References[0])),
		s.column(relation.ReferencedKey()))
	s.whereIn(ownerColumn, values)

	if err := s.apply(b); err != nil {
		return "", nil, err
	}
	sql, args := s.build()
	return sql, args, nil
}

// BuildFindSQL renders a plain constrained SELECT over a model
func BuildFindSQL(dialect types.DriverCapabilities, model *schema.Schema, b *Builder) (string, []any, error) {
	s := newSelect(dialect, model, "")
	if err := s.apply(b); err != nil {
		return "", nil, err
	}
	sql, args := s.build()
	return sql, args, nil
}
