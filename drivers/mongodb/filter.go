package mongodb

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rediwo/redi-eager/query"
	"github.com/rediwo/redi-eager/schema"
	"github.com/rediwo/redi-eager/types"
)

// compileFilter turns the builder's conditions into a filter document. The
// conditions are AND-ed; several conditions on one field go through $and.
func compileFilter(model *schema.Schema, b *query.Builder) (bson.M, error) {
	filter := bson.M{}
	if b == nil {
		return filter, nil
	}

	var clauses []bson.M
	for _, c := range b.Conditions() {
		clause, err := compileCondition(documentField(model, c.Field), c)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, clause)
	}

	for _, clause := range clauses {
		for key, value := range clause {
			if _, taken := filter[key]; taken {
				return bson.M{"$and": clauses}, nil
			}
			filter[key] = value
		}
	}
	return filter, nil
}

func compileCondition(column string, c query.Condition) (bson.M, error) {
	switch c.Operator {
	case query.OpEqual:
		return bson.M{column: c.Value}, nil
	case query.OpNotEqual:
		return bson.M{column: bson.M{"$ne": c.Value}}, nil
	case query.OpGreater:
		return bson.M{column: bson.M{"$gt": c.Value}}, nil
	case query.OpGreaterEqual:
		return bson.M{column: bson.M{"$gte": c.Value}}, nil
	case query.OpLess:
		return bson.M{column: bson.M{"$lt": c.Value}}, nil
	case query.OpLessEqual:
		return bson.M{column: bson.M{"$lte": c.Value}}, nil
	case query.OpIn:
		return bson.M{column: bson.M{"$in": inValues(c.Values)}}, nil
	case query.OpLike:
		return bson.M{column: bson.M{"$regex": convertLikeToRegex(fmt.Sprintf("%v", c.Value))}}, nil
	default:
		return nil, fmt.Errorf("%w: %q", query.ErrUnsupportedOperator, c.Operator)
	}
}

// inValues never hands $in a nil array
func inValues(values []any) bson.A {
	out := make(bson.A, 0, len(values))
	return append(out, values...)
}

// findOptions carries the builder's ordering and paging
func findOptions(model *schema.Schema, b *query.Builder) *options.FindOptions {
	opts := options.Find()
	if b == nil {
		return opts
	}

	if orders := b.Orders(); len(orders) > 0 {
		sort := bson.D{}
		for _, o := range orders {
			direction := 1
			if o.Direction == types.DESC {
				direction = -1
			}
			sort = append(sort, bson.E{Key: documentField(model, o.Field), Value: direction})
		}
		opts.SetSort(sort)
	}
	if limit, ok := b.LimitValue(); ok {
		opts.SetLimit(int64(limit))
	}
	if offset, ok := b.OffsetValue(); ok {
		opts.SetSkip(int64(offset))
	}
	return opts
}

// escapeRegex escapes regex metacharacters but keeps % and _ for LIKE
// translation
func escapeRegex(s string) string {
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		".", "\\.",
		"^", "\\^",
		"$", "\\$",
		"*", "\\*",
		"+", "\\+",
		"?", "\\?",
		"(", "\\(",
		")", "\\)",
		"[", "\\[",
		"]", "\\]",
		"{", "\\{",
		"}", "\\}",
		"|", "\\|",
	)
	return replacer.Replace(s)
}

// convertLikeToRegex converts a LIKE pattern into an anchored regex
func convertLikeToRegex(pattern string) string {
	escaped := escapeRegex(pattern)
	escaped = strings.ReplaceAll(escaped, "%", ".*")
	escaped = strings.ReplaceAll(escaped, "_", ".")
	return "^" + escaped + "$"
}
