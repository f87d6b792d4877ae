package test

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rediwo/redi-eager/eagerload"
	"github.com/rediwo/redi-eager/types"
	"github.com/rediwo/redi-eager/utils"
)

// EagerLoadConformanceTests runs the same eager loading scenarios against a
// seeded database of any driver.
type EagerLoadConformanceTests struct {
	DriverName string
	// NewDatabase returns a connected database holding the ShopRows data
	NewDatabase func(t *testing.T) types.Database
	// ProjectionError is the error a projecting constraint must fail with
	ProjectionError error
	SkipTests       map[string]bool
}

// RunAll runs all conformance tests
func (ct *EagerLoadConformanceTests) RunAll(t *testing.T) {
	ct.run(t, "FindMany", ct.TestFindMany)
	ct.run(t, "BelongsTo", ct.TestBelongsTo)
	ct.run(t, "HasOneAndHasMany", ct.TestHasOneAndHasMany)
	ct.run(t, "NestedThrough", ct.TestNestedThrough)
	ct.run(t, "ConstrainedLeaf", ct.TestConstrainedLeaf)
	ct.run(t, "OrderedLimit", ct.TestOrderedLimit)
	ct.run(t, "ProjectionRejected", ct.TestProjectionRejected)
	ct.run(t, "Concurrent", ct.TestConcurrent)
}

func (ct *EagerLoadConformanceTests) run(t *testing.T, name string, test func(t *testing.T, db types.Database)) {
	t.Run(name, func(t *testing.T) {
		if ct.SkipTests[name] {
			t.Skipf("%s skips %s", ct.DriverName, name)
		}
		test(t, ct.NewDatabase(t))
	})
}

func findMany(t *testing.T, db types.Database, model string, constraint types.Constraint) []types.Entity {
	t.Helper()
	entities, err := db.FindMany(context.Background(), model, constraint)
	require.NoError(t, err)
	sort.SliceStable(entities, func(i, j int) bool {
		return utils.ToInt64(entities[i].Field("id")) < utils.ToInt64(entities[j].Field("id"))
	})
	return entities
}

func byID(entities []types.Entity) map[int64]types.Entity {
	out := make(map[int64]types.Entity, len(entities))
	for _, e := range entities {
		out[utils.ToInt64(e.Field("id"))] = e
	}
	return out
}

func one(t *testing.T, e types.Entity, alias string) types.Entity {
	t.Helper()
	value, ok := e.Relation(alias)
	require.True(t, ok, "relation %s not loaded", alias)
	if value == nil {
		return nil
	}
	related, ok := value.(types.Entity)
	require.True(t, ok, "relation %s is %T", alias, value)
	return related
}

func many(t *testing.T, e types.Entity, alias string) []types.Entity {
	t.Helper()
	value, ok := e.Relation(alias)
	require.True(t, ok, "relation %s not loaded", alias)
	related, ok := value.([]types.Entity)
	require.True(t, ok, "relation %s is %T", alias, value)
	return related
}

func ids(entities []types.Entity) []int64 {
	out := make([]int64, len(entities))
	for i, e := range entities {
		out[i] = utils.ToInt64(e.Field("id"))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (ct *EagerLoadConformanceTests) TestFindMany(t *testing.T, db types.Database) {
	orders := findMany(t, db, "Order", nil)
	assert.Equal(t, []int64{10, 11, 12, 13}, ids(orders))

	open := findMany(t, db, "Order", func(q types.RelationQuery) types.RelationQuery {
		return q.Where("status", "=", "open")
	})
	assert.Equal(t, []int64{12, 13}, ids(open))

	items := findMany(t, db, "OrderItem", nil)
	require.NotEmpty(t, items)
	assert.Equal(t, "A", utils.ToString(items[0].Field("sku")), "mapped column must surface under its field name")
}

func (ct *EagerLoadConformanceTests) TestBelongsTo(t *testing.T, db types.Database) {
	orders := findMany(t, db, "Order", nil)

	loaded, err := eagerload.LoadEntities(context.Background(), orders, eagerload.Paths("customer"), eagerload.WithDatabase(db))
	require.NoError(t, err)
	require.Len(t, loaded, 4)

	got := byID(loaded)
	assert.Equal(t, "Ada", utils.ToString(one(t, got[10], "customer").Field("name")))
	assert.Equal(t, "Grace", utils.ToString(one(t, got[11], "customer").Field("name")))
	assert.Equal(t, "Ada", utils.ToString(one(t, got[12], "customer").Field("name")))
	assert.Nil(t, one(t, got[13], "customer"))
}

func (ct *EagerLoadConformanceTests) TestHasOneAndHasMany(t *testing.T, db types.Database) {
	customers := findMany(t, db, "Customer", nil)

	loaded, err := eagerload.LoadEntities(context.Background(), customers, eagerload.Paths("orders", "profile"), eagerload.WithDatabase(db))
	require.NoError(t, err)

	got := byID(loaded)
	assert.Equal(t, []int64{10, 12}, ids(many(t, got[1], "orders")))
	assert.Equal(t, []int64{11}, ids(many(t, got[2], "orders")))
	assert.Empty(t, many(t, got[3], "orders"))

	assert.Equal(t, "math", utils.ToString(one(t, got[1], "profile").Field("bio")))
	assert.Nil(t, one(t, got[2], "profile"))
}

func (ct *EagerLoadConformanceTests) TestNestedThrough(t *testing.T, db types.Database) {
	orders := findMany(t, db, "Order", nil)

	loaded, err := eagerload.LoadEntities(context.Background(), orders, eagerload.Paths("items.tags"), eagerload.WithDatabase(db))
	require.NoError(t, err)

	got := byID(loaded)
	items := byID(many(t, got[10], "items"))
	require.Len(t, items, 2)

	labels := func(tags []types.Entity) []string {
		out := make([]string, len(tags))
		for i, tag := range tags {
			out[i] = utils.ToString(tag.Field("label"))
		}
		sort.Strings(out)
		return out
	}
	assert.Equal(t, []string{"blue", "red"}, labels(many(t, items[100], "tags")))
	assert.Empty(t, many(t, items[101], "tags"))

	for _, tag := range many(t, items[100], "tags") {
		if record, ok := tag.(*types.Record); ok {
			assert.NotContains(t, record.Fields(), "__redi_owner_key")
		}
	}

	other := byID(many(t, got[11], "items"))
	assert.Equal(t, []string{"red"}, labels(many(t, other[102], "tags")))
	assert.Empty(t, many(t, got[12], "items"))
}

func (ct *EagerLoadConformanceTests) TestConstrainedLeaf(t *testing.T, db types.Database) {
	orders := findMany(t, db, "Order", nil)

	requests := eagerload.Requests{
		"items.tags": func(q types.RelationQuery) types.RelationQuery {
			return q.Where("label", "=", "red")
		},
	}
	loaded, err := eagerload.LoadEntities(context.Background(), orders, requests, eagerload.WithDatabase(db))
	require.NoError(t, err)

	items := byID(many(t, byID(loaded)[10], "items"))
	require.Len(t, items, 2, "intermediate segment must stay unconstrained")
	assert.Equal(t, []int64{1000}, ids(many(t, items[100], "tags")))
}

func (ct *EagerLoadConformanceTests) TestOrderedLimit(t *testing.T, db types.Database) {
	customers := findMany(t, db, "Customer", nil)

	requests := eagerload.Requests{
		"orders": func(q types.RelationQuery) types.RelationQuery {
			return q.OrderBy("total", types.DESC).Limit(2)
		},
	}
	loaded, err := eagerload.LoadEntities(context.Background(), customers, requests, eagerload.WithDatabase(db))
	require.NoError(t, err)

	got := byID(loaded)
	total := len(many(t, got[1], "orders")) + len(many(t, got[2], "orders")) + len(many(t, got[3], "orders"))
	assert.Equal(t, 2, total, "limit applies to the whole batch")
	assert.Equal(t, []int64{10, 11}, append(ids(many(t, got[1], "orders")), ids(many(t, got[2], "orders"))...))
}

func (ct *EagerLoadConformanceTests) TestProjectionRejected(t *testing.T, db types.Database) {
	orders := findMany(t, db, "Order", nil)

	requests := eagerload.Requests{
		"customer": func(q types.RelationQuery) types.RelationQuery {
			return q.Columns("name")
		},
	}
	_, err := eagerload.LoadEntities(context.Background(), orders, requests, eagerload.WithDatabase(db))
	require.Error(t, err)
	if ct.ProjectionError != nil {
		assert.True(t, errors.Is(err, ct.ProjectionError), "got %v", err)
	}
}

func (ct *EagerLoadConformanceTests) TestConcurrent(t *testing.T, db types.Database) {
	orders := findMany(t, db, "Order", nil)

	loaded, err := eagerload.LoadEntities(context.Background(), orders,
		eagerload.Paths("customer.profile", "items.tags", "items.order"),
		eagerload.WithDatabase(db), eagerload.WithConcurrency(4))
	require.NoError(t, err)

	got := byID(loaded)
	assert.Equal(t, "math", utils.ToString(one(t, one(t, got[10], "customer"), "profile").Field("bio")))
	for _, item := range many(t, got[10], "items") {
		assert.Equal(t, int64(10), utils.ToInt64(one(t, item, "order").Field("id")))
	}
}
