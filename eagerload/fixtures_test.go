package eagerload

import (
	"context"
	"errors"
	"sync"

	"github.com/rediwo/redi-eager/schema"
	"github.com/rediwo/redi-eager/types"
	"github.com/rediwo/redi-eager/utils"
)

func shopRegistry() *schema.Registry {
	customer := schema.New("Customer").
		AddField(schema.NewField("id").Int().PrimaryKey().Build()).
		AddField(schema.NewField("name").Build()).
		AddRelation("orders", schema.HasMany("Order", "id", "customerId")).
		AddRelation("profile", schema.HasOne("Profile", "id", "customerId"))
	profile := schema.New("Profile").
		AddField(schema.NewField("id").Int().PrimaryKey().Build()).
		AddField(schema.NewField("customerId").Int().Build()).
		AddField(schema.NewField("bio").Build())
	order := schema.New("Order").
		AddField(schema.NewField("id").Int().PrimaryKey().Build()).
		AddField(schema.NewField("customerId").Int().Nullable().Build()).
		AddField(schema.NewField("status").Build()).
		AddRelation("customer", schema.BelongsTo("Customer", "customerId", "id")).
		AddRelation("items", schema.HasMany("OrderItem", "id", "orderId"))
	item := schema.New("OrderItem").
		AddField(schema.NewField("id").Int().PrimaryKey().Build()).
		AddField(schema.NewField("orderId").Int().Build()).
		AddField(schema.NewField("sku").Build()).
		AddRelation("order", schema.BelongsTo("Order", "orderId", "id")).
		AddRelation("tags", schema.HasManyThrough("Tag", "id", "ItemTag", "itemId", "tagId", "id"))
	itemTag := schema.New("ItemTag").WithTableName("item_tag").
		AddField(schema.NewField("itemId").Int().PrimaryKey().Build()).
		AddField(schema.NewField("tagId").Int().PrimaryKey().Build())
	tag := schema.New("Tag").
		AddField(schema.NewField("id").Int().PrimaryKey().Build()).
		AddField(schema.NewField("label").Build())

	return schema.NewRegistry(customer, profile, order, item, itemTag, tag)
}

// shopData is a small store keyed by model name
type shopData map[string][]*types.Record

func newShopData() shopData {
	rec := func(model string, fields map[string]any) *types.Record {
		return types.NewRecord(model, fields)
	}
	return shopData{
		"Customer": {
			rec("Customer", map[string]any{"id": int64(1), "name": "Ada"}),
			rec("Customer", map[string]any{"id": int64(2), "name": "Grace"}),
			rec("Customer", map[string]any{"id": int64(3), "name": "Linus"}),
		},
		"Profile": {
			rec("Profile", map[string]any{"id": int64(1), "customerId": int64(1), "bio": "math"}),
		},
		"Order": {
			rec("Order", map[string]any{"id": int64(10), "customerId": int64(1), "status": "paid"}),
			rec("Order", map[string]any{"id": int64(11), "customerId": int64(2), "status": "paid"}),
			rec("Order", map[string]any{"id": int64(12), "customerId": int64(1), "status": "open"}),
			rec("Order", map[string]any{"id": int64(13), "customerId": nil, "status": "open"}),
		},
		"OrderItem": {
			rec("OrderItem", map[string]any{"id": int64(100), "orderId": int64(10), "sku": "A"}),
			rec("OrderItem", map[string]any{"id": int64(101), "orderId": int64(10), "sku": "B"}),
			rec("OrderItem", map[string]any{"id": int64(102), "orderId": int64(11), "sku": "C"}),
		},
		"ItemTag": {
			rec("ItemTag", map[string]any{"itemId": int64(100), "tagId": int64(1000)}),
			rec("ItemTag", map[string]any{"itemId": int64(100), "tagId": int64(1001)}),
			rec("ItemTag", map[string]any{"itemId": int64(102), "tagId": int64(1000)}),
		},
		"Tag": {
			rec("Tag", map[string]any{"id": int64(1000), "label": "red"}),
			rec("Tag", map[string]any{"id": int64(1001), "label": "blue"}),
		},
	}
}

func (d shopData) entities(model string) []types.Entity {
	out := make([]types.Entity, len(d[model]))
	for i, r := range d[model] {
		out[i] = r
	}
	return out
}

// countingResolver counts ResolveRelation calls
type countingResolver struct {
	RelationResolver
	mu    sync.Mutex
	calls map[string]int
}

func newCountingResolver(r RelationResolver) *countingResolver {
	return &countingResolver{RelationResolver: r, calls: make(map[string]int)}
}

func (c *countingResolver) ResolveRelation(owner, alias string) (schema.Relation, bool) {
	c.mu.Lock()
	c.calls[owner+"."+alias]++
	c.mu.Unlock()
	return c.RelationResolver.ResolveRelation(owner, alias)
}

// fakeFetcher serves batches from shopData and records every request. It
// understands equality Where conditions only.
type fakeFetcher struct {
	data shopData

	mu       sync.Mutex
	requests []types.BatchRequest
	errs     map[string]error
	before   func(ctx context.Context, req types.BatchRequest) error
}

func newFakeFetcher(data shopData) *fakeFetcher {
	return &fakeFetcher{data: data, errs: make(map[string]error)}
}

func (f *fakeFetcher) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	paths := make([]string, len(f.requests))
	for i, r := range f.requests {
		paths[i] = r.Path
	}
	return paths
}

func (f *fakeFetcher) request(path string) (types.BatchRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r.Path == path {
			return r, true
		}
	}
	return types.BatchRequest{}, false
}

func (f *fakeFetcher) FetchBatch(ctx context.Context, req types.BatchRequest) (types.Batch, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	err := f.errs[req.Path]
	before := f.before
	f.mu.Unlock()

	if before != nil {
		if err := before(ctx, req); err != nil {
			return nil, err
		}
	}
	if err != nil {
		return nil, err
	}

	q := &fakeQuery{}
	if req.Constraint != nil {
		req.Constraint(q)
		if q.err != nil {
			return nil, q.err
		}
	}

	wanted := make(map[string]bool, len(req.Values))
	for _, v := range req.Values {
		key, _ := utils.KeyOf(v)
		wanted[key] = true
	}

	rel := req.Relation
	batch := types.Batch{}
	if rel.Type == schema.RelationHasManyThrough {
		for _, pivot := range f.data[rel.Through.Model] {
			owner, _ := utils.KeyOf(pivot.Field(rel.Through.Fields[0]))
			if !wanted[owner] {
				continue
			}
			related, _ := utils.KeyOf(pivot.Field(rel.Through.References[0]))
			for _, r := range f.data[rel.Model] {
				if key, _ := utils.KeyOf(r.Field(rel.ReferencedKey())); key == related && q.matches(r) {
					batch[owner] = append(batch[owner], r)
				}
			}
		}
		return batch, nil
	}

	for _, r := range f.data[rel.Model] {
		key, ok := utils.KeyOf(r.Field(rel.ReferencedKey()))
		if ok && wanted[key] && q.matches(r) {
			batch[key] = append(batch[key], r)
		}
	}
	return batch, nil
}

type fakeCondition struct {
	field string
	value any
}

type fakeQuery struct {
	conditions []fakeCondition
	err        error
}

func (q *fakeQuery) Where(field, operator string, value any) types.RelationQuery {
	if operator == "=" {
		q.conditions = append(q.conditions, fakeCondition{field, value})
	}
	return q
}

func (q *fakeQuery) WhereIn(string, []any) types.RelationQuery       { return q }
func (q *fakeQuery) OrderBy(string, types.Order) types.RelationQuery { return q }
func (q *fakeQuery) Offset(int) types.RelationQuery                  { return q }
func (q *fakeQuery) Limit(int) types.RelationQuery                   { return q }
func (q *fakeQuery) Err() error                                      { return q.err }

func (q *fakeQuery) Columns(...string) types.RelationQuery {
	q.err = errProjection
	return q
}

func (q *fakeQuery) Distinct() types.RelationQuery {
	q.err = errProjection
	return q
}

var errProjection = errors.New("projection not allowed")

func (q *fakeQuery) matches(e types.Entity) bool {
	for _, c := range q.conditions {
		if utils.ToString(e.Field(c.field)) != utils.ToString(c.value) {
			return false
		}
	}
	return true
}
