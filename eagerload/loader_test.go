package eagerload

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rediwo/redi-eager/schema"
	"github.com/rediwo/redi-eager/types"
)

func newTestLoader(t *testing.T, subject Subject, requests Requests, fetcher *fakeFetcher, opts ...Option) *Loader {
	t.Helper()
	opts = append([]Option{WithResolver(shopRegistry()), WithFetcher(fetcher)}, opts...)
	loader, err := New(subject, requests, opts...)
	require.NoError(t, err)
	return loader
}

func collection(t *testing.T, entities []types.Entity) Subject {
	t.Helper()
	subject, err := FromEntities(entities)
	require.NoError(t, err)
	return subject
}

func TestLoadBelongsTo(t *testing.T) {
	data := newShopData()
	fetcher := newFakeFetcher(data)
	orders := data.entities("Order")

	loader := newTestLoader(t, collection(t, orders), Paths("customer"), fetcher)
	require.NoError(t, loader.Execute(context.Background()))

	require.Equal(t, []string{"customer"}, fetcher.paths())
	req, _ := fetcher.request("customer")
	assert.Equal(t, []any{int64(1), int64(2)}, req.Values)

	result := loader.Entities()
	require.Len(t, result, 4)
	for i, e := range result {
		assert.Same(t, orders[i], e, "order %d moved", i)
	}

	ada := data["Customer"][0]
	assert.Same(t, ada, data["Order"][0].One("customer"))
	assert.Same(t, data["Customer"][1], data["Order"][1].One("customer"))
	assert.Same(t, ada, data["Order"][2].One("customer"))

	value, ok := data["Order"][3].Relation("customer")
	assert.True(t, ok, "relation must be set even without a match")
	assert.Nil(t, value)
}

func TestLoadHasOneAndHasMany(t *testing.T) {
	data := newShopData()
	fetcher := newFakeFetcher(data)

	loader := newTestLoader(t, collection(t, data.entities("Customer")), Paths("orders", "profile"), fetcher)
	require.NoError(t, loader.Execute(context.Background()))

	ada, grace, linus := data["Customer"][0], data["Customer"][1], data["Customer"][2]

	assert.Equal(t, []types.Entity{data["Order"][0], data["Order"][2]}, ada.Many("orders"))
	assert.Equal(t, []types.Entity{data["Order"][1]}, grace.Many("orders"))

	orders, ok := linus.Relation("orders")
	require.True(t, ok)
	assert.NotNil(t, orders)
	assert.Empty(t, orders)

	assert.Same(t, data["Profile"][0], ada.One("profile"))
	assert.Nil(t, grace.One("profile"))
}

func TestLoadNestedThrough(t *testing.T) {
	data := newShopData()
	fetcher := newFakeFetcher(data)

	loader := newTestLoader(t, collection(t, data.entities("Order")), Paths("items.tags"), fetcher)
	require.NoError(t, loader.Execute(context.Background()))

	assert.Equal(t, []string{"items", "items.tags"}, fetcher.paths())

	req, _ := fetcher.request("items.tags")
	assert.ElementsMatch(t, []any{int64(100), int64(101), int64(102)}, req.Values)

	items := data["OrderItem"]
	red, blue := data["Tag"][0], data["Tag"][1]
	assert.Equal(t, []types.Entity{items[0], items[1]}, data["Order"][0].Many("items"))
	assert.Equal(t, []types.Entity{red, blue}, items[0].Many("tags"))
	assert.Empty(t, items[1].Many("tags"))
	assert.NotNil(t, items[1].Many("tags"))
	assert.Equal(t, []types.Entity{red}, items[2].Many("tags"))

	assert.Empty(t, data["Order"][2].Many("items"))
}

func TestSharedPrefixResolvesOnce(t *testing.T) {
	data := newShopData()
	fetcher := newFakeFetcher(data)
	resolver := newCountingResolver(shopRegistry())

	loader, err := New(collection(t, data.entities("Order")),
		Paths("items.tags", "items", "items.order", "customer.orders"),
		WithResolver(resolver), WithFetcher(fetcher))
	require.NoError(t, err)
	require.NoError(t, loader.Execute(context.Background()))

	assert.Equal(t, 1, resolver.calls["Order.items"])
	assert.Equal(t, 1, resolver.calls["Order.customer"])
	assert.Len(t, fetcher.paths(), 5, "one fetch per distinct prefix")

	plan, err := loader.Plan()
	require.NoError(t, err)
	assert.Len(t, plan, 5)
}

func TestConstraintAppliesToExactPath(t *testing.T) {
	data := newShopData()
	fetcher := newFakeFetcher(data)
	onlyRed := func(q types.RelationQuery) types.RelationQuery {
		return q.Where("label", "=", "red")
	}

	loader := newTestLoader(t, collection(t, data.entities("Order")), Requests{"items.tags": onlyRed}, fetcher)
	require.NoError(t, loader.Execute(context.Background()))

	items, _ := fetcher.request("items")
	assert.Nil(t, items.Constraint, "intermediate segment must be unconstrained")
	tags, _ := fetcher.request("items.tags")
	assert.NotNil(t, tags.Constraint)

	assert.Equal(t, []types.Entity{data["Tag"][0]}, data["OrderItem"][0].Many("tags"))
	assert.Len(t, data["Order"][0].Many("items"), 2)
}

func TestConstraintOnIntermediateRequest(t *testing.T) {
	data := newShopData()
	fetcher := newFakeFetcher(data)
	paid := func(q types.RelationQuery) types.RelationQuery {
		return q.Where("status", "=", "paid")
	}

	requests := Paths("orders.items").With("orders", paid)
	loader := newTestLoader(t, collection(t, data.entities("Customer")), requests, fetcher)
	require.NoError(t, loader.Execute(context.Background()))

	orders, _ := fetcher.request("orders")
	assert.NotNil(t, orders.Constraint)
	items, _ := fetcher.request("orders.items")
	assert.Nil(t, items.Constraint)

	assert.Equal(t, []types.Entity{data["Order"][0]}, data["Customer"][0].Many("orders"))
	assert.Len(t, data["Order"][0].Many("items"), 2)
	assert.Nil(t, data["Order"][2].Many("items"), "unloaded order must not be visited")
}

func TestLoadEntityUnwraps(t *testing.T) {
	data := newShopData()
	fetcher := newFakeFetcher(data)
	order := data["Order"][1]

	got, err := LoadEntity(context.Background(), order, Paths("customer"),
		WithResolver(shopRegistry()), WithFetcher(fetcher))
	require.NoError(t, err)
	assert.Same(t, order, got)
	assert.Same(t, data["Customer"][1], order.One("customer"))

	loader := newTestLoader(t, FromEntity(order), Paths("customer"), fetcher)
	require.NoError(t, loader.Load(context.Background()))
	single, ok := loader.Get().(types.Entity)
	require.True(t, ok)
	assert.Same(t, order, single)
}

func TestUnknownRelationAtAnyDepth(t *testing.T) {
	for _, path := range []string{"nope", "items.nope", "items.tags.nope"} {
		t.Run(path, func(t *testing.T) {
			data := newShopData()
			fetcher := newFakeFetcher(data)

			loader := newTestLoader(t, collection(t, data.entities("Order")), Paths(path), fetcher)
			err := loader.Execute(context.Background())
			require.ErrorIs(t, err, ErrUnknownRelation)

			var relErr *RelationError
			require.True(t, errors.As(err, &relErr))
			assert.Equal(t, "nope", relErr.Alias)
			assert.Equal(t, path, relErr.Path)
			assert.Contains(t, err.Error(), "using alias `nope`")
			assert.Empty(t, fetcher.paths(), "planning errors must precede any fetch")
		})
	}

	data := newShopData()
	loader := newTestLoader(t, collection(t, data.entities("Order")), Paths("items.nope"), newFakeFetcher(data))
	err := loader.Execute(context.Background())
	var relErr *RelationError
	require.True(t, errors.As(err, &relErr))
	assert.Equal(t, "OrderItem", relErr.Model)
}

func TestCompositeKeyRejected(t *testing.T) {
	registry := shopRegistry()
	order, err := registry.GetSchema("Order")
	require.NoError(t, err)
	order.AddRelation("shipment", schema.Relation{
		Type:       schema.RelationHasOne,
		Model:      "Customer",
		Fields:     []string{"id", "customerId"},
		References: []string{"id", "name"},
	})

	data := newShopData()
	for _, o := range data["Order"] {
		o.Set("customerId", nil)
	}
	fetcher := newFakeFetcher(data)
	loader, err := New(collection(t, data.entities("Order")), Paths("customer", "shipment"),
		WithResolver(registry), WithFetcher(fetcher))
	require.NoError(t, err)

	err = loader.Execute(context.Background())
	assert.ErrorIs(t, err, ErrCompositeKeyUnsupported)
	assert.Empty(t, fetcher.paths())
}

func TestUnsupportedRelationKind(t *testing.T) {
	registry := shopRegistry()
	order, err := registry.GetSchema("Order")
	require.NoError(t, err)
	order.AddRelation("morph", schema.Relation{Type: "morphTo", Model: "Customer", Fields: []string{"customerId"}, References: []string{"id"}})
	order.AddRelation("tags", schema.Relation{Type: schema.RelationHasManyThrough, Model: "Tag", Fields: []string{"id"}, References: []string{"id"}})

	data := newShopData()
	for _, path := range []string{"morph", "tags"} {
		loader, err := New(collection(t, data.entities("Order")), Paths(path),
			WithResolver(registry), WithFetcher(newFakeFetcher(data)))
		require.NoError(t, err)
		assert.ErrorIs(t, loader.Execute(context.Background()), ErrUnsupportedRelationKind, path)
	}
}

func TestEmptySubjectFetchesNothing(t *testing.T) {
	fetcher := newFakeFetcher(newShopData())

	empty, err := FromEntities(nil)
	require.NoError(t, err)
	assert.True(t, empty.IsAbsent())

	loader := newTestLoader(t, empty, Paths("customer", "nope.nothing"), fetcher)
	require.NoError(t, loader.Execute(context.Background()))
	assert.Empty(t, fetcher.paths())
	assert.Equal(t, []types.Entity{}, loader.Get())

	loader = newTestLoader(t, FromEntity(nil), Requests{}, fetcher)
	require.NoError(t, loader.Execute(context.Background()))
	assert.Nil(t, loader.Get())
	assert.Nil(t, loader.Entity())
}

func TestNilElementsDropped(t *testing.T) {
	data := newShopData()
	var missing *types.Record
	subject, err := FromEntities([]types.Entity{nil, data["Order"][0], missing})
	require.NoError(t, err)
	assert.Equal(t, 1, subject.Len())
	assert.Equal(t, "Order", subject.ModelName())
}

type otherRecord struct {
	*types.Record
}

func TestInvalidSubject(t *testing.T) {
	data := newShopData()

	_, err := FromEntities([]types.Entity{data["Order"][0], data["Customer"][0]})
	assert.ErrorIs(t, err, ErrInvalidSubject)

	_, err = FromEntities([]types.Entity{data["Order"][0], otherRecord{data["Order"][1]}})
	assert.ErrorIs(t, err, ErrInvalidSubject)

	_, err = LoadEntities(context.Background(), []types.Entity{data["Order"][0], data["Tag"][0]}, Paths("customer"),
		WithResolver(shopRegistry()), WithFetcher(newFakeFetcher(data)))
	assert.ErrorIs(t, err, ErrInvalidSubject)
}

func TestEmptyArguments(t *testing.T) {
	data := newShopData()
	subject := collection(t, data.entities("Order"))

	for name, requests := range map[string]Requests{
		"empty":     {},
		"blank":     Paths(""),
		"malformed": Paths(" . ", "items..tags"),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := New(subject, requests, WithResolver(shopRegistry()), WithFetcher(newFakeFetcher(data)))
			assert.ErrorIs(t, err, ErrEmptyArguments)
		})
	}

	loader := newTestLoader(t, subject, Paths(" items . tags "), newFakeFetcher(data))
	plan, err := loader.Plan()
	require.NoError(t, err)
	require.Len(t, plan, 2)
	assert.Equal(t, "items.tags", plan[1].Path)
}

func TestNotConfigured(t *testing.T) {
	_, err := New(Subject{}, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)

	data := newShopData()
	loader, err := New(collection(t, data.entities("Order")), Paths("customer"), WithResolver(shopRegistry()))
	require.NoError(t, err)
	assert.ErrorIs(t, loader.Execute(context.Background()), ErrNotConfigured)
}

func TestPlanWithoutFetcher(t *testing.T) {
	loader, err := New(FromEntity(types.NewRecord("Order", nil)), Paths("items.tags"), WithResolver(shopRegistry()))
	require.NoError(t, err)

	plan, err := loader.Plan()
	require.NoError(t, err)
	require.Len(t, plan, 2)
	assert.Equal(t, "items", plan[0].Path)
	assert.Equal(t, "items.tags", plan[1].Path)
}

func TestAddEagerLoad(t *testing.T) {
	data := newShopData()
	fetcher := newFakeFetcher(data)

	loader := newTestLoader(t, collection(t, data.entities("Order")), nil, fetcher)
	require.NoError(t, loader.AddEagerLoad("customer", nil))
	require.NoError(t, loader.AddEagerLoad("items", nil))
	require.NoError(t, loader.Execute(context.Background()))
	assert.ElementsMatch(t, []string{"customer", "items"}, fetcher.paths())

	assert.ErrorIs(t, loader.AddEagerLoad("items..tags", nil), ErrEmptyArguments)
	require.NoError(t, loader.AddEagerLoad("items.tags", nil))
	require.NoError(t, loader.Execute(context.Background()), "a rejected path must not poison later executions")
	assert.Contains(t, fetcher.paths(), "items.tags")
}

func TestExecuteIsRepeatable(t *testing.T) {
	data := newShopData()
	fetcher := newFakeFetcher(data)

	loader := newTestLoader(t, collection(t, data.entities("Order")), Paths("items.tags"), fetcher)
	require.NoError(t, loader.Execute(context.Background()))
	require.NoError(t, loader.Execute(context.Background()))

	assert.Equal(t, []string{"items", "items.tags", "items", "items.tags"}, fetcher.paths())
	assert.Len(t, data["OrderItem"][0].Many("tags"), 2)
}

func TestSkipsFetchWithoutKeys(t *testing.T) {
	data := newShopData()
	for _, o := range data["Order"] {
		o.Set("customerId", nil)
	}
	fetcher := newFakeFetcher(data)

	loader := newTestLoader(t, collection(t, data.entities("Order")), Paths("customer.orders"), fetcher)
	require.NoError(t, loader.Execute(context.Background()))

	assert.Empty(t, fetcher.paths())
	for _, o := range data["Order"] {
		value, ok := o.Relation("customer")
		assert.True(t, ok)
		assert.Nil(t, value)
	}
}

func TestFetchErrorPropagates(t *testing.T) {
	data := newShopData()
	fetcher := newFakeFetcher(data)
	boom := errors.New("connection reset")
	fetcher.errs["items.tags"] = boom

	loader := newTestLoader(t, collection(t, data.entities("Order")), Paths("items.tags"), fetcher)
	assert.Same(t, boom, loader.Execute(context.Background()))
}

func TestCanceledContext(t *testing.T) {
	data := newShopData()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	loader := newTestLoader(t, collection(t, data.entities("Order")), Paths("customer"), newFakeFetcher(data))
	assert.ErrorIs(t, loader.Execute(ctx), context.Canceled)
}

func TestFromStream(t *testing.T) {
	data := newShopData()
	rows := func(yield func(types.Entity, error) bool) {
		for _, o := range data["Order"] {
			if !yield(o, nil) {
				return
			}
		}
	}

	loaded, err := LoadStream(context.Background(), rows, Paths("customer"),
		WithResolver(shopRegistry()), WithFetcher(newFakeFetcher(data)))
	require.NoError(t, err)
	require.Len(t, loaded, 4)
	assert.Same(t, data["Customer"][0], data["Order"][0].One("customer"))

	broken := errors.New("cursor closed")
	var failing iter.Seq2[types.Entity, error] = func(yield func(types.Entity, error) bool) {
		if yield(data["Order"][0], nil) {
			yield(nil, broken)
		}
	}
	_, err = FromStream(failing)
	assert.Same(t, broken, err)
}

func TestConcurrentMatchesSequential(t *testing.T) {
	requests := Paths("customer.profile", "items.tags")

	render := func(concurrency int) []byte {
		data := newShopData()
		fetcher := newFakeFetcher(data)
		loader := newTestLoader(t, collection(t, data.entities("Order")), requests, fetcher, WithConcurrency(concurrency))
		require.NoError(t, loader.Execute(context.Background()))
		assert.Len(t, fetcher.paths(), 4)

		out, err := json.Marshal(loader.Get())
		require.NoError(t, err)
		return out
	}

	assert.JSONEq(t, string(render(1)), string(render(4)))
}

func TestConcurrentErrorCancelsSiblings(t *testing.T) {
	data := newShopData()
	fetcher := newFakeFetcher(data)
	boom := errors.New("customer table locked")
	fetcher.before = func(ctx context.Context, req types.BatchRequest) error {
		switch req.Path {
		case "customer":
			return boom
		case "items":
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	}

	loader := newTestLoader(t, collection(t, data.entities("Order")), Paths("customer", "items.tags"), fetcher, WithConcurrency(2))
	err := loader.Execute(context.Background())
	assert.Same(t, boom, err)
	assert.NotContains(t, fetcher.paths(), "items.tags", "deeper levels must not start after a failure")
}

// valueEntity is a non-comparable entity: it holds a map and is passed by value
type valueEntity struct {
	model  string
	fields map[string]any
}

func (v valueEntity) ModelName() string                   { return v.model }
func (v valueEntity) Field(name string) any               { return v.fields[name] }
func (v valueEntity) SetRelation(alias string, value any) { v.fields["rel:"+alias] = value }
func (v valueEntity) Relation(alias string) (any, bool) {
	value, ok := v.fields["rel:"+alias]
	return value, ok
}

type batchFunc func(ctx context.Context, req types.BatchRequest) (types.Batch, error)

func (f batchFunc) FetchBatch(ctx context.Context, req types.BatchRequest) (types.Batch, error) {
	return f(ctx, req)
}

func TestValueEntitySubjectRejected(t *testing.T) {
	entity := valueEntity{model: "Order", fields: map[string]any{"id": int64(10)}}
	_, err := FromEntities([]types.Entity{entity})
	assert.ErrorIs(t, err, ErrInvalidSubject)
}

func TestValueEntitiesFetchedAsRelations(t *testing.T) {
	data := newShopData()
	ada := valueEntity{model: "Customer", fields: map[string]any{"id": int64(1), "name": "Ada"}}
	fetcher := batchFunc(func(_ context.Context, req types.BatchRequest) (types.Batch, error) {
		return types.Batch{"1": {ada}}, nil
	})

	loaded, err := LoadEntities(context.Background(), data.entities("Order"), Paths("customer.profile"),
		WithResolver(shopRegistry()), WithFetcher(fetcher))
	require.NoError(t, err)

	customer, ok := loaded[0].Relation("customer")
	require.True(t, ok)
	assert.Equal(t, "Ada", customer.(types.Entity).Field("name"))
}
