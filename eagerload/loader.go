// Package eagerload loads related records for a set of root entities in a
// bounded number of batched queries.
//
// A Loader takes a Subject (one entity, a homogeneous collection or a
// drained result stream) and relation paths such as "customer" or
// "items.tags". Paths are planned into a tree with one node per distinct
// prefix; each node issues one fetch for all of its parents and attaches the
// results under the relation alias.
//
//	subject, err := eagerload.FromSlice(orders)
//	loader, err := eagerload.New(subject,
//		eagerload.Paths("customer", "items.tags"),
//		eagerload.WithDatabase(db))
//	err = loader.Execute(ctx)
package eagerload

import (
	"context"
	"fmt"
	"iter"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/rediwo/redi-eager/types"
)

// Loader plans and runs eager loads for one subject. Execute may be called
// repeatedly; every call rebuilds the tree from the current requests.
// A Loader is not safe for concurrent use.
type Loader struct {
	subject  Subject
	requests map[string]types.Constraint
	opts     options
}

// New validates the requests against the subject. A nil requests value means
// none yet (see AddEagerLoad); a non-nil value without a usable path fails with
// ErrEmptyArguments. An absent subject skips request parsing altogether.
//
// Only a resolver is required here, which is enough for Plan. Execute also
// needs a fetcher.
func New(subject Subject, requests Requests, opts ...Option) (*Loader, error) {
	o := newOptions(opts)
	if o.resolver == nil {
		return nil, fmt.Errorf("%w: no relation resolver", ErrNotConfigured)
	}

	l := &Loader{
		subject:  subject,
		requests: make(map[string]types.Constraint),
		opts:     o,
	}
	if subject.IsAbsent() || requests == nil {
		return l, nil
	}

	parsed, err := parseRequests(requests)
	if err != nil {
		return nil, err
	}
	l.requests = parsed
	return l, nil
}

// AddEagerLoad adds or replaces the constraint for path before the next
// execution. A malformed path is rejected right away and leaves the requests
// unchanged.
func (l *Loader) AddEagerLoad(path string, constraint types.Constraint) error {
	canonical, ok := canonicalPath(path)
	if !ok {
		return fmt.Errorf("%w: malformed relation path %q", ErrEmptyArguments, path)
	}
	l.requests[canonical] = constraint
	return nil
}

// Plan builds the load tree without fetching anything
func (l *Loader) Plan() ([]PlanNode, error) {
	tree, err := l.buildTree()
	if err != nil {
		return nil, err
	}
	return tree.plan(), nil
}

func (l *Loader) buildTree() (*loadTree, error) {
	if l.subject.IsAbsent() {
		return &loadTree{}, nil
	}
	return buildTree(l.subject.ModelName(), l.requests, l.opts.resolver)
}

// Execute builds the tree and runs every node, parents before children.
// Planning errors are returned before any fetch; fetch errors are returned
// unchanged.
func (l *Loader) Execute(ctx context.Context) error {
	tree, err := l.buildTree()
	if err != nil {
		return err
	}
	if len(tree.nodes) == 0 {
		return nil
	}
	if l.opts.fetcher == nil {
		return fmt.Errorf("%w: no fetcher", ErrNotConfigured)
	}

	ctx, span := l.opts.tracer.Start(ctx, "eagerload.Execute", trace.WithAttributes(
		attribute.String("eagerload.model", l.subject.ModelName()),
		attribute.Int("eagerload.subject_size", l.subject.Len()),
		attribute.Int("eagerload.nodes", len(tree.nodes)),
	))
	defer span.End()

	l.opts.logger.Debug("eager loading %d relation(s) for %d %s", len(tree.nodes), l.subject.Len(), l.subject.ModelName())

	if l.opts.concurrency <= 1 {
		err = l.runSequential(ctx, tree)
	} else {
		err = l.runLevels(ctx, tree)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// Load is an alias of Execute
func (l *Loader) Load(ctx context.Context) error {
	return l.Execute(ctx)
}

func (l *Loader) runSequential(ctx context.Context, tree *loadTree) error {
	root := l.subject.Entities()
	for _, node := range tree.nodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		parents := node.parents(tree, root)
		batch, err := l.fetch(ctx, node, parents)
		if err != nil {
			return err
		}
		node.assign(parents, batch)
	}
	return nil
}

// runLevels fetches the nodes of one depth concurrently, then assigns them
// in tree order before moving to the next depth. Only assignment touches the
// entities, so no entity is written from two goroutines.
func (l *Loader) runLevels(ctx context.Context, tree *loadTree) error {
	root := l.subject.Entities()
	for _, level := range tree.levels() {
		parents := make([][]types.Entity, len(level))
		batches := make([]types.Batch, len(level))
		for i, node := range level {
			parents[i] = node.parents(tree, root)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(l.opts.concurrency)
		for i, node := range level {
			g.Go(func() error {
				batch, err := l.fetch(gctx, node, parents[i])
				batches[i] = batch
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for i, node := range level {
			node.assign(parents[i], batches[i])
		}
	}
	return nil
}

// fetch issues the node's single batched query. It returns a nil batch
// without querying when no parent carries a key value.
func (l *Loader) fetch(ctx context.Context, node *loadNode, parents []types.Entity) (types.Batch, error) {
	values := node.keyValues(parents)
	if len(values) == 0 {
		l.opts.logger.Debug("eager load %s: no %s keys among %d parent(s), skipping fetch", node.path, node.relation.OwnerKey(), len(parents))
		return nil, nil
	}

	ctx, span := l.opts.tracer.Start(ctx, "eagerload.Fetch", trace.WithAttributes(
		attribute.String("eagerload.path", node.path),
		attribute.String("eagerload.model", node.relation.Model),
		attribute.String("eagerload.kind", string(node.relation.Type)),
		attribute.Int("eagerload.keys", len(values)),
	))
	defer span.End()

	start := time.Now()
	batch, err := l.opts.fetcher.FetchBatch(ctx, node.request(values))
	l.opts.metrics.observe(node.relation.Model, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	records := 0
	for _, group := range batch {
		records += len(group)
	}
	span.SetAttributes(attribute.Int("eagerload.records", records))
	l.opts.logger.Debug("eager load %s: fetched %d %s for %d key(s) in %v", node.path, records, node.relation.Model, len(values), time.Since(start))
	return batch, nil
}

// Subject returns the normalized subject
func (l *Loader) Subject() Subject {
	return l.subject
}

// Get returns the subject in the shape it was supplied: a types.Entity (nil
// when absent) for FromEntity, a []types.Entity otherwise.
func (l *Loader) Get() any {
	if l.subject.IsSingle() {
		return l.Entity()
	}
	return l.Entities()
}

// Entity returns the first subject entity, nil when absent
func (l *Loader) Entity() types.Entity {
	if l.subject.IsAbsent() {
		return nil
	}
	return l.subject.entities[0]
}

// Entities returns the subject entities; never nil
func (l *Loader) Entities() []types.Entity {
	if l.subject.IsAbsent() {
		return []types.Entity{}
	}
	return l.subject.entities
}

// LoadEntity eager loads requests onto one entity and returns it
func LoadEntity(ctx context.Context, e types.Entity, requests Requests, opts ...Option) (types.Entity, error) {
	l, err := New(FromEntity(e), requests, opts...)
	if err != nil {
		return nil, err
	}
	if err := l.Execute(ctx); err != nil {
		return nil, err
	}
	return l.Entity(), nil
}

// LoadEntities eager loads requests onto a homogeneous collection
func LoadEntities(ctx context.Context, entities []types.Entity, requests Requests, opts ...Option) ([]types.Entity, error) {
	subject, err := FromEntities(entities)
	if err != nil {
		return nil, err
	}
	l, err := New(subject, requests, opts...)
	if err != nil {
		return nil, err
	}
	if err := l.Execute(ctx); err != nil {
		return nil, err
	}
	return l.Entities(), nil
}

// LoadStream drains rows and eager loads requests onto the result
func LoadStream(ctx context.Context, rows iter.Seq2[types.Entity, error], requests Requests, opts ...Option) ([]types.Entity, error) {
	subject, err := FromStream(rows)
	if err != nil {
		return nil, err
	}
	l, err := New(subject, requests, opts...)
	if err != nil {
		return nil, err
	}
	if err := l.Execute(ctx); err != nil {
		return nil, err
	}
	return l.Entities(), nil
}
