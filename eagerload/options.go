package eagerload

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/rediwo/redi-eager/logger"
	"github.com/rediwo/redi-eager/types"
)

const tracerName = "github.com/rediwo/redi-eager/eagerload"

type options struct {
	resolver    RelationResolver
	fetcher     types.Fetcher
	logger      logger.Logger
	concurrency int
	tracer      trace.Tracer
	metrics     *Metrics
}

// Option configures a Loader
type Option func(*options)

// WithResolver sets the relation-metadata registry paths are resolved against
func WithResolver(r RelationResolver) Option {
	return func(o *options) { o.resolver = r }
}

// WithFetcher sets the query engine nodes fetch from
func WithFetcher(f types.Fetcher) Option {
	return func(o *options) { o.fetcher = f }
}

// WithDatabase uses a connected database as both fetcher and resolver
func WithDatabase(db types.Database) Option {
	return func(o *options) {
		o.fetcher = db
		o.resolver = db.Schemas()
	}
}

func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithConcurrency bounds how many sibling nodes are fetched at once. The
// default of 1 runs every node strictly in tree order.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n < 1 {
			n = 1
		}
		o.concurrency = n
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func newOptions(opts []Option) options {
	o := options{concurrency: 1}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.GetGlobalLogger()
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}
	return o
}
