package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/rediwo/redi-eager/database"
	"github.com/rediwo/redi-eager/eagerload"
	"github.com/rediwo/redi-eager/logger"
	"github.com/rediwo/redi-eager/schema"
	"github.com/rediwo/redi-eager/types"
)

const (
	dbFlag          = "db"
	schemaFlag      = "schema"
	modelFlag       = "model"
	includeFlag     = "include"
	limitFlag       = "limit"
	concurrencyFlag = "concurrency"
	logLevelFlag    = "log-level"
	explainFlag     = "explain"
	traceFlag       = "trace"
)

type loadConfig struct {
	DB          string
	Schema      string
	Model       string
	Include     []string
	Limit       int
	Concurrency int
	LogLevel    string
	Explain     bool
	Trace       bool
}

func (c loadConfig) validate() error {
	var missing []string
	if c.Schema == "" {
		missing = append(missing, "--"+schemaFlag)
	}
	if c.Model == "" {
		missing = append(missing, "--"+modelFlag)
	}
	if c.DB == "" && !c.Explain {
		missing = append(missing, "--"+dbFlag)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required flags: %s", strings.Join(missing, ", "))
	}
	if c.Limit < 0 {
		return errors.New("--limit must not be negative")
	}
	return nil
}

func newLoadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load rows of a model with their relations",
		Example: `  redi-eager load --db sqlite://./shop.db --schema shop.yaml --model Order --include customer --include items.tags
  redi-eager load --schema shop.yaml --model Order --include items.tags --explain`,
		Args: cobra.NoArgs,
		RunE: runLoad,
		PreRun: func(cmd *cobra.Command, args []string) {
			flags := cmd.Flags()

			mustBindPFlag(dbFlag, flags.Lookup(dbFlag))
			mustBindPFlag(schemaFlag, flags.Lookup(schemaFlag))
			mustBindPFlag(modelFlag, flags.Lookup(modelFlag))
			mustBindPFlag(includeFlag, flags.Lookup(includeFlag))
			mustBindPFlag(limitFlag, flags.Lookup(limitFlag))
			mustBindPFlag(concurrencyFlag, flags.Lookup(concurrencyFlag))
			mustBindPFlag(logLevelFlag, flags.Lookup(logLevelFlag))
			mustBindPFlag(explainFlag, flags.Lookup(explainFlag))
			mustBindPFlag(traceFlag, flags.Lookup(traceFlag))
		},
	}

	flags := cmd.Flags()
	flags.String(dbFlag, "", "database URI")
	flags.String(schemaFlag, "", "path to the YAML schema file")
	flags.String(modelFlag, "", "model whose rows are loaded")
	flags.StringSlice(includeFlag, nil, "dotted relation path to eager load (repeatable)")
	flags.Int(limitFlag, 0, "maximum number of root rows, 0 for all")
	flags.Int(concurrencyFlag, 1, "relations fetched at once within one tree level")
	flags.String(logLevelFlag, "info", "log level: debug, info, warn, error, none")
	flags.Bool(explainFlag, false, "print the load plan instead of running it")
	flags.Bool(traceFlag, false, "log the recorded spans after loading")

	// NOTE: if you add a new flag here, add the binding in PreRun

	return cmd
}

func runLoad(cmd *cobra.Command, _ []string) error {
	cfg := loadConfig{
		DB:          viper.GetString(dbFlag),
		Schema:      viper.GetString(schemaFlag),
		Model:       viper.GetString(modelFlag),
		Include:     viper.GetStringSlice(includeFlag),
		Limit:       viper.GetInt(limitFlag),
		Concurrency: viper.GetInt(concurrencyFlag),
		LogLevel:    viper.GetString(logLevelFlag),
		Explain:     viper.GetBool(explainFlag),
		Trace:       viper.GetBool(traceFlag),
	}
	return load(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

func load(ctx context.Context, cfg loadConfig, out, errOut io.Writer) error {
	if err := cfg.validate(); err != nil {
		return err
	}

	log := logger.NewDefaultLogger("redi-eager")
	log.SetOutput(errOut)
	log.SetLevel(logger.ParseLogLevel(cfg.LogLevel))
	logger.SetGlobalLogger(log)
	defer logger.SetGlobalLogger(nil)

	schemas, err := schema.LoadYAMLFile(cfg.Schema)
	if err != nil {
		return err
	}
	if _, err := schemas.GetSchema(cfg.Model); err != nil {
		return err
	}

	var requests eagerload.Requests
	if len(cfg.Include) > 0 {
		requests = eagerload.Paths(cfg.Include...)
	}

	if cfg.Explain {
		return explain(cfg.Model, requests, schemas, out)
	}

	db, err := database.Open(ctx, cfg.DB, schemas)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Debug("connected to %s (%s)", database.RedactURI(cfg.DB), db.GetDriverType())

	var constraint types.Constraint
	if cfg.Limit > 0 {
		constraint = func(q types.RelationQuery) types.RelationQuery {
			return q.Limit(cfg.Limit)
		}
	}
	roots, err := db.FindMany(ctx, cfg.Model, constraint)
	if err != nil {
		return err
	}
	log.Info("loaded %d %s row(s)", len(roots), cfg.Model)

	if requests != nil {
		reg := prometheus.NewRegistry()
		metrics, err := eagerload.NewMetrics(reg)
		if err != nil {
			return err
		}
		opts := []eagerload.Option{
			eagerload.WithDatabase(db),
			eagerload.WithLogger(log),
			eagerload.WithConcurrency(cfg.Concurrency),
			eagerload.WithMetrics(metrics),
		}

		var spans *tracetest.InMemoryExporter
		if cfg.Trace {
			spans = tracetest.NewInMemoryExporter()
			tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(spans))
			defer tp.Shutdown(context.Background())
			opts = append(opts, eagerload.WithTracer(tp.Tracer("redi-eager")))
		}

		roots, err = eagerload.LoadEntities(ctx, roots, requests, opts...)
		if err != nil {
			return err
		}
		reportFetches(log, reg)
		if spans != nil {
			reportSpans(log, spans.GetSpans())
		}
	}

	return writeJSON(out, roots)
}

func explain(model string, requests eagerload.Requests, schemas *schema.Registry, out io.Writer) error {
	if requests == nil {
		return writeJSON(out, []eagerload.PlanNode{})
	}
	// Planning reads only the subject's model, so a blank record stands in
	// for the rows.
	l, err := eagerload.New(eagerload.FromEntity(types.NewRecord(model, nil)), requests, eagerload.WithResolver(schemas))
	if err != nil {
		return err
	}
	plan, err := l.Plan()
	if err != nil {
		return err
	}
	return writeJSON(out, plan)
}

// reportFetches logs the fetch counters gathered from reg
func reportFetches(log logger.Logger, reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		log.Warn("failed to gather metrics: %v", err)
		return
	}
	for _, family := range families {
		if family.GetName() != "redi_eager_fetch_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			labels := make(map[string]string, len(metric.GetLabel()))
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			log.Info("fetched %s: %.0f batch(es) %s", labels["model"], metric.GetCounter().GetValue(), labels["status"])
		}
	}
}

func reportSpans(log logger.Logger, spans tracetest.SpanStubs) {
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].StartTime.Before(spans[j].StartTime) })
	for _, span := range spans {
		attrs := make([]string, 0, len(span.Attributes))
		for _, kv := range span.Attributes {
			attrs = append(attrs, fmt.Sprintf("%s=%s", kv.Key, kv.Value.Emit()))
		}
		log.Info("span %s %v [%s]", span.Name, span.EndTime.Sub(span.StartTime), strings.Join(attrs, " "))
	}
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
