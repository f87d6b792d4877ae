package query

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rediwo/redi-eager/logger"
	"github.com/rediwo/redi-eager/schema"
	"github.com/rediwo/redi-eager/types"
	"github.com/rediwo/redi-eager/utils"
)

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// SQLFetcher runs relation batches and root queries over database/sql
type SQLFetcher struct {
	db      Querier
	dialect types.DriverCapabilities
	schemas *schema.Registry
	logger  *logger.DBLogger
}

func NewSQLFetcher(db Querier, dialect types.DriverCapabilities, schemas *schema.Registry, log *logger.DBLogger) *SQLFetcher {
	if log == nil {
		log = logger.NewDBLogger(nil)
	}
	return &SQLFetcher{db: db, dialect: dialect, schemas: schemas, logger: log}
}

// FetchBatch issues one IN-query for the request and groups the rows by the
// owner key they belong to. Errors from the database are returned as is.
func (f *SQLFetcher) FetchBatch(ctx context.Context, req types.BatchRequest) (types.Batch, error) {
	rel := req.Relation
	related, err := f.schemas.GetSchema(rel.Model)
	if err != nil {
		return nil, err
	}
	b, err := Apply(req.Constraint)
	if err != nil {
		return nil, fmt.Errorf("eager load %q: %w", req.Path, err)
	}

	batch := types.Batch{}
	if rel.Type == schema.RelationHasManyThrough {
		if rel.Through == nil {
			return nil, fmt.Errorf("relation %s has no through model", rel.Alias)
		}
		pivot, err := f.schemas.GetSchema(rel.Through.Model)
		if err != nil {
			return nil, err
		}
		query, args, err := BuildThroughSQL(f.dialect, related, pivot, rel, req.Values, b)
		if err != nil {
			return nil, err
		}
		rows, err := f.query(ctx, query, args)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			owner := row[OwnerKeyColumn]
			delete(row, OwnerKeyColumn)
			if key, ok := utils.KeyOf(owner); ok {
				batch[key] = append(batch[key], types.NewRecord(related.Name, related.MapColumnDataToSchema(row)))
			}
		}
		return batch, nil
	}

	query, args, err := BuildBatchSQL(f.dialect, related, rel.ReferencedKey(), req.Values, b)
	if err != nil {
		return nil, err
	}
	rows, err := f.query(ctx, query, args)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		record := types.NewRecord(related.Name, related.MapColumnDataToSchema(row))
		if key, ok := utils.KeyOf(record.Field(rel.ReferencedKey())); ok {
			batch[key] = append(batch[key], record)
		}
	}
	return batch, nil
}

// FindMany returns the records of a model matching constraint
func (f *SQLFetcher) FindMany(ctx context.Context, modelName string, constraint types.Constraint) ([]types.Entity, error) {
	model, err := f.schemas.GetSchema(modelName)
	if err != nil {
		return nil, err
	}
	b, err := Apply(constraint)
	if err != nil {
		return nil, err
	}
	query, args, err := BuildFindSQL(f.dialect, model, b)
	if err != nil {
		return nil, err
	}
	rows, err := f.query(ctx, query, args)
	if err != nil {
		return nil, err
	}

	entities := make([]types.Entity, len(rows))
	for i, row := range rows {
		entities[i] = types.NewRecord(model.Name, model.MapColumnDataToSchema(row))
	}
	return entities, nil
}

func (f *SQLFetcher) query(ctx context.Context, query string, args []any) ([]map[string]any, error) {
	start := time.Now()
	rows, err := f.db.QueryContext(ctx, query, args...)
	f.logger.LogSQL(query, args, time.Since(start))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return utils.ScanRowsToMaps(rows)
}
