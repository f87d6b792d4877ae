package base

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rediwo/redi-eager/logger"
	"github.com/rediwo/redi-eager/query"
	"github.com/rediwo/redi-eager/schema"
	"github.com/rediwo/redi-eager/types"
)

// ErrNotConnected is returned by queries issued before Connect
var ErrNotConnected = errors.New("database is not connected")

// Driver provides common functionality for database/sql backed drivers
type Driver struct {
	DB           *sql.DB
	DriverType   types.DriverType
	Capabilities types.DriverCapabilities
	Logger       *logger.DBLogger

	schemas *schema.Registry
	fetcher *query.SQLFetcher
}

// NewDriver creates a new base driver instance
func NewDriver(driverType types.DriverType, capabilities types.DriverCapabilities, schemas *schema.Registry) *Driver {
	if schemas == nil {
		schemas = schema.NewRegistry()
	}
	return &Driver{
		DriverType:   driverType,
		Capabilities: capabilities,
		Logger:       logger.NewDBLogger(nil),
		schemas:      schemas,
	}
}

// SetDB sets the database connection
func (b *Driver) SetDB(db *sql.DB) {
	b.DB = db
	b.fetcher = query.NewSQLFetcher(db, b.Capabilities, b.schemas, b.Logger)
}

// SetLogger replaces the query logger
func (b *Driver) SetLogger(l logger.Logger) {
	b.Logger = logger.NewDBLogger(l)
	if b.DB != nil {
		b.SetDB(b.DB)
	}
}

// Close closes the database connection
func (b *Driver) Close() error {
	if b.DB == nil {
		return nil
	}
	return b.DB.Close()
}

// Ping checks the connection
func (b *Driver) Ping(ctx context.Context) error {
	if b.DB == nil {
		return ErrNotConnected
	}
	return b.DB.PingContext(ctx)
}

func (b *Driver) Schemas() *schema.Registry {
	return b.schemas
}

func (b *Driver) GetDriverType() string {
	return string(b.DriverType)
}

// FetchBatch runs one relation batch
func (b *Driver) FetchBatch(ctx context.Context, req types.BatchRequest) (types.Batch, error) {
	if b.fetcher == nil {
		return nil, ErrNotConnected
	}
	return b.fetcher.FetchBatch(ctx, req)
}

// FindMany returns records of a model, optionally constrained
func (b *Driver) FindMany(ctx context.Context, modelName string, constraint types.Constraint) ([]types.Entity, error) {
	if b.fetcher == nil {
		return nil, ErrNotConnected
	}
	return b.fetcher.FindMany(ctx, modelName, constraint)
}
