package postgresql

import (
	"context"

	_ "github.com/lib/pq"

	"github.com/rediwo/redi-eager/drivers/base"
	"github.com/rediwo/redi-eager/schema"
	"github.com/rediwo/redi-eager/types"
)

func init() {
	base.Register(URIParser, func(dsn string, schemas *schema.Registry) (types.Database, error) {
		return NewPostgreSQLDB(dsn, schemas)
	})
}

// PostgreSQLDB loads relations from PostgreSQL through lib/pq
type PostgreSQLDB struct {
	*base.Driver
	dsn string
}

// NewPostgreSQLDB takes a lib/pq connection string as produced by URIParser
func NewPostgreSQLDB(dsn string, schemas *schema.Registry) (*PostgreSQLDB, error) {
	return &PostgreSQLDB{
		Driver: base.NewDriver(types.DriverPostgreSQL, Dialect, schemas),
		dsn:    dsn,
	}, nil
}

func (p *PostgreSQLDB) Connect(ctx context.Context) error {
	db, err := base.OpenSQL(ctx, "postgres", p.dsn, nil)
	if err != nil {
		return err
	}
	p.SetDB(db)
	return nil
}
