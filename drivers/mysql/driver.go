package mysql

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/rediwo/redi-eager/drivers/base"
	"github.com/rediwo/redi-eager/schema"
	"github.com/rediwo/redi-eager/types"
)

func init() {
	base.Register(URIParser, func(dsn string, schemas *schema.Registry) (types.Database, error) {
		return NewMySQLDB(dsn, schemas)
	})
}

// MySQLDB loads relations from MySQL through go-sql-driver
type MySQLDB struct {
	*base.Driver
	dsn string
}

// NewMySQLDB takes a go-sql-driver DSN as produced by URIParser
func NewMySQLDB(dsn string, schemas *schema.Registry) (*MySQLDB, error) {
	return &MySQLDB{
		Driver: base.NewDriver(types.DriverMySQL, Dialect, schemas),
		dsn:    dsn,
	}, nil
}

func (m *MySQLDB) Connect(ctx context.Context) error {
	db, err := base.OpenSQL(ctx, "mysql", m.dsn, func(_ context.Context, db *sql.DB) error {
		// MySQL closes idle connections server side after wait_timeout
		db.SetConnMaxLifetime(3 * time.Minute)
		return nil
	})
	if err != nil {
		return err
	}
	m.SetDB(db)
	return nil
}
