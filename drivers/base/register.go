package base

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rediwo/redi-eager/registry"
)

// Register makes a driver reachable through its URI schemes. Drivers call it
// from init.
func Register(parser URIParser, factory registry.DriverFactory) {
	name := parser.GetDriverType()
	registry.Register(name, factory)
	registry.RegisterCapabilities(parser.Dialect.Type, parser.Dialect)
	registry.RegisterURIParser(name, parser)
}

// OpenSQL opens a database/sql pool and pings it. The optional setup runs on
// the live pool; the pool is closed if either step fails.
func OpenSQL(ctx context.Context, driverName, dsn string, setup func(context.Context, *sql.DB) error) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driverName, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", driverName, err)
	}
	if setup != nil {
		if err := setup(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}
