package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rediwo/redi-eager/drivers/base"
	"github.com/rediwo/redi-eager/schema"
	"github.com/rediwo/redi-eager/types"
)

func init() {
	base.Register(URIParser, func(file string, schemas *schema.Registry) (types.Database, error) {
		return NewSQLiteDB(file, schemas)
	})
}

// SQLiteDB loads relations from a go-sqlite3 database file
type SQLiteDB struct {
	*base.Driver
	file string
}

// NewSQLiteDB takes a go-sqlite3 file name such as "/path/shop.db" or ":memory:"
func NewSQLiteDB(file string, schemas *schema.Registry) (*SQLiteDB, error) {
	if file == "" {
		return nil, fmt.Errorf("SQLite database path is required")
	}
	return &SQLiteDB{
		Driver: base.NewDriver(types.DriverSQLite, Dialect, schemas),
		file:   file,
	}, nil
}

func (s *SQLiteDB) Connect(ctx context.Context) error {
	db, err := base.OpenSQL(ctx, "sqlite3", s.file, s.configure)
	if err != nil {
		return err
	}
	s.SetDB(db)
	return nil
}

func (s *SQLiteDB) configure(ctx context.Context, db *sql.DB) error {
	// every connection to :memory: opens its own empty database
	if strings.HasPrefix(s.file, ":memory:") {
		db.SetMaxOpenConns(1)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign key constraints: %w", err)
	}
	return nil
}
