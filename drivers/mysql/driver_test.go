package mysql

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rediwo/redi-eager/query"
	"github.com/rediwo/redi-eager/test"
	"github.com/rediwo/redi-eager/types"
)

func init() {
	host := test.GetEnvOrDefault("MYSQL_TEST_HOST", "localhost")
	user := test.GetEnvOrDefault("MYSQL_TEST_USER", "testuser")
	password := test.GetEnvOrDefault("MYSQL_TEST_PASSWORD", "testpass")
	database := test.GetEnvOrDefault("MYSQL_TEST_DATABASE", "testdb")

	uri := fmt.Sprintf("mysql://%s:%s@%s:3306/%s?parseTime=true",
		user, password, host, database)

	test.RegisterTestDatabaseUri("mysql", uri)
}

func newShopDB(t *testing.T) types.Database {
	t.Helper()
	dsn, err := URIParser.ParseURI(test.GetTestDatabaseUri("mysql"))
	require.NoError(t, err)

	db, err := NewMySQLDB(dsn, test.ShopRegistry())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.Connect(ctx); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	require.NoError(t, test.SeedSQL(context.Background(), db.DB, db.Capabilities, db.Schemas()))
	return db
}

func TestMySQLConformance(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping conformance tests in short mode")
	}

	suite := &test.EagerLoadConformanceTests{
		DriverName:      "MySQL",
		NewDatabase:     newShopDB,
		ProjectionError: query.ErrProjectionForbidden,
	}
	suite.RunAll(t)
}
