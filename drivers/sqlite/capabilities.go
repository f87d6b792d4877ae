package sqlite

import (
	"github.com/rediwo/redi-eager/drivers/base"
	"github.com/rediwo/redi-eager/types"
)

// Dialect renders backtick-quoted identifiers with ? placeholders. SQLite
// accepts OFFSET only after a LIMIT clause.
var Dialect = base.Dialect{
	Type:           types.DriverSQLite,
	Schemes:        []string{"sqlite", "sqlite3"},
	Quote:          base.Backticks,
	LimitForOffset: true,
}
