package mysql

import (
	"github.com/rediwo/redi-eager/drivers/base"
	"github.com/rediwo/redi-eager/types"
)

// Dialect is the MySQL flavour of SQL. MySQL rejects OFFSET without LIMIT.
var Dialect = base.Dialect{
	Type:           types.DriverMySQL,
	Schemes:        []string{"mysql", "mysql2"},
	Quote:          base.Backticks,
	LimitForOffset: true,
}
