package postgresql

import (
	"github.com/lib/pq"

	"github.com/rediwo/redi-eager/drivers/base"
	"github.com/rediwo/redi-eager/types"
)

var Dialect = base.Dialect{
	Type:     types.DriverPostgreSQL,
	Schemes:  []string{"postgresql", "postgres"},
	Quote:    pq.QuoteIdentifier,
	Numbered: true,
}
