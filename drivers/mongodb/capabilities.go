package mongodb

import (
	"github.com/rediwo/redi-eager/drivers/base"
	"github.com/rediwo/redi-eager/types"
)

// Dialect only identifies the driver; no SQL is rendered for MongoDB, and
// SetSkip works without SetLimit.
var Dialect = base.Dialect{
	Type:    types.DriverMongoDB,
	Schemes: []string{"mongodb", "mongodb+srv"},
}
