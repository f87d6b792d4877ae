package database

// Import all drivers to register them
import (
	_ "github.com/rediwo/redi-eager/drivers/mongodb"
	_ "github.com/rediwo/redi-eager/drivers/mysql"
	_ "github.com/rediwo/redi-eager/drivers/postgresql"
	_ "github.com/rediwo/redi-eager/drivers/sqlite"
)
