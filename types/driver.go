package types

// DriverType identifies a database driver
type DriverType string

const (
	DriverSQLite     DriverType = "sqlite"
	DriverMySQL      DriverType = "mysql"
	DriverPostgreSQL DriverType = "postgresql"
	DriverMongoDB    DriverType = "mongodb"
)

func (d DriverType) String() string {
	return string(d)
}

// DriverCapabilities describes the SQL dialect of a driver
type DriverCapabilities interface {
	// Identifier quoting
	QuoteIdentifier(name string) string
	// GetPlaceholder returns the bind placeholder for the 1-based argument index
	GetPlaceholder(index int) string
	RequiresLimitForOffset() bool

	// Driver identification
	GetDriverType() DriverType
	GetSupportedSchemes() []string
}
