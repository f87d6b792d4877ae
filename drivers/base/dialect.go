package base

import (
	"fmt"
	"strings"

	"github.com/rediwo/redi-eager/types"
)

// Dialect is a table-driven types.DriverCapabilities. Drivers declare one as
// a package value instead of implementing the interface by hand.
type Dialect struct {
	Type    types.DriverType
	Schemes []string
	// Quote wraps an identifier; nil leaves identifiers untouched
	Quote func(name string) string
	// Numbered selects $1, $2, ... placeholders instead of ?
	Numbered bool
	// LimitForOffset is set when OFFSET is only valid after LIMIT
	LimitForOffset bool
}

var _ types.DriverCapabilities = Dialect{}

func (d Dialect) QuoteIdentifier(name string) string {
	if d.Quote == nil {
		return name
	}
	return d.Quote(name)
}

func (d Dialect) GetPlaceholder(index int) string {
	if d.Numbered {
		return fmt.Sprintf("$%d", index)
	}
	return "?"
}

func (d Dialect) RequiresLimitForOffset() bool { return d.LimitForOffset }

func (d Dialect) GetDriverType() types.DriverType { return d.Type }

func (d Dialect) GetSupportedSchemes() []string {
	return append([]string(nil), d.Schemes...)
}

// Backticks quotes with `name`, doubling embedded backticks
func Backticks(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
