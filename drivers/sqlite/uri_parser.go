package sqlite

import (
	"fmt"
	"strings"

	"github.com/rediwo/redi-eager/drivers/base"
)

// URIParser maps sqlite URIs to go-sqlite3 file names:
//
//	sqlite://:memory:, sqlite:///:memory:  -> :memory:
//	sqlite:///abs/path/shop.db            -> /abs/path/shop.db
//	sqlite://shop.db?_busy_timeout=5000   -> shop.db?_busy_timeout=5000
//
// ":memory:" is not a valid port, so the URI never goes through url.Parse.
var URIParser = base.URIParser{Dialect: Dialect, Native: fileName}

func fileName(uri string) (string, error) {
	_, rest, _ := strings.Cut(uri, "://")
	path, rawQuery, _ := strings.Cut(rest, "?")
	switch path {
	case "":
		return "", fmt.Errorf("file path is required in SQLite URI")
	case ":memory:", "/:memory:":
		path = ":memory:"
	}
	if rawQuery != "" {
		path += "?" + rawQuery
	}
	return path, nil
}
