package mongodb

import (
	"github.com/rediwo/redi-eager/drivers/base"
)

// URIParser validates mongodb:// and mongodb+srv:// URIs. The official
// driver consumes them as they are; only the database path is required.
var URIParser = base.URIParser{Dialect: Dialect, Native: func(uri string) (string, error) {
	if _, _, err := base.ServerURI(uri); err != nil {
		return "", err
	}
	return uri, nil
}}

// databaseName extracts the database path segment of a MongoDB URI
func databaseName(uri string) string {
	_, database, err := base.ServerURI(uri)
	if err != nil {
		return ""
	}
	return database
}
