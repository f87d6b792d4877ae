package base

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// URIParser checks the scheme against the dialect before handing the URI to
// the driver's conversion to its native DSN.
type URIParser struct {
	Dialect Dialect
	Native  func(uri string) (string, error)
}

func (p URIParser) ParseURI(uri string) (string, error) {
	scheme, _, found := strings.Cut(uri, "://")
	if !found {
		return "", fmt.Errorf("invalid URI format: %s", uri)
	}
	if !slices.Contains(p.Dialect.Schemes, strings.ToLower(scheme)) {
		return "", fmt.Errorf("unsupported URI scheme %s for %s", scheme, p.Dialect.Type)
	}
	return p.Native(uri)
}

func (p URIParser) GetSupportedSchemes() []string { return p.Dialect.GetSupportedSchemes() }

func (p URIParser) GetDriverType() string { return string(p.Dialect.Type) }

// ServerURI parses a host based URI and returns it with its database name.
// Both the host and the database are required.
func ServerURI(uri string) (*url.URL, string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, "", fmt.Errorf("invalid URI format: %w", err)
	}
	if u.Hostname() == "" {
		return nil, "", fmt.Errorf("host is required in %s URI", u.Scheme)
	}
	database := strings.TrimPrefix(u.Path, "/")
	if database == "" {
		return nil, "", fmt.Errorf("database name is required in %s URI", u.Scheme)
	}
	return u, database, nil
}
