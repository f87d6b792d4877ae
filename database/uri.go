package database

import "net/url"

// RedactURI hides the password of a database URI so it can be logged.
// Strings that do not parse as URLs are returned unchanged.
func RedactURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.User == nil {
		return uri
	}
	if _, ok := u.User.Password(); !ok {
		return uri
	}
	return u.Redacted()
}
