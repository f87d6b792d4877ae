package eagerload

import (
	"strings"

	"github.com/rediwo/redi-eager/types"
)

// Requests maps a dotted relation path ("items.tags") to an optional
// constraint. A constraint applies to the fetch of that exact path only;
// intermediate segments of a deeper path are fetched unconstrained unless
// requested on their own.
type Requests map[string]types.Constraint

// Paths builds unconstrained requests
func Paths(paths ...string) Requests {
	r := make(Requests, len(paths))
	for _, p := range paths {
		r[p] = nil
	}
	return r
}

// With adds or replaces one request and returns r
func (r Requests) With(path string, constraint types.Constraint) Requests {
	r[path] = constraint
	return r
}

// parseRequests canonicalizes request keys and drops malformed ones. It fails
// with ErrEmptyArguments when nothing usable remains.
func parseRequests(r Requests) (map[string]types.Constraint, error) {
	parsed := make(map[string]types.Constraint, len(r))
	for path, constraint := range r {
		canonical, ok := canonicalPath(path)
		if !ok {
			continue
		}
		parsed[canonical] = constraint
	}
	if len(parsed) == 0 {
		return nil, ErrEmptyArguments
	}
	return parsed, nil
}

// canonicalPath trims whitespace around segments and rejects empty segments
func canonicalPath(path string) (string, bool) {
	segments := strings.Split(strings.TrimSpace(path), ".")
	for i, segment := range segments {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			return "", false
		}
		segments[i] = segment
	}
	return strings.Join(segments, "."), true
}
