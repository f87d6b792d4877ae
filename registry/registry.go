package registry

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/rediwo/redi-eager/schema"
	"github.com/rediwo/redi-eager/types"
)

// DriverFactory creates an unconnected database from a native URI
type DriverFactory func(nativeURI string, schemas *schema.Registry) (types.Database, error)

var (
	drivers      = make(map[string]DriverFactory)
	uriParsers   = make(map[string]types.URIParser)
	capabilities = make(map[types.DriverType]types.DriverCapabilities)
	mu           sync.RWMutex
)

// Register registers a database driver factory
func Register(driverType string, factory DriverFactory) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := drivers[driverType]; exists {
		panic(fmt.Sprintf("driver %s already registered", driverType))
	}
	drivers[driverType] = factory
}

// Get retrieves a registered driver factory
func Get(driverType string) (DriverFactory, error) {
	mu.RLock()
	defer mu.RUnlock()

	factory, exists := drivers[driverType]
	if !exists {
		return nil, fmt.Errorf("driver %s not registered", driverType)
	}
	return factory, nil
}

// RegisterURIParser registers the URI parser of a driver
func RegisterURIParser(driverType string, parser types.URIParser) {
	mu.Lock()
	defer mu.Unlock()
	uriParsers[driverType] = parser
}

// RegisterCapabilities registers the dialect of a driver
func RegisterCapabilities(driverType types.DriverType, caps types.DriverCapabilities) {
	mu.Lock()
	defer mu.Unlock()
	capabilities[driverType] = caps
}

// GetCapabilities returns the dialect of a registered driver
func GetCapabilities(driverType types.DriverType) (types.DriverCapabilities, error) {
	mu.RLock()
	defer mu.RUnlock()

	caps, exists := capabilities[driverType]
	if !exists {
		return nil, fmt.Errorf("no capabilities registered for driver %s", driverType)
	}
	return caps, nil
}

// ParseURI finds the parser for the URI's scheme and returns the native URI
// along with the driver type.
func ParseURI(uri string) (string, string, error) {
	scheme, _, found := strings.Cut(uri, "://")
	if !found {
		u, err := url.Parse(uri)
		if err != nil || u.Scheme == "" {
			return "", "", fmt.Errorf("invalid URI %q: missing scheme", uri)
		}
		scheme = u.Scheme
	}
	scheme = strings.ToLower(scheme)

	mu.RLock()
	defer mu.RUnlock()

	for driverType, parser := range uriParsers {
		for _, supported := range parser.GetSupportedSchemes() {
			if supported != scheme {
				continue
			}
			nativeURI, err := parser.ParseURI(uri)
			if err != nil {
				return "", "", err
			}
			return nativeURI, driverType, nil
		}
	}
	return "", "", fmt.Errorf("unsupported database scheme %q (registered drivers: %s)", scheme, strings.Join(registeredLocked(), ", "))
}

// Drivers returns the registered driver types, sorted
func Drivers() []string {
	mu.RLock()
	defer mu.RUnlock()
	return registeredLocked()
}

func registeredLocked() []string {
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
