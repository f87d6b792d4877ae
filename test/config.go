package test

import (
	"os"
	"sync"
)

var (
	testDatabaseURIRegistry = make(map[string]string)
	registryMutex           sync.RWMutex
)

// RegisterTestDatabaseUri registers a test database URI for a driver
func RegisterTestDatabaseUri(driverType string, uri string) {
	registryMutex.Lock()
	defer registryMutex.Unlock()
	testDatabaseURIRegistry[driverType] = uri
}

// GetTestDatabaseUri returns the test database URI for a driver, empty when
// none is configured
func GetTestDatabaseUri(driverType string) string {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	return testDatabaseURIRegistry[driverType]
}

// GetEnvOrDefault returns the environment variable or a default value
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
