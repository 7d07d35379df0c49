// Package storage persists the reference set.
package storage

import (
	"fmt"

	"github.com/itsbohara/anchor/internal/models"
)

// Drivers.
const (
	DriverJSON   = "json"
	DriverSQLite = "sqlite"
)

// Provider loads and saves the whole reference set. The set is always
// materialized in memory; there is no partial read.
type Provider interface {
	// Load returns every stored reference in persisted order.
	Load() ([]models.Reference, error)
	// Save replaces the stored set with refs.
	Save(refs []models.Reference) error
	// Close releases any underlying resources.
	Close() error
}

// Open returns the provider for driver rooted at path.
func Open(driver, path string) (Provider, error) {
	switch driver {
	case "", DriverJSON:
		return NewJSON(path)
	case DriverSQLite:
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", driver)
	}
}
