// Package store re-exports the document store abstractions and hosts the
// concrete drivers.
package store

import (
	"github.com/careflow/medtrack/internal/store/core"
)

type (
	// Driver identifies a store backend driver.
	Driver = core.Driver
	// Document is a raw stored record.
	Document = core.Document
	// Snapshot is the full ordered state of a collection.
	Snapshot = core.Snapshot
	// Store is the document store contract.
	Store = core.Store
)

const (
	// DriverMemory is the in-memory driver.
	DriverMemory = core.DriverMemory
	// DriverSQLite is the embedded sqlite driver.
	DriverSQLite = core.DriverSQLite
	// DriverPostgres is the PostgreSQL driver.
	DriverPostgres = core.DriverPostgres
)

// ErrNotFound indicates the targeted document does not exist.
var ErrNotFound = core.ErrNotFound
