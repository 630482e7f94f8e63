// Package core defines the document store abstractions used by the sync
// layer and implemented by the concrete drivers.
package core

import (
	"context"
	"errors"
	"time"
)

// Driver identifies a concrete document store backend.
type Driver string

const (
	// DriverMemory is the in-memory implementation (tests, ephemeral).
	DriverMemory Driver = "memory"
	// DriverSQLite is the embedded sqlite file implementation.
	DriverSQLite Driver = "sqlite"
	// DriverPostgres is the PostgreSQL implementation with LISTEN/NOTIFY.
	DriverPostgres Driver = "postgres"
)

// Document is a raw record as held by the store: an opaque immutable ID, a
// flat field map, and server-assigned timestamps.
type Document struct {
	ID        string
	Fields    map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Snapshot is the complete current state of a collection, ordered by
// creation time descending. Seq increases with every delivery so consumers
// can order snapshots without inspecting contents.
type Snapshot struct {
	Seq  uint64
	Docs []Document
}

// Store is the document store contract. Update merges the given fields into
// the document (fields not present are left untouched) and stamps updatedAt;
// Insert assigns the ID and both timestamps. Watch delivers the initial
// snapshot followed by a full snapshot on every change until ctx is done;
// a subscription failure is reported once on the error channel, after which
// no further snapshots arrive.
type Store interface {
	Insert(ctx context.Context, collection string, fields map[string]any) (string, error)
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	Snapshot(ctx context.Context, collection string) (Snapshot, error)
	Watch(ctx context.Context, collection string) (<-chan Snapshot, <-chan error, error)
	Driver() Driver
	Close() error
}

// ErrNotFound indicates the targeted document does not exist.
var ErrNotFound = errors.New("store: document not found")
