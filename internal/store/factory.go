package store

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// Open selects a document store implementation using environment variables.
//
//	MEDTRACK_STORE_DRIVER: memory|sqlite|postgres (default sqlite)
//	MEDTRACK_SQLITE_PATH: path to sqlite file (default ./medtrack.db)
//	MEDTRACK_POSTGRES_DSN: postgres DSN when driver=postgres
func Open(ctx context.Context, logger *zap.Logger) (Store, error) {
	driver := os.Getenv("MEDTRACK_STORE_DRIVER")
	if driver == "" {
		driver = string(DriverSQLite)
	}
	switch Driver(driver) {
	case DriverMemory:
		return NewMemory(), nil
	case DriverSQLite:
		return NewSQLite(os.Getenv("MEDTRACK_SQLITE_PATH"))
	case DriverPostgres:
		return NewPostgres(ctx, os.Getenv("MEDTRACK_POSTGRES_DSN"), logger)
	default:
		return nil, fmt.Errorf("unknown store driver %s", driver)
	}
}
