package backend

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/microsoft/durabletask-go/backend"
	"github.com/microsoft/durabletask-go/backend/sqlite"
)

// NewSQLiteBackend creates a SQLite task hub backend at path. An empty path
// keeps orchestration state in memory.
func NewSQLiteBackend(path string, logger backend.Logger) (backend.Backend, error) {
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	be := sqlite.NewSqliteBackend(sqlite.NewSqliteOptions(path), logger)
	if be == nil {
		return nil, fmt.Errorf("failed to create SQLite backend at %s", path)
	}
	return be, nil
}

// NewInMemoryBackend creates a backend for tests
func NewInMemoryBackend(logger backend.Logger) backend.Backend {
	return sqlite.NewSqliteBackend(sqlite.NewSqliteOptions(""), logger)
}
