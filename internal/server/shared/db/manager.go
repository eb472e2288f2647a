// Package db selects and opens the credential store backing the server.
package db

import (
	"context"

	"github.com/dmitrijs2005/gophfeed/internal/server/users"
)

// RepositoryManager owns the storage handles behind the repositories.
type RepositoryManager interface {
	RunMigrations(context.Context) error
	Users() users.Repository
	Close() error
}

// NewRepositoryManager returns a PostgreSQL manager when dsn is set and an
// in-memory one otherwise. Migrations are applied before returning.
func NewRepositoryManager(ctx context.Context, dsn string) (RepositoryManager, error) {
	if dsn == "" {
		return NewInMemoryRepositoryManager(), nil
	}
	return NewPostgresRepositoryManager(ctx, dsn)
}
