package db

import (
	"context"

	"github.com/dmitrijs2005/gophfeed/internal/server/users"
)

type InMemoryRepositoryManager struct {
	users *users.MemoryRepository
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{users: users.NewMemoryRepository()}
}

func (m *InMemoryRepositoryManager) RunMigrations(context.Context) error { return nil }

func (m *InMemoryRepositoryManager) Users() users.Repository { return m.users }

func (m *InMemoryRepositoryManager) Close() error { return nil }
