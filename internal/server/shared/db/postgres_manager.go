package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophfeed/internal/server/migrations"
	"github.com/dmitrijs2005/gophfeed/internal/server/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type PostgresRepositoryManager struct {
	db    *sql.DB
	users *users.PostgresRepository
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// sqlOpen is a seam for tests that supply a sqlmock connection.
var sqlOpen = sql.Open

func NewPostgresRepositoryManager(ctx context.Context, dsn string) (*PostgresRepositoryManager, error) {
	conn, err := sqlOpen("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	m := &PostgresRepositoryManager{db: conn, users: users.NewPostgresRepository(conn)}

	if err := m.RunMigrations(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return m, nil
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, m.db, ".")
}

func (m *PostgresRepositoryManager) Users() users.Repository { return m.users }

func (m *PostgresRepositoryManager) Close() error { return m.db.Close() }
