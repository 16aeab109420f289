package sqlite

import (
	"context"
	"database/sql"

	"github.com/nkiryanov/shortener/internal/repository"
)

// DBTX is satisfied by *sql.DB and *sql.Tx
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Storage struct {
	db *sql.DB
}

func NewStorage(db *sql.DB) *Storage {
	return &Storage{db: db}
}

func (s *Storage) User() repository.UserRepo {
	return &UserRepo{DB: s.db}
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
