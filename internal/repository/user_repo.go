package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetUsername(ctx context.Context, id int64) (string, error) {
	query := `
		SELECT username
		FROM users
		WHERE id = $1
	`

	var username string
	if err := r.db.QueryRow(ctx, query, id).Scan(&username); err != nil {
		return "", err
	}

	return username, nil
}
