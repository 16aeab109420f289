package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/shortener/internal/apperrors"
	"github.com/nkiryanov/shortener/internal/models"
)

type UserRepo struct {
	DB DBTX
}

const createUser = `-- name: CreateUser
INSERT INTO users (id, email, password_hash, created_at)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at, email, password_hash, role, refresh_token
`

func (r *UserRepo) CreateUser(ctx context.Context, email string, passwordHash string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, createUser, uuid.New(), email, passwordHash, time.Now().UTC())
	user, err := pgx.CollectOneRow(rows, rowToUser)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return user, apperrors.ErrUserAlreadyExists
		}

		return user, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

const getUserByEmail = `-- name: GetUserByEmail
SELECT id, created_at, email, password_hash, role, refresh_token
FROM users
WHERE email = $1
`

func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByEmail, email)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

const getUserByID = `-- name: GetUserByID
SELECT id, email
FROM users
WHERE id = $1
`

func (r *UserRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (models.Identity, error) {
	rows, _ := r.DB.Query(ctx, getUserByID, userID)
	identity, err := pgx.CollectOneRow(rows, rowToIdentity)

	switch {
	case err == nil:
		return identity, nil
	case errors.Is(err, pgx.ErrNoRows):
		return identity, apperrors.ErrUserNotFound
	default:
		return identity, fmt.Errorf("db error: %w", err)
	}
}

const getUserByRefreshToken = `-- name: GetUserByRefreshToken
SELECT id, email
FROM users
WHERE id = $1 AND refresh_token = $2
`

func (r *UserRepo) GetUserByRefreshToken(ctx context.Context, userID uuid.UUID, token string) (models.Identity, error) {
	rows, _ := r.DB.Query(ctx, getUserByRefreshToken, userID, token)
	identity, err := pgx.CollectOneRow(rows, rowToIdentity)

	switch {
	case err == nil:
		return identity, nil
	case errors.Is(err, pgx.ErrNoRows):
		return identity, apperrors.ErrRefreshTokenNotFound
	default:
		return identity, fmt.Errorf("db error: %w", err)
	}
}

const setRefreshToken = `-- name: SetRefreshToken
UPDATE users
SET refresh_token = $2
WHERE id = $1
`

func (r *UserRepo) SetRefreshToken(ctx context.Context, userID uuid.UUID, token string) error {
	tag, err := r.DB.Exec(ctx, setRefreshToken, userID, token)
	switch {
	case err != nil:
		return fmt.Errorf("db error: %w", err)
	case tag.RowsAffected() == 0:
		return apperrors.ErrUserNotFound
	default:
		return nil
	}
}

const rotateRefreshToken = `-- name: RotateRefreshToken
UPDATE users
SET refresh_token = $3
WHERE id = $1 AND refresh_token = $2
`

// Compare-and-swap: concurrent rotations with the same old token have exactly one winner
func (r *UserRepo) RotateRefreshToken(ctx context.Context, userID uuid.UUID, oldToken string, newToken string) error {
	tag, err := r.DB.Exec(ctx, rotateRefreshToken, userID, oldToken, newToken)
	switch {
	case err != nil:
		return fmt.Errorf("db error: %w", err)
	case tag.RowsAffected() == 0:
		return apperrors.ErrRefreshTokenNotFound
	default:
		return nil
	}
}

const clearRefreshToken = `-- name: ClearRefreshToken
UPDATE users
SET refresh_token = NULL
WHERE id = $1
`

func (r *UserRepo) ClearRefreshToken(ctx context.Context, userID uuid.UUID) error {
	_, err := r.DB.Exec(ctx, clearRefreshToken, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const deleteUser = `-- name: DeleteUser
DELETE FROM users
WHERE id = $1
`

func (r *UserRepo) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, deleteUser, userID)
	switch {
	case err != nil:
		return fmt.Errorf("db error: %w", err)
	case tag.RowsAffected() == 0:
		return apperrors.ErrUserNotFound
	default:
		return nil
	}
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.CreatedAt, &u.Email, &u.PasswordHash, &u.Role, &u.RefreshToken)
	return u, err
}

func rowToIdentity(row pgx.CollectableRow) (models.Identity, error) {
	var i models.Identity
	err := row.Scan(&i.ID, &i.Email)
	return i, err
}
