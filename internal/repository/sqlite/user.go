package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/nkiryanov/shortener/internal/apperrors"
	"github.com/nkiryanov/shortener/internal/models"
)

type UserRepo struct {
	DB DBTX
}

const createUser = `-- name: CreateUser
INSERT INTO users (id, email, password_hash, created_at)
VALUES (?, ?, ?, ?)
`

func (r *UserRepo) CreateUser(ctx context.Context, email string, passwordHash string) (models.User, error) {
	user := models.User{
		ID:           uuid.New(),
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         models.RoleUser,
	}

	_, err := r.DB.ExecContext(ctx, createUser, user.ID.String(), user.Email, user.PasswordHash, user.CreatedAt)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return models.User{}, apperrors.ErrUserAlreadyExists
		}

		return models.User{}, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

const getUserByEmail = `-- name: GetUserByEmail
SELECT id, created_at, email, password_hash, role, refresh_token
FROM users
WHERE email = ?
`

func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	var refresh sql.NullString

	row := r.DB.QueryRowContext(ctx, getUserByEmail, email)
	err := row.Scan(&u.ID, &u.CreatedAt, &u.Email, &u.PasswordHash, &u.Role, &refresh)

	switch {
	case err == nil:
		if refresh.Valid {
			u.RefreshToken = &refresh.String
		}
		return u, nil
	case errors.Is(err, sql.ErrNoRows):
		return u, apperrors.ErrUserNotFound
	default:
		return u, fmt.Errorf("db error: %w", err)
	}
}

const getUserByID = `-- name: GetUserByID
SELECT id, email
FROM users
WHERE id = ?
`

func (r *UserRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (models.Identity, error) {
	identity, err := r.scanIdentity(r.DB.QueryRowContext(ctx, getUserByID, userID.String()))

	switch {
	case err == nil:
		return identity, nil
	case errors.Is(err, sql.ErrNoRows):
		return identity, apperrors.ErrUserNotFound
	default:
		return identity, fmt.Errorf("db error: %w", err)
	}
}

const getUserByRefreshToken = `-- name: GetUserByRefreshToken
SELECT id, email
FROM users
WHERE id = ? AND refresh_token = ?
`

func (r *UserRepo) GetUserByRefreshToken(ctx context.Context, userID uuid.UUID, token string) (models.Identity, error) {
	identity, err := r.scanIdentity(r.DB.QueryRowContext(ctx, getUserByRefreshToken, userID.String(), token))

	switch {
	case err == nil:
		return identity, nil
	case errors.Is(err, sql.ErrNoRows):
		return identity, apperrors.ErrRefreshTokenNotFound
	default:
		return identity, fmt.Errorf("db error: %w", err)
	}
}

const setRefreshToken = `-- name: SetRefreshToken
UPDATE users
SET refresh_token = ?
WHERE id = ?
`

func (r *UserRepo) SetRefreshToken(ctx context.Context, userID uuid.UUID, token string) error {
	return r.execOne(ctx, apperrors.ErrUserNotFound, setRefreshToken, token, userID.String())
}

const rotateRefreshToken = `-- name: RotateRefreshToken
UPDATE users
SET refresh_token = ?
WHERE id = ? AND refresh_token = ?
`

// Compare-and-swap: concurrent rotations with the same old token have exactly one winner
func (r *UserRepo) RotateRefreshToken(ctx context.Context, userID uuid.UUID, oldToken string, newToken string) error {
	return r.execOne(ctx, apperrors.ErrRefreshTokenNotFound, rotateRefreshToken, newToken, userID.String(), oldToken)
}

const clearRefreshToken = `-- name: ClearRefreshToken
UPDATE users
SET refresh_token = NULL
WHERE id = ?
`

func (r *UserRepo) ClearRefreshToken(ctx context.Context, userID uuid.UUID) error {
	_, err := r.DB.ExecContext(ctx, clearRefreshToken, userID.String())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const deleteUser = `-- name: DeleteUser
DELETE FROM users
WHERE id = ?
`

func (r *UserRepo) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	return r.execOne(ctx, apperrors.ErrUserNotFound, deleteUser, userID.String())
}

// execOne runs a single-row statement and returns notFound if no row was touched
func (r *UserRepo) execOne(ctx context.Context, notFound error, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	switch {
	case err != nil:
		return fmt.Errorf("db error: %w", err)
	case n == 0:
		return notFound
	default:
		return nil
	}
}

func (r *UserRepo) scanIdentity(row *sql.Row) (models.Identity, error) {
	var i models.Identity
	err := row.Scan(&i.ID, &i.Email)
	return i, err
}
