package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/nkiryanov/shortener/internal/models"
)

// User repository interface
// The refresh token lives on the user row: at most one live value per user
type UserRepo interface {
	// Create user
	// If user with email exists already has to return error apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, email string, passwordHash string) (models.User, error)

	// Get full user record by email
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByEmail(ctx context.Context, email string) (models.User, error)

	// Get user identity by id
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.Identity, error)

	// Get user identity by id and exact stored refresh token
	// If nothing matches must return apperrors.ErrRefreshTokenNotFound
	GetUserByRefreshToken(ctx context.Context, userID uuid.UUID, token string) (models.Identity, error)

	// Overwrite stored refresh token unconditionally
	// If user not found must return apperrors.ErrUserNotFound
	SetRefreshToken(ctx context.Context, userID uuid.UUID, token string) error

	// Replace refresh token only if stored value still equals oldToken
	// If it does not must return apperrors.ErrRefreshTokenNotFound and keep the stored value
	RotateRefreshToken(ctx context.Context, userID uuid.UUID, oldToken string, newToken string) error

	// Set stored refresh token to NULL
	ClearRefreshToken(ctx context.Context, userID uuid.UUID) error

	// Delete user
	// If user not found must return apperrors.ErrUserNotFound
	DeleteUser(ctx context.Context, userID uuid.UUID) error
}

// Storage groups repositories of one backend
type Storage interface {
	User() UserRepo

	// Check the backend is reachable
	Ping(ctx context.Context) error
}
