// Package repotest holds behaviour tests every repository.UserRepo implementation has to pass
package repotest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/shortener/internal/apperrors"
	"github.com/nkiryanov/shortener/internal/models"
	"github.com/nkiryanov/shortener/internal/repository"
)

// Run the suite; newRepo must return a repo over an empty users table
func UserRepo(t *testing.T, newRepo func(t *testing.T) repository.UserRepo) {
	t.Run("create user ok", func(t *testing.T) {
		r := newRepo(t)

		user, err := r.CreateUser(t.Context(), "a@b.com", "salt:hash")

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, user.ID)
		assert.Equal(t, "a@b.com", user.Email)
		assert.Equal(t, "salt:hash", user.PasswordHash)
		assert.Equal(t, models.RoleUser, user.Role, "role should default to user")
		assert.Nil(t, user.RefreshToken, "new user has no refresh token")
		assert.WithinDuration(t, time.Now(), user.CreatedAt, 5*time.Second, "CreatedAt should be recent")
	})

	t.Run("create user twice fail", func(t *testing.T) {
		r := newRepo(t)
		_, err := r.CreateUser(t.Context(), "a@b.com", "salt:hash")
		require.NoError(t, err)

		_, err = r.CreateUser(t.Context(), "a@b.com", "other:hash")

		require.Error(t, err)
		require.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
	})

	t.Run("get user by email", func(t *testing.T) {
		r := newRepo(t)
		created, err := r.CreateUser(t.Context(), "a@b.com", "salt:hash")
		require.NoError(t, err)

		got, err := r.GetUserByEmail(t.Context(), "a@b.com")

		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, created.Email, got.Email)
		assert.Equal(t, created.PasswordHash, got.PasswordHash)
		assert.Equal(t, models.RoleUser, got.Role)
		assert.WithinDuration(t, created.CreatedAt, got.CreatedAt, time.Millisecond)

		_, err = r.GetUserByEmail(t.Context(), "nobody@b.com")
		require.ErrorIs(t, err, apperrors.ErrUserNotFound)
	})

	t.Run("get user by id", func(t *testing.T) {
		r := newRepo(t)
		created, err := r.CreateUser(t.Context(), "a@b.com", "salt:hash")
		require.NoError(t, err)

		got, err := r.GetUserByID(t.Context(), created.ID)

		require.NoError(t, err)
		assert.Equal(t, models.Identity{ID: created.ID, Email: "a@b.com"}, got)

		_, err = r.GetUserByID(t.Context(), uuid.New())
		require.ErrorIs(t, err, apperrors.ErrUserNotFound)
	})

	t.Run("set refresh token and find by it", func(t *testing.T) {
		r := newRepo(t)
		created, err := r.CreateUser(t.Context(), "a@b.com", "salt:hash")
		require.NoError(t, err)

		_, err = r.GetUserByRefreshToken(t.Context(), created.ID, "refresh-1")
		require.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound, "no token stored yet")

		err = r.SetRefreshToken(t.Context(), created.ID, "refresh-1")
		require.NoError(t, err)

		got, err := r.GetUserByRefreshToken(t.Context(), created.ID, "refresh-1")
		require.NoError(t, err)
		assert.Equal(t, created.Identity(), got)

		user, err := r.GetUserByEmail(t.Context(), "a@b.com")
		require.NoError(t, err)
		require.NotNil(t, user.RefreshToken)
		assert.Equal(t, "refresh-1", *user.RefreshToken)

		// Overwrite, not append
		err = r.SetRefreshToken(t.Context(), created.ID, "refresh-2")
		require.NoError(t, err)
		_, err = r.GetUserByRefreshToken(t.Context(), created.ID, "refresh-1")
		require.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound, "previous token must be superseded")

		// Token of one user does not match other user id
		_, err = r.GetUserByRefreshToken(t.Context(), uuid.New(), "refresh-2")
		require.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)
	})

	t.Run("set refresh token for unknown user", func(t *testing.T) {
		r := newRepo(t)

		err := r.SetRefreshToken(t.Context(), uuid.New(), "refresh")

		require.ErrorIs(t, err, apperrors.ErrUserNotFound)
	})

	t.Run("rotate refresh token", func(t *testing.T) {
		r := newRepo(t)
		created, err := r.CreateUser(t.Context(), "a@b.com", "salt:hash")
		require.NoError(t, err)
		require.NoError(t, r.SetRefreshToken(t.Context(), created.ID, "refresh-1"))

		err = r.RotateRefreshToken(t.Context(), created.ID, "refresh-1", "refresh-2")
		require.NoError(t, err)

		_, err = r.GetUserByRefreshToken(t.Context(), created.ID, "refresh-2")
		require.NoError(t, err)

		// Second rotation with the stale token loses
		err = r.RotateRefreshToken(t.Context(), created.ID, "refresh-1", "refresh-3")
		require.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)

		_, err = r.GetUserByRefreshToken(t.Context(), created.ID, "refresh-2")
		require.NoError(t, err, "lost rotation must keep stored token")
	})

	t.Run("clear refresh token", func(t *testing.T) {
		r := newRepo(t)
		created, err := r.CreateUser(t.Context(), "a@b.com", "salt:hash")
		require.NoError(t, err)
		require.NoError(t, r.SetRefreshToken(t.Context(), created.ID, "refresh-1"))

		err = r.ClearRefreshToken(t.Context(), created.ID)
		require.NoError(t, err)

		_, err = r.GetUserByRefreshToken(t.Context(), created.ID, "refresh-1")
		require.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)

		user, err := r.GetUserByEmail(t.Context(), "a@b.com")
		require.NoError(t, err)
		assert.Nil(t, user.RefreshToken)
	})

	t.Run("delete user", func(t *testing.T) {
		r := newRepo(t)
		created, err := r.CreateUser(t.Context(), "a@b.com", "salt:hash")
		require.NoError(t, err)

		err = r.DeleteUser(t.Context(), created.ID)
		require.NoError(t, err)

		_, err = r.GetUserByID(t.Context(), created.ID)
		require.ErrorIs(t, err, apperrors.ErrUserNotFound)

		err = r.DeleteUser(t.Context(), created.ID)
		require.ErrorIs(t, err, apperrors.ErrUserNotFound)
	})
}
