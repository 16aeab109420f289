package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nkiryanov/shortener/internal/apperrors"
	"github.com/nkiryanov/shortener/internal/logger"
	"github.com/nkiryanov/shortener/internal/models"
	"github.com/nkiryanov/shortener/internal/redact"
	"github.com/nkiryanov/shortener/internal/repository"
	"github.com/nkiryanov/shortener/internal/service/auth/tokenmanager"
)

// Interface to create or compare user password hashes
type PasswordHasher interface {
	// Generate Hash from password
	Hash(password string) (string, error)

	// Compare known stored hash and user provided password
	// Must be protected against timing attacks
	// Returns apperrors.ErrInvalidPassword on mismatch and apperrors.ErrMalformedPasswordHash if stored hash is corrupt
	Compare(stored string, password string) error
}

type Config struct {
	// Hasher to use during user registration or login process
	// PBKDF2Hasher if not set
	Hasher PasswordHasher

	Logger logger.Logger
}

// Auth service
type Service struct {
	hasher PasswordHasher
	tokens *tokenmanager.TokenManager
	users  repository.UserRepo
	logger logger.Logger
}

func NewService(cfg Config, tokens *tokenmanager.TokenManager, users repository.UserRepo) (*Service, error) {
	if tokens == nil || users == nil {
		return nil, errors.New("token manager and user repo must not be nil")
	}

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = PBKDF2Hasher{}
	}

	l := cfg.Logger
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Service{
		hasher: hasher,
		tokens: tokens,
		users:  users,
		logger: l,
	}, nil
}

// Register new user
// Returns apperrors.ErrUserAlreadyExists if email is taken
func (s *Service) Register(ctx context.Context, email string, password string) (models.Identity, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return models.Identity{}, fmt.Errorf("can't use this as password, error=%w", err)
	}

	user, err := s.users.CreateUser(ctx, email, hash)
	if err != nil {
		return models.Identity{}, err
	}

	s.log(ctx).Info("user registered", "user_id", user.ID, "email", redact.Email(email))
	return user.Identity(), nil
}

// Login checks credentials, issues a new token pair and stores its refresh token
// Returns apperrors.ErrUserNotFound or apperrors.ErrInvalidPassword on bad credentials
func (s *Service) Login(ctx context.Context, email string, password string) (models.Identity, models.TokenPair, error) {
	var pair models.TokenPair
	l := s.log(ctx).With("email", redact.Email(email))

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			l.Info("login failed: user not found")
		}
		return models.Identity{}, pair, err
	}

	err = s.hasher.Compare(user.PasswordHash, password)
	switch {
	case errors.Is(err, apperrors.ErrMalformedPasswordHash):
		// Stored data is broken. For the caller it's still a wrong password
		l.Error("stored password hash is malformed", "user_id", user.ID, "error", err)
		return models.Identity{}, pair, apperrors.ErrInvalidPassword
	case err != nil:
		l.Info("login failed: invalid password", "user_id", user.ID)
		return models.Identity{}, pair, apperrors.ErrInvalidPassword
	}

	pair, err = s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return models.Identity{}, pair, fmt.Errorf("token could not be issued. %w", err)
	}

	err = s.users.SetRefreshToken(ctx, user.ID, pair.Refresh.Value)
	if err != nil {
		return models.Identity{}, models.TokenPair{}, fmt.Errorf("refresh token could not be stored. %w", err)
	}

	l.Info("user logged in", "user_id", user.ID)
	return user.Identity(), pair, nil
}

// Authenticate request tokens
// Access token is tried first without touching the store. If it's absent or invalid the refresh token is verified,
// matched against the stored one and rotated. Either way the identity is confirmed against the store.
func (s *Service) Authenticate(ctx context.Context, accessToken string, refreshToken string) Result {
	if accessToken != "" {
		claims, err := s.tokens.VerifyAccess(accessToken)
		if err == nil {
			return s.confirm(ctx, claims.UserID(), nil)
		}
	}

	if refreshToken == "" {
		return Unauthenticated(apperrors.ErrAuthenticationRequired)
	}

	return s.refresh(ctx, refreshToken)
}

func (s *Service) refresh(ctx context.Context, refreshToken string) Result {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return Unauthenticated(err)
	}

	userID := claims.UserID()
	l := s.log(ctx).With("user_id", userID)

	identity, err := s.users.GetUserByRefreshToken(ctx, userID, refreshToken)
	switch {
	case errors.Is(err, apperrors.ErrRefreshTokenNotFound):
		l.Info("refresh token is not the stored one")
		return Unauthenticated(err)
	case err != nil:
		return Failed(err)
	}

	pair, err := s.tokens.Issue(identity.ID, identity.Email)
	if err != nil {
		return Failed(fmt.Errorf("token could not be issued. %w", err))
	}

	// Compare-and-swap: a concurrent refresh with the same token may have won already
	err = s.users.RotateRefreshToken(ctx, identity.ID, refreshToken, pair.Refresh.Value)
	switch {
	case errors.Is(err, apperrors.ErrRefreshTokenNotFound):
		l.Info("refresh token rotated concurrently")
		return Unauthenticated(err)
	case err != nil:
		return Failed(err)
	}

	l.Info("refresh token rotated")
	return s.confirm(ctx, identity.ID, &pair)
}

// Confirm the user still exists and take its current identity from the store
func (s *Service) confirm(ctx context.Context, userID uuid.UUID, rotated *models.TokenPair) Result {
	identity, err := s.users.GetUserByID(ctx, userID)
	var res Result

	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		s.log(ctx).Info("token subject does not exist", "user_id", userID)
		res = Unauthenticated(err)
	case err != nil:
		res = Failed(err)
	default:
		res = Authenticated(identity)
	}

	res.Rotated = rotated
	return res
}

// Logout forgets stored refresh token, so it can't be used anymore
func (s *Service) Logout(ctx context.Context, userID uuid.UUID) error {
	err := s.users.ClearRefreshToken(ctx, userID)
	if err != nil {
		return err
	}

	s.log(ctx).Info("user logged out", "user_id", userID)
	return nil
}

func (s *Service) log(ctx context.Context) logger.Logger {
	return logger.FromContext(ctx, s.logger)
}
