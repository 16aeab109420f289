package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")

	ErrInvalidPassword       = errors.New("invalid password")
	ErrMalformedPasswordHash = errors.New("malformed password hash")

	ErrAuthenticationRequired = errors.New("authentication required")
	ErrTokenInvalid           = errors.New("token is invalid")
	ErrRefreshTokenNotFound   = errors.New("refresh token not found")
)
