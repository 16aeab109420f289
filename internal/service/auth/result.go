package auth

import (
	"github.com/nkiryanov/shortener/internal/models"
)

type Outcome int

const (
	// Zero value so an unset Result never lets a request through
	OutcomeError Outcome = iota
	OutcomeAuthenticated
	OutcomeUnauthenticated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAuthenticated:
		return "authenticated"
	case OutcomeUnauthenticated:
		return "unauthenticated"
	default:
		return "error"
	}
}

// Result of request authentication
type Result struct {
	Outcome Outcome

	// Identity confirmed against the store. Set only when authenticated
	Identity models.Identity

	// New token pair if the refresh token was rotated; must be sent back to the client
	Rotated *models.TokenPair

	// Why the request is unauthenticated: apperrors.ErrAuthenticationRequired, apperrors.ErrTokenInvalid,
	// apperrors.ErrRefreshTokenNotFound or apperrors.ErrUserNotFound
	// For OutcomeError it's the unexpected failure
	Err error
}

func Authenticated(identity models.Identity) Result {
	return Result{Outcome: OutcomeAuthenticated, Identity: identity}
}

func Unauthenticated(reason error) Result {
	return Result{Outcome: OutcomeUnauthenticated, Err: reason}
}

func Failed(err error) Result {
	return Result{Outcome: OutcomeError, Err: err}
}
