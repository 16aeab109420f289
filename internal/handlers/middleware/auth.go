package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/nkiryanov/shortener/internal/apperrors"
	"github.com/nkiryanov/shortener/internal/handlers/render"
	"github.com/nkiryanov/shortener/internal/handlers/userctx"
	"github.com/nkiryanov/shortener/internal/logger"
	"github.com/nkiryanov/shortener/internal/models"
	"github.com/nkiryanov/shortener/internal/service/auth"
)

type authService interface {
	Authenticate(ctx context.Context, accessToken string, refreshToken string) auth.Result
}

type cookieBinder interface {
	AccessToken(r *http.Request) string
	RefreshToken(r *http.Request) string
	SetAuthCookies(w http.ResponseWriter, pair models.TokenPair)
}

// Handles errors nobody expected; writes the response
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type Auth struct {
	service authService
	cookies cookieBinder
	onError ErrorHandler
	observe func(outcome string, rotated bool)
}

func NewAuth(s authService, c cookieBinder, onError ErrorHandler) *Auth {
	return &Auth{service: s, cookies: c, onError: onError}
}

// Observe registers callback called once per authenticated request with its outcome
func (a *Auth) Observe(fn func(outcome string, rotated bool)) *Auth {
	a.observe = fn
	return a
}

// Auth lets request through only with identity confirmed by the auth service
func (a *Auth) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := a.service.Authenticate(r.Context(), a.cookies.AccessToken(r), a.cookies.RefreshToken(r))

		if a.observe != nil {
			a.observe(res.Outcome.String(), res.Rotated != nil)
		}

		// Stored refresh token is already replaced, so client needs the new pair even if the request fails.
		// Unauthenticated after rotation means the user is gone, nothing to hand out
		if res.Rotated != nil && res.Outcome != auth.OutcomeUnauthenticated {
			a.cookies.SetAuthCookies(w, *res.Rotated)
		}

		switch res.Outcome {
		case auth.OutcomeAuthenticated:
			ctx := userctx.New(r.Context(), res.Identity)
			if l := logger.FromContext(ctx, nil); l != nil {
				ctx = logger.WithContext(ctx, l.With("user_id", res.Identity.ID))
			}
			next.ServeHTTP(w, r.WithContext(ctx))

		case auth.OutcomeUnauthenticated:
			switch {
			case errors.Is(res.Err, apperrors.ErrAuthenticationRequired):
				render.ServiceError(w, "Authentication required", http.StatusUnauthorized)
			case errors.Is(res.Err, apperrors.ErrUserNotFound):
				render.ServiceError(w, "User not found", http.StatusNotFound)
			default:
				render.ServiceError(w, "Invalid refresh token", http.StatusUnauthorized)
			}

		default:
			err := res.Err
			if err == nil {
				err = errors.New("authentication ended without outcome")
			}
			a.onError(w, r, err)
		}
	})
}
