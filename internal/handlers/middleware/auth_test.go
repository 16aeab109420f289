package middleware

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/shortener/internal/apperrors"
	"github.com/nkiryanov/shortener/internal/handlers/render"
	"github.com/nkiryanov/shortener/internal/handlers/userctx"
	"github.com/nkiryanov/shortener/internal/models"
	"github.com/nkiryanov/shortener/internal/service/auth"
)

// Allow to use a function as auth service
type authFunc func(ctx context.Context, access string, refresh string) auth.Result

func (f authFunc) Authenticate(ctx context.Context, access string, refresh string) auth.Result {
	return f(ctx, access, refresh)
}

func newCookies(t *testing.T) auth.CookieBinder {
	c, err := auth.NewCookieBinder("access", "refresh")
	require.NoError(t, err)
	return c
}

func TestAuthMiddleware_Auth(t *testing.T) {
	userID := uuid.MustParse("0195a4a2-0000-7000-8000-000000000001")

	// Simple handler that try to get identity from context
	// If ok write its email to response
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Must always be true cause middleware has to set identity or write error to response
		identity, ok := userctx.FromContext(r.Context())
		require.True(t, ok)

		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(identity.Email))
		require.NoError(t, err, "should write email to response")
	})

	onError := func(w http.ResponseWriter, r *http.Request, err error) {
		render.ServiceError(w, "Internal server error: "+err.Error(), http.StatusInternalServerError)
	}

	do := func(t *testing.T, a authFunc, cookies ...*http.Cookie) (*http.Response, string) {
		middleware := NewAuth(a, newCookies(t), onError)
		srv := httptest.NewServer(middleware.Auth(handler))
		defer srv.Close()

		req, err := http.NewRequest(http.MethodGet, srv.URL+"/test", nil)
		require.NoError(t, err)
		for _, c := range cookies {
			req.AddCookie(c)
		}

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err, "should make request to test server")
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err, "should read response body")
		defer resp.Body.Close() // nolint:errcheck

		return resp, string(body)
	}

	t.Run("passes cookies to service", func(t *testing.T) {
		var gotAccess, gotRefresh string
		a := authFunc(func(ctx context.Context, access string, refresh string) auth.Result {
			gotAccess, gotRefresh = access, refresh
			return auth.Authenticated(models.Identity{ID: userID, Email: "a@b.com"})
		})

		resp, body := do(t, a, &http.Cookie{Name: "access", Value: "A"}, &http.Cookie{Name: "refresh", Value: "R"})

		require.Equalf(t, http.StatusOK, resp.StatusCode, "should return status OK. Resp: %s", body)
		require.Equal(t, "a@b.com", body, "should return email in response")
		require.Equal(t, "A", gotAccess)
		require.Equal(t, "R", gotRefresh)
		require.Empty(t, resp.Cookies(), "no cookies if tokens not rotated")
	})

	t.Run("rotated tokens written to cookies", func(t *testing.T) {
		a := authFunc(func(ctx context.Context, access string, refresh string) auth.Result {
			res := auth.Authenticated(models.Identity{ID: userID, Email: "a@b.com"})
			res.Rotated = &models.TokenPair{
				Access:  models.IssuedToken{Value: "new-access", TTL: time.Minute},
				Refresh: models.IssuedToken{Value: "new-refresh", TTL: time.Hour},
			}
			return res
		})

		resp, body := do(t, a)

		require.Equalf(t, http.StatusOK, resp.StatusCode, "Resp: %s", body)
		require.Len(t, resp.Cookies(), 2)
		require.Equal(t, "new-access", resp.Cookies()[0].Value)
		require.Equal(t, "new-refresh", resp.Cookies()[1].Value)
	})

	tests := []struct {
		reason   error
		code     int
		expected string
	}{
		{apperrors.ErrAuthenticationRequired, http.StatusUnauthorized, "Authentication required"},
		{apperrors.ErrTokenInvalid, http.StatusUnauthorized, "Invalid refresh token"},
		{fmt.Errorf("%w: expired", apperrors.ErrTokenInvalid), http.StatusUnauthorized, "Invalid refresh token"},
		{apperrors.ErrRefreshTokenNotFound, http.StatusUnauthorized, "Invalid refresh token"},
		{apperrors.ErrUserNotFound, http.StatusNotFound, "User not found"},
	}

	for _, tt := range tests {
		t.Run("unauthenticated "+tt.reason.Error(), func(t *testing.T) {
			a := authFunc(func(ctx context.Context, access string, refresh string) auth.Result {
				return auth.Unauthenticated(tt.reason)
			})

			resp, body := do(t, a)

			require.Equalf(t, tt.code, resp.StatusCode, "Resp: %s", body)
			require.JSONEq(t,
				fmt.Sprintf(`{
					"success": false,
					"error": "service_error",
					"message": %q
				}`, tt.expected),
				body,
			)
		})
	}

	t.Run("error goes to error handler", func(t *testing.T) {
		a := authFunc(func(ctx context.Context, access string, refresh string) auth.Result {
			return auth.Failed(errors.New("db is down"))
		})

		resp, body := do(t, a)

		require.Equalf(t, http.StatusInternalServerError, resp.StatusCode, "Resp: %s", body)
		require.Contains(t, body, "db is down")
	})

	rotated := &models.TokenPair{
		Access:  models.IssuedToken{Value: "new-access", TTL: time.Minute},
		Refresh: models.IssuedToken{Value: "new-refresh", TTL: time.Hour},
	}

	t.Run("no rotated cookies for vanished user", func(t *testing.T) {
		a := authFunc(func(ctx context.Context, access string, refresh string) auth.Result {
			res := auth.Unauthenticated(apperrors.ErrUserNotFound)
			res.Rotated = rotated
			return res
		})

		resp, body := do(t, a)

		require.Equalf(t, http.StatusNotFound, resp.StatusCode, "Resp: %s", body)
		require.Empty(t, resp.Cookies())
	})

	t.Run("rotated cookies kept when request fails", func(t *testing.T) {
		a := authFunc(func(ctx context.Context, access string, refresh string) auth.Result {
			res := auth.Failed(errors.New("db is down"))
			res.Rotated = rotated
			return res
		})

		resp, body := do(t, a)

		require.Equalf(t, http.StatusInternalServerError, resp.StatusCode, "Resp: %s", body)
		require.Len(t, resp.Cookies(), 2)
		require.Equal(t, "new-refresh", resp.Cookies()[1].Value)
	})

	t.Run("observer sees outcome", func(t *testing.T) {
		a := authFunc(func(ctx context.Context, access string, refresh string) auth.Result {
			res := auth.Authenticated(models.Identity{ID: userID, Email: "a@b.com"})
			res.Rotated = &models.TokenPair{}
			return res
		})

		var outcomes []string
		var rotated []bool
		m := NewAuth(a, newCookies(t), onError).Observe(func(outcome string, r bool) {
			outcomes = append(outcomes, outcome)
			rotated = append(rotated, r)
		})

		w := httptest.NewRecorder()
		m.Auth(handler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, []string{"authenticated"}, outcomes)
		require.Equal(t, []bool{true}, rotated)
	})

	t.Run("zero result never passes", func(t *testing.T) {
		a := authFunc(func(ctx context.Context, access string, refresh string) auth.Result {
			return auth.Result{}
		})

		resp, _ := do(t, a)

		require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})
}
