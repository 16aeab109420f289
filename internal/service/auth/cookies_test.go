package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/shortener/internal/models"
)

func Test_CookieBinder(t *testing.T) {
	t.Parallel()

	t.Run("new requires distinct names", func(t *testing.T) {
		_, err := NewCookieBinder("", "refresh")
		require.Error(t, err)

		_, err = NewCookieBinder("same", "same")
		require.Error(t, err)
	})

	b, err := NewCookieBinder("sAccess", "sRefresh")
	require.NoError(t, err)

	t.Run("set auth cookies", func(t *testing.T) {
		w := httptest.NewRecorder()
		pair := models.TokenPair{
			Access:  models.IssuedToken{Value: "access-value", TTL: 15 * time.Minute},
			Refresh: models.IssuedToken{Value: "refresh-value", TTL: 24 * time.Hour},
		}

		b.SetAuthCookies(w, pair)

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 2)

		byName := map[string]*http.Cookie{}
		for _, c := range cookies {
			byName[c.Name] = c
			assert.True(t, c.HttpOnly, "cookie %s must be http only", c.Name)
			assert.True(t, c.Secure, "cookie %s must be secure", c.Name)
			assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
			assert.Equal(t, "/", c.Path)
		}

		require.Equal(t, "access-value", byName["sAccess"].Value)
		require.Equal(t, 900, byName["sAccess"].MaxAge)
		require.Equal(t, "refresh-value", byName["sRefresh"].Value)
		require.Equal(t, 86400, byName["sRefresh"].MaxAge)
	})

	t.Run("clear auth cookies", func(t *testing.T) {
		w := httptest.NewRecorder()

		b.ClearAuthCookies(w)

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 2)
		for _, c := range cookies {
			assert.Empty(t, c.Value)
			assert.Equal(t, -1, c.MaxAge, "cookie %s must expire", c.Name)
		}
	})

	t.Run("read tokens", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: "sAccess", Value: "a"})

		require.Equal(t, "a", b.AccessToken(r))
		require.Equal(t, "", b.RefreshToken(r), "absent cookie is empty")
	})
}
