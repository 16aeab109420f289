package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/nkiryanov/shortener/internal/models"
)

// CookieBinder writes and reads the access and refresh token cookies
type CookieBinder struct {
	accessName  string
	refreshName string
}

func NewCookieBinder(accessName string, refreshName string) (CookieBinder, error) {
	if accessName == "" || refreshName == "" {
		return CookieBinder{}, errors.New("cookie names must not be empty")
	}
	if accessName == refreshName {
		return CookieBinder{}, errors.New("access and refresh cookie names must differ")
	}

	return CookieBinder{accessName: accessName, refreshName: refreshName}, nil
}

// Set both cookies, each lives as long as its own token
func (b CookieBinder) SetAuthCookies(w http.ResponseWriter, pair models.TokenPair) {
	http.SetCookie(w, b.cookie(b.accessName, pair.Access.Value, pair.Access.TTL))
	http.SetCookie(w, b.cookie(b.refreshName, pair.Refresh.Value, pair.Refresh.TTL))
}

// Expire both cookies
func (b CookieBinder) ClearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{b.accessName, b.refreshName} {
		c := b.cookie(name, "", 0)
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		http.SetCookie(w, c)
	}
}

// Access token from the request or empty string
func (b CookieBinder) AccessToken(r *http.Request) string {
	return cookieValue(r, b.accessName)
}

// Refresh token from the request or empty string
func (b CookieBinder) RefreshToken(r *http.Request) string {
	return cookieValue(r, b.refreshName)
}

func (b CookieBinder) cookie(name string, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
