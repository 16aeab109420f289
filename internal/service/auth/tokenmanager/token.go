package tokenmanager

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nkiryanov/shortener/internal/apperrors"
	"github.com/nkiryanov/shortener/internal/models"
)

const defaultSigningMethod = "HS256"

// Claims carried by both access and refresh tokens
// Subject is the user id. iat, nbf, exp, sub and email are all required
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Validate is called by jwt parser after the registered claims checks
func (c Claims) Validate() error {
	switch {
	case c.IssuedAt == nil:
		return errors.New("iat claim is required")
	case c.NotBefore == nil:
		return errors.New("nbf claim is required")
	case c.ExpiresAt == nil:
		return errors.New("exp claim is required")
	case c.Email == "":
		return errors.New("email claim is required")
	}

	if _, err := uuid.Parse(c.Subject); err != nil {
		return fmt.Errorf("sub claim must be user id: %w", err)
	}

	return nil
}

func (c Claims) UserID() uuid.UUID {
	// Parse error is impossible for claims that passed Validate
	id, _ := uuid.Parse(c.Subject)
	return id
}

// Token manager config
// Secrets and TTLs are required, there are no defaults for them
type Config struct {
	AccessSecret string
	AccessTTL    time.Duration

	RefreshSecret string
	RefreshTTL    time.Duration

	// JWT MAC (Message Authentication Code) algorithm
	// If not set than default is used
	Alg string

	// Clock used to issue and verify tokens; time.Now if not set
	Now func() time.Time
}

type TokenManager struct {
	alg jwt.SigningMethod
	now func() time.Time

	access  channel
	refresh channel
}

// Every token kind is signed with its own secret, so one kind never verifies as another
type channel struct {
	secret []byte
	ttl    time.Duration
}

func New(cfg Config) (*TokenManager, error) {
	switch {
	case cfg.AccessSecret == "" || cfg.RefreshSecret == "":
		return nil, errors.New("access and refresh secrets must not be empty")
	case cfg.AccessSecret == cfg.RefreshSecret:
		return nil, errors.New("access and refresh secrets must differ")
	case cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0:
		return nil, errors.New("access and refresh TTL must be positive")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}
	alg, ok := jwt.GetSigningMethod(cfg.Alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("signing method %q is not supported, use HMAC one", cfg.Alg)
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &TokenManager{
		alg:     alg,
		now:     cfg.Now,
		access:  channel{secret: []byte(cfg.AccessSecret), ttl: cfg.AccessTTL},
		refresh: channel{secret: []byte(cfg.RefreshSecret), ttl: cfg.RefreshTTL},
	}, nil
}

// Issue access and refresh tokens for the user
// Both tokens share subject, email, iat, nbf and pair id (jti); they differ by exp and secret
func (m *TokenManager) Issue(userID uuid.UUID, email string) (models.TokenPair, error) {
	var pair models.TokenPair
	now := m.now().Truncate(time.Second)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
		Email: email,
	}

	access, err := m.sign(claims, now, m.access)
	if err != nil {
		return pair, fmt.Errorf("error while signing access token. Err: %w", err)
	}

	refresh, err := m.sign(claims, now, m.refresh)
	if err != nil {
		return pair, fmt.Errorf("error while signing refresh token. Err: %w", err)
	}

	return models.TokenPair{Access: access, Refresh: refresh}, nil
}

func (m *TokenManager) sign(claims Claims, now time.Time, ch channel) (models.IssuedToken, error) {
	expiresAt := now.Add(ch.ttl)
	claims.ExpiresAt = jwt.NewNumericDate(expiresAt)

	value, err := jwt.NewWithClaims(m.alg, claims).SignedString(ch.secret)
	if err != nil {
		return models.IssuedToken{}, err
	}

	return models.IssuedToken{Value: value, ExpiresAt: expiresAt, TTL: ch.ttl}, nil
}

// Verify access token signature and validity window
func (m *TokenManager) VerifyAccess(token string) (Claims, error) {
	return m.verify(token, m.access)
}

// Verify refresh token signature and validity window
// It does not check the token against the store
func (m *TokenManager) VerifyRefresh(token string) (Claims, error) {
	return m.verify(token, m.refresh)
}

// Any failure (malformed, bad signature, expired, not yet valid, missing claims) is ErrTokenInvalid
func (m *TokenManager) verify(token string, ch channel) (Claims, error) {
	claims := Claims{}

	_, err := jwt.ParseWithClaims(
		token,
		&claims,
		func(t *jwt.Token) (any, error) {
			return ch.secret, nil
		},
		jwt.WithValidMethods([]string{m.alg.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", apperrors.ErrTokenInvalid, err)
	}

	return claims, nil
}
