package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"github.com/nkiryanov/shortener/internal/apperrors"
)

const (
	pbkdf2SaltLen    = 16
	pbkdf2Iterations = 50_000
	pbkdf2KeyLen     = 32
)

// PBKDF2 (HMAC-SHA256) password hasher
// Stored format is hex(salt) + ":" + hex(key)
type PBKDF2Hasher struct{}

func (h PBKDF2Hasher) Hash(password string) (string, error) {
	salt := make([]byte, pbkdf2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("could not read salt. Err: %w", err)
	}

	key := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, pbkdf2KeyLen, sha256.New)

	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(key), nil
}

// Compare stored hash with the attempt in constant time
// Returns ErrMalformedPasswordHash if stored value can't be parsed and ErrInvalidPassword on mismatch
func (h PBKDF2Hasher) Compare(stored string, password string) error {
	salt, key, err := splitHash(stored)
	if err != nil {
		return err
	}

	attempt := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, pbkdf2KeyLen, sha256.New)
	if subtle.ConstantTimeCompare(key, attempt) != 1 {
		return apperrors.ErrInvalidPassword
	}

	return nil
}

// Verify is the boolean form of Compare for callers that don't log the reason
// Malformed hash is just false
func (h PBKDF2Hasher) Verify(stored string, password string) bool {
	return h.Compare(stored, password) == nil
}

func splitHash(stored string) ([]byte, []byte, error) {
	saltHex, keyHex, ok := strings.Cut(stored, ":")
	if !ok || strings.Contains(keyHex, ":") {
		return nil, nil, fmt.Errorf("%w: expected salt:key", apperrors.ErrMalformedPasswordHash)
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil || len(salt) != pbkdf2SaltLen {
		return nil, nil, fmt.Errorf("%w: bad salt", apperrors.ErrMalformedPasswordHash)
	}

	key, err := hex.DecodeString(keyHex)
	if err != nil || len(key) != pbkdf2KeyLen {
		return nil, nil, fmt.Errorf("%w: bad key", apperrors.ErrMalformedPasswordHash)
	}

	return salt, key, nil
}
