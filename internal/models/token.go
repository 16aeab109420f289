package models

import (
	"time"
)

type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
	TTL       time.Duration
}

// Token pair issued by TokenManager on login and on every refresh
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}
