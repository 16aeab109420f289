package models

import (
	"time"

	"github.com/google/uuid"
)

const RoleUser = "user"

// User is the durable credential record
type User struct {
	ID           uuid.UUID
	CreatedAt    time.Time
	Email        string
	PasswordHash string
	Role         string
	RefreshToken *string // nil if user has no live refresh token
}

// Identity is the {id, email} pair confirmed against the store
type Identity struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

func (u User) Identity() Identity {
	return Identity{ID: u.ID, Email: u.Email}
}
