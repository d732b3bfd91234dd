package models

import "time"

// DefaultCredits is the balance every new account starts with.
const DefaultCredits = 1

type AuthProvider string

const (
	AuthProviderLocal  AuthProvider = "local"
	AuthProviderGoogle AuthProvider = "google"
)

type User struct {
	ID           string
	Email        string
	PasswordHash []byte // nil for accounts that only ever signed in through a provider
	DisplayName  string
	Credits      int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword reports whether the account can log in with a local credential.
func (u User) HasPassword() bool {
	return len(u.PasswordHash) > 0
}

type Session struct {
	ID         string
	UserID     string
	Provider   AuthProvider
	IPAddress  string
	UserAgent  string
	CreatedAt  time.Time
	LastSeenAt time.Time
	ExpiresAt  time.Time
}

func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
