package auth

import "time"

// User is an identity record. The email doubles as the token subject and is
// unique (enforced by the store). PasswordHash is opaque to every caller and
// never leaves the service through a public view.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	FullName     string
	IsActive     bool
	IsSuperuser  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TokenPair holds the two credentials minted together on login and refresh.
// Both carry the same subject but expire independently.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}
