// Package items implements ownership-checked CRUD over user-owned items.
// Reads are public; every mutation is gated by the ownership policy.
package items

import (
	"errors"
	"time"
)

// Item is a resource owned by exactly one user. Ownership is carried as an id
// foreign key; there is no back-reference from the user record.
type Item struct {
	ID          int64
	Title       string
	Description string
	OwnerID     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MaxTitleLength bounds item titles; titles are also required to be non-empty.
const MaxTitleLength = 255

var (
	// ErrNotFound indicates the requested item does not exist.
	ErrNotFound = errors.New("items: item not found")
	// ErrInvalidInput indicates a title or description constraint violation.
	ErrInvalidInput = errors.New("items: invalid input")
)
