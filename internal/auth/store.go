package auth

import "context"

// UserStore describes persistence operations required by the auth subsystem.
// Each operation is atomic from the caller's perspective; in particular Create
// and Update rely on the store's uniqueness constraint for emails rather than
// a check-then-insert sequence, and report ErrEmailTaken on violation.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id int64) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, skip, limit int) ([]*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id int64) error
}
