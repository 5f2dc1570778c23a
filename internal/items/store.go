package items

import "context"

// Store describes persistence operations for items. Each operation is atomic
// from the caller's perspective.
type Store interface {
	Create(ctx context.Context, it *Item) error
	Find(ctx context.Context, id int64) (*Item, error)
	List(ctx context.Context, skip, limit int) ([]*Item, error)
	ListByOwner(ctx context.Context, ownerID int64, skip, limit int) ([]*Item, error)
	Update(ctx context.Context, it *Item) error
	Delete(ctx context.Context, id int64) error
}
