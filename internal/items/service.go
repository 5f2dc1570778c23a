package items

import (
	"context"
	"strings"

	"trove.dev/internal/auth"
	"trove.dev/internal/policy"
)

// Service applies the ownership policy in front of the item store. The
// requester is always the identity already resolved from the access token;
// public reads take no requester at all.
type Service struct {
	store Store
}

// NewService constructs a Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// UpdateInput carries the optional fields of a partial update. Nil fields are
// left unchanged.
type UpdateInput struct {
	Title       *string
	Description *string
}

// Create stores a new item owned by the requester.
func (s *Service) Create(ctx context.Context, requester *auth.User, title, description string) (*Item, error) {
	title = strings.TrimSpace(title)
	if title == "" || len(title) > MaxTitleLength {
		return nil, ErrInvalidInput
	}
	it := &Item{
		Title:       title,
		Description: description,
		OwnerID:     requester.ID,
	}
	if err := s.store.Create(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

// Find returns a single item. Public: no requester involved.
func (s *Service) Find(ctx context.Context, id int64) (*Item, error) {
	return s.store.Find(ctx, id)
}

// List returns all items. Public: no requester involved.
func (s *Service) List(ctx context.Context, skip, limit int) ([]*Item, error) {
	return s.store.List(ctx, skip, limit)
}

// ListOwn returns the requester's items.
func (s *Service) ListOwn(ctx context.Context, requester *auth.User, skip, limit int) ([]*Item, error) {
	return s.store.ListByOwner(ctx, requester.ID, skip, limit)
}

// Update applies a partial update; only the owner or a superuser may mutate.
func (s *Service) Update(ctx context.Context, requester *auth.User, id int64, in UpdateInput) (*Item, error) {
	it, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.CanActOn(requester.ID, requester.IsSuperuser, it.OwnerID); err != nil {
		return nil, err
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" || len(title) > MaxTitleLength {
			return nil, ErrInvalidInput
		}
		it.Title = title
	}
	if in.Description != nil {
		it.Description = *in.Description
	}
	if err := s.store.Update(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

// Delete removes an item; only the owner or a superuser may delete.
func (s *Service) Delete(ctx context.Context, requester *auth.User, id int64) error {
	it, err := s.store.Find(ctx, id)
	if err != nil {
		return err
	}
	if err := policy.CanActOn(requester.ID, requester.IsSuperuser, it.OwnerID); err != nil {
		return err
	}
	return s.store.Delete(ctx, it.ID)
}
