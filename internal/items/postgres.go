package items

import (
	"context"
	"database/sql"
	"errors"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL. The owner_id column references
// users(id) with on delete cascade, so removing an account removes its items
// inside the same statement.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const itemSelect = `select id, title, coalesce(description,''), owner_id, created_at, updated_at from items`

func (s *PGStore) Create(ctx context.Context, it *Item) error {
	return s.db.QueryRowContext(ctx,
		`insert into items(title, description, owner_id)
		 values($1,$2,$3)
		 returning id, created_at, updated_at`,
		it.Title, it.Description, it.OwnerID,
	).Scan(&it.ID, &it.CreatedAt, &it.UpdatedAt)
}

func (s *PGStore) Find(ctx context.Context, id int64) (*Item, error) {
	var it Item
	err := s.db.QueryRowContext(ctx, itemSelect+` where id=$1`, id).
		Scan(&it.ID, &it.Title, &it.Description, &it.OwnerID, &it.CreatedAt, &it.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (s *PGStore) List(ctx context.Context, skip, limit int) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx, itemSelect+` order by id offset $1 limit $2`, skip, limit)
	if err != nil {
		return nil, err
	}
	return collectItems(rows)
}

func (s *PGStore) ListByOwner(ctx context.Context, ownerID int64, skip, limit int) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx,
		itemSelect+` where owner_id=$1 order by id offset $2 limit $3`, ownerID, skip, limit)
	if err != nil {
		return nil, err
	}
	return collectItems(rows)
}

func (s *PGStore) Update(ctx context.Context, it *Item) error {
	err := s.db.QueryRowContext(ctx,
		`update items set title=$1, description=$2, updated_at=now() where id=$3 returning updated_at`,
		it.Title, it.Description, it.ID,
	).Scan(&it.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *PGStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from items where id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func collectItems(rows *sql.Rows) ([]*Item, error) {
	defer rows.Close()
	var out []*Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Title, &it.Description, &it.OwnerID, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &it)
	}
	return out, rows.Err()
}
