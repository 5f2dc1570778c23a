package auth

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the postgres error code for a unique constraint breach.
const uniqueViolation = "23505"

var _ UserStore = (*PGStore)(nil)

// PGStore implements UserStore using PostgreSQL. Email uniqueness rests on
// the users_email_key constraint; concurrent inserts race at the index, not
// in application code.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Create(ctx context.Context, u *User) error {
	err := s.db.QueryRowContext(ctx,
		`insert into users(email, password_hash, full_name, is_active, is_superuser)
		 values($1,$2,$3,$4,$5)
		 returning id, created_at, updated_at`,
		u.Email, u.PasswordHash, u.FullName, u.IsActive, u.IsSuperuser,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

func (s *PGStore) Find(ctx context.Context, id int64) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, userSelect+` where id=$1`, id))
}

func (s *PGStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, userSelect+` where email=$1`, email))
}

func (s *PGStore) List(ctx context.Context, skip, limit int) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx, userSelect+` order by id offset $1 limit $2`, skip, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName,
			&u.IsActive, &u.IsSuperuser, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

func (s *PGStore) Update(ctx context.Context, u *User) error {
	err := s.db.QueryRowContext(ctx,
		`update users
		 set email=$1, password_hash=$2, full_name=$3, is_active=$4, is_superuser=$5, updated_at=now()
		 where id=$6
		 returning updated_at`,
		u.Email, u.PasswordHash, u.FullName, u.IsActive, u.IsSuperuser, u.ID,
	).Scan(&u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

// Delete removes the user; owned items go with it via the items.owner_id
// cascade in the schema.
func (s *PGStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from users where id=$1`, id)
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

const userSelect = `select id, email, password_hash, coalesce(full_name,''), is_active, is_superuser, created_at, updated_at from users`

func (s *PGStore) scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName,
		&u.IsActive, &u.IsSuperuser, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
