package member

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shopcollections/internal/collection"
)

// Repository loads and stores member accounts. It satisfies the collection
// domain's MemberDirectory.
type Repository interface {
	collection.MemberDirectory
	Insert(ctx context.Context, m *collection.Member) error
	ByEmail(ctx context.Context, email string) (*collection.Member, error)
}

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) MemberByID(ctx context.Context, id int64) (*collection.Member, error) {
	const q = `
SELECT id, first_name, last_name, email
FROM members
WHERE id = $1
`
	return r.fetch(ctx, q, id)
}

func (r *postgresRepo) ByEmail(ctx context.Context, email string) (*collection.Member, error) {
	const q = `
SELECT id, first_name, last_name, email
FROM members
WHERE email = $1
`
	return r.fetch(ctx, q, email)
}

func (r *postgresRepo) Insert(ctx context.Context, m *collection.Member) error {
	const q = `
INSERT INTO members (first_name, last_name, email)
VALUES ($1, $2, $3)
RETURNING id
`
	return r.pool.QueryRow(ctx, q, m.FirstName, m.LastName, m.Email).Scan(&m.ID)
}

func (r *postgresRepo) fetch(ctx context.Context, q string, args ...any) (*collection.Member, error) {
	var m collection.Member
	err := r.pool.QueryRow(ctx, q, args...).Scan(&m.ID, &m.FirstName, &m.LastName, &m.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, collection.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}
