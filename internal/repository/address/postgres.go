package address

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shopcollections/internal/collection"
)

// Repository loads and stores addresses. It satisfies the collection
// domain's AddressBook.
type Repository interface {
	collection.AddressBook
	Insert(ctx context.Context, addr *collection.Address, memberID int64) error
	ByMember(ctx context.Context, memberID int64) ([]*collection.Address, error)
}

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

const addressColumns = `
id, first_name, last_name, email, street_name, postal_code, city, country`

func (r *postgresRepo) AddressByID(ctx context.Context, id int64) (*collection.Address, error) {
	const q = `
SELECT ` + addressColumns + `
FROM addresses
WHERE id = $1
`
	addr, err := scanAddress(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, collection.ErrNotFound
		}
		return nil, err
	}
	return addr, nil
}

func (r *postgresRepo) ByMember(ctx context.Context, memberID int64) ([]*collection.Address, error) {
	const q = `
SELECT ` + addressColumns + `
FROM addresses
WHERE member_id = $1
ORDER BY id ASC
`
	rows, err := r.pool.Query(ctx, q, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*collection.Address
	for rows.Next() {
		addr, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, rows.Err()
}

func (r *postgresRepo) Insert(ctx context.Context, addr *collection.Address, memberID int64) error {
	const q = `
INSERT INTO addresses (member_id, first_name, last_name, email, street_name, postal_code, city, country)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id
`
	return r.pool.QueryRow(ctx, q,
		memberID, addr.FirstName, addr.LastName, addr.Email,
		addr.StreetName, addr.PostalCode, addr.City, addr.Country,
	).Scan(&addr.ID)
}

func scanAddress(row pgx.Row) (*collection.Address, error) {
	var addr collection.Address
	if err := row.Scan(
		&addr.ID,
		&addr.FirstName,
		&addr.LastName,
		&addr.Email,
		&addr.StreetName,
		&addr.PostalCode,
		&addr.City,
		&addr.Country,
	); err != nil {
		return nil, err
	}
	return &addr, nil
}
