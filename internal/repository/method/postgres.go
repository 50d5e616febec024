package method

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"shopcollections/internal/collection"
)

// FlatFee is a stored payment or shipping method charging a fixed fee. A
// zero fee contributes no surcharge.
type FlatFee struct {
	MethodID   int64
	MethodName string
	Label      string
	Fee        decimal.Decimal
	TaxFreeFee decimal.Decimal
}

func (m *FlatFee) ID() int64    { return m.MethodID }
func (m *FlatFee) Name() string { return m.MethodName }

func (m *FlatFee) ComputeSurcharge(_ context.Context, _ *collection.Collection) (*collection.Surcharge, error) {
	if m.Fee.Sign() == 0 {
		return nil, nil
	}
	label := m.Label
	if label == "" {
		label = m.MethodName
	}
	return &collection.Surcharge{
		Label:         label,
		Amount:        m.Fee,
		TaxFreeAmount: m.TaxFreeFee,
		AddToTotal:    true,
	}, nil
}

// Repository resolves stored methods. It satisfies the collection domain's
// MethodResolver; disabled methods do not resolve.
type Repository interface {
	collection.MethodResolver
	List(ctx context.Context, methodType string) ([]*FlatFee, error)
	Insert(ctx context.Context, methodType string, m *FlatFee) error
}

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) PaymentMethod(ctx context.Context, id int64) (collection.Method, error) {
	return r.byID(ctx, id, "payment")
}

func (r *postgresRepo) ShippingMethod(ctx context.Context, id int64) (collection.Method, error) {
	return r.byID(ctx, id, "shipping")
}

func (r *postgresRepo) byID(ctx context.Context, id int64, methodType string) (collection.Method, error) {
	const q = `
SELECT id, name, label, fee, tax_free_fee
FROM methods
WHERE id = $1 AND method_type = $2 AND enabled
`
	m, err := scanMethod(r.pool.QueryRow(ctx, q, id, methodType))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, collection.ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *postgresRepo) List(ctx context.Context, methodType string) ([]*FlatFee, error) {
	const q = `
SELECT id, name, label, fee, tax_free_fee
FROM methods
WHERE method_type = $1 AND enabled
ORDER BY id ASC
`
	rows, err := r.pool.Query(ctx, q, methodType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*FlatFee
	for rows.Next() {
		m, err := scanMethod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *postgresRepo) Insert(ctx context.Context, methodType string, m *FlatFee) error {
	const q = `
INSERT INTO methods (method_type, name, label, fee, tax_free_fee, enabled)
VALUES ($1, $2, $3, $4, $5, TRUE)
RETURNING id
`
	return r.pool.QueryRow(ctx, q, methodType, m.MethodName, m.Label, m.Fee, m.TaxFreeFee).Scan(&m.MethodID)
}

func scanMethod(row pgx.Row) (*FlatFee, error) {
	var m FlatFee
	if err := row.Scan(&m.MethodID, &m.MethodName, &m.Label, &m.Fee, &m.TaxFreeFee); err != nil {
		return nil, err
	}
	return &m, nil
}
