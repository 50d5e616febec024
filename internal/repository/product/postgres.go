package product

import (
	"context"
	"errors"
	"io"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"shopcollections/internal/catalog"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger logrus.FieldLogger
}

func NewPostgres(pool *pgxpool.Pool, logger logrus.FieldLogger) Repository {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &postgresRepo{pool: pool, logger: logger}
}

const productColumns = `
id, parent_id, product_type, sku, name, options, price, tax_free_price,
price_tiers, available, min_quantity, shipping_exempt, weight_value,
weight_unit, detail_url`

func (r *postgresRepo) List(ctx context.Context) ([]*Record, error) {
	const q = `
SELECT ` + productColumns + `
FROM products
ORDER BY id ASC
`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		r.logger.WithError(err).Error("product repo: list")
		return nil, err
	}
	defer rows.Close()

	var result []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		r.logger.WithError(err).Error("product repo: list rows")
		return nil, err
	}
	return result, nil
}

func (r *postgresRepo) ByID(ctx context.Context, id int64) (*Record, error) {
	const q = `
SELECT ` + productColumns + `
FROM products
WHERE id = $1
`
	rec, err := scanRecord(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithError(err).WithField("product_id", id).Error("product repo: get")
		return nil, err
	}
	return rec, nil
}

// Resolve implements catalog.Resolver. The returned record carries the
// requested option set so line-item identity reflects the chosen variant.
func (r *postgresRepo) Resolve(ctx context.Context, productID int64, options map[string]string) (catalog.Product, error) {
	rec, err := r.ByID(ctx, productID)
	if err != nil || rec == nil {
		return nil, err
	}
	if !catalog.SameOptions(rec.VariantOpts, options) {
		cp := *rec
		cp.VariantOpts = options
		return &cp, nil
	}
	return rec, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, rec *Record) (*Record, error) {
	const q = `
INSERT INTO products (
	parent_id, product_type, sku, name, options, price, tax_free_price,
	price_tiers, available, min_quantity, shipping_exempt, weight_value,
	weight_unit, detail_url
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (sku) DO UPDATE SET
    parent_id = EXCLUDED.parent_id,
    product_type = EXCLUDED.product_type,
    name = EXCLUDED.name,
    options = EXCLUDED.options,
    price = EXCLUDED.price,
    tax_free_price = EXCLUDED.tax_free_price,
    price_tiers = EXCLUDED.price_tiers,
    available = EXCLUDED.available,
    min_quantity = EXCLUDED.min_quantity,
    shipping_exempt = EXCLUDED.shipping_exempt,
    weight_value = EXCLUDED.weight_value,
    weight_unit = EXCLUDED.weight_unit,
    detail_url = EXCLUDED.detail_url
RETURNING id
`
	if err := r.pool.QueryRow(ctx, q,
		rec.Parent, rec.ProductType, rec.StockKeeping, rec.Title, rec.VariantOpts,
		rec.BasePrice, rec.BaseTaxFree, rec.Tiers, rec.IsAvailable, rec.MinQuantity,
		rec.ExemptFromShipping, rec.Weight.Value, string(rec.Weight.Unit), rec.URL,
	).Scan(&rec.RecordID); err != nil {
		r.logger.WithError(err).WithField("sku", rec.StockKeeping).Error("product repo: upsert")
		return nil, err
	}
	r.logger.WithFields(logrus.Fields{"sku": rec.StockKeeping, "product_id": rec.RecordID}).Info("product repo: upserted")
	return rec, nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	var unit string
	if err := row.Scan(
		&rec.RecordID,
		&rec.Parent,
		&rec.ProductType,
		&rec.StockKeeping,
		&rec.Title,
		&rec.VariantOpts,
		&rec.BasePrice,
		&rec.BaseTaxFree,
		&rec.Tiers,
		&rec.IsAvailable,
		&rec.MinQuantity,
		&rec.ExemptFromShipping,
		&rec.Weight.Value,
		&unit,
		&rec.URL,
	); err != nil {
		return nil, err
	}
	rec.Weight.Unit = catalog.WeightUnit(unit)
	return &rec, nil
}
