package collection

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	coll "shopcollections/internal/collection"
)

type postgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgres returns a collection.Storage backed by PostgreSQL. Collection
// row, items and surcharges are written in single transactions so a
// half-saved collection is never observable.
func NewPostgres(pool *pgxpool.Pool) coll.Storage {
	return &postgresStorage{pool: pool}
}

const collectionColumns = `
id, kind, locked, payment_method_id, shipping_method_id,
billing_address_id, shipping_address_id, member_id, source_collection_id,
currency, token, settings, created_at, updated_at`

func (s *postgresStorage) CollectionByID(ctx context.Context, id int64) (*coll.Row, error) {
	const q = `
SELECT ` + collectionColumns + `
FROM collections
WHERE id = $1
`
	return s.fetchCollection(ctx, q, id)
}

func (s *postgresStorage) ActiveCartByMember(ctx context.Context, memberID int64) (*coll.Row, error) {
	const q = `
SELECT ` + collectionColumns + `
FROM collections
WHERE kind = 'cart' AND member_id = $1 AND NOT locked
ORDER BY updated_at DESC
LIMIT 1
`
	return s.fetchCollection(ctx, q, memberID)
}

func (s *postgresStorage) fetchCollection(ctx context.Context, q string, args ...any) (*coll.Row, error) {
	row, err := scanCollection(s.pool.QueryRow(ctx, q, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coll.ErrNotFound
		}
		return nil, err
	}
	return row, nil
}

func scanCollection(r pgx.Row) (*coll.Row, error) {
	var row coll.Row
	if err := r.Scan(
		&row.ID,
		&row.Kind,
		&row.Locked,
		&row.PaymentMethodID,
		&row.ShippingMethodID,
		&row.BillingAddressID,
		&row.ShippingAddressID,
		&row.MemberID,
		&row.SourceCollectionID,
		&row.Currency,
		&row.Token,
		&row.Settings,
		&row.CreatedAt,
		&row.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if row.Settings == nil {
		row.Settings = map[string]any{}
	}
	return &row, nil
}

func (s *postgresStorage) InsertCollection(ctx context.Context, row *coll.Row) error {
	const q = `
INSERT INTO collections (
	kind, locked, payment_method_id, shipping_method_id,
	billing_address_id, shipping_address_id, member_id, source_collection_id,
	currency, token, settings, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING id
`
	return s.pool.QueryRow(ctx, q,
		row.Kind, row.Locked, row.PaymentMethodID, row.ShippingMethodID,
		row.BillingAddressID, row.ShippingAddressID, row.MemberID, row.SourceCollectionID,
		row.Currency, row.Token, row.Settings, row.CreatedAt, row.UpdatedAt,
	).Scan(&row.ID)
}

func (s *postgresStorage) SaveCollection(ctx context.Context, row *coll.Row, writeRow bool, items []*coll.ItemRow) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if writeRow {
		if err := updateCollection(ctx, tx, row); err != nil {
			return err
		}
	}
	for _, item := range items {
		if err := updateItem(ctx, tx, item); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func updateCollection(ctx context.Context, tx pgx.Tx, row *coll.Row) error {
	const q = `
UPDATE collections
SET kind = $1,
    locked = $2,
    payment_method_id = $3,
    shipping_method_id = $4,
    billing_address_id = $5,
    shipping_address_id = $6,
    member_id = $7,
    source_collection_id = $8,
    currency = $9,
    token = $10,
    settings = $11,
    updated_at = $12
WHERE id = $13
`
	cmd, err := tx.Exec(ctx, q,
		row.Kind, row.Locked, row.PaymentMethodID, row.ShippingMethodID,
		row.BillingAddressID, row.ShippingAddressID, row.MemberID, row.SourceCollectionID,
		row.Currency, row.Token, row.Settings, row.UpdatedAt, row.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return coll.ErrNotFound
	}
	return nil
}

func (s *postgresStorage) LockCollection(ctx context.Context, row *coll.Row, surcharges []*coll.SurchargeRow) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := updateCollection(ctx, tx, row); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM collection_surcharges WHERE collection_id = $1`, row.ID); err != nil {
		return err
	}
	const insert = `
INSERT INTO collection_surcharges (collection_id, position, label, kind, amount, tax_free_amount, add_to_total)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id
`
	for _, sc := range surcharges {
		if err := tx.QueryRow(ctx, insert,
			sc.CollectionID, sc.Position, sc.Label, sc.Kind,
			sc.Amount, sc.TaxFreeAmount, sc.AddToTotal,
		).Scan(&sc.ID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *postgresStorage) DeleteCollection(ctx context.Context, id int64) (int64, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM collection_surcharges WHERE collection_id = $1`, id); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM collection_items WHERE collection_id = $1`, id); err != nil {
		return 0, err
	}
	cmd, err := tx.Exec(ctx, `DELETE FROM collections WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

const itemColumns = `
id, collection_id, product_type, product_id, sku, name, options,
quantity, price, tax_free_price, detail_url, updated_at`

func (s *postgresStorage) ItemsByCollection(ctx context.Context, collectionID int64) ([]*coll.ItemRow, error) {
	const q = `
SELECT ` + itemColumns + `
FROM collection_items
WHERE collection_id = $1
ORDER BY id ASC
`
	rows, err := s.pool.Query(ctx, q, collectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*coll.ItemRow
	for rows.Next() {
		var item coll.ItemRow
		if err := rows.Scan(
			&item.ID,
			&item.CollectionID,
			&item.ProductType,
			&item.ProductID,
			&item.SKU,
			&item.Name,
			&item.Options,
			&item.Quantity,
			&item.Price,
			&item.TaxFreePrice,
			&item.DetailURL,
			&item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *postgresStorage) InsertItem(ctx context.Context, row *coll.ItemRow) error {
	const q = `
INSERT INTO collection_items (
	collection_id, product_type, product_id, sku, name, options,
	quantity, price, tax_free_price, detail_url, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id
`
	return s.pool.QueryRow(ctx, q,
		row.CollectionID, row.ProductType, row.ProductID, row.SKU, row.Name, row.Options,
		row.Quantity, row.Price, row.TaxFreePrice, row.DetailURL, row.UpdatedAt,
	).Scan(&row.ID)
}

func updateItem(ctx context.Context, tx pgx.Tx, row *coll.ItemRow) error {
	const q = `
UPDATE collection_items
SET sku = $1,
    name = $2,
    options = $3,
    quantity = $4,
    price = $5,
    tax_free_price = $6,
    detail_url = $7,
    updated_at = $8
WHERE id = $9 AND collection_id = $10
`
	cmd, err := tx.Exec(ctx, q,
		row.SKU, row.Name, row.Options, row.Quantity,
		row.Price, row.TaxFreePrice, row.DetailURL, row.UpdatedAt,
		row.ID, row.CollectionID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return coll.ErrNotFound
	}
	return nil
}

func (s *postgresStorage) UpdateItem(ctx context.Context, row *coll.ItemRow) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := updateItem(ctx, tx, row); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *postgresStorage) DeleteItem(ctx context.Context, id int64) (bool, error) {
	cmd, err := s.pool.Exec(ctx, `DELETE FROM collection_items WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (s *postgresStorage) SurchargesByCollection(ctx context.Context, collectionID int64) ([]*coll.SurchargeRow, error) {
	const q = `
SELECT id, collection_id, position, label, kind, amount, tax_free_amount, add_to_total
FROM collection_surcharges
WHERE collection_id = $1
ORDER BY position ASC
`
	rows, err := s.pool.Query(ctx, q, collectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*coll.SurchargeRow
	for rows.Next() {
		var sc coll.SurchargeRow
		if err := rows.Scan(
			&sc.ID,
			&sc.CollectionID,
			&sc.Position,
			&sc.Label,
			&sc.Kind,
			&sc.Amount,
			&sc.TaxFreeAmount,
			&sc.AddToTotal,
		); err != nil {
			return nil, err
		}
		out = append(out, &sc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
