package collection

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"shopcollections/internal/catalog"
)

// Item is one product-at-a-price-and-quantity entry within a collection.
// The product snapshot fields (sku, name, options, prices, link) are frozen
// at add time; quantity is mutable while the item is unlocked.
type Item struct {
	c       *Collection
	row     ItemRow
	locked  bool
	product resolved[catalog.Product]
}

func newItem(c *Collection, row ItemRow) *Item {
	return &Item{c: c, row: row}
}

func (i *Item) ID() int64                  { return i.row.ID }
func (i *Item) CollectionID() int64        { return i.row.CollectionID }
func (i *Item) ProductID() int64           { return i.row.ProductID }
func (i *Item) ProductType() string        { return i.row.ProductType }
func (i *Item) SKU() string                { return i.row.SKU }
func (i *Item) Name() string               { return i.row.Name }
func (i *Item) Options() map[string]string { return i.row.Options }
func (i *Item) Quantity() int              { return i.row.Quantity }
func (i *Item) DetailURL() string          { return i.row.DetailURL }
func (i *Item) UpdatedAt() time.Time       { return i.row.UpdatedAt }

// IsLocked reports whether the item is frozen. An item can be locked
// independently of its collection so mixed states can be reconciled while
// migrating items from a cart to an order.
func (i *Item) IsLocked() bool { return i.locked }

// Lock freezes the item: price reads return the persisted snapshot and
// mutators become inert.
func (i *Item) Lock() { i.locked = true }

// Product resolves the underlying catalog product, memoized per item.
func (i *Item) Product(ctx context.Context) (catalog.Product, error) {
	if i.product.state == unresolved {
		p, err := i.c.deps.Catalog.Resolve(ctx, i.row.ProductID, i.row.Options)
		if err != nil {
			return nil, err
		}
		if p == nil {
			i.product.setNone()
		} else {
			i.product.set(p)
		}
	}
	if i.product.state == resolvedNone {
		return nil, nil
	}
	return i.product.value, nil
}

// HasProduct reports whether the underlying product still exists.
func (i *Item) HasProduct(ctx context.Context) (bool, error) {
	p, err := i.Product(ctx)
	if err != nil {
		return false, err
	}
	return p != nil, nil
}

// Price returns the unit price: the frozen snapshot for a locked item, the
// live quantity-tier price otherwise. The boolean is false when no price
// can be resolved.
func (i *Item) Price(ctx context.Context) (decimal.Decimal, bool, error) {
	if i.locked {
		return i.row.Price, true, nil
	}
	p, err := i.Product(ctx)
	if err != nil || p == nil {
		return decimal.Zero, false, err
	}
	price, ok := p.Price(i.row.Quantity)
	return price, ok, nil
}

// TaxFreePrice mirrors Price for the tax-free amount.
func (i *Item) TaxFreePrice(ctx context.Context) (decimal.Decimal, bool, error) {
	if i.locked {
		return i.row.TaxFreePrice, true, nil
	}
	p, err := i.Product(ctx)
	if err != nil || p == nil {
		return decimal.Zero, false, err
	}
	price, ok := p.TaxFreePrice(i.row.Quantity)
	return price, ok, nil
}

// IncreaseQuantityBy adds to the quantity and persists immediately. Returns
// false without touching storage when the item is locked.
func (i *Item) IncreaseQuantityBy(ctx context.Context, n int) (bool, error) {
	if i.locked {
		return false, nil
	}
	i.row.Quantity += n
	i.row.UpdatedAt = time.Now()
	if err := i.c.deps.Storage.UpdateItem(ctx, &i.row); err != nil {
		return false, err
	}
	i.c.invalidateDerived()
	return true, nil
}

func (i *Item) cloneRow() ItemRow {
	row := i.row
	if i.row.Options != nil {
		row.Options = make(map[string]string, len(i.row.Options))
		for k, v := range i.row.Options {
			row.Options[k] = v
		}
	}
	return row
}

// ItemUpdate describes a pending change to a line item. Nil fields are left
// untouched.
type ItemUpdate struct {
	Quantity *int
	Name     *string
	SKU      *string
}

func (u *ItemUpdate) empty() bool {
	return u == nil || (u.Quantity == nil && u.Name == nil && u.SKU == nil)
}
