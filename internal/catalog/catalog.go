// Package catalog defines the contract a product catalog must satisfy for
// collections to resolve line items against live product data.
package catalog

import (
	"context"

	"github.com/shopspring/decimal"
)

// Product is a configured catalog product: a base product plus the option
// set (variant attributes) it was resolved with.
type Product interface {
	ID() int64
	// ParentID returns the id of the parent product for variants, 0 for
	// standalone products.
	ParentID() int64
	// Type is the product model tag, e.g. "standard" or "downloadable".
	Type() string
	SKU() string
	Name() string
	DetailURL() string
	// Options returns the selected variant attributes this product was
	// configured with.
	Options() map[string]string

	// Available reports whether the product can currently be purchased.
	Available() bool
	// Price returns the unit price for the given quantity tier. The second
	// return value is false when no price can be determined.
	Price(quantity int) (decimal.Decimal, bool)
	TaxFreePrice(quantity int) (decimal.Decimal, bool)
	MinimumOrderQuantity() int
	ShippingExempt() bool
	ShippingWeight() Weight
}

// Resolver looks up a configured product. A nil Product with a nil error
// means the product does not exist (anymore); errors are reserved for
// catalog/storage faults.
type Resolver interface {
	Resolve(ctx context.Context, productID int64, options map[string]string) (Product, error)
}
