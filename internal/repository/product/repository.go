package product

import (
	"context"

	"github.com/shopspring/decimal"

	"shopcollections/internal/catalog"
)

// PriceTier is a quantity-based price override. The tier with the highest
// MinQuantity not exceeding the requested quantity wins.
type PriceTier struct {
	MinQuantity  int             `json:"minQuantity"`
	Price        decimal.Decimal `json:"price"`
	TaxFreePrice decimal.Decimal `json:"taxFreePrice"`
}

// Record is a stored product. It implements catalog.Product; the options
// returned by Options are the variant options the record was resolved with.
type Record struct {
	RecordID           int64             `json:"id"`
	Parent             int64             `json:"parentId,omitempty"`
	ProductType        string            `json:"type"`
	StockKeeping       string            `json:"sku"`
	Title              string            `json:"name"`
	VariantOpts        map[string]string `json:"options,omitempty"`
	BasePrice          decimal.Decimal   `json:"price"`
	BaseTaxFree        decimal.Decimal   `json:"taxFreePrice"`
	Tiers              []PriceTier       `json:"priceTiers,omitempty"`
	IsAvailable        bool              `json:"available"`
	MinQuantity        int               `json:"minQuantity"`
	ExemptFromShipping bool              `json:"shippingExempt"`
	Weight             catalog.Weight    `json:"weight"`
	URL                string            `json:"detailUrl,omitempty"`
}

func (r *Record) ID() int64                  { return r.RecordID }
func (r *Record) ParentID() int64            { return r.Parent }
func (r *Record) Type() string               { return r.ProductType }
func (r *Record) SKU() string                { return r.StockKeeping }
func (r *Record) Name() string               { return r.Title }
func (r *Record) DetailURL() string          { return r.URL }
func (r *Record) Options() map[string]string { return r.VariantOpts }
func (r *Record) Available() bool            { return r.IsAvailable }
func (r *Record) MinimumOrderQuantity() int  { return r.MinQuantity }
func (r *Record) ShippingExempt() bool       { return r.ExemptFromShipping }
func (r *Record) ShippingWeight() catalog.Weight {
	return r.Weight
}

// Price returns the unit price for the given quantity, honoring tier
// overrides.
func (r *Record) Price(quantity int) (decimal.Decimal, bool) {
	price := r.BasePrice
	best := 0
	for _, tier := range r.Tiers {
		if tier.MinQuantity <= quantity && tier.MinQuantity >= best {
			best = tier.MinQuantity
			price = tier.Price
		}
	}
	return price, true
}

func (r *Record) TaxFreePrice(quantity int) (decimal.Decimal, bool) {
	price := r.BaseTaxFree
	best := 0
	for _, tier := range r.Tiers {
		if tier.MinQuantity <= quantity && tier.MinQuantity >= best {
			best = tier.MinQuantity
			price = tier.TaxFreePrice
		}
	}
	return price, true
}

// Repository reads and writes product records. It doubles as the
// catalog.Resolver used by the collection domain.
type Repository interface {
	catalog.Resolver
	List(ctx context.Context) ([]*Record, error)
	ByID(ctx context.Context, id int64) (*Record, error)
	Upsert(ctx context.Context, rec *Record) (*Record, error)
}
