package collection

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"shopcollections/internal/money"
)

// Document is a frozen, serializable rendering of a collection, typically
// the invoice generated from a finalized order. It is built from the
// collection's own data only.
type Document struct {
	Number          string          `json:"number"`
	Kind            Kind            `json:"kind"`
	Date            time.Time       `json:"date"`
	Currency        string          `json:"currency"`
	BillingAddress  string          `json:"billingAddress,omitempty"`
	ShippingAddress string          `json:"shippingAddress,omitempty"`
	Recipient       string          `json:"recipient,omitempty"`
	Items           []DocumentItem  `json:"items"`
	Surcharges      []DocumentLine  `json:"surcharges,omitempty"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Total           decimal.Decimal `json:"total"`
	SubtotalText    string          `json:"subtotalText"`
	TotalText       string          `json:"totalText"`
}

// DocumentItem is one invoice row.
type DocumentItem struct {
	SKU       string            `json:"sku"`
	Name      string            `json:"name"`
	Options   map[string]string `json:"options,omitempty"`
	Quantity  int               `json:"quantity"`
	Price     decimal.Decimal   `json:"price"`
	Total     decimal.Decimal   `json:"total"`
	PriceText string            `json:"priceText"`
	TotalText string            `json:"totalText"`
}

// DocumentLine is a labelled amount below the item table.
type DocumentLine struct {
	Label      string          `json:"label"`
	Amount     decimal.Decimal `json:"amount"`
	AmountText string          `json:"amountText"`
	AddToTotal bool            `json:"addToTotal"`
}

// Document builds the frozen document for this collection. A registered
// document hook may replace the built value.
func (c *Collection) Document(ctx context.Context) (*Document, error) {
	items, err := c.Items(ctx)
	if err != nil {
		return nil, err
	}
	surcharges, err := c.Surcharges(ctx)
	if err != nil {
		return nil, err
	}
	subtotal, err := c.Subtotal(ctx)
	if err != nil {
		return nil, err
	}
	total, err := c.Total(ctx)
	if err != nil {
		return nil, err
	}
	billing, err := c.BillingAddress(ctx)
	if err != nil {
		return nil, err
	}
	shipping, err := c.ShippingAddress(ctx)
	if err != nil {
		return nil, err
	}
	recipient, err := c.EmailRecipient(ctx)
	if err != nil {
		return nil, err
	}

	currency := c.row.Currency
	doc := &Document{
		Number:          c.row.Token,
		Kind:            c.row.Kind,
		Date:            c.row.UpdatedAt,
		Currency:        currency,
		BillingAddress:  formatAddress(billing),
		ShippingAddress: formatAddress(shipping),
		Recipient:       recipient,
		Subtotal:        subtotal,
		Total:           total,
		SubtotalText:    money.Format(subtotal, currency),
		TotalText:       money.Format(total, currency),
	}

	for _, item := range items {
		price, ok, err := item.Price(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			price = item.row.Price
		}
		lineTotal := price.Mul(decimal.NewFromInt(int64(item.row.Quantity)))
		doc.Items = append(doc.Items, DocumentItem{
			SKU:       item.row.SKU,
			Name:      item.row.Name,
			Options:   item.row.Options,
			Quantity:  item.row.Quantity,
			Price:     price,
			Total:     lineTotal,
			PriceText: money.Format(price, currency),
			TotalText: money.Format(lineTotal, currency),
		})
	}

	for _, s := range surcharges {
		doc.Surcharges = append(doc.Surcharges, DocumentLine{
			Label:      s.Label,
			Amount:     s.Amount,
			AmountText: money.Format(s.Amount, currency),
			AddToTotal: s.AddToTotal,
		})
	}

	for _, hook := range c.deps.hooks().Document {
		if replaced := hook(ctx, c, doc); replaced != nil {
			doc = replaced
		}
	}
	return doc, nil
}

func formatAddress(addr *Address) string {
	if addr == nil {
		return ""
	}
	parts := []string{
		strings.TrimSpace(addr.FirstName + " " + addr.LastName),
		addr.StreetName,
		strings.TrimSpace(addr.PostalCode + " " + addr.City),
		addr.Country,
	}
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}
