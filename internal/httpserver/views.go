package httpserver

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"shopcollections/internal/collection"
	"shopcollections/internal/money"
	"shopcollections/internal/repository/product"
)

type collectionView struct {
	ID            int64             `json:"id"`
	Kind          string            `json:"kind"`
	Locked        bool              `json:"locked"`
	Currency      string            `json:"currency"`
	Token         string            `json:"token,omitempty"`
	MemberID      int64             `json:"memberId,omitempty"`
	Items         []itemView        `json:"items"`
	Surcharges    []surchargeView   `json:"surcharges,omitempty"`
	ItemCount     int               `json:"itemCount"`
	TotalQuantity int               `json:"totalQuantity"`
	Subtotal      decimal.Decimal   `json:"subtotal"`
	Total         decimal.Decimal   `json:"total"`
	SubtotalText  string            `json:"subtotalText"`
	TotalText     string            `json:"totalText"`
	UpdatedAt     time.Time         `json:"updatedAt"`
	Notices       []string          `json:"notices,omitempty"`
}

type itemView struct {
	ID        int64             `json:"id"`
	ProductID int64             `json:"productId"`
	SKU       string            `json:"sku"`
	Name      string            `json:"name"`
	Options   map[string]string `json:"options,omitempty"`
	Quantity  int               `json:"quantity"`
	Price     decimal.Decimal   `json:"price"`
	PriceText string            `json:"priceText"`
	DetailURL string            `json:"detailUrl,omitempty"`
}

type surchargeView struct {
	Label      string          `json:"label"`
	Kind       string          `json:"kind"`
	Amount     decimal.Decimal `json:"amount"`
	AmountText string          `json:"amountText"`
	AddToTotal bool            `json:"addToTotal"`
}

func buildCollectionView(ctx context.Context, c *collection.Collection, notices []string) (*collectionView, error) {
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
	quantity, err := c.SumItemsQuantity(ctx)
	if err != nil {
		return nil, err
	}

	currency := c.Currency()
	view := &collectionView{
		ID:            c.ID(),
		Kind:          string(c.Kind()),
		Locked:        c.IsLocked(),
		Currency:      currency,
		Token:         c.Token(),
		MemberID:      c.MemberID(),
		Items:         make([]itemView, 0, len(items)),
		ItemCount:     len(items),
		TotalQuantity: quantity,
		Subtotal:      subtotal,
		Total:         total,
		SubtotalText:  money.Format(subtotal, currency),
		TotalText:     money.Format(total, currency),
		UpdatedAt:     c.UpdatedAt(),
		Notices:       notices,
	}

	for _, item := range items {
		price, ok, err := item.Price(ctx)
		if err != nil {
			return nil, err
		}
		iv := itemView{
			ID:        item.ID(),
			ProductID: item.ProductID(),
			SKU:       item.SKU(),
			Name:      item.Name(),
			Options:   item.Options(),
			Quantity:  item.Quantity(),
			DetailURL: item.DetailURL(),
		}
		if ok {
			iv.Price = price
			iv.PriceText = money.Format(price, currency)
		}
		view.Items = append(view.Items, iv)
	}

	for _, s := range surcharges {
		view.Surcharges = append(view.Surcharges, surchargeView{
			Label:      s.Label,
			Kind:       string(s.Kind),
			Amount:     s.Amount,
			AmountText: money.Format(s.Amount, currency),
			AddToTotal: s.AddToTotal,
		})
	}
	return view, nil
}

type productView struct {
	ID          int64             `json:"id"`
	Type        string            `json:"type"`
	SKU         string            `json:"sku"`
	Name        string            `json:"name"`
	Options     map[string]string `json:"options,omitempty"`
	Price       decimal.Decimal   `json:"price"`
	Available   bool              `json:"available"`
	MinQuantity int               `json:"minQuantity"`
	DetailURL   string            `json:"detailUrl,omitempty"`
}

func buildProductView(rec *product.Record) productView {
	price, _ := rec.Price(1)
	return productView{
		ID:          rec.ID(),
		Type:        rec.Type(),
		SKU:         rec.SKU(),
		Name:        rec.Name(),
		Options:     rec.Options(),
		Price:       price,
		Available:   rec.Available(),
		MinQuantity: rec.MinimumOrderQuantity(),
		DetailURL:   rec.DetailURL(),
	}
}
