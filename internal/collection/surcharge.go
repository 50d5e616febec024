package collection

import (
	"context"

	"github.com/shopspring/decimal"

	"shopcollections/internal/money"
)

// SurchargeKind identifies what produced a surcharge.
type SurchargeKind string

const (
	SurchargeTax      SurchargeKind = "tax"
	SurchargePayment  SurchargeKind = "payment"
	SurchargeShipping SurchargeKind = "shipping"
	SurchargeManual   SurchargeKind = "manual"
)

// Surcharge is a named monetary adjustment attached to a collection at read
// time. With AddToTotal unset the surcharge is informational only and
// excluded from the monetary total.
type Surcharge struct {
	Label         string
	Kind          SurchargeKind
	Amount        decimal.Decimal
	TaxFreeAmount decimal.Decimal
	AddToTotal    bool
}

func surchargeFromRow(row *SurchargeRow) *Surcharge {
	return &Surcharge{
		Label:         row.Label,
		Kind:          row.Kind,
		Amount:        row.Amount,
		TaxFreeAmount: row.TaxFreeAmount,
		AddToTotal:    row.AddToTotal,
	}
}

func (s *Surcharge) toRow(collectionID int64, position int) *SurchargeRow {
	return &SurchargeRow{
		CollectionID:  collectionID,
		Label:         s.Label,
		Kind:          s.Kind,
		Amount:        s.Amount,
		TaxFreeAmount: s.TaxFreeAmount,
		AddToTotal:    s.AddToTotal,
		Position:      position,
	}
}

// RateTax is a TaxProvider applying a single percentage rate to the taxable
// subtotal. The resulting line is informational (AddToTotal false) because
// item prices already include tax; it mirrors a tax breakdown line on an
// invoice.
type RateTax struct {
	Label string
	// Rate is the tax fraction, e.g. 0.19 for 19%.
	Rate decimal.Decimal
}

func (t RateTax) TaxSurcharges(ctx context.Context, c *Collection) ([]*Surcharge, error) {
	if t.Rate.Sign() <= 0 {
		return nil, nil
	}
	subtotal, err := c.Subtotal(ctx)
	if err != nil {
		return nil, err
	}
	taxFree, err := c.TaxFreeSubtotal(ctx)
	if err != nil {
		return nil, err
	}
	amount := money.Round(subtotal.Sub(taxFree), c.Currency())
	if amount.Sign() == 0 {
		amount = money.Round(subtotal.Mul(t.Rate), c.Currency())
	}
	if amount.Sign() == 0 {
		return nil, nil
	}
	label := t.Label
	if label == "" {
		label = "Included tax"
	}
	return []*Surcharge{{
		Label:         label,
		Kind:          SurchargeTax,
		Amount:        amount,
		TaxFreeAmount: decimal.Zero,
		AddToTotal:    false,
	}}, nil
}
