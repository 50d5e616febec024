package collection

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentRendersLockedOrder(t *testing.T) {
	a := newFakeProduct(10, "Shirt", "5.00")
	env := newTestEnv(a)
	shipping := &feeMethod{id: 7, name: "Flat rate", fee: decimal.RequireFromString("2.50")}
	env.methods.shippings[7] = shipping
	addresses := env.deps.Addresses.(*fakeAddresses)
	addresses.byID[1] = &Address{
		ID: 1, FirstName: "Ada", LastName: "Day", Email: "ada@example.org",
		StreetName: "Main St 1", PostalCode: "12345", City: "Springfield", Country: "US",
	}
	ctx := context.Background()

	cart := env.newCart("USD")
	_, _, err := cart.AddProduct(ctx, a, 2)
	require.NoError(t, err)
	require.True(t, cart.SetBillingAddress(&Address{ID: 1}))
	cart.SetShippingMethod(shipping)

	order := New(KindOrder, env.deps)
	order.SetSourceCollection(cart)
	require.True(t, order.SetBillingAddress(&Address{ID: 1}))
	order.SetShippingMethod(shipping)
	_, err = order.CopyItemsFrom(ctx, cart)
	require.NoError(t, err)
	_, err = order.Save(ctx, false)
	require.NoError(t, err)
	locked, err := order.Lock(ctx)
	require.NoError(t, err)
	require.True(t, locked)

	doc, err := order.Document(ctx)
	require.NoError(t, err)

	assert.Equal(t, order.Token(), doc.Number)
	assert.Equal(t, KindOrder, doc.Kind)
	assert.Equal(t, "USD", doc.Currency)
	assert.Equal(t, "Ada Day, Main St 1, 12345 Springfield, US", doc.BillingAddress)
	assert.Equal(t, `"Ada Day" <ada@example.org>`, doc.Recipient)

	require.Len(t, doc.Items, 1)
	assert.Equal(t, "Shirt", doc.Items[0].Name)
	assert.Equal(t, 2, doc.Items[0].Quantity)
	assert.Equal(t, "5.00 USD", doc.Items[0].PriceText)
	assert.Equal(t, "10.00 USD", doc.Items[0].TotalText)

	require.Len(t, doc.Surcharges, 1)
	assert.Equal(t, "Flat rate", doc.Surcharges[0].Label)
	assert.True(t, doc.Surcharges[0].AddToTotal)

	assert.Equal(t, "10.00 USD", doc.SubtotalText)
	assert.Equal(t, "12.50 USD", doc.TotalText)
}

func TestDocumentHookMayReplace(t *testing.T) {
	env := newTestEnv()
	custom := &Document{Number: "INV-0001"}
	env.deps.Hooks = &Hooks{
		Document: []func(context.Context, *Collection, *Document) *Document{
			func(context.Context, *Collection, *Document) *Document { return custom },
		},
	}
	cart := New(KindCart, env.deps)
	cart.SetCurrency("USD")

	doc, err := cart.Document(context.Background())
	require.NoError(t, err)
	assert.Same(t, custom, doc)
}
