package checkout

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopcollections/internal/catalog"
	"shopcollections/internal/collection"
)

type stubStorage struct {
	nextCollectionID int64
	nextItemID       int64
	collections      map[int64]*collection.Row
	items            map[int64]*collection.ItemRow
	surcharges       map[int64][]*collection.SurchargeRow
}

func newStubStorage() *stubStorage {
	return &stubStorage{
		collections: map[int64]*collection.Row{},
		items:       map[int64]*collection.ItemRow{},
		surcharges:  map[int64][]*collection.SurchargeRow{},
	}
}

func (s *stubStorage) CollectionByID(_ context.Context, id int64) (*collection.Row, error) {
	row, ok := s.collections[id]
	if !ok {
		return nil, collection.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (s *stubStorage) ActiveCartByMember(_ context.Context, memberID int64) (*collection.Row, error) {
	for _, row := range s.collections {
		if row.Kind == collection.KindCart && !row.Locked && row.MemberID == memberID {
			cp := *row
			return &cp, nil
		}
	}
	return nil, collection.ErrNotFound
}

func (s *stubStorage) InsertCollection(_ context.Context, row *collection.Row) error {
	s.nextCollectionID++
	row.ID = s.nextCollectionID
	cp := *row
	s.collections[row.ID] = &cp
	return nil
}

func (s *stubStorage) SaveCollection(_ context.Context, row *collection.Row, writeRow bool, items []*collection.ItemRow) error {
	if writeRow {
		cp := *row
		s.collections[row.ID] = &cp
	}
	for _, item := range items {
		cp := *item
		s.items[item.ID] = &cp
	}
	return nil
}

func (s *stubStorage) LockCollection(_ context.Context, row *collection.Row, surcharges []*collection.SurchargeRow) error {
	cp := *row
	s.collections[row.ID] = &cp
	s.surcharges[row.ID] = nil
	for i, sc := range surcharges {
		scp := *sc
		scp.ID = int64(i + 1)
		s.surcharges[row.ID] = append(s.surcharges[row.ID], &scp)
	}
	return nil
}

func (s *stubStorage) DeleteCollection(_ context.Context, id int64) (int64, error) {
	if _, ok := s.collections[id]; !ok {
		return 0, nil
	}
	delete(s.collections, id)
	return 1, nil
}

func (s *stubStorage) ItemsByCollection(_ context.Context, collectionID int64) ([]*collection.ItemRow, error) {
	var rows []*collection.ItemRow
	for _, item := range s.items {
		if item.CollectionID == collectionID {
			cp := *item
			rows = append(rows, &cp)
		}
	}
	return rows, nil
}

func (s *stubStorage) InsertItem(_ context.Context, row *collection.ItemRow) error {
	s.nextItemID++
	row.ID = s.nextItemID
	cp := *row
	s.items[row.ID] = &cp
	return nil
}

func (s *stubStorage) UpdateItem(_ context.Context, row *collection.ItemRow) error {
	cp := *row
	s.items[row.ID] = &cp
	return nil
}

func (s *stubStorage) DeleteItem(_ context.Context, id int64) (bool, error) {
	if _, ok := s.items[id]; !ok {
		return false, nil
	}
	delete(s.items, id)
	return true, nil
}

func (s *stubStorage) SurchargesByCollection(_ context.Context, collectionID int64) ([]*collection.SurchargeRow, error) {
	return s.surcharges[collectionID], nil
}

type stubProduct struct {
	id      int64
	name    string
	price   decimal.Decimal
	options map[string]string
}

func (p *stubProduct) ID() int64                               { return p.id }
func (p *stubProduct) ParentID() int64                         { return 0 }
func (p *stubProduct) Type() string                            { return "standard" }
func (p *stubProduct) SKU() string                             { return p.name }
func (p *stubProduct) Name() string                            { return p.name }
func (p *stubProduct) DetailURL() string                       { return "" }
func (p *stubProduct) Options() map[string]string              { return p.options }
func (p *stubProduct) Available() bool                         { return true }
func (p *stubProduct) MinimumOrderQuantity() int               { return 1 }
func (p *stubProduct) ShippingExempt() bool                    { return false }
func (p *stubProduct) ShippingWeight() catalog.Weight          { return catalog.Weight{} }
func (p *stubProduct) Price(int) (decimal.Decimal, bool)       { return p.price, true }
func (p *stubProduct) TaxFreePrice(int) (decimal.Decimal, bool) { return p.price, true }

type stubCatalog struct {
	products map[int64]*stubProduct
}

func (c *stubCatalog) Resolve(_ context.Context, productID int64, options map[string]string) (catalog.Product, error) {
	p, ok := c.products[productID]
	if !ok {
		return nil, nil
	}
	cp := *p
	cp.options = options
	return &cp, nil
}

type flatShipping struct {
	fee decimal.Decimal
}

func (m *flatShipping) ID() int64    { return 7 }
func (m *flatShipping) Name() string { return "Flat rate" }

func (m *flatShipping) ComputeSurcharge(_ context.Context, _ *collection.Collection) (*collection.Surcharge, error) {
	return &collection.Surcharge{Label: "Flat rate", Amount: m.fee, TaxFreeAmount: m.fee, AddToTotal: true}, nil
}

type stubMethods struct {
	shipping collection.Method
}

func (m *stubMethods) PaymentMethod(_ context.Context, _ int64) (collection.Method, error) {
	return nil, collection.ErrNotFound
}

func (m *stubMethods) ShippingMethod(_ context.Context, id int64) (collection.Method, error) {
	if m.shipping != nil && m.shipping.ID() == id {
		return m.shipping, nil
	}
	return nil, collection.ErrNotFound
}

func testDeps(products ...*stubProduct) (collection.Deps, *stubStorage) {
	storage := newStubStorage()
	cat := &stubCatalog{products: map[int64]*stubProduct{}}
	for _, p := range products {
		cat.products[p.id] = p
	}
	return collection.Deps{
		Storage: storage,
		Catalog: cat,
		Methods: &stubMethods{shipping: &flatShipping{fee: decimal.RequireFromString("2.00")}},
	}, storage
}

func newCartWithItems(t *testing.T, deps collection.Deps) *collection.Collection {
	t.Helper()
	ctx := context.Background()
	cart := collection.New(collection.KindCart, deps)
	cart.SetCurrency("USD")
	cart.SetMemberID(7)

	product, err := deps.Catalog.Resolve(ctx, 10, nil)
	require.NoError(t, err)
	_, ok, err := cart.AddProduct(ctx, product, 2)
	require.NoError(t, err)
	require.True(t, ok)
	_, err = cart.Save(ctx, false)
	require.NoError(t, err)
	return cart
}

func TestCompleteLocksOrderAndEmptiesCart(t *testing.T) {
	deps, _ := testDeps(&stubProduct{id: 10, name: "Shirt", price: decimal.RequireFromString("5.00")})
	svc := New(deps)
	ctx := context.Background()

	cart := newCartWithItems(t, deps)
	require.True(t, cart.SetShippingMethod(&flatShipping{fee: decimal.RequireFromString("2.00")}))

	order, err := svc.Complete(ctx, cart)
	require.NoError(t, err)

	assert.True(t, order.IsLocked())
	assert.Equal(t, collection.KindOrder, order.Kind())
	assert.Equal(t, cart.ID(), order.SourceCollectionID())
	assert.NotEmpty(t, order.Token())

	total, err := order.Total(ctx)
	require.NoError(t, err)
	assert.Equal(t, "12", total.String())

	empty, err := cart.IsEmpty(ctx)
	require.NoError(t, err)
	assert.True(t, empty)

	// Surcharge snapshot survives a reload.
	reloaded, err := svc.Order(ctx, order.ID())
	require.NoError(t, err)
	surcharges, err := reloaded.Surcharges(ctx)
	require.NoError(t, err)
	require.Len(t, surcharges, 1)
	assert.Equal(t, collection.SurchargeShipping, surcharges[0].Kind)
}

func TestCompleteEmptyCart(t *testing.T) {
	deps, _ := testDeps()
	svc := New(deps)
	ctx := context.Background()

	cart := collection.New(collection.KindCart, deps)
	cart.SetCurrency("USD")

	_, err := svc.Complete(ctx, cart)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCompleteTwiceFails(t *testing.T) {
	deps, _ := testDeps(&stubProduct{id: 10, name: "Shirt", price: decimal.RequireFromString("5.00")})
	svc := New(deps)
	ctx := context.Background()

	cart := newCartWithItems(t, deps)
	_, err := svc.Complete(ctx, cart)
	require.NoError(t, err)

	_, err = svc.Complete(ctx, cart)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestOrderRejectsUnlockedCollections(t *testing.T) {
	deps, _ := testDeps(&stubProduct{id: 10, name: "Shirt", price: decimal.RequireFromString("5.00")})
	svc := New(deps)
	ctx := context.Background()

	cart := newCartWithItems(t, deps)
	_, err := svc.Order(ctx, cart.ID())
	assert.ErrorIs(t, err, ErrNotCheckedOut)
}

func TestDocumentForOrder(t *testing.T) {
	deps, _ := testDeps(&stubProduct{id: 10, name: "Shirt", price: decimal.RequireFromString("5.00")})
	svc := New(deps)
	ctx := context.Background()

	cart := newCartWithItems(t, deps)
	order, err := svc.Complete(ctx, cart)
	require.NoError(t, err)

	doc, err := svc.Document(ctx, order.ID())
	require.NoError(t, err)
	assert.Equal(t, order.Token(), doc.Number)
	require.Len(t, doc.Items, 1)
	assert.Equal(t, 2, doc.Items[0].Quantity)
	assert.Equal(t, "10.00 USD", doc.SubtotalText)
}