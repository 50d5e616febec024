package collection

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"shopcollections/internal/catalog"
)

// memStorage is an in-memory Storage used by the domain tests. Rows are
// copied on the way in and out so cached aggregates cannot alias storage.
type memStorage struct {
	nextCollectionID int64
	nextItemID       int64
	collections      map[int64]*Row
	items            map[int64]*ItemRow
	surcharges       map[int64][]*SurchargeRow

	collectionReads int
	itemReads       int
}

func newMemStorage() *memStorage {
	return &memStorage{
		collections: map[int64]*Row{},
		items:       map[int64]*ItemRow{},
		surcharges:  map[int64][]*SurchargeRow{},
	}
}

func copyRow(row Row) *Row {
	cp := row
	cp.Settings = map[string]any{}
	for k, v := range row.Settings {
		cp.Settings[k] = v
	}
	return &cp
}

func copyItemRow(row ItemRow) *ItemRow {
	cp := row
	if row.Options != nil {
		cp.Options = map[string]string{}
		for k, v := range row.Options {
			cp.Options[k] = v
		}
	}
	return &cp
}

func (m *memStorage) CollectionByID(_ context.Context, id int64) (*Row, error) {
	m.collectionReads++
	row, ok := m.collections[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyRow(*row), nil
}

func (m *memStorage) ActiveCartByMember(_ context.Context, memberID int64) (*Row, error) {
	ids := make([]int64, 0, len(m.collections))
	for id := range m.collections {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		row := m.collections[id]
		if row.Kind == KindCart && !row.Locked && row.MemberID == memberID {
			return copyRow(*row), nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStorage) InsertCollection(_ context.Context, row *Row) error {
	m.nextCollectionID++
	row.ID = m.nextCollectionID
	m.collections[row.ID] = copyRow(*row)
	return nil
}

func (m *memStorage) SaveCollection(_ context.Context, row *Row, writeRow bool, items []*ItemRow) error {
	if writeRow {
		if _, ok := m.collections[row.ID]; !ok {
			return ErrNotFound
		}
		m.collections[row.ID] = copyRow(*row)
	}
	for _, item := range items {
		m.items[item.ID] = copyItemRow(*item)
	}
	return nil
}

func (m *memStorage) LockCollection(_ context.Context, row *Row, surcharges []*SurchargeRow) error {
	m.collections[row.ID] = copyRow(*row)
	m.surcharges[row.ID] = nil
	for i, s := range surcharges {
		cp := *s
		cp.ID = int64(i + 1)
		m.surcharges[row.ID] = append(m.surcharges[row.ID], &cp)
	}
	return nil
}

func (m *memStorage) DeleteCollection(_ context.Context, id int64) (int64, error) {
	if _, ok := m.collections[id]; !ok {
		return 0, nil
	}
	delete(m.collections, id)
	for itemID, item := range m.items {
		if item.CollectionID == id {
			delete(m.items, itemID)
		}
	}
	delete(m.surcharges, id)
	return 1, nil
}

func (m *memStorage) ItemsByCollection(_ context.Context, collectionID int64) ([]*ItemRow, error) {
	m.itemReads++
	var rows []*ItemRow
	for _, item := range m.items {
		if item.CollectionID == collectionID {
			rows = append(rows, copyItemRow(*item))
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows, nil
}

func (m *memStorage) InsertItem(_ context.Context, row *ItemRow) error {
	m.nextItemID++
	row.ID = m.nextItemID
	m.items[row.ID] = copyItemRow(*row)
	return nil
}

func (m *memStorage) UpdateItem(_ context.Context, row *ItemRow) error {
	if _, ok := m.items[row.ID]; !ok {
		return fmt.Errorf("item %d does not exist", row.ID)
	}
	m.items[row.ID] = copyItemRow(*row)
	return nil
}

func (m *memStorage) DeleteItem(_ context.Context, id int64) (bool, error) {
	if _, ok := m.items[id]; !ok {
		return false, nil
	}
	delete(m.items, id)
	return true, nil
}

func (m *memStorage) SurchargesByCollection(_ context.Context, collectionID int64) ([]*SurchargeRow, error) {
	rows := m.surcharges[collectionID]
	out := make([]*SurchargeRow, len(rows))
	for i, row := range rows {
		cp := *row
		out[i] = &cp
	}
	return out, nil
}

// fakeProduct implements catalog.Product with mutable price/availability so
// tests can simulate catalog changes.
type fakeProduct struct {
	id        int64
	parentID  int64
	typ       string
	sku       string
	name      string
	options   map[string]string
	price     decimal.Decimal
	taxFree   decimal.Decimal
	available bool
	minQty    int
	exempt    bool
	weight    catalog.Weight
	unpriced  bool
}

func newFakeProduct(id int64, name, price string) *fakeProduct {
	return &fakeProduct{
		id:        id,
		typ:       "standard",
		sku:       fmt.Sprintf("SKU-%d", id),
		name:      name,
		price:     decimal.RequireFromString(price),
		taxFree:   decimal.RequireFromString(price),
		available: true,
		minQty:    1,
	}
}

func (p *fakeProduct) ID() int64                  { return p.id }
func (p *fakeProduct) ParentID() int64            { return p.parentID }
func (p *fakeProduct) Type() string               { return p.typ }
func (p *fakeProduct) SKU() string                { return p.sku }
func (p *fakeProduct) Name() string               { return p.name }
func (p *fakeProduct) DetailURL() string          { return fmt.Sprintf("/product/%d", p.id) }
func (p *fakeProduct) Options() map[string]string { return p.options }
func (p *fakeProduct) Available() bool            { return p.available }
func (p *fakeProduct) MinimumOrderQuantity() int  { return p.minQty }
func (p *fakeProduct) ShippingExempt() bool       { return p.exempt }
func (p *fakeProduct) ShippingWeight() catalog.Weight {
	return p.weight
}

func (p *fakeProduct) Price(int) (decimal.Decimal, bool) {
	if p.unpriced {
		return decimal.Zero, false
	}
	return p.price, true
}

func (p *fakeProduct) TaxFreePrice(int) (decimal.Decimal, bool) {
	if p.unpriced {
		return decimal.Zero, false
	}
	return p.taxFree, true
}

// fakeResolver resolves products by id regardless of the requested option
// set; the returned product carries the requested options.
type fakeResolver struct {
	products map[int64]*fakeProduct
	resolves int
}

func newFakeResolver(products ...*fakeProduct) *fakeResolver {
	r := &fakeResolver{products: map[int64]*fakeProduct{}}
	for _, p := range products {
		r.products[p.id] = p
	}
	return r
}

func (r *fakeResolver) Resolve(_ context.Context, productID int64, options map[string]string) (catalog.Product, error) {
	r.resolves++
	p, ok := r.products[productID]
	if !ok {
		return nil, nil
	}
	if !catalog.SameOptions(p.options, options) {
		cp := *p
		cp.options = options
		return &cp, nil
	}
	return p, nil
}

// feeMethod contributes a flat fee surcharge to the total.
type feeMethod struct {
	id    int64
	name  string
	fee   decimal.Decimal
	calls int
}

func (m *feeMethod) ID() int64    { return m.id }
func (m *feeMethod) Name() string { return m.name }

func (m *feeMethod) ComputeSurcharge(_ context.Context, _ *Collection) (*Surcharge, error) {
	m.calls++
	if m.fee.Sign() == 0 {
		return nil, nil
	}
	return &Surcharge{
		Label:         m.name,
		Amount:        m.fee,
		TaxFreeAmount: m.fee,
		AddToTotal:    true,
	}, nil
}

// fakeMethods resolves methods by id and counts storage round trips.
type fakeMethods struct {
	payments  map[int64]Method
	shippings map[int64]Method
	lookups   int
}

func (f *fakeMethods) PaymentMethod(_ context.Context, id int64) (Method, error) {
	f.lookups++
	m, ok := f.payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return m, nil
}

func (f *fakeMethods) ShippingMethod(_ context.Context, id int64) (Method, error) {
	f.lookups++
	m, ok := f.shippings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return m, nil
}

type fakeAddresses struct {
	byID map[int64]*Address
}

func (f *fakeAddresses) AddressByID(_ context.Context, id int64) (*Address, error) {
	addr, ok := f.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return addr, nil
}

type fakeMembers struct {
	byID map[int64]*Member
}

func (f *fakeMembers) MemberByID(_ context.Context, id int64) (*Member, error) {
	m, ok := f.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return m, nil
}

type testEnv struct {
	storage  *memStorage
	resolver *fakeResolver
	methods  *fakeMethods
	notices  *Notices
	deps     Deps
}

func newTestEnv(products ...*fakeProduct) *testEnv {
	env := &testEnv{
		storage:  newMemStorage(),
		resolver: newFakeResolver(products...),
		methods:  &fakeMethods{payments: map[int64]Method{}, shippings: map[int64]Method{}},
		notices:  NewNotices(),
	}
	env.deps = Deps{
		Storage:   env.storage,
		Catalog:   env.resolver,
		Methods:   env.methods,
		Addresses: &fakeAddresses{byID: map[int64]*Address{}},
		Members:   &fakeMembers{byID: map[int64]*Member{}},
		Notices:   env.notices,
	}
	return env
}

func (e *testEnv) newCart(currency string) *Collection {
	cart := New(KindCart, e.deps)
	cart.SetCurrency(currency)
	return cart
}

func itemAgedRow(storage *memStorage, id int64, at time.Time) {
	row := storage.items[id]
	row.UpdatedAt = at
}
