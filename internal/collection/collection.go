// Package collection implements the product-collection domain model shared
// by shopping carts and orders: line items, surcharges, totals, lock
// semantics and transactional persistence against a backing store.
package collection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"shopcollections/internal/catalog"
	"shopcollections/internal/money"
)

// Collection is the aggregate root owning an ordered set of line items and
// surcharges. A cart is mutable; an order is locked once finalized and from
// then on every read works against the frozen snapshot while mutators fail
// closed.
type Collection struct {
	deps Deps
	row  Row

	locked   bool
	modified bool
	exists   bool

	items       []*Item
	itemsLoaded bool

	surcharges       []*Surcharge
	surchargesLoaded bool

	payment  resolved[Method]
	shipping resolved[Method]

	derived derivedCache
}

type derivedCache struct {
	subtotal         *decimal.Decimal
	taxFreeSubtotal  *decimal.Decimal
	total            *decimal.Decimal
	taxFreeTotal     *decimal.Decimal
	countItems       *int
	sumQuantity      *int
	requiresShipping *bool
	latestItem       *Item
	latestComputed   bool
}

// New creates an unsaved, empty collection of the given kind.
func New(kind Kind, deps Deps) *Collection {
	now := time.Now()
	c := &Collection{
		deps: deps,
		row: Row{
			Kind:      kind,
			Settings:  map[string]any{},
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	deps.Scope.Track(c)
	return c
}

// Load reads a collection from storage. Returns ErrNotFound when the id
// does not exist.
func Load(ctx context.Context, deps Deps, id int64) (*Collection, error) {
	row, err := deps.Storage.CollectionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return fromRow(deps, row), nil
}

// LoadActiveCart returns the member's current cart, or ErrNotFound.
func LoadActiveCart(ctx context.Context, deps Deps, memberID int64) (*Collection, error) {
	row, err := deps.Storage.ActiveCartByMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	return fromRow(deps, row), nil
}

func fromRow(deps Deps, row *Row) *Collection {
	c := &Collection{
		deps:   deps,
		row:    *row,
		locked: row.Locked,
		exists: true,
	}
	if c.row.Settings == nil {
		c.row.Settings = map[string]any{}
	}
	deps.Scope.Track(c)
	return c
}

func (c *Collection) ID() int64                 { return c.row.ID }
func (c *Collection) Kind() Kind                { return c.row.Kind }
func (c *Collection) Token() string             { return c.row.Token }
func (c *Collection) Currency() string          { return c.row.Currency }
func (c *Collection) MemberID() int64           { return c.row.MemberID }
func (c *Collection) SourceCollectionID() int64 { return c.row.SourceCollectionID }
func (c *Collection) CreatedAt() time.Time      { return c.row.CreatedAt }
func (c *Collection) UpdatedAt() time.Time      { return c.row.UpdatedAt }

// IsLocked reports whether the collection forbids mutation.
func (c *Collection) IsLocked() bool { return c.locked }

// IsModified reports whether there are unsaved changes.
func (c *Collection) IsModified() bool { return c.modified }

// IsEmpty reports whether the availability-filtered item set is empty.
func (c *Collection) IsEmpty(ctx context.Context) (bool, error) {
	items, err := c.Items(ctx)
	if err != nil {
		return false, err
	}
	return len(items) == 0, nil
}

// setModified marks the collection dirty and busts the item, surcharge and
// derived caches so the next read reflects the mutation.
func (c *Collection) setModified() {
	c.modified = true
	c.items = nil
	c.itemsLoaded = false
	c.invalidateDerived()
}

// invalidateDerived drops computed aggregates and live surcharges but keeps
// the loaded item set.
func (c *Collection) invalidateDerived() {
	c.surcharges = nil
	c.surchargesLoaded = false
	c.derived = derivedCache{}
}

// SetCurrency sets the collection currency. False when locked.
func (c *Collection) SetCurrency(currency string) bool {
	if c.locked {
		return false
	}
	c.row.Currency = currency
	c.setModified()
	return true
}

// SetMemberID links the owning member. False when locked.
func (c *Collection) SetMemberID(id int64) bool {
	if c.locked {
		return false
	}
	c.row.MemberID = id
	c.setModified()
	return true
}

// Setting reads a free-form settings value.
func (c *Collection) Setting(key string) (any, bool) {
	v, ok := c.row.Settings[key]
	return v, ok
}

// SetSetting writes a free-form settings value; nil removes the key instead
// of storing a null. False when locked.
func (c *Collection) SetSetting(key string, value any) bool {
	if c.locked {
		return false
	}
	if value == nil {
		delete(c.row.Settings, key)
	} else {
		c.row.Settings[key] = value
	}
	c.setModified()
	return true
}

// PaymentMethod lazily resolves the payment method by foreign key. The
// resolution is cached with a tri-state so "no method" does not hit storage
// repeatedly.
func (c *Collection) PaymentMethod(ctx context.Context) (Method, error) {
	if c.payment.state == unresolved {
		m, err := c.resolveMethod(ctx, c.row.PaymentMethodID, true)
		if err != nil {
			return nil, err
		}
		if m == nil {
			c.payment.setNone()
		} else {
			c.payment.set(m)
		}
	}
	return c.payment.value, nil
}

// ShippingMethod mirrors PaymentMethod for the shipping foreign key.
func (c *Collection) ShippingMethod(ctx context.Context) (Method, error) {
	if c.shipping.state == unresolved {
		m, err := c.resolveMethod(ctx, c.row.ShippingMethodID, false)
		if err != nil {
			return nil, err
		}
		if m == nil {
			c.shipping.setNone()
		} else {
			c.shipping.set(m)
		}
	}
	return c.shipping.value, nil
}

func (c *Collection) resolveMethod(ctx context.Context, id int64, payment bool) (Method, error) {
	if id == 0 || c.deps.Methods == nil {
		return nil, nil
	}
	var (
		m   Method
		err error
	)
	if payment {
		m, err = c.deps.Methods.PaymentMethod(ctx, id)
	} else {
		m, err = c.deps.Methods.ShippingMethod(ctx, id)
	}
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return m, err
}

// SetPaymentMethod updates the payment foreign key immediately and marks
// the collection modified. False when locked.
func (c *Collection) SetPaymentMethod(m Method) bool {
	if c.locked {
		return false
	}
	if m == nil {
		c.payment.setNone()
		c.row.PaymentMethodID = 0
	} else {
		c.payment.set(m)
		c.row.PaymentMethodID = m.ID()
	}
	c.setModified()
	return true
}

// SetShippingMethod mirrors SetPaymentMethod.
func (c *Collection) SetShippingMethod(m Method) bool {
	if c.locked {
		return false
	}
	if m == nil {
		c.shipping.setNone()
		c.row.ShippingMethodID = 0
	} else {
		c.shipping.set(m)
		c.row.ShippingMethodID = m.ID()
	}
	c.setModified()
	return true
}

// HasPayment reports whether a payment method is set and resolvable.
func (c *Collection) HasPayment(ctx context.Context) (bool, error) {
	m, err := c.PaymentMethod(ctx)
	return m != nil, err
}

// HasShipping reports whether a shipping method is set and resolvable.
func (c *Collection) HasShipping(ctx context.Context) (bool, error) {
	m, err := c.ShippingMethod(ctx)
	return m != nil, err
}

// RequiresPayment reports whether the computed total is above zero.
func (c *Collection) RequiresPayment(ctx context.Context) (bool, error) {
	total, err := c.Total(ctx)
	if err != nil {
		return false, err
	}
	return total.Sign() > 0, nil
}

// RequiresShipping reports whether any resolvable line item's product is
// not shipping-exempt. Cached until the next mutation.
func (c *Collection) RequiresShipping(ctx context.Context) (bool, error) {
	if c.derived.requiresShipping == nil {
		items, err := c.Items(ctx)
		if err != nil {
			return false, err
		}
		required := false
		for _, item := range items {
			p, err := item.Product(ctx)
			if err != nil {
				return false, err
			}
			if p != nil && !p.ShippingExempt() {
				required = true
				break
			}
		}
		c.derived.requiresShipping = &required
	}
	return *c.derived.requiresShipping, nil
}

// BillingAddress resolves the primary address slot; id 0 means none.
func (c *Collection) BillingAddress(ctx context.Context) (*Address, error) {
	return c.addressByID(ctx, c.row.BillingAddressID)
}

// ShippingAddress resolves the effective shipping address: for a collection
// that does not require payment this is the primary address slot, otherwise
// the secondary slot, defaulting to none when no shipping method is set.
func (c *Collection) ShippingAddress(ctx context.Context) (*Address, error) {
	requiresPayment, err := c.RequiresPayment(ctx)
	if err != nil {
		return nil, err
	}
	if !requiresPayment {
		return c.addressByID(ctx, c.row.BillingAddressID)
	}
	hasShipping, err := c.HasShipping(ctx)
	if err != nil {
		return nil, err
	}
	if !hasShipping {
		return nil, nil
	}
	return c.addressByID(ctx, c.row.ShippingAddressID)
}

func (c *Collection) addressByID(ctx context.Context, id int64) (*Address, error) {
	if id == 0 || c.deps.Addresses == nil {
		return nil, nil
	}
	addr, err := c.deps.Addresses.AddressByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return addr, err
}

// SetBillingAddress writes the primary address slot. A nil address or id
// below 1 stores "none". False when locked.
func (c *Collection) SetBillingAddress(addr *Address) bool {
	if c.locked {
		return false
	}
	c.row.BillingAddressID = addressID(addr)
	c.setModified()
	return true
}

// SetShippingAddress writes the shipping address: into the primary slot
// when the collection does not require payment, into the secondary slot
// otherwise. False when locked.
func (c *Collection) SetShippingAddress(ctx context.Context, addr *Address) (bool, error) {
	if c.locked {
		return false, nil
	}
	requiresPayment, err := c.RequiresPayment(ctx)
	if err != nil {
		return false, err
	}
	if requiresPayment {
		c.row.ShippingAddressID = addressID(addr)
	} else {
		c.row.BillingAddressID = addressID(addr)
	}
	c.setModified()
	return true, nil
}

func addressID(addr *Address) int64 {
	if addr == nil || addr.ID < 1 {
		return 0
	}
	return addr.ID
}

// EmailRecipient resolves the recipient for collection mail: billing
// address email, else shipping address email, else the linked member's
// account email, formatted with a display name when one is available.
func (c *Collection) EmailRecipient(ctx context.Context) (string, error) {
	var name, email string

	billing, err := c.BillingAddress(ctx)
	if err != nil {
		return "", err
	}
	shipping, err := c.ShippingAddress(ctx)
	if err != nil {
		return "", err
	}

	switch {
	case billing != nil && billing.Email != "":
		name = billing.FirstName + " " + billing.LastName
		email = billing.Email
	case shipping != nil && shipping.Email != "":
		name = shipping.FirstName + " " + shipping.LastName
		email = shipping.Email
	case c.row.MemberID > 0 && c.deps.Members != nil:
		member, err := c.deps.Members.MemberByID(ctx, c.row.MemberID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return "", err
		}
		if member != nil && member.Email != "" {
			name = member.FirstName + " " + member.LastName
			email = member.Email
		}
	}

	if strings.TrimSpace(name) != "" {
		email = fmt.Sprintf("%q <%s>", strings.TrimSpace(name), email)
	}

	for _, hook := range c.deps.hooks().EmailRecipient {
		email = hook(ctx, c, email)
	}
	return email, nil
}

// Items returns the collection's line items keyed by read order. On each
// non-cached read of an unlocked collection the set is reconciled against
// the live catalog: items whose product no longer exists or is not
// purchasable are deleted as a side effect and excluded. A locked
// collection returns items as stored, marked locked.
func (c *Collection) Items(ctx context.Context) ([]*Item, error) {
	if err := c.loadItems(ctx, false); err != nil {
		return nil, err
	}
	return c.items, nil
}

// RefreshItems discards the cached item set and reads it again.
func (c *Collection) RefreshItems(ctx context.Context) ([]*Item, error) {
	if err := c.loadItems(ctx, true); err != nil {
		return nil, err
	}
	return c.items, nil
}

func (c *Collection) loadItems(ctx context.Context, force bool) error {
	if c.itemsLoaded && !force {
		return nil
	}
	c.items = nil
	c.itemsLoaded = true
	if !c.exists {
		return nil
	}

	rows, err := c.deps.Storage.ItemsByCollection(ctx, c.row.ID)
	if err != nil {
		return err
	}
	for _, row := range rows {
		item := newItem(c, *row)

		if c.locked {
			item.Lock()
			c.items = append(c.items, item)
			continue
		}

		p, err := item.Product(ctx)
		if err != nil {
			return err
		}
		if p == nil || !p.Available() {
			// The product is gone or unpurchasable: drop the row.
			if _, err := c.deps.Storage.DeleteItem(ctx, row.ID); err != nil {
				return err
			}
			c.deps.logger().WithFields(map[string]any{
				"collection": c.row.ID,
				"item":       row.ID,
				"product":    row.ProductID,
			}).Info("removed unavailable item from collection")
			c.modified = true
			c.invalidateDerived()
			continue
		}
		c.items = append(c.items, item)
	}
	return nil
}

func (c *Collection) itemByID(id int64) (*Item, int) {
	for idx, item := range c.items {
		if item.row.ID == id {
			return item, idx
		}
	}
	return nil, -1
}

// ItemForProduct returns the item exactly matching the product's id, type
// and option set; distinct configured variants are distinct items.
func (c *Collection) ItemForProduct(ctx context.Context, product catalog.Product) (*Item, error) {
	return c.itemMatching(ctx, product.ID(), product.Type(), product.Options())
}

func (c *Collection) itemMatching(ctx context.Context, productID int64, productType string, options map[string]string) (*Item, error) {
	items, err := c.Items(ctx)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if item.row.ProductID == productID &&
			item.row.ProductType == productType &&
			catalog.SameOptions(item.row.Options, options) {
			return item, nil
		}
	}
	return nil, nil
}

// HasProduct checks collection membership. With identical set the product
// must match id, type and option set exactly; otherwise membership is
// variant-insensitive, matching by base or parent product id.
func (c *Collection) HasProduct(ctx context.Context, product catalog.Product, identical bool) (bool, error) {
	if identical {
		item, err := c.ItemForProduct(ctx, product)
		return item != nil, err
	}

	id := product.ParentID()
	if id == 0 {
		id = product.ID()
	}
	items, err := c.Items(ctx)
	if err != nil {
		return false, err
	}
	for _, item := range items {
		p, err := item.Product(ctx)
		if err != nil {
			return false, err
		}
		if p == nil {
			continue
		}
		if p.ID() == id || p.ParentID() == id {
			return true, nil
		}
	}
	return false, nil
}

// AddProduct adds a product to the collection. Quantity zero is a no-op
// returning false. An identical configured item has its quantity increased
// instead of creating a duplicate; quantities below the product's minimum
// order quantity are raised silently with a user-facing notice.
func (c *Collection) AddProduct(ctx context.Context, product catalog.Product, quantity int) (*Item, bool, error) {
	if c.locked {
		return nil, false, nil
	}
	for _, hook := range c.deps.hooks().AddingItem {
		quantity = hook(ctx, c, product, quantity)
	}
	if quantity == 0 {
		return nil, false, nil
	}

	c.setModified()

	// The collection record must exist before the first item can point
	// at it.
	if err := c.ensureExists(ctx); err != nil {
		return nil, false, err
	}

	item, err := c.ItemForProduct(ctx, product)
	if err != nil {
		return nil, false, err
	}
	minQuantity := product.MinimumOrderQuantity()

	if item != nil {
		if item.row.Quantity+quantity < minQuantity {
			c.deps.Notices.Addf("The minimum order quantity for %s is %d", product.Name(), minQuantity)
			quantity = minQuantity - item.row.Quantity
		}
		if _, err := item.IncreaseQuantityBy(ctx, quantity); err != nil {
			return nil, false, err
		}
		for _, hook := range c.deps.hooks().AddedItem {
			hook(ctx, c, item)
		}
		return item, true, nil
	}

	if quantity < minQuantity {
		c.deps.Notices.Addf("The minimum order quantity for %s is %d", product.Name(), minQuantity)
		quantity = minQuantity
	}

	price, _ := product.Price(quantity)
	taxFreePrice, _ := product.TaxFreePrice(quantity)
	row := ItemRow{
		CollectionID: c.row.ID,
		ProductType:  product.Type(),
		ProductID:    product.ID(),
		SKU:          product.SKU(),
		Name:         product.Name(),
		Options:      product.Options(),
		Quantity:     quantity,
		Price:        price,
		TaxFreePrice: taxFreePrice,
		DetailURL:    product.DetailURL(),
		UpdatedAt:    time.Now(),
	}
	if err := c.deps.Storage.InsertItem(ctx, &row); err != nil {
		return nil, false, err
	}

	item = newItem(c, row)
	item.product.set(product)
	c.items = append(c.items, item)

	for _, hook := range c.deps.hooks().AddedItem {
		hook(ctx, c, item)
	}
	return item, true, nil
}

// UpdateProduct applies changes to the item matching the product. False
// when no matching item exists or a hook vetoes. A quantity change to zero
// deletes the item; one below the minimum order quantity is clamped upward
// with a notice.
func (c *Collection) UpdateProduct(ctx context.Context, product catalog.Product, update *ItemUpdate) (bool, error) {
	if c.locked {
		return false, nil
	}
	item, err := c.ItemForProduct(ctx, product)
	if err != nil || item == nil {
		return false, err
	}

	for _, hook := range c.deps.hooks().UpdatingItem {
		if !hook(ctx, c, item, update) {
			return false, nil
		}
	}
	if update.empty() {
		return false, nil
	}

	if update.Quantity != nil && *update.Quantity == 0 {
		return c.DeleteItem(ctx, item)
	}

	if update.Quantity != nil {
		quantity := *update.Quantity
		minQuantity := product.MinimumOrderQuantity()
		if quantity < minQuantity {
			c.deps.Notices.Addf("The minimum order quantity for %s is %d", product.Name(), minQuantity)
			quantity = minQuantity
		}
		item.row.Quantity = quantity
		// Re-capture the price for the new quantity tier.
		if price, ok := product.Price(quantity); ok {
			item.row.Price = price
		}
		if taxFree, ok := product.TaxFreePrice(quantity); ok {
			item.row.TaxFreePrice = taxFree
		}
	}
	if update.Name != nil {
		item.row.Name = *update.Name
	}
	if update.SKU != nil {
		item.row.SKU = *update.SKU
	}
	item.row.UpdatedAt = time.Now()

	if err := c.deps.Storage.UpdateItem(ctx, &item.row); err != nil {
		return false, err
	}
	c.modified = true
	c.invalidateDerived()

	for _, hook := range c.deps.hooks().UpdatedItem {
		hook(ctx, c, item)
	}
	return true, nil
}

// DeleteItem removes one line item, honoring the pre-delete veto hooks.
func (c *Collection) DeleteItem(ctx context.Context, item *Item) (bool, error) {
	return c.DeleteItemByID(ctx, item.row.ID)
}

// DeleteItemByID removes the item with the given id. False when the id is
// not part of the collection's current item set.
func (c *Collection) DeleteItemByID(ctx context.Context, id int64) (bool, error) {
	if c.locked {
		return false, nil
	}
	if _, err := c.Items(ctx); err != nil {
		return false, err
	}
	item, idx := c.itemByID(id)
	if item == nil {
		return false, nil
	}

	for _, hook := range c.deps.hooks().DeletingItem {
		if !hook(ctx, c, item) {
			return false, nil
		}
	}

	if _, err := c.deps.Storage.DeleteItem(ctx, id); err != nil {
		return false, err
	}
	c.items = append(c.items[:idx], c.items[idx+1:]...)
	c.modified = true
	c.invalidateDerived()
	return true, nil
}

// Purge deletes every item in the collection.
func (c *Collection) Purge(ctx context.Context) error {
	items, err := c.Items(ctx)
	if err != nil {
		return err
	}
	for _, item := range append([]*Item(nil), items...) {
		if _, err := c.DeleteItem(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

// CountItems returns the number of items, cached until invalidation.
func (c *Collection) CountItems(ctx context.Context) (int, error) {
	if c.derived.countItems == nil {
		items, err := c.Items(ctx)
		if err != nil {
			return 0, err
		}
		n := len(items)
		c.derived.countItems = &n
	}
	return *c.derived.countItems, nil
}

// SumItemsQuantity returns the summed quantity over all items, cached.
func (c *Collection) SumItemsQuantity(ctx context.Context) (int, error) {
	if c.derived.sumQuantity == nil {
		items, err := c.Items(ctx)
		if err != nil {
			return 0, err
		}
		sum := 0
		for _, item := range items {
			sum += item.row.Quantity
		}
		c.derived.sumQuantity = &sum
	}
	return *c.derived.sumQuantity, nil
}

// LatestItem returns the item with the maximum timestamp; ties resolve to
// the first encountered.
func (c *Collection) LatestItem(ctx context.Context) (*Item, error) {
	if !c.derived.latestComputed {
		items, err := c.Items(ctx)
		if err != nil {
			return nil, err
		}
		var latest *Item
		var latestAt time.Time
		for _, item := range items {
			if item.row.UpdatedAt.After(latestAt) {
				latest = item
				latestAt = item.row.UpdatedAt
			}
		}
		c.derived.latestItem = latest
		c.derived.latestComputed = true
	}
	return c.derived.latestItem, nil
}

// Subtotal sums resolved price × quantity over all items, skipping items
// whose price cannot be resolved. Cached until invalidation.
func (c *Collection) Subtotal(ctx context.Context) (decimal.Decimal, error) {
	if c.derived.subtotal == nil {
		sum, err := c.sumItems(ctx, (*Item).Price)
		if err != nil {
			return decimal.Zero, err
		}
		c.derived.subtotal = &sum
	}
	return *c.derived.subtotal, nil
}

// TaxFreeSubtotal mirrors Subtotal for tax-free prices.
func (c *Collection) TaxFreeSubtotal(ctx context.Context) (decimal.Decimal, error) {
	if c.derived.taxFreeSubtotal == nil {
		sum, err := c.sumItems(ctx, (*Item).TaxFreePrice)
		if err != nil {
			return decimal.Zero, err
		}
		c.derived.taxFreeSubtotal = &sum
	}
	return *c.derived.taxFreeSubtotal, nil
}

func (c *Collection) sumItems(ctx context.Context, price func(*Item, context.Context) (decimal.Decimal, bool, error)) (decimal.Decimal, error) {
	items, err := c.Items(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, item := range items {
		unit, ok, err := price(item, ctx)
		if err != nil {
			return decimal.Zero, err
		}
		if !ok {
			continue
		}
		sum = sum.Add(unit.Mul(decimal.NewFromInt(int64(item.row.Quantity))))
	}
	return sum, nil
}

// Total is the subtotal plus every surcharge flagged add-to-total, floored
// at zero and rounded to the currency's minor-unit precision.
func (c *Collection) Total(ctx context.Context) (decimal.Decimal, error) {
	if c.derived.total == nil {
		subtotal, err := c.Subtotal(ctx)
		if err != nil {
			return decimal.Zero, err
		}
		surcharges, err := c.Surcharges(ctx)
		if err != nil {
			return decimal.Zero, err
		}
		amount := subtotal
		for _, s := range surcharges {
			if s.AddToTotal {
				amount = amount.Add(s.Amount)
			}
		}
		total := money.Total(amount, c.row.Currency)
		c.derived.total = &total
	}
	return *c.derived.total, nil
}

// TaxFreeTotal mirrors Total for tax-free amounts.
func (c *Collection) TaxFreeTotal(ctx context.Context) (decimal.Decimal, error) {
	if c.derived.taxFreeTotal == nil {
		subtotal, err := c.TaxFreeSubtotal(ctx)
		if err != nil {
			return decimal.Zero, err
		}
		surcharges, err := c.Surcharges(ctx)
		if err != nil {
			return decimal.Zero, err
		}
		amount := subtotal
		for _, s := range surcharges {
			if s.AddToTotal {
				amount = amount.Add(s.TaxFreeAmount)
			}
		}
		total := money.Total(amount, c.row.Currency)
		c.derived.taxFreeTotal = &total
	}
	return *c.derived.taxFreeTotal, nil
}

// Surcharges returns the collection's surcharges: persisted snapshots for a
// locked collection, a live computation over the current tax rules and
// payment/shipping methods otherwise.
func (c *Collection) Surcharges(ctx context.Context) ([]*Surcharge, error) {
	if c.surchargesLoaded {
		return c.surcharges, nil
	}

	var surcharges []*Surcharge
	if c.locked {
		rows, err := c.deps.Storage.SurchargesByCollection(ctx, c.row.ID)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			surcharges = append(surcharges, surchargeFromRow(row))
		}
	} else {
		var err error
		surcharges, err = c.computeSurcharges(ctx)
		if err != nil {
			return nil, err
		}
	}

	c.surcharges = surcharges
	c.surchargesLoaded = true
	return surcharges, nil
}

func (c *Collection) computeSurcharges(ctx context.Context) ([]*Surcharge, error) {
	var surcharges []*Surcharge

	if c.deps.Taxes != nil {
		taxes, err := c.deps.Taxes.TaxSurcharges(ctx, c)
		if err != nil {
			return nil, err
		}
		surcharges = append(surcharges, taxes...)
	}

	payment, err := c.PaymentMethod(ctx)
	if err != nil {
		return nil, err
	}
	if payment != nil {
		s, err := payment.ComputeSurcharge(ctx, c)
		if err != nil {
			return nil, err
		}
		if s != nil {
			s.Kind = SurchargePayment
			surcharges = append(surcharges, s)
		}
	}

	shipping, err := c.ShippingMethod(ctx)
	if err != nil {
		return nil, err
	}
	if shipping != nil {
		s, err := shipping.ComputeSurcharge(ctx, c)
		if err != nil {
			return nil, err
		}
		if s != nil {
			s.Kind = SurchargeShipping
			surcharges = append(surcharges, s)
		}
	}

	return surcharges, nil
}

// SetSourceCollection initializes this collection from a source (typically
// an order from a cart): member, currency and source reference are copied
// and a unique token is generated unless one already exists. The fields are
// written to the storage buffer directly so the modified flag trips once.
func (c *Collection) SetSourceCollection(source *Collection) bool {
	if c.locked {
		return false
	}
	c.row.SourceCollectionID = source.row.ID
	c.row.MemberID = source.row.MemberID
	c.row.Currency = source.row.Currency

	// Never regenerate an existing token.
	if c.row.Token == "" {
		c.row.Token = uuid.NewString()
	}

	c.setModified()
	return true
}

// CopyItemsFrom copies every item of the source collection into this one,
// merging quantities for identical configured products and cloning distinct
// items with a fresh timestamp. Returns a mapping from source item id to
// destination item id.
func (c *Collection) CopyItemsFrom(ctx context.Context, source *Collection) (map[int64]int64, error) {
	if c.locked {
		return nil, nil
	}
	if !c.exists {
		if _, err := c.Save(ctx, true); err != nil {
			return nil, err
		}
	}
	// Sync prices on the source before copying.
	if _, err := source.Save(ctx, false); err != nil {
		return nil, err
	}

	sourceItems, err := source.Items(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	ids := make(map[int64]int64, len(sourceItems))

copying:
	for _, old := range sourceItems {
		for _, hook := range c.deps.hooks().CopyingItem {
			if !hook(ctx, c, source, old) {
				continue copying
			}
		}

		existing, err := c.itemMatching(ctx, old.row.ProductID, old.row.ProductType, old.row.Options)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			if _, err := existing.IncreaseQuantityBy(ctx, old.row.Quantity); err != nil {
				return nil, err
			}
			ids[old.row.ID] = existing.row.ID
			continue
		}

		row := old.cloneRow()
		row.ID = 0
		row.CollectionID = c.row.ID
		row.UpdatedAt = now
		if err := c.deps.Storage.InsertItem(ctx, &row); err != nil {
			return nil, err
		}
		item := newItem(c, row)
		c.items = append(c.items, item)
		ids[old.row.ID] = row.ID
	}

	if len(ids) > 0 {
		c.modified = true
		c.invalidateDerived()
	}

	for _, hook := range c.deps.hooks().CopiedItems {
		hook(ctx, c, source, ids)
	}
	return ids, nil
}

// ShippingWeight sums each item's product weight times quantity, normalized
// to the requested unit. Items without a resolvable product are skipped.
func (c *Collection) ShippingWeight(ctx context.Context, unit catalog.WeightUnit) (float64, error) {
	items, err := c.Items(ctx)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, item := range items {
		p, err := item.Product(ctx)
		if err != nil {
			return 0, err
		}
		if p == nil {
			continue
		}
		total += p.ShippingWeight().In(unit) * float64(item.row.Quantity)
	}
	return total, nil
}

func (c *Collection) ensureExists(ctx context.Context) error {
	if c.exists {
		return nil
	}
	if err := c.deps.Storage.InsertCollection(ctx, &c.row); err != nil {
		return err
	}
	c.exists = true
	return nil
}

// Save persists the collection and its items in one transaction. Every
// current item has its price fields refreshed from the live product first;
// that is how catalog price changes propagate into an open cart. The
// collection row itself is written only if modified or insertion is forced.
// Returns false without touching storage when locked.
func (c *Collection) Save(ctx context.Context, forceInsert bool) (bool, error) {
	if c.locked {
		return false, nil
	}

	if c.modified {
		c.row.UpdatedAt = time.Now()
	}

	// A collection that was never inserted gets its row created here; the
	// insert already carries the current state, so no update follows.
	inserted := false
	if !c.exists && (c.modified || forceInsert) {
		if err := c.ensureExists(ctx); err != nil {
			return false, err
		}
		inserted = true
	}

	items, err := c.Items(ctx)
	if err != nil {
		return false, err
	}

	rows := make([]*ItemRow, 0, len(items))
	for _, item := range items {
		p, err := item.Product(ctx)
		if err != nil {
			return false, err
		}
		if p != nil && !item.locked {
			if price, ok := p.Price(item.row.Quantity); ok {
				item.row.Price = price
			}
			if taxFree, ok := p.TaxFreePrice(item.row.Quantity); ok {
				item.row.TaxFreePrice = taxFree
			}
		}
		rows = append(rows, &item.row)
	}

	writeRow := (c.modified || forceInsert) && !inserted
	if err := c.deps.Storage.SaveCollection(ctx, &c.row, writeRow, rows); err != nil {
		return false, err
	}
	c.modified = false

	for _, hook := range c.deps.hooks().SavedCollection {
		hook(ctx, c)
	}
	return true, nil
}

// Delete removes the collection row and cascades to its items. A veto hook
// aborts with zero rows affected.
func (c *Collection) Delete(ctx context.Context) (int64, error) {
	for _, hook := range c.deps.hooks().DeletingCollection {
		if !hook(ctx, c) {
			return 0, nil
		}
	}
	if !c.exists {
		return 0, nil
	}

	affected, err := c.deps.Storage.DeleteCollection(ctx, c.row.ID)
	if err != nil {
		return 0, err
	}

	c.items = nil
	c.itemsLoaded = false
	c.invalidateDerived()
	c.modified = false
	if affected > 0 {
		// The handle goes back to the unsaved state so further use
		// re-creates the collection instead of writing against a dead row.
		c.exists = false
		c.row.ID = 0
	}
	return affected, nil
}

// Lock permanently freezes the collection: the current live surcharges are
// snapshotted to storage together with the locked row in one transaction,
// and from then on all reads work against the frozen state.
func (c *Collection) Lock(ctx context.Context) (bool, error) {
	if c.locked {
		return false, nil
	}
	if !c.exists {
		if _, err := c.Save(ctx, true); err != nil {
			return false, err
		}
	}

	surcharges, err := c.Surcharges(ctx)
	if err != nil {
		return false, err
	}
	rows := make([]*SurchargeRow, 0, len(surcharges))
	for i, s := range surcharges {
		rows = append(rows, s.toRow(c.row.ID, i))
	}

	c.row.Locked = true
	c.row.UpdatedAt = time.Now()
	if err := c.deps.Storage.LockCollection(ctx, &c.row, rows); err != nil {
		c.row.Locked = false
		return false, err
	}

	c.locked = true
	c.modified = false
	for _, item := range c.items {
		item.Lock()
	}
	c.surcharges = surcharges
	c.surchargesLoaded = true
	return true, nil
}
