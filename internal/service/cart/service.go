package cart

import (
	"context"
	"errors"

	"shopcollections/internal/collection"
)

var ErrLocked = errors.New("collection is locked")

// Service exposes cart use cases on top of the collection domain. All
// mutations happen inside a Session so deferred saves flush at one explicit
// point per request.
type Service struct {
	deps collection.Deps
}

func New(deps collection.Deps) *Service {
	return &Service{deps: deps}
}

// Session is per-request state: a unit-of-work scope plus the notice queue
// collecting user-facing adjustment messages.
type Session struct {
	deps    collection.Deps
	scope   *collection.Scope
	notices *collection.Notices
}

func (s *Service) NewSession() *Session {
	sess := &Session{
		deps:    s.deps,
		scope:   collection.NewScope(),
		notices: collection.NewNotices(),
	}
	sess.deps.Scope = sess.scope
	sess.deps.Notices = sess.notices
	return sess
}

// Close flushes every modified, unlocked collection touched in this session.
func (s *Session) Close(ctx context.Context) error {
	return s.scope.Close(ctx)
}

// Notices drains the messages queued during this session.
func (s *Session) Notices() []string {
	return s.notices.Drain()
}

// ActiveCart returns the member's open cart, creating one when none exists.
func (s *Session) ActiveCart(ctx context.Context, memberID int64, currency string) (*collection.Collection, error) {
	cart, err := collection.LoadActiveCart(ctx, s.deps, memberID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, collection.ErrNotFound) {
		return nil, err
	}
	cart = collection.New(collection.KindCart, s.deps)
	cart.SetMemberID(memberID)
	cart.SetCurrency(currency)
	return cart, nil
}

// Collection loads any collection, cart or order, by id.
func (s *Session) Collection(ctx context.Context, id int64) (*collection.Collection, error) {
	return collection.Load(ctx, s.deps, id)
}

// AddProduct resolves the product and adds it to the cart. A false result
// with nil error means the product does not exist, is unavailable, or the
// add was declined.
func (s *Session) AddProduct(ctx context.Context, cart *collection.Collection, productID int64, options map[string]string, quantity int) (*collection.Item, bool, error) {
	if cart.IsLocked() {
		return nil, false, ErrLocked
	}
	product, err := s.deps.Catalog.Resolve(ctx, productID, options)
	if err != nil {
		return nil, false, err
	}
	if product == nil || !product.Available() {
		return nil, false, nil
	}
	return cart.AddProduct(ctx, product, quantity)
}

// UpdateItem applies a partial update to the cart item holding the given
// product configuration.
func (s *Session) UpdateItem(ctx context.Context, cart *collection.Collection, productID int64, options map[string]string, update *collection.ItemUpdate) (bool, error) {
	if cart.IsLocked() {
		return false, ErrLocked
	}
	product, err := s.deps.Catalog.Resolve(ctx, productID, options)
	if err != nil {
		return false, err
	}
	if product == nil {
		return false, nil
	}
	return cart.UpdateProduct(ctx, product, update)
}

// RemoveItem deletes one cart item by id.
func (s *Session) RemoveItem(ctx context.Context, cart *collection.Collection, itemID int64) (bool, error) {
	if cart.IsLocked() {
		return false, ErrLocked
	}
	return cart.DeleteItemByID(ctx, itemID)
}

// Purge empties the cart.
func (s *Session) Purge(ctx context.Context, cart *collection.Collection) error {
	if cart.IsLocked() {
		return ErrLocked
	}
	return cart.Purge(ctx)
}
