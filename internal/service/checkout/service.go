package checkout

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"shopcollections/internal/collection"
)

var (
	ErrEmptyCart     = errors.New("cart is empty")
	ErrCartLocked    = errors.New("cart is already checked out")
	ErrNotCheckedOut = errors.New("collection is not a finalized order")
)

// Service turns an open cart into a locked order. The order keeps a
// reference to the source cart and freezes items, surcharges and totals at
// checkout time.
type Service struct {
	deps   collection.Deps
	logger logrus.FieldLogger
}

func New(deps collection.Deps) *Service {
	return &Service{deps: deps, logger: deps.Logger}
}

// Complete runs the checkout: it creates the order, carries over the cart's
// addresses and methods, copies the items, locks the order and empties the
// cart. The returned order is immutable.
func (s *Service) Complete(ctx context.Context, cart *collection.Collection) (*collection.Collection, error) {
	if cart.IsLocked() {
		return nil, ErrCartLocked
	}
	empty, err := cart.IsEmpty(ctx)
	if err != nil {
		return nil, err
	}
	if empty {
		return nil, ErrEmptyCart
	}

	order := collection.New(collection.KindOrder, s.deps)
	order.SetSourceCollection(cart)

	if err := s.carryOverMethods(ctx, order, cart); err != nil {
		return nil, err
	}

	if _, err := order.CopyItemsFrom(ctx, cart); err != nil {
		return nil, err
	}

	// Addresses are carried after the items so the order's shipping slot
	// rule sees the real total.
	if err := s.carryOverAddresses(ctx, order, cart); err != nil {
		return nil, err
	}
	if _, err := order.Save(ctx, false); err != nil {
		return nil, err
	}
	locked, err := order.Lock(ctx)
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, ErrCartLocked
	}

	if err := cart.Purge(ctx); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"order_id": order.ID(),
			"cart_id":  cart.ID(),
			"token":    order.Token(),
		}).Info("checkout completed")
	}
	return order, nil
}

func (s *Service) carryOverMethods(ctx context.Context, order, cart *collection.Collection) error {
	if m, err := cart.PaymentMethod(ctx); err != nil {
		return err
	} else if m != nil {
		order.SetPaymentMethod(m)
	}
	if m, err := cart.ShippingMethod(ctx); err != nil {
		return err
	} else if m != nil {
		order.SetShippingMethod(m)
	}
	return nil
}

func (s *Service) carryOverAddresses(ctx context.Context, order, cart *collection.Collection) error {
	if billing, err := cart.BillingAddress(ctx); err != nil {
		return err
	} else if billing != nil {
		order.SetBillingAddress(billing)
	}
	if shipping, err := cart.ShippingAddress(ctx); err != nil {
		return err
	} else if shipping != nil {
		if _, err := order.SetShippingAddress(ctx, shipping); err != nil {
			return err
		}
	}
	return nil
}

// Order loads a finalized order by id.
func (s *Service) Order(ctx context.Context, id int64) (*collection.Collection, error) {
	order, err := collection.Load(ctx, s.deps, id)
	if err != nil {
		return nil, err
	}
	if order.Kind() != collection.KindOrder || !order.IsLocked() {
		return nil, ErrNotCheckedOut
	}
	return order, nil
}

// Document renders the invoice document for a finalized order.
func (s *Service) Document(ctx context.Context, orderID int64) (*collection.Document, error) {
	order, err := s.Order(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return order.Document(ctx)
}
