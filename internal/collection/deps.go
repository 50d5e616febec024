package collection

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"shopcollections/internal/catalog"
)

// Address is a stored billing or shipping address.
type Address struct {
	ID         int64
	FirstName  string
	LastName   string
	Email      string
	Country    string
	StreetName string
	PostalCode string
	City       string
}

// Member is the account owning a collection.
type Member struct {
	ID        int64
	FirstName string
	LastName  string
	Email     string
}

// Method is a payment or shipping method. It may contribute a surcharge to
// a collection's total; a nil result means the method adds nothing.
type Method interface {
	ID() int64
	Name() string
	ComputeSurcharge(ctx context.Context, c *Collection) (*Surcharge, error)
}

// MethodResolver loads payment and shipping methods by id. A nil Method
// with nil error means the id does not resolve to a method.
type MethodResolver interface {
	PaymentMethod(ctx context.Context, id int64) (Method, error)
	ShippingMethod(ctx context.Context, id int64) (Method, error)
}

// AddressBook loads addresses by id. Id zero never resolves.
type AddressBook interface {
	AddressByID(ctx context.Context, id int64) (*Address, error)
}

// MemberDirectory loads members by id.
type MemberDirectory interface {
	MemberByID(ctx context.Context, id int64) (*Member, error)
}

// TaxProvider computes the tax surcharges applicable to an unlocked
// collection's current state.
type TaxProvider interface {
	TaxSurcharges(ctx context.Context, c *Collection) ([]*Surcharge, error)
}

// Deps carries the collaborators a collection operates against. Storage and
// Catalog are required; the rest degrade to "none" when absent.
type Deps struct {
	Storage   Storage
	Catalog   catalog.Resolver
	Methods   MethodResolver
	Addresses AddressBook
	Members   MemberDirectory
	Taxes     TaxProvider
	Hooks     *Hooks
	Notices   *Notices
	Scope     *Scope
	Logger    logrus.FieldLogger
}

func (d Deps) logger() logrus.FieldLogger {
	if d.Logger != nil {
		return d.Logger
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func (d Deps) hooks() *Hooks {
	if d.Hooks != nil {
		return d.Hooks
	}
	return &Hooks{}
}

// resolveState tracks lazy resolution of a related entity, distinguishing
// "not yet loaded" from "resolved to none".
type resolveState int

const (
	unresolved resolveState = iota
	resolvedNone
	resolvedSome
)

type resolved[T any] struct {
	state resolveState
	value T
}

func (r *resolved[T]) set(v T) {
	r.state = resolvedSome
	r.value = v
}

func (r *resolved[T]) setNone() {
	var zero T
	r.state = resolvedNone
	r.value = zero
}

func (r *resolved[T]) reset() {
	var zero T
	r.state = unresolved
	r.value = zero
}
