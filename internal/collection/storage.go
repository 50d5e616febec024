package collection

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
)

// Kind distinguishes a mutable in-progress cart from a finalized order.
type Kind string

const (
	KindCart  Kind = "cart"
	KindOrder Kind = "order"
)

// Row is the fixed storage schema of a collection. Fields callers set that
// are not part of the schema live in the settings map, serialized into a
// single column by the storage layer.
type Row struct {
	ID                 int64
	Kind               Kind
	Locked             bool
	PaymentMethodID    int64
	ShippingMethodID   int64
	BillingAddressID   int64
	ShippingAddressID  int64
	MemberID           int64
	SourceCollectionID int64
	Currency           string
	Token              string
	Settings           map[string]any
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ItemRow is the persisted form of a line item. SKU, name, option set,
// prices and detail link are snapshots captured when the product was added.
type ItemRow struct {
	ID           int64
	CollectionID int64
	ProductType  string
	ProductID    int64
	SKU          string
	Name         string
	Options      map[string]string
	Quantity     int
	Price        decimal.Decimal
	TaxFreePrice decimal.Decimal
	DetailURL    string
	UpdatedAt    time.Time
}

// SurchargeRow is a persisted surcharge snapshot for a locked collection.
type SurchargeRow struct {
	ID            int64
	CollectionID  int64
	Label         string
	Kind          SurchargeKind
	Amount        decimal.Decimal
	TaxFreeAmount decimal.Decimal
	AddToTotal    bool
	Position      int
}

// Storage persists collections and their children. Save, lock and delete
// must be atomic with respect to the collection's item rows: a concurrent
// reader never observes a partially applied write.
type Storage interface {
	CollectionByID(ctx context.Context, id int64) (*Row, error)
	ActiveCartByMember(ctx context.Context, memberID int64) (*Row, error)
	InsertCollection(ctx context.Context, row *Row) error
	// SaveCollection writes the item rows and, when writeRow is set, the
	// collection row itself in a single transaction.
	SaveCollection(ctx context.Context, row *Row, writeRow bool, items []*ItemRow) error
	// LockCollection persists the locked row together with its surcharge
	// snapshot in a single transaction.
	LockCollection(ctx context.Context, row *Row, surcharges []*SurchargeRow) error
	// DeleteCollection removes the row and cascades to its item and
	// surcharge rows, returning the number of collection rows removed.
	DeleteCollection(ctx context.Context, id int64) (int64, error)

	ItemsByCollection(ctx context.Context, collectionID int64) ([]*ItemRow, error)
	InsertItem(ctx context.Context, row *ItemRow) error
	UpdateItem(ctx context.Context, row *ItemRow) error
	DeleteItem(ctx context.Context, id int64) (bool, error)

	SurchargesByCollection(ctx context.Context, collectionID int64) ([]*SurchargeRow, error)
}
