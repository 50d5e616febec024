package collection

import (
	"context"

	"shopcollections/internal/catalog"
)

// Hooks are explicit extension points invoked around collection operations.
// Listeners are registered at construction time and called in order. Veto
// hooks return false to decline the operation; transform hooks return a
// replacement value.
type Hooks struct {
	// AddingItem may adjust the effective quantity before a product is
	// added. Called with the quantity as requested (or as adjusted by a
	// previous listener).
	AddingItem []func(ctx context.Context, c *Collection, product catalog.Product, quantity int) int
	// AddedItem runs after an item was created or its quantity increased.
	AddedItem []func(ctx context.Context, c *Collection, item *Item)
	// UpdatingItem may veto or transform a pending item update.
	UpdatingItem []func(ctx context.Context, c *Collection, item *Item, update *ItemUpdate) bool
	// UpdatedItem runs after an item update was persisted.
	UpdatedItem []func(ctx context.Context, c *Collection, item *Item)
	// DeletingItem may veto removal of an item.
	DeletingItem []func(ctx context.Context, c *Collection, item *Item) bool
	// CopyingItem may veto copying a single source item into dst.
	CopyingItem []func(ctx context.Context, dst, src *Collection, item *Item) bool
	// CopiedItems runs after CopyItemsFrom with the source→destination
	// item id mapping.
	CopiedItems []func(ctx context.Context, dst, src *Collection, ids map[int64]int64)
	// DeletingCollection may veto deletion of the whole collection.
	DeletingCollection []func(ctx context.Context, c *Collection) bool
	// SavedCollection runs after a successful save.
	SavedCollection []func(ctx context.Context, c *Collection)
	// EmailRecipient may override the resolved recipient address.
	EmailRecipient []func(ctx context.Context, c *Collection, recipient string) string
	// Document may replace a generated document.
	Document []func(ctx context.Context, c *Collection, doc *Document) *Document
}
