package collection

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	coll "shopcollections/internal/collection"
	"shopcollections/internal/migrate"
)

func TestPostgres_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	storage := NewPostgres(pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	row := &coll.Row{
		Kind:      coll.KindCart,
		Currency:  "USD",
		MemberID:  7,
		Settings:  map[string]any{"note": "gift"},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := storage.InsertCollection(ctx, row); err != nil {
		t.Fatalf("InsertCollection: %v", err)
	}
	if row.ID == 0 {
		t.Fatal("InsertCollection did not assign an id")
	}

	item := &coll.ItemRow{
		CollectionID: row.ID,
		ProductType:  "standard",
		ProductID:    10,
		SKU:          "SKU-10",
		Name:         "Shirt",
		Options:      map[string]string{"color": "red"},
		Quantity:     2,
		Price:        decimal.RequireFromString("5.00"),
		TaxFreePrice: decimal.RequireFromString("4.20"),
		DetailURL:    "/product/10",
		UpdatedAt:    now,
	}
	if err := storage.InsertItem(ctx, item); err != nil {
		t.Fatalf("InsertItem: %v", err)
	}

	fetched, err := storage.CollectionByID(ctx, row.ID)
	if err != nil {
		t.Fatalf("CollectionByID: %v", err)
	}
	if fetched.Currency != "USD" || fetched.MemberID != 7 {
		t.Fatalf("unexpected collection %+v", fetched)
	}
	if fetched.Settings["note"] != "gift" {
		t.Fatalf("settings not round-tripped: %+v", fetched.Settings)
	}

	items, err := storage.ItemsByCollection(ctx, row.ID)
	if err != nil {
		t.Fatalf("ItemsByCollection: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("want 1 item, got %d", len(items))
	}
	got := items[0]
	if got.Options["color"] != "red" || got.Quantity != 2 {
		t.Fatalf("unexpected item %+v", got)
	}
	if !got.Price.Equal(item.Price) || !got.TaxFreePrice.Equal(item.TaxFreePrice) {
		t.Fatalf("prices not round-tripped: %s / %s", got.Price, got.TaxFreePrice)
	}

	active, err := storage.ActiveCartByMember(ctx, 7)
	if err != nil {
		t.Fatalf("ActiveCartByMember: %v", err)
	}
	if active.ID != row.ID {
		t.Fatalf("want cart %d, got %d", row.ID, active.ID)
	}
}

func TestPostgres_LockSnapshotsSurcharges(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	storage := NewPostgres(pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	row := &coll.Row{Kind: coll.KindOrder, Currency: "USD", Token: "tok-1", CreatedAt: now, UpdatedAt: now}
	if err := storage.InsertCollection(ctx, row); err != nil {
		t.Fatalf("InsertCollection: %v", err)
	}

	row.Locked = true
	surcharges := []*coll.SurchargeRow{
		{CollectionID: row.ID, Position: 0, Label: "19% VAT", Kind: coll.SurchargeTax, Amount: decimal.RequireFromString("1.90")},
		{CollectionID: row.ID, Position: 1, Label: "Shipping", Kind: coll.SurchargeShipping, Amount: decimal.RequireFromString("4.90"), TaxFreeAmount: decimal.RequireFromString("4.12"), AddToTotal: true},
	}
	if err := storage.LockCollection(ctx, row, surcharges); err != nil {
		t.Fatalf("LockCollection: %v", err)
	}

	fetched, err := storage.CollectionByID(ctx, row.ID)
	if err != nil {
		t.Fatalf("CollectionByID: %v", err)
	}
	if !fetched.Locked {
		t.Fatal("collection not locked after LockCollection")
	}

	stored, err := storage.SurchargesByCollection(ctx, row.ID)
	if err != nil {
		t.Fatalf("SurchargesByCollection: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("want 2 surcharges, got %d", len(stored))
	}
	if stored[0].Kind != coll.SurchargeTax || stored[1].Kind != coll.SurchargeShipping {
		t.Fatalf("surcharge order not preserved: %+v", stored)
	}
	if !stored[1].AddToTotal {
		t.Fatal("add_to_total flag lost")
	}
}

func TestPostgres_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	storage := NewPostgres(pool)

	now := time.Now().UTC()
	row := &coll.Row{Kind: coll.KindCart, Currency: "USD", CreatedAt: now, UpdatedAt: now}
	if err := storage.InsertCollection(ctx, row); err != nil {
		t.Fatalf("InsertCollection: %v", err)
	}
	item := &coll.ItemRow{CollectionID: row.ID, ProductType: "standard", ProductID: 1, Quantity: 1, UpdatedAt: now}
	if err := storage.InsertItem(ctx, item); err != nil {
		t.Fatalf("InsertItem: %v", err)
	}

	affected, err := storage.DeleteCollection(ctx, row.ID)
	if err != nil {
		t.Fatalf("DeleteCollection: %v", err)
	}
	if affected != 1 {
		t.Fatalf("want 1 affected row, got %d", affected)
	}

	if _, err := storage.CollectionByID(ctx, row.ID); err != coll.ErrNotFound {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	items, err := storage.ItemsByCollection(ctx, row.ID)
	if err != nil {
		t.Fatalf("ItemsByCollection: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("items not cascaded: %d left", len(items))
	}
}

func testPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE collection_surcharges, collection_items, collections RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
	return pool
}
