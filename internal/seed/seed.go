package seed

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"shopcollections/internal/catalog"
	"shopcollections/internal/collection"
	addressrepo "shopcollections/internal/repository/address"
	memberrepo "shopcollections/internal/repository/member"
	methodrepo "shopcollections/internal/repository/method"
	productrepo "shopcollections/internal/repository/product"
)

// Apply inserts demo data for manual testing: a member with an address, a
// couple of products and flat-fee methods. Product inserts are idempotent
// via SKU upserts.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	products := productrepo.NewPostgres(pool, nil)
	for _, rec := range demoProducts() {
		if _, err := products.Upsert(ctx, rec); err != nil {
			return fmt.Errorf("upsert product %s: %w", rec.StockKeeping, err)
		}
	}

	members := memberrepo.NewPostgres(pool)
	member, err := ensureMember(ctx, members)
	if err != nil {
		return fmt.Errorf("ensure member: %w", err)
	}

	addresses := addressrepo.NewPostgres(pool)
	if err := ensureAddress(ctx, addresses, member); err != nil {
		return fmt.Errorf("ensure address: %w", err)
	}

	methods := methodrepo.NewPostgres(pool)
	if err := ensureMethods(ctx, methods); err != nil {
		return fmt.Errorf("ensure methods: %w", err)
	}
	return nil
}

func demoProducts() []*productrepo.Record {
	return []*productrepo.Record{
		{
			ProductType:  "standard",
			StockKeeping: "SKU-DEMO-TSHIRT",
			Title:        "Demo T-Shirt",
			BasePrice:    decimal.RequireFromString("19.99"),
			BaseTaxFree:  decimal.RequireFromString("16.80"),
			Tiers: []productrepo.PriceTier{
				{MinQuantity: 10, Price: decimal.RequireFromString("17.99"), TaxFreePrice: decimal.RequireFromString("15.12")},
			},
			IsAvailable: true,
			MinQuantity: 1,
			Weight:      catalog.Weight{Value: 0.2, Unit: catalog.Kilogram},
			URL:         "/products/demo-tshirt",
		},
		{
			ProductType:  "standard",
			StockKeeping: "SKU-DEMO-MUG",
			Title:        "Demo Mug",
			BasePrice:    decimal.RequireFromString("12.99"),
			BaseTaxFree:  decimal.RequireFromString("10.92"),
			IsAvailable:  true,
			MinQuantity:  2,
			Weight:       catalog.Weight{Value: 350, Unit: catalog.Gram},
			URL:          "/products/demo-mug",
		},
		{
			ProductType:        "download",
			StockKeeping:       "SKU-DEMO-EBOOK",
			Title:              "Demo E-Book",
			BasePrice:          decimal.RequireFromString("4.99"),
			BaseTaxFree:        decimal.RequireFromString("4.19"),
			IsAvailable:        true,
			MinQuantity:        1,
			ExemptFromShipping: true,
			URL:                "/products/demo-ebook",
		},
	}
}

func ensureMember(ctx context.Context, members memberrepo.Repository) (*collection.Member, error) {
	const email = "demo@example.org"
	member, err := members.ByEmail(ctx, email)
	if err == nil {
		return member, nil
	}
	member = &collection.Member{FirstName: "Demo", LastName: "Member", Email: email}
	if err := members.Insert(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}

func ensureAddress(ctx context.Context, addresses addressrepo.Repository, member *collection.Member) error {
	existing, err := addresses.ByMember(ctx, member.ID)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	addr := &collection.Address{
		FirstName:  member.FirstName,
		LastName:   member.LastName,
		Email:      member.Email,
		StreetName: "Main St 1",
		PostalCode: "12345",
		City:       "Springfield",
		Country:    "US",
	}
	return addresses.Insert(ctx, addr, member.ID)
}

func ensureMethods(ctx context.Context, methods methodrepo.Repository) error {
	for _, methodType := range []string{"payment", "shipping"} {
		existing, err := methods.List(ctx, methodType)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			continue
		}
		m := &methodrepo.FlatFee{MethodName: "Invoice", Label: "Payment by invoice"}
		if methodType == "shipping" {
			m = &methodrepo.FlatFee{
				MethodName: "Flat rate",
				Label:      "Flat rate shipping",
				Fee:        decimal.RequireFromString("4.90"),
				TaxFreeFee: decimal.RequireFromString("4.12"),
			}
		}
		if err := methods.Insert(ctx, methodType, m); err != nil {
			return err
		}
	}
	return nil
}
