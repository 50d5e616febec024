package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"shopcollections/internal/catalog"
	"shopcollections/internal/repository/product"
)

// ProductWriter is the sink for imported records.
type ProductWriter interface {
	Upsert(ctx context.Context, rec *product.Record) (*product.Record, error)
}

// CSVImporter reads a product CSV export and inserts/updates catalog
// records. Rows are matched by SKU.
type CSVImporter struct {
	reader   *csv.Reader
	products ProductWriter
}

func NewCSVImporter(r io.Reader, products ProductWriter) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	return &CSVImporter{reader: csvr, products: products}
}

// Run parses the CSV and upserts one record per row, returning the number
// imported. A row without a SKU is skipped.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["sku"]; !ok {
		return 0, errors.New("csv has no sku column")
	}

	imported := 0
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}

		rec, err := parseRow(record, index)
		if err != nil {
			return imported, err
		}
		if rec == nil {
			continue
		}
		if _, err := i.products.Upsert(ctx, rec); err != nil {
			return imported, fmt.Errorf("upsert %s: %w", rec.StockKeeping, err)
		}
		imported++
	}
	return imported, nil
}

func headerIndex(headers []string) map[string]int {
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return index
}

func field(record []string, index map[string]int, name string) string {
	i, ok := index[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func parseRow(record []string, index map[string]int) (*product.Record, error) {
	sku := field(record, index, "sku")
	if sku == "" {
		return nil, nil
	}

	rec := &product.Record{
		StockKeeping: sku,
		Title:        field(record, index, "name"),
		ProductType:  "standard",
		IsAvailable:  true,
		MinQuantity:  1,
		URL:          field(record, index, "detail_url"),
	}
	if t := field(record, index, "type"); t != "" {
		rec.ProductType = t
	}

	var err error
	if rec.BasePrice, err = parsePrice(field(record, index, "price")); err != nil {
		return nil, fmt.Errorf("row %s: price: %w", sku, err)
	}
	if rec.BaseTaxFree, err = parsePrice(field(record, index, "tax_free_price")); err != nil {
		return nil, fmt.Errorf("row %s: tax_free_price: %w", sku, err)
	}
	if rec.BaseTaxFree.IsZero() {
		rec.BaseTaxFree = rec.BasePrice
	}

	if v := field(record, index, "available"); v != "" {
		rec.IsAvailable, err = strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("row %s: available: %w", sku, err)
		}
	}
	if v := field(record, index, "min_quantity"); v != "" {
		rec.MinQuantity, err = strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("row %s: min_quantity: %w", sku, err)
		}
	}
	if v := field(record, index, "shipping_exempt"); v != "" {
		rec.ExemptFromShipping, err = strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("row %s: shipping_exempt: %w", sku, err)
		}
	}
	if v := field(record, index, "weight"); v != "" {
		rec.Weight.Value, err = strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("row %s: weight: %w", sku, err)
		}
		rec.Weight.Unit = catalog.Kilogram
		if u := field(record, index, "weight_unit"); u != "" {
			rec.Weight.Unit = catalog.WeightUnit(u)
		}
	}
	return rec, nil
}

func parsePrice(v string) (decimal.Decimal, error) {
	if v == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.ReplaceAll(v, ",", "."))
}
