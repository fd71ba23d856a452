// Package amazon reads Amazon Business order CSV exports and groups them
// into invoices, one per Order ID.
package amazon

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/libops/acqedi/edifact"
	"github.com/libops/acqedi/ingest/common"
)

// Column headers as Amazon Business exports them. The POL column is not
// part of the export; operators add it by hand before conversion.
const (
	colOrderID    = "Order ID"
	colOrderDate  = "Order date"
	colDueDate    = "Invoice due date"
	colFamily     = "Family"
	colASIN       = "ASIN"
	colTitle      = "Title"
	colQuantity   = "Shipment Quantity"
	colUnitPrice  = "Unit price excl. tax"
	colShipping   = "Shipping and handling excl. tax"
	colDiscounts  = "Promotions and discounts excl. tax"
	colTaxRate    = "Tax rate"
	colTaxAmount  = "Total tax amount"
	colPOL        = "POL"
	colPOLineItem = "PO line item ID"
)

// ReadFile reads an Amazon Business CSV from disk.
func ReadFile(path string) ([]edifact.Invoice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Read parses the CSV and returns invoices in first-seen order, each with
// its rows in file order. Row-level data defects become defaults; only a
// structurally unreadable file is an error.
func Read(r io.Reader) ([]edifact.Invoice, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	colIdx := make(map[string]int, len(header))
	for i, name := range header {
		colIdx[strings.TrimSpace(name)] = i
	}

	var order []string
	byID := make(map[string]*edifact.Invoice)

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row: %w", err)
		}

		field := func(name string) string {
			idx, ok := colIdx[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		orderID := field(colOrderID)
		if orderID == "" {
			continue
		}

		inv, ok := byID[orderID]
		if !ok {
			inv = &edifact.Invoice{
				InvoiceNumber: orderID,
				InvoiceDate:   common.NormalizeDate(field(colOrderDate)),
				FundRef:       field(colFamily),
			}
			if due := field(colDueDate); due != "" {
				inv.DueDate = common.NormalizeDate(due)
			}
			byID[orderID] = inv
			order = append(order, orderID)
		}

		title := field(colTitle)
		author := common.ExtractAuthor(title)

		sliRef := field(colPOLineItem)
		if sliRef == "" {
			sliRef = "0"
		}

		inv.Lines = append(inv.Lines, edifact.LineItem{
			ItemID:    field(colASIN),
			Title:     common.CleanTitle(title, author),
			Author:    author,
			Quantity:  common.Quantity(field(colQuantity)),
			UnitPrice: common.Amount(field(colUnitPrice)),
			// Amazon does not report a separate list price.
			ListPrice: common.Amount(field(colUnitPrice)),
			Shipping:  common.Amount(field(colShipping)),
			Discounts: common.Amount(field(colDiscounts)),
			TaxRate:   strings.TrimSuffix(field(colTaxRate), "%"),
			TaxAmount: common.Amount(field(colTaxAmount)),
			POLRef:    field(colPOL),
			SLIRef:    sliRef,
		})
	}

	invoices := make([]edifact.Invoice, 0, len(order))
	for _, id := range order {
		invoices = append(invoices, *byID[id])
	}
	return invoices, nil
}
