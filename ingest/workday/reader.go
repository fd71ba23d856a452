// Package workday reads Workday "View Supplier Invoice" workbook exports.
// The export is one invoice per file: header fields as key/value pairs in
// the first two columns, followed by a line-item table partway down the
// Invoice Lines sheet.
package workday

import (
	"fmt"
	"io"
	"log"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/libops/acqedi/edifact"
	"github.com/libops/acqedi/ingest/common"
)

const sheetName = "Invoice Lines"

// headerScanRows bounds the key/value scan; the header block sits well
// inside the first 50 rows of the export.
const headerScanRows = 50

// tableSearchFrom/To bound the search for the line-item table header row.
const (
	tableSearchFrom = 35
	tableSearchTo   = 50
)

var poLineRefPattern = regexp.MustCompile(`PO\d+\s*-\s*Line\s*\d+`)

// ReadFile reads a Workday workbook from disk.
func ReadFile(path string) ([]edifact.Invoice, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return read(f)
}

// Read reads a Workday workbook from a stream.
func Read(r io.Reader) ([]edifact.Invoice, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return read(f)
}

// read returns a single-invoice slice so the call site looks the same as
// the Amazon reader's.
func read(f *excelize.File) ([]edifact.Invoice, error) {
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("sheet %q not found: %w", sheetName, err)
	}

	inv := edifact.Invoice{InvoiceNumber: "UNKNOWN"}
	readHeader(rows, &inv)

	headerRow := findTableHeader(rows)
	if headerRow >= 0 {
		readLines(rows, headerRow, &inv)
	} else {
		log.Printf("WARN no line-item table found in %q sheet", sheetName)
	}

	if inv.InvoiceDate == "" {
		inv.InvoiceDate = common.NormalizeDate("")
	}
	return []edifact.Invoice{inv}, nil
}

// readHeader scans the key/value block at the top of the sheet.
func readHeader(rows [][]string, inv *edifact.Invoice) {
	for i, row := range rows {
		if i >= headerScanRows {
			break
		}
		if len(row) < 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(row[0]))
		value := strings.TrimSpace(row[1])
		if key == "" || value == "" {
			continue
		}

		switch {
		case strings.Contains(key, "supplier's invoice number"):
			// The supplier's own number is informational; the Workday
			// document number below is what keys the ILS invoice.
		case strings.Contains(key, "invoice number"):
			inv.InvoiceNumber = value
		case strings.Contains(key, "invoice date"):
			inv.InvoiceDate = common.NormalizeDate(value)
		case strings.Contains(key, "due date"):
			inv.DueDate = common.NormalizeDate(value)
		case strings.Contains(key, "total invoice amount"):
			inv.HeaderTotal = common.Amount(value)
		case strings.Contains(key, "tax amount"):
			inv.HeaderTax = common.Amount(value)
		case strings.Contains(key, "currency"):
			inv.Currency = value
		}
	}
}

// findTableHeader locates the line-item table's header row: first column
// "Invoice Line", second mentioning "Company".
func findTableHeader(rows [][]string) int {
	for i, row := range rows {
		if i < tableSearchFrom-1 || i > tableSearchTo-1 {
			continue
		}
		if len(row) < 2 {
			continue
		}
		if strings.Contains(row[0], "Invoice Line") && strings.Contains(row[1], "Company") {
			return i
		}
	}
	return -1
}

// readLines walks the data rows below the table header. Only rows whose
// first cell is a supplier-invoice line reference belong to the table.
func readLines(rows [][]string, headerRow int, inv *edifact.Invoice) {
	headers := rows[headerRow]
	fundRef := ""

	for _, row := range rows[headerRow+1:] {
		if len(row) == 0 || !strings.HasPrefix(strings.TrimSpace(row[0]), "Supplier Invoice:") {
			continue
		}

		var li edifact.LineItem
		for col, header := range headers {
			if col >= len(row) {
				break
			}
			value := strings.TrimSpace(row[col])
			if value == "" {
				continue
			}

			switch {
			case strings.Contains(header, "Line Item Description"):
				li.Title = common.NormalizeSpace(value)
			case strings.Contains(header, "Supplier Item Identifier"):
				li.ItemID = value
			case strings.Contains(header, "Business Document"):
				li.SLIRef = extractPOLineRef(value)
			case strings.Contains(header, "Spend Category"):
				if fundRef == "" {
					fundRef = value
				}
			case strings.Contains(header, "Quantity"):
				li.Quantity = common.Quantity(value)
			case strings.Contains(header, "Unit Cost"):
				li.UnitPrice = common.Amount(value)
				li.ListPrice = li.UnitPrice
			case header == "POL" || strings.Contains(header, "POL "):
				li.POLRef = value
			}
		}

		if li.Title != "" {
			li.Author = common.ExtractAuthor(li.Title)
			li.Title = common.CleanTitle(li.Title, li.Author)
		}
		inv.Lines = append(inv.Lines, li)
	}

	if fundRef != "" {
		inv.FundRef = fundRef
	}
}

// extractPOLineRef pulls "PO00008234 - Line 1" style references out of the
// Business Document cell, spaces removed. Anything else is truncated to
// keep the reference printable.
func extractPOLineRef(businessDoc string) string {
	if m := poLineRefPattern.FindString(businessDoc); m != "" {
		return strings.ReplaceAll(m, " ", "")
	}
	if len(businessDoc) > 20 {
		return businessDoc[:20]
	}
	return businessDoc
}
