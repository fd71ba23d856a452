package edifact

import (
	"log"

	"github.com/shopspring/decimal"
)

// Invoice is one supplier invoice, normalized from whatever the upstream
// reader (Amazon CSV, Workday workbook) produced. One Invoice becomes one
// INVOIC message in the output interchange.
type Invoice struct {
	InvoiceNumber string `json:"invoice_number"`
	// InvoiceDate and DueDate are YYYYMMDD strings. DueDate is only emitted
	// when present and different from InvoiceDate.
	InvoiceDate string `json:"invoice_date"`
	DueDate     string `json:"due_date,omitempty"`
	// FundRef is the accounting reference emitted as RFF+API. Empty falls
	// back to the generator config default.
	FundRef  string `json:"fund_ref,omitempty"`
	Currency string `json:"currency,omitempty"`
	// HeaderTax and HeaderTotal are invoice-level figures supplied by
	// sources that pre-compute them (Workday). Only consulted under the
	// TaxAsCharge policy; zero means "not provided".
	HeaderTax   decimal.Decimal `json:"header_tax,omitempty"`
	HeaderTotal decimal.Decimal `json:"header_total,omitempty"`
	Lines       []LineItem      `json:"line_items"`
}

// LineItem is a single invoice line. Slice order in Invoice.Lines is the
// 1-based line numbering in the output.
type LineItem struct {
	ItemID    string          `json:"item_id"`
	Title     string          `json:"title"`
	Author    string          `json:"author,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	ListPrice decimal.Decimal `json:"list_price"`
	Shipping  decimal.Decimal `json:"shipping,omitempty"`
	Discounts decimal.Decimal `json:"discounts,omitempty"`
	TaxAmount decimal.Decimal `json:"tax_amount,omitempty"`
	// TaxRate as reported by the source, percent sign already stripped.
	TaxRate string `json:"tax_rate,omitempty"`
	// POLRef is the ILS purchase-order line (RFF+LI), omitted when empty.
	POLRef string `json:"pol_ref,omitempty"`
	// SLIRef is the supplier line reference (RFF+SLI), "0" when absent.
	SLIRef string `json:"sli_ref,omitempty"`
}

// Totals are the per-invoice figures the generator derives for the
// summary section. Exposed so callers can cross-check a stream.
type Totals struct {
	Quantity  int
	LineCount int
	Shipping  decimal.Decimal
	Discounts decimal.Decimal
	Tax       decimal.Decimal
	Gross     decimal.Decimal
	Net       decimal.Decimal
}

// normalize applies the best-effort defaulting policy: a bad quantity
// becomes 1, a bad price becomes 0, a missing list price mirrors the unit
// price. Substitutions are logged so the operator can spot dirty input.
// The batch is never aborted over a single defective field.
func (li LineItem) normalize(invoiceNumber string, lineNum int) LineItem {
	if li.Quantity < 1 {
		log.Printf("WARN invoice %s line %d: quantity %d defaulted to 1", invoiceNumber, lineNum, li.Quantity)
		li.Quantity = 1
	}
	if li.UnitPrice.IsNegative() {
		log.Printf("WARN invoice %s line %d: negative unit price %s defaulted to 0", invoiceNumber, lineNum, li.UnitPrice)
		li.UnitPrice = decimal.Zero
	}
	if li.ListPrice.IsZero() && !li.UnitPrice.IsZero() {
		li.ListPrice = li.UnitPrice
	}
	if li.ListPrice.IsNegative() {
		li.ListPrice = li.UnitPrice
	}
	if li.SLIRef == "" {
		li.SLIRef = "0"
	}
	return li
}

// normalized returns a copy of the invoice with every line normalized. The
// line slice is copied so the caller's invoice is untouched.
func (inv Invoice) normalized() Invoice {
	lines := make([]LineItem, len(inv.Lines))
	for i, li := range inv.Lines {
		lines[i] = li.normalize(inv.InvoiceNumber, i+1)
	}
	inv.Lines = lines
	return inv
}

// LineTotal is quantity times unit price.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// ComputeTotals derives the summary figures for one invoice under the
// given tax policy. Line items are normalized the same way Generate
// normalizes them, so the result matches the emitted stream.
func (inv Invoice) ComputeTotals(policy TaxPolicy) Totals {
	t := Totals{LineCount: len(inv.Lines)}
	for i, li := range inv.Lines {
		li = li.normalize(inv.InvoiceNumber, i+1)
		t.Quantity += li.Quantity
		t.Shipping = t.Shipping.Add(li.Shipping)
		t.Discounts = t.Discounts.Add(li.Discounts)
		t.Gross = t.Gross.Add(li.LineTotal())
	}
	t.Gross = t.Gross.Add(t.Shipping)

	switch policy {
	case TaxAsCharge:
		t.Tax = inv.HeaderTax
		if !inv.HeaderTotal.IsZero() {
			t.Net = inv.HeaderTotal
		} else {
			t.Net = t.Gross.Add(t.Tax)
		}
	default:
		for _, li := range inv.Lines {
			t.Tax = t.Tax.Add(li.TaxAmount)
		}
		t.Net = t.Gross.Add(t.Discounts).Add(t.Tax)
	}
	return t
}
