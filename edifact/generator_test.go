package edifact

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func fixedClock() time.Time {
	return time.Date(2025, 1, 20, 14, 30, 45, 123_000_000, time.UTC)
}

func testGenerator(policy TaxPolicy) *Generator {
	return NewGenerator(Config{
		InterchangeRef: "0120143045123",
		TaxPolicy:      policy,
		Now:            fixedClock,
	})
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestGenerate_Idempotent(t *testing.T) {
	invoices := []Invoice{{
		InvoiceNumber: "491150",
		InvoiceDate:   "20250115",
		Lines: []LineItem{
			{ItemID: "ASIN1", Title: "Some Title", Quantity: 2, UnitPrice: dec("9.99")},
		},
	}}

	first := testGenerator(TaxInNetTotal).Generate(invoices)
	second := testGenerator(TaxInNetTotal).Generate(invoices)
	assert.Equal(t, first, second)
}

func TestGenerate_Framing(t *testing.T) {
	out := testGenerator(TaxInNetTotal).Generate([]Invoice{{InvoiceNumber: "1001", InvoiceDate: "20250115"}})

	assert.True(t, strings.HasPrefix(out, "UNA:+.? '"))
	assert.Contains(t, out, "UNB+UNOC:2+1694510101:31B+3333159:31B+250120:1430+0120143045123'")
	assert.True(t, strings.HasSuffix(out, "UNZ+1+0120143045123'"))
}

func TestGenerate_GeneratedInterchangeRef(t *testing.T) {
	g := NewGenerator(Config{Now: fixedClock})
	assert.Equal(t, "0120143045123", g.InterchangeRef())
}

func TestInvoiceSegments_EmptyInvoiceStillEmitsShell(t *testing.T) {
	segs := testGenerator(TaxInNetTotal).InvoiceSegments(Invoice{
		InvoiceNumber: "9000",
		InvoiceDate:   "20250101",
	})

	joined := strings.Join(segs, "")
	assert.Contains(t, joined, "UNH+9000+INVOIC:D:96A:UN:EAN008'")
	assert.Contains(t, joined, "BGM+380+9000'")
	assert.Contains(t, joined, "CNT+1:0'")
	assert.Contains(t, joined, "CNT+2:0'")
	assert.Contains(t, joined, "MOA+9:0.00'")
	assert.Contains(t, joined, "MOA+79:0.00'")
}

func TestInvoiceSegments_DueDate(t *testing.T) {
	g := testGenerator(TaxInNetTotal)

	same := strings.Join(g.InvoiceSegments(Invoice{
		InvoiceNumber: "1", InvoiceDate: "20250115", DueDate: "20250115",
	}), "")
	assert.NotContains(t, same, "DTM+13:")

	later := strings.Join(g.InvoiceSegments(Invoice{
		InvoiceNumber: "1", InvoiceDate: "20250115", DueDate: "20250215",
	}), "")
	assert.Contains(t, later, "DTM+137:20250115:102'")
	assert.Contains(t, later, "DTM+13:20250215:102'")
}

func TestInvoiceSegments_FreightChargeOmittedWhenZero(t *testing.T) {
	g := testGenerator(TaxInNetTotal)

	noShipping := strings.Join(g.InvoiceSegments(Invoice{
		InvoiceNumber: "1",
		InvoiceDate:   "20250115",
		Lines:         []LineItem{{Quantity: 1, UnitPrice: dec("5.00")}},
	}), "")
	assert.NotContains(t, noShipping, "Freight Charges")

	withShipping := strings.Join(g.InvoiceSegments(Invoice{
		InvoiceNumber: "1",
		InvoiceDate:   "20250115",
		Lines:         []LineItem{{Quantity: 1, UnitPrice: dec("5.00"), Shipping: dec("12.50")}},
	}), "")
	assert.Equal(t, 1, strings.Count(withShipping, "ALC+C++++DL::28:Freight Charges'"))
	assert.Contains(t, withShipping, "MOA+8:12.50'")
}

func TestInvoiceSegments_TaxPolicies(t *testing.T) {
	lines := []LineItem{{Quantity: 1, UnitPrice: dec("10.00"), TaxAmount: dec("0.60"), TaxRate: "6"}}

	net := strings.Join(testGenerator(TaxInNetTotal).InvoiceSegments(Invoice{
		InvoiceNumber: "1", InvoiceDate: "20250115", Lines: lines,
	}), "")
	// gross 10.00, net 10.60, line tax reported both per line and in MOA+176
	assert.Contains(t, net, "MOA+9:10.00'")
	assert.Contains(t, net, "MOA+79:10.60'")
	assert.Contains(t, net, "MOA+176:0.60'")
	assert.Contains(t, net, "TAX+7+VAT+++:::6'")
	assert.Contains(t, net, "MOA+124:0.60'")
	assert.NotContains(t, net, "Sales Tax")

	charge := strings.Join(testGenerator(TaxAsCharge).InvoiceSegments(Invoice{
		InvoiceNumber: "1",
		InvoiceDate:   "20250115",
		HeaderTax:     dec("0.60"),
		HeaderTotal:   dec("10.60"),
		Lines:         []LineItem{{Quantity: 1, UnitPrice: dec("10.00")}},
	}), "")
	assert.Contains(t, charge, "ALC+C++++TX::28:Sales Tax'")
	assert.Contains(t, charge, "MOA+8:0.60'")
	assert.Contains(t, charge, "MOA+79:10.60'")
	assert.NotContains(t, charge, "MOA+176:")
}

func TestInvoiceSegments_DiscountsReduceNetTotal(t *testing.T) {
	joined := strings.Join(testGenerator(TaxInNetTotal).InvoiceSegments(Invoice{
		InvoiceNumber: "1",
		InvoiceDate:   "20250115",
		Lines: []LineItem{{
			Quantity:  2,
			UnitPrice: dec("10.00"),
			Discounts: dec("-5.00"),
			TaxAmount: dec("0.50"),
			TaxRate:   "6",
		}},
	}), "")

	// gross 20.00; net folds the negative discount and the tax in
	assert.Contains(t, joined, "MOA+9:20.00'")
	assert.Contains(t, joined, "MOA+79:15.50'")
	assert.Contains(t, joined, "MOA+176:0.50'")
}

func TestInvoiceSegments_DefectiveLineLogsOnce(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	invoices := []Invoice{{
		InvoiceNumber: "1",
		InvoiceDate:   "20250115",
		Lines:         []LineItem{{Quantity: 0, UnitPrice: dec("5.00")}},
	}}
	testGenerator(TaxInNetTotal).Generate(invoices)

	assert.Equal(t, 1, strings.Count(buf.String(), "quantity 0 defaulted to 1"))
	// The caller's invoice is left as read from the source.
	assert.Equal(t, 0, invoices[0].Lines[0].Quantity)
}

func TestInvoiceSegments_ControlCounts(t *testing.T) {
	segs := testGenerator(TaxInNetTotal).InvoiceSegments(Invoice{
		InvoiceNumber: "1",
		InvoiceDate:   "20250115",
		Lines: []LineItem{
			{Quantity: 2, UnitPrice: dec("9.99")},
			{Quantity: 3, UnitPrice: dec("1.00")},
		},
	})

	joined := strings.Join(segs, "")
	assert.Contains(t, joined, "CNT+1:5'")
	assert.Contains(t, joined, "CNT+2:2'")
	// UNT counts every segment of the message including itself.
	assert.Contains(t, joined, fmt.Sprintf("UNT+%d+1'", len(segs)))
}

func TestInvoiceSegments_DefaultsBadQuantityAndPrice(t *testing.T) {
	joined := strings.Join(testGenerator(TaxInNetTotal).InvoiceSegments(Invoice{
		InvoiceNumber: "1",
		InvoiceDate:   "20250115",
		Lines:         []LineItem{{ItemID: "X", Quantity: 0, UnitPrice: dec("-3.00")}},
	}), "")

	assert.Contains(t, joined, "QTY+47:1'")
	assert.Contains(t, joined, "MOA+203:0.00'")
	assert.Contains(t, joined, "PRI+AAA:0.00'")
	assert.Contains(t, joined, "RFF+SLI:0'")
}

func TestInvoiceSegments_OptionalLineReferences(t *testing.T) {
	joined := strings.Join(testGenerator(TaxInNetTotal).InvoiceSegments(Invoice{
		InvoiceNumber: "1",
		InvoiceDate:   "20250115",
		Lines: []LineItem{{
			Quantity: 1, UnitPrice: dec("5.00"),
			POLRef: "POL-123456", SLIRef: "42",
		}},
	}), "")

	assert.Contains(t, joined, "RFF+LI:POL-123456'")
	assert.Contains(t, joined, "RFF+SLI:42'")
}

func TestSplitTitle(t *testing.T) {
	word50 := strings.Repeat("X", 50)

	tests := []struct {
		name  string
		title string
		want  []string
	}{
		{"empty", "", []string{""}},
		{"len 34", strings.Repeat("A", 34), []string{strings.Repeat("A", 34)}},
		{"len 35", strings.Repeat("A", 35), []string{strings.Repeat("A", 35)}},
		{"len 36 two words", strings.Repeat("A", 20) + " " + strings.Repeat("B", 15), []string{strings.Repeat("A", 20), strings.Repeat("B", 15)}},
		{"single word no spaces", word50, []string{word50[:35], word50[35:]}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitTitle(tt.title, imdMaxLen))
		})
	}
}

func TestSplitTitle_LengthInvariant(t *testing.T) {
	titles := []string{
		"SHORT",
		"A VERY LONG TITLE THAT EXCEEDS THIRTY FIVE CHARACTERS EASILY",
		strings.Repeat("WORD ", 14), // 70 chars incl trailing space
	}

	for _, title := range titles {
		title = strings.TrimSpace(title)
		chunks := splitTitle(title, imdMaxLen)
		for _, chunk := range chunks {
			assert.LessOrEqual(t, len(chunk), imdMaxLen)
		}
		assert.Equal(t, title, strings.Join(chunks, " "))
	}
}

func TestSplitTitle_EmitsMultipleIMDSegments(t *testing.T) {
	joined := strings.Join(testGenerator(TaxInNetTotal).InvoiceSegments(Invoice{
		InvoiceNumber: "1",
		InvoiceDate:   "20250115",
		Lines: []LineItem{{
			Title:    "A very long title that exceeds thirty five characters easily",
			Author:   "Smith",
			Quantity: 2, UnitPrice: dec("9.99"),
		}},
	}), "")

	assert.Contains(t, joined, "IMD+L+010+:::SMITH'")
	assert.GreaterOrEqual(t, strings.Count(joined, "IMD+L+050+:::"), 2)
}

func TestComputeTotals_MoneyExactTo2dp(t *testing.T) {
	// 0.1+0.2 style inputs must not drift.
	totals := Invoice{
		InvoiceNumber: "1",
		Lines: []LineItem{
			{Quantity: 3, UnitPrice: dec("0.10")},
			{Quantity: 1, UnitPrice: dec("0.20")},
		},
	}.ComputeTotals(TaxInNetTotal)

	assert.Equal(t, "0.50", totals.Gross.StringFixed(2))
	assert.Equal(t, "0.50", totals.Net.StringFixed(2))
	assert.Equal(t, 4, totals.Quantity)
	assert.Equal(t, 2, totals.LineCount)
}
