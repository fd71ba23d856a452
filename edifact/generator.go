package edifact

import (
	"fmt"
	"strings"
	"time"
)

// TaxPolicy selects how invoice-level tax lands in the summary section.
// Which one is correct is a property of the upstream data source, so the
// caller has to pick; there is no default that works for both.
type TaxPolicy int

const (
	// TaxInNetTotal folds line tax into MOA+79 and reports it in MOA+176.
	// Used for Amazon CSV invoices, where tax is tracked per line.
	TaxInNetTotal TaxPolicy = iota
	// TaxAsCharge emits invoice-level tax as an ALC+C/MOA+8 charge pair and
	// takes the net total from the source's own header figure when present.
	// Used for Workday workbook invoices.
	TaxAsCharge
)

func (p TaxPolicy) String() string {
	if p == TaxAsCharge {
		return "charge"
	}
	return "net"
}

// imdMaxLen is the widest description an IMD segment carries before the
// title spills into additional segments.
const imdMaxLen = 35

// Config carries the interchange identity and emission policy for one run.
// Zero-value fields fall back to the partner defaults below.
type Config struct {
	SenderID          string
	SenderQualifier   string
	ReceiverID        string
	ReceiverQualifier string
	// InterchangeRef ties UNB to UNZ. Generated from Now when empty; tests
	// that need byte-identical output must set it.
	InterchangeRef string
	Currency       string
	VendorAccount  string
	// FundRef is the RFF+API fallback for invoices that carry none.
	FundRef   string
	TaxPolicy TaxPolicy
	// Now supplies the clock for UNB date/time and the generated
	// interchange reference. Defaults to time.Now.
	Now func() time.Time
}

// Generator emits one EDIFACT interchange per Generate call.
type Generator struct {
	cfg Config
	ref string
}

// NewGenerator fills partner defaults and fixes the interchange reference
// for the lifetime of the generator.
func NewGenerator(cfg Config) *Generator {
	if cfg.SenderID == "" {
		cfg.SenderID = "1694510101"
	}
	if cfg.SenderQualifier == "" {
		cfg.SenderQualifier = "31B"
	}
	if cfg.ReceiverID == "" {
		cfg.ReceiverID = "3333159"
	}
	if cfg.ReceiverQualifier == "" {
		cfg.ReceiverQualifier = "31B"
	}
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	if cfg.VendorAccount == "" {
		cfg.VendorAccount = "amazon"
	}
	if cfg.FundRef == "" {
		cfg.FundRef = "7015-10"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	ref := cfg.InterchangeRef
	if ref == "" {
		ref = interchangeRef(cfg.Now())
	}
	return &Generator{cfg: cfg, ref: ref}
}

// InterchangeRef returns the reference this generator stamps on UNB/UNZ.
func (g *Generator) InterchangeRef() string {
	return g.ref
}

// interchangeRef derives a reference from the clock: MMDDHHMMSS plus
// milliseconds, matching what the receiving ILS profile expects.
func interchangeRef(t time.Time) string {
	return t.Format("0102150405") + fmt.Sprintf("%03d", t.Nanosecond()/1e6)
}

// Generate renders the invoices as a single interchange. Segments are
// written back to back with no separator beyond the ' terminator. Data
// defects never abort the run; they are defaulted and logged.
func (g *Generator) Generate(invoices []Invoice) string {
	var b strings.Builder
	b.WriteString(g.Header())
	for _, inv := range invoices {
		for _, seg := range g.InvoiceSegments(inv) {
			b.WriteString(seg)
		}
	}
	b.WriteString(g.Trailer(len(invoices)))
	return b.String()
}

// Header renders the UNA service string advice and the UNB interchange
// header.
func (g *Generator) Header() string {
	now := g.cfg.Now()
	return fmt.Sprintf("UNA:+.? 'UNB+UNOC:2+%s:%s+%s:%s+%s:%s+%s'",
		g.cfg.SenderID, g.cfg.SenderQualifier,
		g.cfg.ReceiverID, g.cfg.ReceiverQualifier,
		now.Format("060102"), now.Format("1504"), g.ref)
}

// Trailer renders UNZ with the message count.
func (g *Generator) Trailer(messageCount int) string {
	return fmt.Sprintf("UNZ+%d+%s'", messageCount, g.ref)
}

// InvoiceSegments renders one complete UNH..UNT message. An invoice with no
// lines still produces a valid shell with zero totals. Lines are normalized
// once here; the totals and the line segments both see the same data.
func (g *Generator) InvoiceSegments(inv Invoice) []string {
	inv = inv.normalized()

	var segs []string

	msgRef := inv.InvoiceNumber
	if msgRef == "" {
		msgRef = "1"
	}
	segs = append(segs, fmt.Sprintf("UNH+%s+INVOIC:D:96A:UN:EAN008'", msgRef))
	segs = append(segs, fmt.Sprintf("BGM+380+%s'", msgRef))

	invoiceDate := inv.InvoiceDate
	if invoiceDate == "" {
		invoiceDate = g.cfg.Now().Format("20060102")
	}
	segs = append(segs, fmt.Sprintf("DTM+137:%s:102'", invoiceDate))
	if inv.DueDate != "" && inv.DueDate != invoiceDate {
		segs = append(segs, fmt.Sprintf("DTM+13:%s:102'", inv.DueDate))
	}

	fundRef := inv.FundRef
	if fundRef == "" {
		fundRef = g.cfg.FundRef
	}
	segs = append(segs, fmt.Sprintf("RFF+API:%s'", fundRef))
	segs = append(segs, fmt.Sprintf("RFF+VA:%s'", g.cfg.VendorAccount))

	currency := inv.Currency
	if currency == "" {
		currency = g.cfg.Currency
	}
	segs = append(segs, fmt.Sprintf("CUX+2:%s:4'", currency))

	totals := inv.ComputeTotals(g.cfg.TaxPolicy)

	if totals.Shipping.IsPositive() {
		segs = append(segs, "ALC+C++++DL::28:Freight Charges'")
		segs = append(segs, fmt.Sprintf("MOA+8:%s'", totals.Shipping.StringFixed(2)))
	}
	if g.cfg.TaxPolicy == TaxAsCharge && totals.Tax.IsPositive() {
		segs = append(segs, "ALC+C++++TX::28:Sales Tax'")
		segs = append(segs, fmt.Sprintf("MOA+8:%s'", totals.Tax.StringFixed(2)))
	}

	for i, li := range inv.Lines {
		segs = append(segs, g.lineSegments(li, i+1)...)
	}

	segs = append(segs, "UNS+S'")
	segs = append(segs, fmt.Sprintf("CNT+1:%d'", totals.Quantity))
	segs = append(segs, fmt.Sprintf("CNT+2:%d'", totals.LineCount))
	segs = append(segs, fmt.Sprintf("MOA+9:%s'", totals.Gross.StringFixed(2)))
	segs = append(segs, fmt.Sprintf("MOA+79:%s'", totals.Net.StringFixed(2)))
	if g.cfg.TaxPolicy == TaxInNetTotal && totals.Tax.IsPositive() {
		segs = append(segs, fmt.Sprintf("MOA+176:%s'", totals.Tax.StringFixed(2)))
	}

	// Segment count includes the UNT itself.
	segs = append(segs, fmt.Sprintf("UNT+%d+%s'", len(segs)+1, msgRef))
	return segs
}

func (g *Generator) lineSegments(li LineItem, lineNum int) []string {
	var segs []string
	segs = append(segs, fmt.Sprintf("LIN+%d++%s:EN'", lineNum, li.ItemID))

	if author := strings.ToUpper(li.Author); author != "" {
		segs = append(segs, fmt.Sprintf("IMD+L+010+:::%s'", author))
	}
	for _, chunk := range splitTitle(strings.ToUpper(li.Title), imdMaxLen) {
		segs = append(segs, fmt.Sprintf("IMD+L+050+:::%s'", chunk))
	}

	segs = append(segs, fmt.Sprintf("QTY+47:%d'", li.Quantity))
	segs = append(segs, fmt.Sprintf("MOA+203:%s'", li.LineTotal().StringFixed(2)))
	segs = append(segs, fmt.Sprintf("PRI+AAB:%s'", li.ListPrice.StringFixed(2)))
	segs = append(segs, fmt.Sprintf("PRI+AAA:%s'", li.UnitPrice.StringFixed(2)))

	if li.TaxRate != "" && li.TaxRate != "0" {
		segs = append(segs, fmt.Sprintf("TAX+7+VAT+++:::%s'", li.TaxRate))
		if li.TaxAmount.IsPositive() {
			segs = append(segs, fmt.Sprintf("MOA+124:%s'", li.TaxAmount.StringFixed(2)))
		}
	}

	if li.POLRef != "" {
		segs = append(segs, fmt.Sprintf("RFF+LI:%s'", li.POLRef))
	}
	segs = append(segs, fmt.Sprintf("RFF+SLI:%s'", li.SLIRef))
	return segs
}

// splitTitle packs a title into word-bounded chunks no wider than max.
// Only a chunk-leading word is hard-split at the boundary: an oversized
// word that follows accumulated words is emitted whole, and a hard-split
// remainder is carried forward unsplit. Existing ILS import profiles
// depend on this exact chunking. The empty title yields one empty chunk
// so the IMD segment is still emitted.
func splitTitle(title string, max int) []string {
	if len(title) <= max {
		return []string{title}
	}

	var chunks []string
	current := ""
	for _, word := range strings.Fields(title) {
		switch {
		case current == "" && len(word) <= max:
			current = word
		case current != "" && len(current)+1+len(word) <= max:
			current += " " + word
		default:
			if current != "" {
				chunks = append(chunks, current)
				current = word
			} else {
				chunks = append(chunks, word[:max])
				current = word[max:]
			}
		}
	}
	if current != "" {
		chunks = append(chunks, current)
	}
	return chunks
}
