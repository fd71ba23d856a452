package edifact

import (
	"bytes"
	"encoding/json"
	"log"
	"strings"
)

// segTag is an EDIFACT segment tag. Tags outside the known set parse as a
// no-op, which keeps the parser forward compatible with producers that
// emit segments we do not model.
type segTag string

const (
	tagUNH segTag = "UNH"
	tagBGM segTag = "BGM"
	tagDTM segTag = "DTM"
	tagLIN segTag = "LIN"
	tagIMD segTag = "IMD"
	tagQTY segTag = "QTY"
	tagMOA segTag = "MOA"
)

// DTM and MOA qualifiers the parser acts on.
const (
	dtmInvoiceDate  = "137"
	dtmDueDate      = "13"
	moaLineAmount   = "203"
	moaInvoiceTotal = "9"
)

// ParsedLine is one reconstructed invoice line. Values stay as the strings
// found on the wire; no numeric reinterpretation happens here.
type ParsedLine struct {
	Number      string `json:"line"`
	ItemNumber  string `json:"item_number"`
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	Amount      string `json:"amount"`

	// description fragments accumulate across IMD segments and are joined
	// once the stream is consumed.
	fragments []string
}

// ParsedTotals holds the summary-section figures.
type ParsedTotals struct {
	InvoiceTotal string `json:"invoice_total,omitempty"`
}

// ParsedInvoice is one reconstructed INVOIC message.
type ParsedInvoice struct {
	InvoiceNumber string       `json:"invoice_number"`
	InvoiceDate   string       `json:"invoice_date"`
	DueDate       string       `json:"due_date,omitempty"`
	Lines         []ParsedLine `json:"lines"`
	Totals        ParsedTotals `json:"totals"`
}

// Line returns the parsed line with the given wire line number.
func (p *ParsedInvoice) Line(number string) (*ParsedLine, bool) {
	for i := range p.Lines {
		if p.Lines[i].Number == number {
			return &p.Lines[i], true
		}
	}
	return nil, false
}

// ParseResult maps message references to parsed invoices, preserving the
// order messages appeared in the stream. Two messages sharing a reference
// collide: the later one wins and keeps the earlier one's position.
type ParseResult struct {
	refs  []string
	byRef map[string]*ParsedInvoice
}

func newParseResult() *ParseResult {
	return &ParseResult{byRef: make(map[string]*ParsedInvoice)}
}

// Refs returns the message references in stream order.
func (r *ParseResult) Refs() []string {
	return r.refs
}

// Get returns the invoice parsed under ref.
func (r *ParseResult) Get(ref string) (*ParsedInvoice, bool) {
	inv, ok := r.byRef[ref]
	return inv, ok
}

// Len is the number of distinct messages parsed.
func (r *ParseResult) Len() int {
	return len(r.refs)
}

// MarshalJSON renders the result as a JSON object keyed by message
// reference, in stream order.
func (r *ParseResult) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, ref := range r.refs {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(ref)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(r.byRef[ref])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Parse reconstructs invoices from a raw EDIFACT stream. All parse state is
// local to the call, so concurrent parses are safe. Malformed segments are
// skipped, unknown tags ignored; a stream with no UNH yields an empty
// result. Parse never fails.
func Parse(stream string) *ParseResult {
	res := newParseResult()

	var cur *ParsedInvoice
	lineIdx := -1

	for _, raw := range strings.Split(stream, "'") {
		elements := splitElements(raw)
		tag := segTag(elements[0])

		switch tag {
		case tagUNH:
			if len(elements) < 2 || elements[1] == "" {
				continue
			}
			ref := elements[1]
			if _, exists := res.byRef[ref]; exists {
				log.Printf("WARN duplicate message reference %q, keeping the later message", ref)
			} else {
				res.refs = append(res.refs, ref)
			}
			cur = &ParsedInvoice{}
			res.byRef[ref] = cur
			lineIdx = -1

		case tagBGM:
			if cur != nil && len(elements) > 2 {
				cur.InvoiceNumber = elements[2]
			}

		case tagDTM:
			if cur == nil || len(elements) < 3 {
				continue
			}
			// The original importer let the first DTM win regardless of
			// qualifier; here the qualifier decides which date it is.
			switch elements[1] {
			case dtmInvoiceDate:
				cur.InvoiceDate = elements[2]
			case dtmDueDate:
				cur.DueDate = elements[2]
			default:
				if cur.InvoiceDate == "" {
					cur.InvoiceDate = elements[2]
				}
			}

		case tagLIN:
			if cur == nil || len(elements) < 2 {
				continue
			}
			line := ParsedLine{Number: elements[1]}
			if len(elements) > 3 {
				line.ItemNumber = elements[3]
			}
			cur.Lines = append(cur.Lines, line)
			lineIdx = len(cur.Lines) - 1

		case tagIMD:
			if cur == nil || lineIdx < 0 {
				continue
			}
			if len(elements) > 4 {
				frag := strings.TrimSpace(strings.Join(elements[4:], " "))
				cur.Lines[lineIdx].fragments = append(cur.Lines[lineIdx].fragments, frag)
			}

		case tagQTY:
			if cur != nil && lineIdx >= 0 && len(elements) > 2 {
				cur.Lines[lineIdx].Quantity = elements[2]
			}

		case tagMOA:
			if len(elements) < 3 {
				continue
			}
			switch elements[1] {
			case moaLineAmount:
				if cur != nil && lineIdx >= 0 {
					cur.Lines[lineIdx].Amount = elements[2]
				}
			case moaInvoiceTotal:
				if cur != nil {
					cur.Totals.InvoiceTotal = elements[2]
				}
			}
		}
	}

	for _, inv := range res.byRef {
		for i := range inv.Lines {
			inv.Lines[i].Description = strings.Join(inv.Lines[i].fragments, " ")
		}
	}
	return res
}

// splitElements flattens a segment into its elements, splitting on the
// composite and sub-element separators alike. Empty elements are kept so
// positions stay meaningful.
func splitElements(seg string) []string {
	var out []string
	start := 0
	for i := 0; i < len(seg); i++ {
		if seg[i] == '+' || seg[i] == ':' {
			out = append(out, seg[start:i])
			start = i + 1
		}
	}
	return append(out, seg[start:])
}
