// Package report summarizes vendor PDF invoices (GOBI, EBSCO) into a CSV
// the acquisitions staff reconcile against the ledger.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Entry is one summarized invoice.
type Entry struct {
	Filename      string
	InvoiceNumber string
	InvoiceDate   string
	Vendor        string
	POLFunds      string
	Total         string
}

var (
	gobiPOLPattern      = regexp.MustCompile(`(POL-[0-9]{6}).*[0-9]{13} ([A-Z]+).*([0-9]+\.[0-9]{2})`)
	gobiTotalPattern    = regexp.MustCompile(`Total US.*\$(.*)`)
	gobiTotalAlt        = regexp.MustCompile(`Total USD(.*)`)
	ebscoInvoicePattern = regexp.MustCompile(`Invoice No\.?\s*([0-9]+)`)
	ebscoTotalPattern   = regexp.MustCompile(`TOTAL\s+\$?([\d,]+\.\d{2})`)
	ebscoDatePattern    = regexp.MustCompile(`(\d{2}/\d{2}/\d{2,4})`)
)

// DetectVendor decides which extraction applies based on the document
// text. Unknown layouts return "".
func DetectVendor(rows []string) string {
	text := strings.Join(rows, "\n")
	switch {
	case strings.Contains(text, "GOBI") || strings.Contains(text, "POL-"):
		return "gobi-mills"
	case strings.Contains(text, "EBSCO") || strings.Contains(text, "ANNUAL RENEWAL LIST"):
		return "ebsco"
	default:
		return ""
	}
}

// ExtractGOBI pulls the invoice summary from a GOBI invoice. The invoice
// number and date ride in the filename (vendor-MMDDYY-number.pdf).
func ExtractGOBI(rows []string, filename string) Entry {
	base := filepath.Base(filename)
	text := strings.Join(rows, "\n")

	entry := Entry{
		Filename: base,
		Vendor:   "gobi-mills",
		Total:    "0",
	}

	parts := strings.Split(strings.TrimSuffix(base, filepath.Ext(base)), "-")
	if len(parts) > 2 {
		entry.InvoiceNumber = parts[2]
	}
	if len(parts) > 1 {
		entry.InvoiceDate = reformatFilenameDate(parts[1])
	}

	var funds []string
	for _, m := range gobiPOLPattern.FindAllStringSubmatch(text, -1) {
		funds = append(funds, fmt.Sprintf("%s (%s)", m[1], m[2]))
	}
	entry.POLFunds = strings.Join(funds, " ")

	if m := gobiTotalPattern.FindStringSubmatch(text); m != nil {
		entry.Total = strings.ReplaceAll(m[1], " ", "")
	} else if m := gobiTotalAlt.FindStringSubmatch(text); m != nil {
		entry.Total = strings.ReplaceAll(m[1], " ", "")
	} else {
		log.Printf("WARN no total price found for GOBI invoice %s", entry.InvoiceNumber)
	}

	return entry
}

// ExtractEBSCO pulls the invoice summary from an EBSCO invoice or annual
// renewal list.
func ExtractEBSCO(rows []string, filename string) Entry {
	text := strings.Join(rows, "\n")

	entry := Entry{
		Filename: filepath.Base(filename),
		Vendor:   "ebsco",
		Total:    "0",
	}

	if m := ebscoInvoicePattern.FindStringSubmatch(text); m != nil {
		entry.InvoiceNumber = m[1]
	}
	if m := ebscoDatePattern.FindStringSubmatch(text); m != nil {
		entry.InvoiceDate = m[1]
	}
	if m := ebscoTotalPattern.FindStringSubmatch(text); m != nil {
		entry.Total = strings.ReplaceAll(m[1], ",", "")
	} else {
		log.Printf("WARN no total found for EBSCO document %s", entry.Filename)
	}

	return entry
}

// Extract dispatches on the detected vendor. ok is false when the layout
// is not recognized.
func Extract(rows []string, filename string) (Entry, bool) {
	switch DetectVendor(rows) {
	case "gobi-mills":
		return ExtractGOBI(rows, filename), true
	case "ebsco":
		return ExtractEBSCO(rows, filename), true
	default:
		return Entry{}, false
	}
}

// WriteCSV renders the entries with a header row.
func WriteCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"filename", "invoice_number", "invoice_date", "vendor", "pol_fund", "total"}); err != nil {
		return err
	}
	for _, e := range entries {
		if err := cw.Write([]string{e.Filename, e.InvoiceNumber, e.InvoiceDate, e.Vendor, e.POLFunds, e.Total}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// reformatFilenameDate turns the MMDDYY date embedded in GOBI filenames
// into MM/DD/YY, leaving unparseable values alone.
func reformatFilenameDate(raw string) string {
	parsed, err := time.Parse("010206", raw)
	if err != nil {
		log.Printf("WARN could not parse date %q from filename", raw)
		return raw
	}
	return parsed.Format("01/02/06")
}
