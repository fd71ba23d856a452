// Package common holds parsing helpers shared by the vendor ingest
// packages. Everything here is best effort: a value that cannot be parsed
// turns into a safe default so one dirty cell never sinks a batch.
package common

import (
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var nonNumericRegex = regexp.MustCompile(`[^0-9.\-]`)

// Amount parses a monetary cell into a decimal, stripping currency symbols,
// commas and whitespace. The sign survives: discount cells arrive negative
// and must stay negative. Unparseable or empty values come back as zero;
// the substitution is logged when the cell actually held something.
func Amount(text string) decimal.Decimal {
	clean := nonNumericRegex.ReplaceAllString(text, "")
	if clean == "" {
		if strings.TrimSpace(text) != "" && !strings.EqualFold(strings.TrimSpace(text), "nan") {
			log.Printf("WARN amount %q unparseable, defaulting to 0", text)
		}
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(clean)
	if err != nil {
		log.Printf("WARN amount %q unparseable, defaulting to 0", text)
		return decimal.Zero
	}
	return amount
}

// Quantity parses a quantity cell, defaulting to 1. Fractional quantities
// are truncated.
func Quantity(text string) int {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 1
	}
	if n, err := strconv.Atoi(trimmed); err == nil && n > 0 {
		return n
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil && f >= 1 {
		return int(f)
	}
	log.Printf("WARN quantity %q unparseable, defaulting to 1", text)
	return 1
}

// dateFormats covers what the vendor exports have been seen to emit.
var dateFormats = []string{
	"1/2/2006",
	"2006-01-02",
	"1-2-2006",
	"2006/01/02",
	"January 2, 2006",
	"Jan 2, 2006",
	"20060102",
	"1/2/06",
	"2006-01-02 15:04:05",
}

// NormalizeDate renders a date cell as YYYYMMDD. Blank, suspicious (epoch
// era) or unparseable values fall back to today, logged for the operator.
func NormalizeDate(value string) string {
	return normalizeDate(value, time.Now())
}

func normalizeDate(value string, now time.Time) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return now.Format("20060102")
	}

	// Epoch-era dates mean the spreadsheet lost its date formatting.
	if strings.Contains(value, "1969") || strings.Contains(value, "1970") {
		log.Printf("WARN suspicious date %q, using current date", value)
		return now.Format("20060102")
	}

	for _, layout := range dateFormats {
		parsed, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		if parsed.Year() < 2000 || parsed.Year() > 2030 {
			continue
		}
		return parsed.Format("20060102")
	}

	log.Printf("WARN could not parse date %q, using current date", value)
	return now.Format("20060102")
}

// ExtractAuthor pulls an author out of a combined title cell using the
// patterns the vendors actually produce: "Title by Author" and
// "AUTHOR - Title". Returns "" when no pattern matches.
func ExtractAuthor(title string) string {
	if idx := strings.LastIndex(strings.ToLower(title), " by "); idx >= 0 {
		author := strings.TrimSpace(title[idx+len(" by "):])
		if author != "" {
			return author
		}
	}

	if parts := strings.SplitN(title, " - ", 2); len(parts) == 2 {
		head := strings.TrimSpace(parts[0])
		if head != "" && head == strings.ToUpper(head) && strings.ContainsAny(head, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
			return head
		}
	}

	return ""
}

// CleanTitle removes an extracted author from the title cell.
func CleanTitle(title, author string) string {
	if author == "" || !strings.Contains(title, author) {
		return NormalizeSpace(title)
	}
	title = strings.ReplaceAll(title, " by "+author, "")
	title = strings.ReplaceAll(title, author+" - ", "")
	return NormalizeSpace(title)
}

// NormalizeSpace collapses runs of whitespace into single spaces.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
