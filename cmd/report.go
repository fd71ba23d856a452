package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/libops/acqedi/pdftext"
	"github.com/libops/acqedi/report"
)

var reportOutput string

var reportCmd = &cobra.Command{
	Use:   "report [folder]",
	Short: "Summarize vendor PDF invoices in a folder to CSV",
	Long: `Scans a folder for PDF invoices, extracts the invoice number, date,
PO line funds and total from each recognized layout (GOBI, EBSCO) and
writes one CSV row per invoice. Unrecognized PDFs are skipped with a
warning.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		folder := args[0]
		matches, err := filepath.Glob(filepath.Join(folder, "*.pdf"))
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if len(matches) == 0 {
			fmt.Printf("No PDF files found in %s\n", folder)
			os.Exit(1)
		}

		var entries []report.Entry
		for _, path := range matches {
			rows, err := pdftext.RowsFromFile(path)
			if err != nil {
				log.Printf("WARN skipping %s: %v", path, err)
				continue
			}
			entry, ok := report.Extract(rows, path)
			if !ok {
				log.Printf("WARN skipping %s: unrecognized invoice layout", path)
				continue
			}
			entries = append(entries, entry)
			log.Printf("INFO summarized %s (%s)", filepath.Base(path), entry.Vendor)
		}

		if len(entries) == 0 {
			fmt.Println("No recognized invoices to report")
			os.Exit(1)
		}

		output := reportOutput
		if output == "" {
			output = fmt.Sprintf("invoice_report_%s.csv", time.Now().Format("2006-01-02"))
		}
		out, err := os.Create(output)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		defer out.Close()

		if err := report.WriteCSV(out, entries); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		skipped := len(matches) - len(entries)
		summary := fmt.Sprintf("Wrote %d invoice(s) to %s", len(entries), output)
		if skipped > 0 {
			summary += fmt.Sprintf(" (%d skipped)", skipped)
		}
		fmt.Println(summary)
	},
}

func init() {
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "output CSV path (default invoice_report_<date>.csv)")
	rootCmd.AddCommand(reportCmd)
}
