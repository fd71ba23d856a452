package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/libops/acqedi/edifact"
	"github.com/libops/acqedi/ingest/amazon"
	"github.com/libops/acqedi/ingest/workday"
)

var convertCmd = &cobra.Command{
	Use:   "convert [file]",
	Short: "Convert a vendor invoice export to EDIFACT",
	Long: `Converts a vendor invoice export to an EDIFACT INVOIC file written
next to the input. CSV files run through the Amazon Business pipeline,
XLSX files through the Workday supplier-invoice pipeline.`,
	Args: cobra.ExactArgs(1),
	Run:  runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) {
	path := args[0]

	invoices, policy, err := readInvoices(path)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if len(invoices) == 0 {
		fmt.Printf("No invoice data found in %s\n", path)
		os.Exit(1)
	}

	printSummary(invoices)

	gen := edifact.NewGenerator(generatorConfig(policy))
	stream := gen.Generate(invoices)

	outPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".edi"
	if err := os.WriteFile(outPath, []byte(stream), 0644); err != nil {
		fmt.Printf("Error writing %s: %v\n", outPath, err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", outPath)
}

// readInvoices picks the ingest pipeline by extension. The tax policy
// travels with the source: Amazon tracks tax per line, Workday per
// invoice.
func readInvoices(path string) ([]edifact.Invoice, edifact.TaxPolicy, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		invoices, err := amazon.ReadFile(path)
		return invoices, edifact.TaxInNetTotal, err
	case ".xlsx":
		invoices, err := workday.ReadFile(path)
		return invoices, edifact.TaxAsCharge, err
	default:
		return nil, 0, fmt.Errorf("unsupported file type %q (want .csv or .xlsx)", filepath.Ext(path))
	}
}

func printSummary(invoices []edifact.Invoice) {
	fmt.Printf("Processing %d invoice(s):\n", len(invoices))
	totalLines := 0
	for _, inv := range invoices {
		totalLines += len(inv.Lines)
		fmt.Printf("  %s -> %d line item(s)\n", inv.InvoiceNumber, len(inv.Lines))
	}
	fmt.Printf("Total: %d invoices, %d line items\n", len(invoices), totalLines)
}

// generatorConfig assembles the interchange identity from configuration.
func generatorConfig(policy edifact.TaxPolicy) edifact.Config {
	return edifact.Config{
		SenderID:          viper.GetString("edifact.sender_id"),
		SenderQualifier:   viper.GetString("edifact.sender_qualifier"),
		ReceiverID:        viper.GetString("edifact.receiver_id"),
		ReceiverQualifier: viper.GetString("edifact.receiver_qualifier"),
		Currency:          viper.GetString("edifact.currency"),
		VendorAccount:     viper.GetString("edifact.vendor_account"),
		FundRef:           viper.GetString("edifact.fund_ref"),
		TaxPolicy:         policy,
	}
}
