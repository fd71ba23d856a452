package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/libops/acqedi/edifact"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file.edi]",
	Short: "Parse an EDIFACT stream back into invoices",
	Long: `Parses an EDIFACT INVOIC file and prints the reconstructed invoices
as JSON, keyed by message reference in stream order.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		data, err := os.ReadFile(args[0])
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		result := edifact.Parse(string(data))

		asJSON, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Printf("Error encoding result: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(asJSON))
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
}
