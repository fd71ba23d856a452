package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

var polinesCmd = &cobra.Command{
	Use:   "polines",
	Short: "Manage PO lines in the ILS",
}

var polinesCreateCmd = &cobra.Command{
	Use:   "create [folder]",
	Short: "Create PO lines from a folder of JSON bodies",
	Long: `Posts each *.json file in the folder to the ILS as a new PO line.
Created PO-line numbers are printed and appended to
created_pol_numbers.txt in the same folder, so an interrupted batch can
be reconciled.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		folder := args[0]
		matches, err := filepath.Glob(filepath.Join(folder, "*.json"))
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if len(matches) == 0 {
			fmt.Printf("No JSON files found in %s\n", folder)
			os.Exit(1)
		}

		client := ilsClient()
		ctx := context.Background()

		record, err := os.OpenFile(filepath.Join(folder, "created_pol_numbers.txt"),
			os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		defer record.Close()

		created, failed := 0, 0
		for i, path := range matches {
			body, err := os.ReadFile(path)
			if err != nil {
				log.Printf("WARN skipping %s: %v", path, err)
				failed++
				continue
			}

			pol, err := client.CreatePOLine(ctx, json.RawMessage(body))
			if err != nil {
				fmt.Printf("  %s: FAILED: %v\n", filepath.Base(path), err)
				failed++
				continue
			}
			created++

			line := pol.Number
			if mms := pol.MMSIDValue(); mms != "" {
				line += " (MMS ID " + mms + ")"
			}
			fmt.Printf("  %s: created %s\n", filepath.Base(path), line)
			fmt.Fprintln(record, pol.Number)

			// Pace the batch so the API's per-second limit is never hit.
			if i < len(matches)-1 {
				time.Sleep(500 * time.Millisecond)
			}
		}

		fmt.Printf("Done: %d created, %d failed\n", created, failed)
		if failed > 0 {
			os.Exit(1)
		}
	},
}

func init() {
	polinesCmd.AddCommand(polinesCreateCmd)
	rootCmd.AddCommand(polinesCmd)
}
