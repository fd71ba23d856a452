package cmd

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Embedded default configuration; a .acqedi.yaml in the working directory
// or home directory overrides it.
const defaultConfigYAML = `
edifact:
  sender_id: "1694510101"
  sender_qualifier: 31B
  receiver_id: "3333159"
  receiver_qualifier: 31B
  currency: USD
  vendor_account: amazon
  fund_ref: 7015-10
ils:
  base_url: https://api-na.hosted.exlibrisgroup.com/almaws/v1
  api_key: ""
`

var (
	cfgFile string
	verbose bool
	rootCmd = &cobra.Command{
		Use:   "acqedi [filename]",
		Short: "Library acquisitions EDI toolkit",
		Long: `acqedi converts vendor invoice exports (Amazon Business CSV, Workday
supplier-invoice workbooks) into EDIFACT INVOIC files for ILS import,
parses EDI streams back into structured invoices, and runs the thin
ILS operations around that flow.`,
		Args: cobra.ArbitraryArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) == 1 {
				runConvert(convertCmd, args)
				return
			}
			cmd.Help()
		},
	}
)

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initLogging)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default is ./.acqedi.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

func initLogging() {
	if !verbose {
		log.SetOutput(io.Discard)
	} else {
		log.SetFlags(log.Ltime | log.Lmsgprefix)
		log.SetPrefix("INFO: ")
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.SetConfigName(".acqedi")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if err := viper.ReadConfig(bytes.NewBufferString(defaultConfigYAML)); err != nil {
				fmt.Printf("Error loading embedded configuration: %v\n", err)
				os.Exit(1)
			}
		} else {
			fmt.Printf("Error reading config file: %v\n", err)
			os.Exit(1)
		}
	}
}
