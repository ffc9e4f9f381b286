// Command repctl is a CLI client for the reputation ledger REST API plus
// local key management for the encryption context.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	apiFlag    string
	presetFlag string
	rootCmd    = &cobra.Command{
		Use:   "repctl",
		Short: "CLI client for the reputation ledger REST API",
	}
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&apiFlag, "api", "a", "http://localhost:8080", "Ledger service base URL")
	rootCmd.PersistentFlags().StringVarP(&presetFlag, "preset", "p", "PN12QP109", "BFV parameter preset")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
