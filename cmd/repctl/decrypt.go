package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	decryptCmd := &cobra.Command{Use: "decrypt", Short: "Decryption protocol operations"}

	requestCmd := &cobra.Command{
		Use:   "request USER_ID",
		Short: "Ask the oracle to decrypt a user's score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := fmt.Sprintf("%s/api/users/%s/decryption-requests", apiFlag, args[0])
			data, err := doPostJSON(url, nil)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	decryptCmd.AddCommand(requestCmd)

	rootCmd.AddCommand(decryptCmd)
}
