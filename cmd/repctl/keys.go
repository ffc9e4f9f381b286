package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/veilrep/repledger/internal/he"
)

func init() {
	keysCmd := &cobra.Command{Use: "keys", Short: "Key management for the encryption context"}

	var outDir string
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate BFV and oracle signing keys",
		Long: `Generates the full key material for one deployment:

  bfv.pub     BFV public key, given to the ledger service
  bfv.sec     BFV secret key, given only to the decryption oracle
  oracle.key  ed25519 signing key (hex), given only to the oracle
  oracle.pub  ed25519 verify key (hex), set as REPLEDGER_ORACLE_VERIFY_KEY`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(outDir, 0o700); err != nil {
				return err
			}
			pair, err := he.GenerateKeys(presetFlag)
			if err != nil {
				return err
			}
			verifyKey, signKey, err := ed25519.GenerateKey(rand.Reader)
			if err != nil {
				return err
			}

			files := map[string][]byte{
				"bfv.pub":    pair.Public,
				"bfv.sec":    pair.Secret,
				"oracle.key": []byte(hex.EncodeToString(signKey)),
				"oracle.pub": []byte(hex.EncodeToString(verifyKey)),
			}
			for name, data := range files {
				if err := os.WriteFile(filepath.Join(outDir, name), data, 0o600); err != nil {
					return err
				}
			}
			fmt.Printf("wrote %s/{bfv.pub,bfv.sec,oracle.key,oracle.pub}\n", outDir)
			fmt.Printf("export REPLEDGER_ORACLE_VERIFY_KEY=%s\n", hex.EncodeToString(verifyKey))
			return nil
		},
	}
	generateCmd.Flags().StringVarP(&outDir, "out", "o", "keys", "Output directory")
	keysCmd.AddCommand(generateCmd)

	rootCmd.AddCommand(keysCmd)
}
