package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veilrep/repledger/internal/he"
	"github.com/veilrep/repledger/internal/model"
)

// encryptCounters builds the ciphertext triple for a submission using the
// service's public key.
func encryptCounters(publicKeyPath string, posts, replies, likes uint32) (*model.Ciphertext, *model.Ciphertext, *model.Ciphertext, error) {
	pkBytes, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("read public key %s: %w", publicKeyPath, err)
	}
	arith, err := he.NewArithmeticFromPublicKey(presetFlag, pkBytes)
	if err != nil {
		return nil, nil, nil, err
	}
	p, err := arith.EncryptConstant(posts)
	if err != nil {
		return nil, nil, nil, err
	}
	r, err := arith.EncryptConstant(replies)
	if err != nil {
		return nil, nil, nil, err
	}
	l, err := arith.EncryptConstant(likes)
	if err != nil {
		return nil, nil, nil, err
	}
	return p, r, l, nil
}

func init() {
	activitiesCmd := &cobra.Command{Use: "activities", Short: "Encrypted activity operations"}

	// submit
	var userID uint64
	var posts, replies, likes uint32
	var publicKey string
	submitCmd := &cobra.Command{
		Use:   "submit",
		Short: "Encrypt counters locally and submit an activity record",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, r, l, err := encryptCounters(publicKey, posts, replies, likes)
			if err != nil {
				return err
			}
			payload := map[string]interface{}{
				"userId":  userID,
				"posts":   p,
				"replies": r,
				"likes":   l,
			}
			data, err := doPostJSON(fmt.Sprintf("%s/api/activities", apiFlag), payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	submitCmd.Flags().Uint64VarP(&userID, "user", "u", 0, "User ID (required)")
	submitCmd.Flags().Uint32Var(&posts, "posts", 0, "Post count")
	submitCmd.Flags().Uint32Var(&replies, "replies", 0, "Reply count")
	submitCmd.Flags().Uint32Var(&likes, "likes", 0, "Like count")
	submitCmd.Flags().StringVarP(&publicKey, "public-key", "k", "keys/bfv.pub", "BFV public key file")
	_ = submitCmd.MarkFlagRequired("user")
	activitiesCmd.AddCommand(submitCmd)

	// get
	getCmd := &cobra.Command{
		Use:   "get ACTIVITY_ID",
		Short: "Get an activity record by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doGet(fmt.Sprintf("%s/api/activities/%s", apiFlag, args[0]))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	activitiesCmd.AddCommand(getCmd)

	// list
	listCmd := &cobra.Command{
		Use:   "list USER_ID",
		Short: "List a user's activity records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doGet(fmt.Sprintf("%s/api/users/%s/activities", apiFlag, args[0]))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	activitiesCmd.AddCommand(listCmd)

	rootCmd.AddCommand(activitiesCmd)
}
