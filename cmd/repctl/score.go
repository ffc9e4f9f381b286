package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

func init() {
	scoreCmd := &cobra.Command{Use: "score", Short: "Reputation score operations"}

	// compute
	computeCmd := &cobra.Command{
		Use:   "compute ACTIVITY_ID",
		Short: "Compute the weighted score of one activity record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doPostJSON(fmt.Sprintf("%s/api/activities/%s/compute", apiFlag, args[0]), nil)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	scoreCmd.AddCommand(computeCmd)

	// aggregate
	var userID uint64
	aggregateCmd := &cobra.Command{
		Use:   "aggregate ACTIVITY_ID...",
		Short: "Fold a batch of activity records into a user's score",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]uint64, 0, len(args))
			for _, a := range args {
				id, err := strconv.ParseUint(a, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid activity id %q", a)
				}
				ids = append(ids, id)
			}
			url := fmt.Sprintf("%s/api/users/%d/score/aggregate", apiFlag, userID)
			data, err := doPostJSON(url, map[string]interface{}{"activityIds": ids})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	aggregateCmd.Flags().Uint64VarP(&userID, "user", "u", 0, "User ID (required)")
	_ = aggregateCmd.MarkFlagRequired("user")
	scoreCmd.AddCommand(aggregateCmd)

	// get
	getCmd := &cobra.Command{
		Use:   "get USER_ID",
		Short: "Get a user's encrypted score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doGet(fmt.Sprintf("%s/api/users/%s/score", apiFlag, args[0]))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	scoreCmd.AddCommand(getCmd)

	// reputation
	reputationCmd := &cobra.Command{
		Use:   "reputation USER_ID",
		Short: "Get a user's full reputation state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doGet(fmt.Sprintf("%s/api/users/%s/reputation", apiFlag, args[0]))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	scoreCmd.AddCommand(reputationCmd)

	rootCmd.AddCommand(scoreCmd)
}
