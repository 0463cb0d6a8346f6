package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var checkoutCmd = &cobra.Command{
	Use:   "checkout JOB_ID TARGET",
	Short: "materialise a committed job and its dependencies into TARGET",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository()
		if err != nil {
			return err
		}
		return repo.Checkout(context.Background(), args[0], args[1])
	},
}

// devCmd groups the supplemented, non-core "dev" sub-commands under one
// verb (spec.md 12, "dev checkout"): development conveniences that act on
// an uncommitted working directory rather than the committed store.
var devCmd = &cobra.Command{
	Use:   "dev",
	Short: "development conveniences that operate on an uncommitted job",
}

var devCheckoutCmd = &cobra.Command{
	Use:   "checkout JOB_PATH",
	Short: "check out JOB_PATH's already-resolved dependencies into itself",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository()
		if err != nil {
			return err
		}
		return repo.DevCheckout(context.Background(), args[0])
	},
}

func init() {
	devCmd.AddCommand(devCheckoutCmd)
}
