package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robinruff/r3/repository"
)

var initCmd = &cobra.Command{
	Use:   "init PATH",
	Short: "create a new, empty repository at PATH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := repository.Init(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "initialised repository at", repo.Root())
		return nil
	},
}
