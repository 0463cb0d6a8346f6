package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var rebuildIndexCmd = &cobra.Command{
	Use:   "rebuild-index",
	Short: "recompute index.yaml from the committed jobs on disk",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository()
		if err != nil {
			return err
		}
		return repo.RebuildIndex(context.Background())
	},
}
