package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robinruff/r3/internal/rcontext"
)

var (
	findTags   []string
	findLatest bool
	findAll    bool
	findLong   bool
)

var findCmd = &cobra.Command{
	Use:   "find",
	Short: "list committed jobs matching a tag query",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository()
		if err != nil {
			return err
		}

		ids, err := repo.Find(findTags, findLatest)
		if err != nil {
			return err
		}

		for _, id := range ids {
			if !findLong {
				fmt.Fprintln(cmd.OutOrStdout(), id)
				continue
			}

			j, err := repo.OpenJob(context.Background(), id)
			if err != nil {
				return err
			}
			t, usedFallback, err := j.Datetime()
			if err != nil {
				return err
			}
			if usedFallback {
				rcontext.GetLogger(context.Background()).Warnf("job %s has no committed_at metadata, using directory mtime", id)
			}

			line := fmt.Sprintf("%s | %s |", id, t.Format("2006-01-02 15:04:05"))
			for _, tag := range j.Tags() {
				line += " #" + tag
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		return nil
	},
}

func init() {
	findCmd.Flags().StringArrayVarP(&findTags, "tag", "t", nil, "restrict to jobs carrying this tag (repeatable)")
	findCmd.Flags().BoolVar(&findLatest, "latest", false, "return only the most recently committed match")
	findCmd.Flags().BoolVar(&findAll, "all", false, "return every match (default)")
	findCmd.Flags().BoolVarP(&findLong, "long", "l", false, "print committed_at and tags alongside each job id")
}
