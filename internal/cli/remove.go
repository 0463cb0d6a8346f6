package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robinruff/r3/internal/r3err"
)

var removeCmd = &cobra.Command{
	Use:   "remove JOB_ID",
	Short: "remove a committed job, refusing if other jobs depend on it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository()
		if err != nil {
			return err
		}

		if err := repo.Remove(context.Background(), args[0]); err != nil {
			if e, ok := r3err.As(err); ok && e.Kind == r3err.HasDependents {
				return fmt.Errorf("job has dependents: %s", strings.Join(e.DependentIDs, ", "))
			}
			return err
		}
		return nil
	},
}
