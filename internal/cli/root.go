// Package cli wires the r3 cobra command tree onto the repository façade
// (spec.md 7, C7), following the teacher's registry/root.go pattern of one
// package-level *cobra.Command per verb wired together in an init().
package cli

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/robinruff/r3/internal/rcontext"
	"github.com/robinruff/r3/repository"
	"github.com/robinruff/r3/version"
)

const repositoryEnvVar = "R3_REPOSITORY"

var (
	repositoryPath string
	verbose        bool
	showVersion    bool
)

// RootCmd is the root of the r3 command tree.
var RootCmd = &cobra.Command{
	Use:           "r3",
	Short:         "r3 manages a content-addressed repository of reproducible research jobs",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := logrus.InfoLevel
		if verbose {
			level = logrus.DebugLevel
		}
		logger := logrus.New()
		logger.SetLevel(level)
		rcontext.SetDefaultLogger(logger.WithField("component", "r3"))
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			version.PrintVersion()
			return nil
		}
		return cmd.Usage()
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&repositoryPath, "repository", "R", "", "repository path (defaults to $"+repositoryEnvVar+")")
	RootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")
	RootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "show the version and exit")

	RootCmd.AddCommand(initCmd)
	RootCmd.AddCommand(commitCmd)
	RootCmd.AddCommand(checkoutCmd)
	RootCmd.AddCommand(removeCmd)
	RootCmd.AddCommand(findCmd)
	RootCmd.AddCommand(rebuildIndexCmd)
	RootCmd.AddCommand(devCmd)
}

// resolveRepositoryPath returns the --repository flag value, falling back
// to R3_REPOSITORY (spec.md 7: "The repository path may come from
// --repository or the environment variable R3_REPOSITORY").
func resolveRepositoryPath() (string, error) {
	if repositoryPath != "" {
		return repositoryPath, nil
	}
	if p := os.Getenv(repositoryEnvVar); p != "" {
		return p, nil
	}
	return "", fmt.Errorf("no repository specified: pass --repository or set $%s", repositoryEnvVar)
}

func openRepository() (*repository.Repository, error) {
	path, err := resolveRepositoryPath()
	if err != nil {
		return nil, err
	}
	return repository.Open(path)
}

// Execute runs the root command, returning the process exit code
// (spec.md 7: "Exit code 0 on success, non-zero on error").
func Execute() int {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}
