package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a repository",
	Long: `Create a repository in the directory set with --root.

Initializing an existing repository is harmless.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		repo, closer := mustOpenRepo(ctx)
		defer closer()
		infoLogger.Printf("repository ready at %s (%s), empty tree %v", params.repo.Root, params.repo.Backend, repo.EmptyTree())
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
