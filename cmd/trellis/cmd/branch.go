package cmd

import (
	"context"

	"github.com/fatih/color"
	"github.com/oneconcern/trellis/pkg/core"
	"github.com/spf13/cobra"
)

var branchCmd = &cobra.Command{
	Use:   "branch",
	Short: "Commands to manage branches",
}

var branchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List branches with their heads",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		repo, closer := mustOpenRepo(ctx)
		defer closer()

		names, err := repo.Branches(ctx)
		if err != nil {
			wrapFatalln("list branches", err)
			return
		}
		for _, name := range names {
			head, found, err := repo.FindBranch(ctx, name)
			if err != nil {
				wrapFatalln("find branch", err)
				return
			}
			if found {
				logStdOut("%s %s\n", head, name)
			}
		}
	},
}

var branchRemoveCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Remove a branch. Its commits are kept.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		repo, closer := mustOpenRepo(ctx)
		defer closer()

		if err := repo.RemoveBranch(ctx, args[0]); err != nil {
			wrapFatalln("remove branch", err)
		}
	},
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the history of a branch",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		repo, closer := mustOpenRepo(ctx)
		defer closer()

		history, err := mustBranch(repo).History(ctx, params.log.Depth)
		if err != nil {
			wrapFatalln("history", err)
			return
		}
		sorted, err := history.Sorted()
		if err != nil {
			wrapFatalln("sort history", err)
			return
		}
		for _, k := range sorted {
			c, _ := history.Commit(k)
			logStdOut("%s\n", commitColor("commit "+k.String()))
			for _, p := range history.Parents(k) {
				logStdOut("parent %v\n", p)
			}
			logStdOut("%s\n", c.Info)
		}
	},
}

var mergeCmd = &cobra.Command{
	Use:   "merge <branch>",
	Short: "Merge a branch into the current branch",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		repo, closer := mustOpenRepo(ctx)
		defer closer()

		info := commitInfo("merge " + args[0] + " into " + params.branch.Name)
		if err := mustBranch(repo).MergeWithBranch(ctx, args[0], info, lcaOptions()...); err != nil {
			wrapFatalln("merge", err)
			return
		}
		printHead(ctx, repo, params.branch.Name)
	},
}

var fastForwardCmd = &cobra.Command{
	Use:   "fast-forward <branch>",
	Short: "Move the current branch forward to the head of another branch",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		repo, closer := mustOpenRepo(ctx)
		defer closer()

		target, found, err := repo.FindBranch(ctx, args[0])
		if err != nil {
			wrapFatalln("find branch", err)
			return
		}
		if !found {
			logFatalf("unknown branch %q", args[0])
			return
		}
		ok, err := mustBranch(repo).FastForward(ctx, target, lcaOptions()...)
		if err != nil {
			wrapFatalln("fast-forward", err)
			return
		}
		if !ok {
			logFatalf("cannot fast-forward %q to %q", params.branch.Name, args[0])
			return
		}
		printHead(ctx, repo, params.branch.Name)
	},
}

var commitColor = color.New(color.FgYellow).SprintFunc()

func printHead(ctx context.Context, repo *core.Repo, name string) {
	head, found, err := repo.FindBranch(ctx, name)
	if err != nil {
		wrapFatalln("find branch", err)
		return
	}
	if found {
		logStdOut("%s\n", head)
	}
}

func init() {
	branchCmd.AddCommand(branchListCmd, branchRemoveCmd)
	addLogDepthFlag(logCmd)
	addCommitFlags(mergeCmd)
	addLcaFlags(mergeCmd)
	addLcaFlags(fastForwardCmd)

	rootCmd.AddCommand(branchCmd, logCmd, mergeCmd, fastForwardCmd)
}
