package cmd

import (
	"context"

	"github.com/oneconcern/trellis/pkg/core"
	"github.com/spf13/cobra"
)

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Fetch a branch from another repository and apply it to the current branch",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		mode, err := core.ParsePullMode(params.remote.Mode)
		if err != nil {
			wrapFatalln("pull mode", err)
			return
		}

		repo, closer := mustOpenRepo(ctx)
		defer closer()
		remote, remoteCloser := mustOpenRemote(ctx)
		defer remoteCloser()

		branch := remoteBranch()
		info := commitInfo("pull " + branch + " from " + params.remote.Root)
		ok, err := mustBranch(repo).Pull(ctx, remote, branch, mode, info, lcaOptions()...)
		if err != nil {
			wrapFatalln("pull", err)
			return
		}
		if !ok {
			infoLogger.Printf("nothing pulled from branch %q", branch)
			return
		}
		printHead(ctx, repo, params.branch.Name)
	},
}

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push the current branch to another repository",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		repo, closer := mustOpenRepo(ctx)
		defer closer()
		remote, remoteCloser := mustOpenRemote(ctx)
		defer remoteCloser()

		branch := remoteBranch()
		ok, err := mustBranch(repo).Push(ctx, remote, branch, params.remote.Depth, lcaOptions()...)
		if err != nil {
			wrapFatalln("push", err)
			return
		}
		if !ok {
			logFatalf("remote branch %q moved during the push", branch)
		}
	},
}

func remoteBranch() string {
	if params.remote.Branch != "" {
		return params.remote.Branch
	}
	return params.branch.Name
}

func mustOpenRemote(ctx context.Context) (core.Remote, func()) {
	repo, closer, err := openRepo(ctx, params.remote.Root, params.remote.Backend)
	if err != nil {
		wrapFatalln("open remote repository", err)
		return nil, func() {}
	}
	return core.NewLocalRemote(repo), closer
}

func init() {
	requireFlags(pullCmd, addRemoteFlags(pullCmd))
	addPullModeFlag(pullCmd)
	addCommitFlags(pullCmd)
	addLcaFlags(pullCmd)

	requireFlags(pushCmd, addRemoteFlags(pushCmd))
	addLcaFlags(pushCmd)

	rootCmd.AddCommand(pullCmd, pushCmd)
}
