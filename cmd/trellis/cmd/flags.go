// Copyright © 2018 One Concern

package cmd

import (
	"strings"

	"github.com/oneconcern/trellis/pkg/core"
	"github.com/oneconcern/trellis/pkg/dlogger"
	"github.com/spf13/cobra"
)

type flagsT struct {
	root struct {
		logLevel string
		cpuProf  bool
		memProf  string
		metrics  bool
	}
	repo struct {
		Root    string
		Backend string
	}
	branch struct {
		Name string
	}
	commit struct {
		Author   string
		Message  string
		Metadata string
		File     string
	}
	lca struct {
		MaxDepth int
		Max      int
	}
	export struct {
		File     string
		Depth    int
		Full     bool
		Branches []string
	}
	importer struct {
		Branches bool
	}
	log struct {
		Depth int
	}
	watch struct {
		From string
	}
	remote struct {
		Root    string
		Backend string
		Branch  string
		Depth   int
		Mode    string
	}
}

var params = flagsT{}

func addGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&params.repo.Root, "root", "", "The directory of the repository")
	cmd.PersistentFlags().StringVar(&params.repo.Backend, "backend", "", "The object storage: localfs, badger or memory")
	cmd.PersistentFlags().StringVarP(&params.branch.Name, "branch", "b", "", "The branch to operate on")
	cmd.PersistentFlags().StringVar(&params.root.logLevel, "loglevel", "", "The logging level: "+strings.Join(dlogger.Levels(), ", "))
	cmd.PersistentFlags().BoolVar(&params.root.cpuProf, "cpuprof", false, "Toggle runtime profiling to cpu.prof")
	cmd.PersistentFlags().StringVar(&params.root.memProf, "memprof", "", "Write memory profiles to this directory")
	cmd.PersistentFlags().BoolVar(&params.root.metrics, "metrics", false, "Toggle metrics collection, reported in debug logs")
}

func addCommitFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&params.commit.Message, "message", "m", "", "The message of the commit")
	cmd.Flags().StringVar(&params.commit.Author, "author", "", "The author of the commit")
}

func addMetadataFlag(cmd *cobra.Command) string {
	const metadata = "metadata"
	cmd.Flags().StringVar(&params.commit.Metadata, metadata, "", "Metadata attached to the contents")
	return metadata
}

func addFileFlag(cmd *cobra.Command) string {
	const file = "file"
	cmd.Flags().StringVarP(&params.commit.File, file, "f", "", "Read the contents from a file, or from stdin with -")
	return file
}

func addLcaFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&params.lca.MaxDepth, "max-depth", core.DefaultMaxDepth, "The maximum depth of the search for common ancestors")
	cmd.Flags().IntVar(&params.lca.Max, "max-lcas", core.DefaultMaxLcas, "The maximum number of common ancestors")
}

func addExportFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&params.export.File, "output", "o", "", "Write the slice to a file instead of stdout")
	cmd.Flags().IntVar(&params.export.Depth, "depth", -1, "The number of generations of commits to export (all when negative)")
	cmd.Flags().BoolVar(&params.export.Full, "full", true, "Export trees and contents along with commits")
	cmd.Flags().StringSliceVar(&params.export.Branches, "branches", nil, "The branches to export (all by default)")
}

func addImportBranchesFlag(cmd *cobra.Command) string {
	const branches = "set-branches"
	cmd.Flags().BoolVar(&params.importer.Branches, branches, false, "Set the branches recorded in the slice")
	return branches
}

func addLogDepthFlag(cmd *cobra.Command) string {
	const depth = "depth"
	cmd.Flags().IntVar(&params.log.Depth, depth, -1, "The number of generations of commits to show (all when negative)")
	return depth
}

func addWatchFromFlag(cmd *cobra.Command) string {
	const from = "from"
	cmd.Flags().StringVar(&params.watch.From, from, "", "The commit last observed by the watcher (none by default)")
	return from
}

func addRemoteFlags(cmd *cobra.Command) string {
	const remote = "remote"
	cmd.Flags().StringVar(&params.remote.Root, remote, "", "The directory of the remote repository")
	cmd.Flags().StringVar(&params.remote.Backend, "remote-backend", backendLocalFS, "The object storage of the remote repository")
	cmd.Flags().StringVar(&params.remote.Branch, "remote-branch", "", "The remote branch (defaults to the local branch)")
	cmd.Flags().IntVar(&params.remote.Depth, "depth", -1, "The number of generations of commits to transfer (all when negative)")
	return remote
}

func addPullModeFlag(cmd *cobra.Command) string {
	const mode = "mode"
	cmd.Flags().StringVar(&params.remote.Mode, mode, core.PullFastForward.String(), "How to apply the remote head: fast-forward, merge or set")
	return mode
}

func requireFlags(cmd *cobra.Command, flags ...string) {
	for _, flag := range flags {
		if err := cmd.MarkFlagRequired(flag); err != nil {
			wrapFatalln("mark required flag", err)
			return
		}
	}
}

func lcaOptions() []core.LcaOption {
	return []core.LcaOption{core.LcaMaxDepth(params.lca.MaxDepth), core.LcaMax(params.lca.Max)}
}
