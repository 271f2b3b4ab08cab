package cmd

import (
	"context"
	"io"
	"os"

	"github.com/oneconcern/trellis/pkg/errors"
	"github.com/oneconcern/trellis/pkg/model"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var errMissingValue = errors.New("missing value: pass it as an argument or with --file")

var getCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "Print the contents at some path of a branch",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		repo, closer := mustOpenRepo(ctx)
		defer closer()

		data, found, err := mustBranch(repo).Find(ctx, mustPath(args[0]))
		if err != nil {
			wrapFatalln("get", err)
			return
		}
		if !found {
			logFatalf("no contents at %q on branch %q", args[0], params.branch.Name)
			return
		}
		logStdOut("%s", string(data))
	},
}

var setCmd = &cobra.Command{
	Use:   "set <path> [value]",
	Short: "Set the contents at some path of a branch",
	Long: `Set the contents at some path of a branch, creating a commit.

The contents are taken from the command line, or from the file set with --file ("-" reads from stdin).`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		data, err := readValue(args[1:])
		if err != nil {
			wrapFatalln("read value", err)
			return
		}

		repo, closer := mustOpenRepo(ctx)
		defer closer()

		h := mustBranch(repo)
		p := mustPath(args[0])
		info := commitInfo("set " + p.String())
		if params.commit.Metadata != "" {
			err = h.SetWithMetadata(ctx, p, data, model.Metadata(params.commit.Metadata), info)
		} else {
			err = h.Set(ctx, p, data, info)
		}
		if err != nil {
			wrapFatalln("set", err)
			return
		}
		printHead(ctx, repo, params.branch.Name)
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <path>",
	Short: "Remove the contents or the subtree at some path of a branch",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		repo, closer := mustOpenRepo(ctx)
		defer closer()

		p := mustPath(args[0])
		if err := mustBranch(repo).Remove(ctx, p, commitInfo("remove "+p.String())); err != nil {
			wrapFatalln("remove", err)
			return
		}
		printHead(ctx, repo, params.branch.Name)
	},
}

var lsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "List the entries of a tree on a branch",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		repo, closer := mustOpenRepo(ctx)
		defer closer()

		var p model.Path
		if len(args) > 0 {
			p = mustPath(args[0])
		}
		entries, err := mustBranch(repo).List(ctx, p)
		if err != nil {
			wrapFatalln("list", err)
			return
		}
		for _, e := range entries {
			name := e.Name
			if e.IsNode() {
				name += "/"
			}
			logStdOut("%-8s %s %s\n", e.Kind, e.Hash.Short(), name)
		}
	},
}

func readValue(args []string) ([]byte, error) {
	switch {
	case params.commit.File == "-":
		return io.ReadAll(os.Stdin)
	case params.commit.File != "":
		return afero.ReadFile(afero.NewOsFs(), params.commit.File)
	case len(args) > 0:
		return []byte(args[0]), nil
	default:
		return nil, errMissingValue
	}
}

func init() {
	addCommitFlags(setCmd)
	addMetadataFlag(setCmd)
	addFileFlag(setCmd)
	addCommitFlags(rmCmd)

	rootCmd.AddCommand(getCmd, setCmd, rmCmd, lsCmd)
}
