package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/oneconcern/trellis/pkg/cafs"
	"github.com/oneconcern/trellis/pkg/core"
	"github.com/oneconcern/trellis/pkg/watch"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Print the changes of a branch, or of some path on a branch, since some commit",
	Long: `Print the changes of a branch, or of some path on a branch, as seen by a watcher
which last observed the commit given with --from.

Without --from, the watcher has observed nothing: the current head, or the current
value at path, is reported as added. Nothing is printed when there is no change.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		opts := []core.WatchOption{core.WatchFromUnborn()}
		if params.watch.From != "" {
			from, err := cafs.KeyFromString(params.watch.From)
			if err != nil {
				wrapFatalln("from", err)
				return
			}
			opts = []core.WatchOption{core.WatchFrom(from)}
		}

		repo, closer := mustOpenRepo(ctx)
		defer closer()
		h := mustBranch(repo)

		var (
			id  watch.ID
			err error
		)
		if len(args) == 0 {
			id, err = h.Watch(ctx, func(_ context.Context, diff watch.Diff[cafs.Key]) error {
				old, hadOld, head, hasHead := diff.Values()
				logStdOut("%s %s %s -> %s\n", h.Name(), diff.Kind, keyOrNone(old, hadOld), keyOrNone(head, hasHead))
				return nil
			}, opts...)
		} else {
			p := mustPath(args[0])
			id, err = h.WatchKey(ctx, p, func(_ context.Context, diff watch.Diff[core.Value]) error {
				logStdOut("%s %s\n", p, diff.Kind)
				if diff.Kind != watch.KindRemoved && diff.New.Entry.IsContents() {
					logStdOut("%s\n", string(diff.New.Contents))
				}
				return nil
			}, opts...)
		}
		if err != nil {
			wrapFatalln("watch", err)
			return
		}
		defer repo.Unwatch(id)

		if err := repo.WaitWatchers(ctx); err != nil {
			wrapFatalln("watch", err)
		}
	},
}

func keyOrNone(k cafs.Key, ok bool) string {
	if !ok {
		return "none"
	}
	return k.String()
}

func init() {
	addWatchFromFlag(watchCmd)
	rootCmd.AddCommand(watchCmd)
}
