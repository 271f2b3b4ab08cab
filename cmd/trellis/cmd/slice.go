package cmd

import (
	"context"
	"io"
	"os"
	"time"

	units "github.com/docker/go-units"
	"github.com/oneconcern/trellis/internal/prof"
	"github.com/oneconcern/trellis/pkg/cafs"
	"github.com/oneconcern/trellis/pkg/core"
	"github.com/oneconcern/trellis/pkg/model"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export [commit...]",
	Short: "Export commits with their trees and contents as a JSON slice",
	Long: `Export a self-contained slice of the repository.

Without arguments, all branches are exported, or the branches set with --branches.
Commits passed as arguments are exported instead.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		repo, closer := mustOpenRepo(ctx)
		defer closer()

		opts := []core.ExportOption{
			core.ExportFull(params.export.Full),
			core.ExportDepth(params.export.Depth),
		}
		if len(params.export.Branches) > 0 {
			opts = append(opts, core.ExportBranches(params.export.Branches...))
		}
		if len(args) > 0 {
			commits := make([]cafs.Key, 0, len(args))
			for _, arg := range args {
				k, err := cafs.KeyFromString(arg)
				if err != nil {
					wrapFatalln("commit", err)
					return
				}
				commits = append(commits, k)
			}
			opts = append(opts, core.ExportMax(commits...))
		}

		slice, err := repo.Export(ctx, opts...)
		if err != nil {
			wrapFatalln("export", err)
			return
		}
		data, err := model.EncodeSlice(slice)
		if err != nil {
			wrapFatalln("encode slice", err)
			return
		}

		if params.export.File == "" {
			logStdOut("%s\n", string(data))
			return
		}
		if err = afero.WriteFile(afero.NewOsFs(), params.export.File, data, 0o600); err != nil {
			wrapFatalln("write slice", err)
			return
		}
		infoLogger.Printf("exported %d commits, %d trees and %d contents to %s (%s)",
			len(slice.Commits), len(slice.Trees), len(slice.Contents), params.export.File, units.HumanSize(float64(len(data))))
	},
}

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import a JSON slice, from a file or from stdin",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var (
			data []byte
			err  error
		)
		if len(args) == 0 || args[0] == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = afero.ReadFile(afero.NewOsFs(), args[0])
		}
		if err != nil {
			wrapFatalln("read slice", err)
			return
		}
		slice, err := model.DecodeSlice(data)
		if err != nil {
			wrapFatalln("decode slice", err)
			return
		}

		repo, closer := mustOpenRepo(ctx)
		defer closer()
		if params.root.memProf != "" {
			prof.MemPoll(ctx, prof.MemPollParams{Poll: time.Second, Logger: repo.Logger(), Dir: params.root.memProf})
		}

		if err = repo.Import(ctx, slice, core.ImportBranches(params.importer.Branches)); err != nil {
			wrapFatalln("import", err)
			return
		}
		infoLogger.Printf("imported %d commits, %d trees and %d contents (%s)",
			len(slice.Commits), len(slice.Trees), len(slice.Contents), units.HumanSize(float64(len(data))))
	},
}

func init() {
	addExportFlags(exportCmd)
	addImportBranchesFlag(importCmd)

	rootCmd.AddCommand(exportCmd, importCmd)
}
