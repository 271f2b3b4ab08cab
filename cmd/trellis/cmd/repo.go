package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/oneconcern/trellis/pkg/branch"
	"github.com/oneconcern/trellis/pkg/core"
	"github.com/oneconcern/trellis/pkg/core/status"
	"github.com/oneconcern/trellis/pkg/dlogger"
	"github.com/oneconcern/trellis/pkg/merge"
	"github.com/oneconcern/trellis/pkg/metrics"
	"github.com/oneconcern/trellis/pkg/metrics/exporters/logexporter"
	"github.com/oneconcern/trellis/pkg/model"
	"github.com/oneconcern/trellis/pkg/storage"
	"github.com/oneconcern/trellis/pkg/storage/bdgr"
	"github.com/oneconcern/trellis/pkg/storage/localfs"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// openRepo opens a repository, with its object store and its branch table.
//
// Branches are kept in badger, except for the memory backend.
func openRepo(ctx context.Context, root, backend string) (*core.Repo, func(), error) {
	logger, err := dlogger.GetLogger(params.root.logLevel)
	if err != nil {
		return nil, nil, err
	}

	var (
		store   storage.Store
		table   branch.Table
		closers []func() error
	)
	switch backend {
	case backendMemory:
		store = localfs.NewMem()
		table = branch.NewMemory()

	case backendLocalFS, backendBadger:
		if err = os.MkdirAll(root, 0o700); err != nil {
			return nil, nil, err
		}
		db, err := bdgr.Open(bdgr.WithDir(filepath.Join(root, "db")), bdgr.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		table = branch.NewBadger(db, branch.BadgerLogger(logger))
		closers = append(closers, db.Close)

		if backend == backendBadger {
			store = bdgr.NewWithDB(db, bdgr.WithPrefix("objects/"), bdgr.WithLogger(logger))
			break
		}
		store, err = localfs.New(afero.NewBasePathFs(afero.NewOsFs(), filepath.Join(root, "objects")))
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}

	default:
		return nil, nil, status.ErrInvalidArgument.WrapMessage("unknown backend %q", backend)
	}

	if params.root.metrics {
		metrics.Init(metrics.WithExporter(logexporter.New(logger)), metrics.WithBasePath(metrics.DefaultBasePath))
		closers = append(closers, func() error {
			metrics.Flush()
			return nil
		})
	}

	mergers, err := merge.NewBytesRegistry(config.Merge)
	if err != nil {
		return nil, nil, err
	}

	repo, err := core.New(ctx,
		core.Storage(storage.Instrument(logger, store)),
		core.Branches(table),
		core.Logger(logger),
		core.MergeRegistry(mergers),
		core.InfoFunc(commitInfo),
		core.WithMetrics(params.root.metrics),
	)
	if err != nil {
		for _, closer := range closers {
			_ = closer()
		}
		return nil, nil, err
	}

	return repo, func() {
		if err := repo.Close(); err != nil {
			logger.Warn("closing repository", zap.Error(err))
		}
		for _, closer := range closers {
			if err := closer(); err != nil {
				logger.Warn("closing repository", zap.Error(err))
			}
		}
	}, nil
}

func mustOpenRepo(ctx context.Context) (*core.Repo, func()) {
	repo, closer, err := openRepo(ctx, params.repo.Root, params.repo.Backend)
	if err != nil {
		wrapFatalln("open repository", err)
		return nil, func() {}
	}
	return repo, closer
}

func mustBranch(repo *core.Repo) *core.Handle {
	h, err := repo.Branch(params.branch.Name)
	if err != nil {
		wrapFatalln("branch", err)
		return nil
	}
	return h
}

func mustPath(arg string) model.Path {
	p, err := model.ParsePath(arg)
	if err != nil {
		wrapFatalln("path", err)
		return nil
	}
	return p
}

func commitInfo(message string) model.Info {
	if params.commit.Message != "" {
		message = params.commit.Message
	}
	return model.NewInfo(params.commit.Author, message)
}
