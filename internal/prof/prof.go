// Package prof collects runtime profiles of the CLI
package prof

import (
	"context"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/oneconcern/trellis/internal/rand"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

var fs = afero.NewOsFs()

// StartCPU starts profiling the CPU to some file. The returned function stops profiling.
func StartCPU(path string) (func(), error) {
	f, err := fs.Create(path)
	if err != nil {
		return nil, err
	}
	if err = pprof.StartCPUProfile(f); err != nil {
		_ = f.Close()
		return nil, err
	}
	return func() {
		pprof.StopCPUProfile()
		_ = f.Close()
	}, nil
}

func writeProfIfNExist(path string, name string) error {
	if exists, _ := afero.Exists(fs, path); exists {
		return nil
	}
	f, err := fs.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return pprof.Lookup(name).WriteTo(f, 0)
}

// WriteMem writes heap and allocation profiles to some directory.
//
// Files are named after the prefix with a random suffix: existing profiles are never overwritten.
func WriteMem(dir, prefix string) error {
	if err := fs.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	base := filepath.Join(dir, strings.Join([]string{prefix, rand.LetterString(6)}, "-"))
	if err := writeProfIfNExist(base+".mem.prof", "heap"); err != nil {
		return err
	}
	return writeProfIfNExist(base+".alloc.prof", "allocs")
}

// MemPollParams configures the polling of memory statistics
type MemPollParams struct {
	Poll   time.Duration
	Logger *zap.Logger

	// Dir receives memory profiles each time the heap grows over MinHeapMB
	Dir       string
	MinHeapMB uint64
}

// MemPoll logs memory statistics until the context is done, when the heap grows.
func MemPoll(ctx context.Context, params MemPollParams) {
	if params.Poll == 0 {
		params.Poll = 50 * time.Millisecond
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	go memPoll(ctx, params)
}

func memPoll(ctx context.Context, params MemPollParams) {
	ticker := time.NewTicker(params.Poll)
	defer ticker.Stop()

	mstats := new(runtime.MemStats)
	var maxHeapThusFar uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		runtime.ReadMemStats(mstats)
		if mstats.HeapSys <= maxHeapThusFar {
			continue
		}
		maxHeapThusFar = mstats.HeapSys
		params.Logger.Info("grew heap",
			zap.Uint64("MiB for heap (un-GC)", mstats.Alloc/1024/1024),
			zap.Uint64("MiB for heap (max ever)", mstats.HeapSys/1024/1024),
			zap.Int("num go routines", runtime.NumGoroutine()),
		)
		if params.Dir == "" || mstats.HeapSys/1024/1024 < params.MinHeapMB {
			continue
		}
		if err := WriteMem(params.Dir, "mem-poll"); err != nil {
			params.Logger.Error("memory profiling error", zap.Error(err))
		}
	}
}
