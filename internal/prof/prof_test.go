package prof

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestWriteMem(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteMem(dir, "test"))

	profiles, err := afero.Glob(fs, filepath.Join(dir, "test-*.prof"))
	require.NoError(t, err)
	require.Len(t, profiles, 2)
}

func TestStartCPU(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cpu.prof")
	stop, err := StartCPU(path)
	require.NoError(t, err)
	stop()

	exists, err := afero.Exists(fs, path)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestMemPoll(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	MemPoll(ctx, MemPollParams{Poll: time.Millisecond, Dir: dir})

	require.Eventually(t, func() bool {
		profiles, _ := afero.Glob(fs, filepath.Join(dir, "mem-poll-*.prof"))
		return len(profiles) > 0
	}, 5*time.Second, 10*time.Millisecond)
	cancel()
}
