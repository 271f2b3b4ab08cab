package cmd

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type ExitMocks struct {
	mock.Mock
	fatalCalls int
	messages   []string
}

func (m *ExitMocks) Fatalf(format string, v ...interface{}) {
	m.fatalCalls++
	m.messages = append(m.messages, fmt.Sprintf(format, v...))
}

func (m *ExitMocks) Fatalln(v ...interface{}) {
	m.fatalCalls++
	m.messages = append(m.messages, fmt.Sprintln(v...))
}

type cliRun struct {
	t      *testing.T
	out    bytes.Buffer
	mocks  *ExitMocks
	root   string
	remote string
}

func setupTests(t *testing.T) *cliRun {
	dir := t.TempDir()
	r := &cliRun{
		t:      t,
		mocks:  new(ExitMocks),
		root:   filepath.Join(dir, "local"),
		remote: filepath.Join(dir, "remote"),
	}

	logFatalf = r.mocks.Fatalf
	logFatalln = r.mocks.Fatalln
	logStdOut = func(format string, args ...interface{}) (int, error) {
		return fmt.Fprintf(&r.out, format, args...)
	}
	t.Setenv("TRELLIS_CONFIG", filepath.Join(dir, "trellis.yaml"))
	return r
}

// resetFlags restores the defaults of flags set by a previous run
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		if slice, ok := f.Value.(pflag.SliceValue); ok {
			_ = slice.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetFlags(child)
	}
}

// run a command on the local repository and return its output
func (r *cliRun) run(args ...string) string {
	r.t.Helper()
	return r.runAt(r.root, args...)
}

func (r *cliRun) runAt(root string, args ...string) string {
	r.t.Helper()
	r.out.Reset()
	resetFlags(rootCmd)
	rootCmd.SetArgs(append([]string{"--root", root, "--backend", backendLocalFS, "--loglevel", "none"}, args...))
	require.NoError(r.t, rootCmd.Execute())
	require.Zerof(r.t, r.mocks.fatalCalls, "unexpected failure: %v", r.mocks.messages)
	return r.out.String()
}

func (r *cliRun) mustFail(args ...string) {
	r.t.Helper()
	r.out.Reset()
	resetFlags(rootCmd)
	rootCmd.SetArgs(append([]string{"--root", r.root, "--backend", backendLocalFS, "--loglevel", "none"}, args...))
	_ = rootCmd.Execute()
	require.NotZero(r.t, r.mocks.fatalCalls)
	r.mocks.fatalCalls = 0
	r.mocks.messages = nil
}

func TestCLISetGet(t *testing.T) {
	r := setupTests(t)

	r.run("init")
	head := strings.TrimSpace(r.run("set", "a/b", "hello", "-m", "first"))
	require.NotEmpty(t, head)

	require.Equal(t, "hello", r.run("get", "a/b"))
	require.Contains(t, r.run("ls"), "a/")
	require.Contains(t, r.run("ls", "a"), " b\n")
	require.Contains(t, r.run("branch", "list"), head+" main")
	require.Contains(t, r.run("log"), "commit "+head)

	r.run("rm", "a/b")
	r.mustFail("get", "a/b")
	r.mustFail("get", "/../x")
}

func TestCLIBranches(t *testing.T) {
	r := setupTests(t)

	r.run("set", "x", "1")
	r.run("-b", "feature", "set", "y", "2")
	r.run("-b", "main", "set", "z", "3")

	r.run("-b", "feature", "merge", "main")
	require.Equal(t, "1", r.run("-b", "feature", "get", "x"))
	require.Equal(t, "2", r.run("-b", "feature", "get", "y"))
	require.Equal(t, "3", r.run("-b", "feature", "get", "z"))

	r.run("-b", "main", "fast-forward", "feature")
	require.Equal(t, "2", r.run("-b", "main", "get", "y"))

	r.run("branch", "rm", "feature")
	require.NotContains(t, r.run("branch", "list"), "feature")
}

func TestCLIExportImport(t *testing.T) {
	r := setupTests(t)

	r.run("set", "a", "contents of a")
	slice := filepath.Join(t.TempDir(), "slice.json")
	r.run("export", "-o", slice)

	r.runAt(r.remote, "import", "--set-branches", slice)
	require.Equal(t, "contents of a", r.runAt(r.remote, "get", "a"))
	require.Equal(t, r.run("branch", "list"), r.runAt(r.remote, "branch", "list"))
}

func TestCLIPushPull(t *testing.T) {
	r := setupTests(t)

	r.run("set", "a", "1")
	r.run("push", "--remote", r.remote)
	require.Equal(t, "1", r.runAt(r.remote, "get", "a"))

	r.runAt(r.remote, "set", "b", "2")
	r.run("set", "c", "3")

	// diverged: fast-forward is not possible
	r.mustFail("push", "--remote", r.remote)
	r.run("pull", "--remote", r.remote)
	r.mustFail("get", "b")

	r.run("pull", "--remote", r.remote, "--mode", "merge")
	require.Equal(t, "2", r.run("get", "b"))
	r.run("push", "--remote", r.remote)
	require.Equal(t, "3", r.runAt(r.remote, "get", "c"))
}

func TestCLIWatch(t *testing.T) {
	r := setupTests(t)

	first := strings.TrimSpace(r.run("set", "a", "1"))
	second := strings.TrimSpace(r.run("set", "a", "2"))
	require.NotEqual(t, first, second)

	require.Equal(t, "main updated "+first+" -> "+second+"\n", r.run("watch", "--from", first))
	require.Equal(t, "main added none -> "+second+"\n", r.run("watch"))
	require.Empty(t, r.run("watch", "--from", second), "nothing changed since the current head")

	require.Equal(t, "/a updated\n2\n", r.run("watch", "--from", first, "a"))
	require.Equal(t, "/a added\n2\n", r.run("watch", "a"))

	third := strings.TrimSpace(r.run("set", "b", "x"))
	require.Empty(t, r.run("watch", "--from", second, "a"), "the value at a did not change")
	require.Equal(t, "/b added\nx\n", r.run("watch", "--from", second, "b"))

	r.run("rm", "b")
	require.Equal(t, "/b removed\n", r.run("watch", "--from", third, "b"))

	r.mustFail("watch", "--from", "not-a-commit")
}
