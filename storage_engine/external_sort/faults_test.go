package externalsort

import (
	"ExtSortDB/types"
	"os"
	"slices"
	"sync"
	"syscall"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/stretchr/testify/require"
)

var errDiskFull = errors.New("disk full")

// faultFS wraps a file system, fails selected operations and counts the
// files that are open.
type faultFS struct {
	vfs.FS

	failCreate  int    // 1-based Create call that fails, 0 for none
	failWriteTo string // writes to this path fail
	failSyncOf  string // syncs of this path fail
	crossDevice bool   // every Rename fails with EXDEV

	mu      sync.Mutex
	creates int
	open    int
}

func (fs *faultFS) Create(name string) (vfs.File, error) {
	fs.mu.Lock()
	fs.creates++
	n := fs.creates
	fs.mu.Unlock()
	if n == fs.failCreate {
		return nil, errDiskFull
	}
	f, err := fs.FS.Create(name)
	if err != nil {
		return nil, err
	}
	return fs.track(f, name), nil
}

func (fs *faultFS) Open(name string, opts ...vfs.OpenOption) (vfs.File, error) {
	f, err := fs.FS.Open(name, opts...)
	if err != nil {
		return nil, err
	}
	return fs.track(f, name), nil
}

func (fs *faultFS) Rename(oldname, newname string) error {
	if fs.crossDevice {
		return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: syscall.EXDEV}
	}
	return fs.FS.Rename(oldname, newname)
}

func (fs *faultFS) track(f vfs.File, name string) vfs.File {
	fs.mu.Lock()
	fs.open++
	fs.mu.Unlock()
	return &faultFile{File: f, fs: fs, name: name}
}

func (fs *faultFS) openFiles() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.open
}

type faultFile struct {
	vfs.File
	fs   *faultFS
	name string
}

func (f *faultFile) Write(p []byte) (int, error) {
	if f.name == f.fs.failWriteTo {
		return 0, errDiskFull
	}
	return f.File.Write(p)
}

func (f *faultFile) Sync() error {
	if f.name == f.fs.failSyncOf {
		return errDiskFull
	}
	return f.File.Sync()
}

func (f *faultFile) Close() error {
	f.fs.mu.Lock()
	f.fs.open--
	f.fs.mu.Unlock()
	return f.File.Close()
}

// scenarioBInput is 24 records: with B=3 and C=2 pass 0 writes runs 1-4,
// iteration 1 writes runs 5 and 6, iteration 2 writes run 7.
func scenarioBInput() []string {
	keys := make([]int64, 24)
	for i := range keys {
		keys[i] = int64(23 - i)
	}
	return intLines(keys...)
}

func TestIOFailureAbortsSort(t *testing.T) {
	cases := []struct {
		name  string
		fault func(*faultFS)
	}{
		{"create during pass 0", func(fs *faultFS) { fs.failCreate = 2 }},
		{"create of second merge output", func(fs *faultFS) { fs.failCreate = 6 }},
		{"write of first merge output", func(fs *faultFS) { fs.failWriteTo = "/scratch/run-000005.tmp" }},
		{"sync of final run", func(fs *faultFS) { fs.failSyncOf = "/scratch/run-000007.tmp" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mem := vfs.NewMem()
			writeInput(t, mem, "/in.txt", scenarioBInput())
			fs := &faultFS{FS: mem}
			tc.fault(fs)

			s := newSorter(t, fs, 3, 2)
			res, err := s.Sort("/in.txt")
			require.Error(t, err)
			require.Nil(t, res)
			require.True(t, errors.Is(err, types.ErrIO), "got %v", err)
			require.True(t, errors.Is(err, errDiskFull))
			require.Zero(t, fs.openFiles(), "a failed sort leaves no file open")

			require.NoError(t, s.Cleanup(false))
			names, err := mem.List(scratch)
			require.NoError(t, err)
			require.Empty(t, names)
		})
	}
}

func TestMergeFailureClosesGroupRuns(t *testing.T) {
	mem := vfs.NewMem()
	writeInput(t, mem, "/in.txt", scenarioBInput())
	fs := &faultFS{FS: mem}

	s := newSorter(t, fs, 3, 2)
	mc, err := s.newMergeContext("/in.txt")
	require.NoError(t, err)
	defer mc.catalog.Close()

	require.NoError(t, s.runPass0(mc))
	require.NoError(t, s.finishIteration(mc))

	fs.failCreate = fs.creates + 2
	err = s.runMergePass(mc)
	require.True(t, errors.Is(err, types.ErrIO))

	for _, run := range mc.catalog.Runs(0) {
		require.Equal(t, "closed", run.State(), "run %d", run.ID)
	}
	require.Zero(t, fs.openFiles())
	require.Zero(t, mc.pool.Occupied())
}

func TestSortToAcrossDevices(t *testing.T) {
	mem := vfs.NewMem()
	writeInput(t, mem, "/in.txt", scenarioBInput())
	require.NoError(t, mem.MkdirAll("/out", 0755))
	fs := &faultFS{FS: mem, crossDevice: true}

	s := newSorter(t, fs, 3, 2)
	res, err := s.SortTo("/in.txt", "/out/sorted.txt")
	require.NoError(t, err)
	require.Equal(t, "/out/sorted.txt", res.Path)

	keys := keysOf(t, readLines(t, mem, "/out/sorted.txt"), 0)
	require.Len(t, keys, 24)
	require.True(t, slices.IsSorted(keys))

	names, err := mem.List(scratch)
	require.NoError(t, err)
	require.NotContains(t, names, "run-000007.tmp", "the final run is moved, not copied")

	require.NoError(t, s.Cleanup(false))
	names, err = mem.List(scratch)
	require.NoError(t, err)
	require.Empty(t, names)
	require.Zero(t, fs.openFiles())
}
