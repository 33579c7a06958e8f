package catalog

import (
	diskmanager "ExtSortDB/storage_engine/disk_manager"
	sortedrun "ExtSortDB/storage_engine/sorted_run"
	"ExtSortDB/types"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/stretchr/testify/require"
)

func writeRun(t *testing.T, dm *diskmanager.DiskManager, lines ...string) *sortedrun.Run {
	t.Helper()
	r, err := sortedrun.NewRun(dm, nil)
	require.NoError(t, err)
	w, err := r.Writer()
	require.NoError(t, err)
	for _, l := range lines {
		require.NoError(t, w.WriteLine(l))
	}
	require.NoError(t, r.Close())
	return r
}

func newCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog(2, 0, nil)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestAddRunOrder(t *testing.T) {
	dm := diskmanager.NewDiskManager(vfs.NewMem(), "/scratch", nil)
	c := newCatalog(t)
	require.Zero(t, c.Iterations())

	a := writeRun(t, dm, "1,1")
	b := writeRun(t, dm, "2,2")
	m := writeRun(t, dm, "1,1", "2,2")

	require.NoError(t, c.AddRun(0, a))
	require.NoError(t, c.AddRun(0, b))
	require.NoError(t, c.AddRun(1, m))

	require.Equal(t, []*sortedrun.Run{a, b}, c.Runs(0))
	require.Equal(t, []*sortedrun.Run{m}, c.Runs(1))
	require.Nil(t, c.Runs(2))
	require.Equal(t, 2, c.Iterations())

	err := c.AddRun(3, m)
	require.True(t, errors.Is(err, types.ErrInvariant))
}

func TestRunStatsFallsBackToScan(t *testing.T) {
	dm := diskmanager.NewDiskManager(vfs.NewMem(), "/scratch", nil)
	c := newCatalog(t)

	r := writeRun(t, dm, "3,1", "5,2", "9,0")
	require.NoError(t, c.AddRun(0, r))
	c.RecordRunStats(r)

	want := r.Stats()
	require.Equal(t, int64(3), want.Records)

	c.Forget(r)
	got, err := c.RunStats(r)
	require.NoError(t, err)
	require.Equal(t, want, got)

	_, misses := c.CacheCounters()
	require.GreaterOrEqual(t, misses, int64(1))
	require.Equal(t, "closed", r.State())
}

func TestTotalsConserveAcrossIterations(t *testing.T) {
	dm := diskmanager.NewDiskManager(vfs.NewMem(), "/scratch", nil)
	c := newCatalog(t)

	a := writeRun(t, dm, "1,0", "4,0")
	b := writeRun(t, dm, "2,0", "3,0")
	merged := writeRun(t, dm, "1,0", "2,0", "3,0", "4,0")
	for _, r := range []*sortedrun.Run{a, b} {
		require.NoError(t, c.AddRun(0, r))
		c.RecordRunStats(r)
	}
	require.NoError(t, c.AddRun(1, merged))
	c.RecordRunStats(merged)

	t0, err := c.Totals(0)
	require.NoError(t, err)
	t1, err := c.Totals(1)
	require.NoError(t, err)

	require.Equal(t, 2, t0.Runs)
	require.Equal(t, 1, t1.Runs)
	require.Equal(t, int64(4), t0.Records)
	require.Equal(t, t0.Records, t1.Records)
	require.Equal(t, t0.Fingerprint, t1.Fingerprint)
	require.Equal(t, t0.Bytes, t1.Bytes)

	_, err = c.Totals(5)
	require.True(t, errors.Is(err, types.ErrInvariant))
}

func TestRunStatsParseError(t *testing.T) {
	dm := diskmanager.NewDiskManager(vfs.NewMem(), "/scratch", nil)
	c := newCatalog(t)

	r := writeRun(t, dm, "1,2", "oops")
	_, err := c.RunStats(r)
	require.True(t, errors.Is(err, types.ErrParse))
}
