package bufferpool

import (
	diskmanager "ExtSortDB/storage_engine/disk_manager"
	"ExtSortDB/storage_engine/page"
	sortedrun "ExtSortDB/storage_engine/sorted_run"
	"ExtSortDB/types"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/stretchr/testify/require"
)

func newRun(t *testing.T, dm *diskmanager.DiskManager, keys ...int64) *sortedrun.Run {
	t.Helper()
	r, err := sortedrun.NewRun(dm, nil)
	require.NoError(t, err)
	w, err := r.Writer()
	require.NoError(t, err)
	for _, k := range keys {
		require.NoError(t, w.WriteLine(types.NewRecord(k).String()))
	}
	require.NoError(t, r.Close())
	return r
}

func TestNewBufferPoolLayout(t *testing.T) {
	bp := NewBufferPool(4, 3, 1, nil)
	require.Equal(t, 4, bp.Capacity())
	require.Equal(t, 3, bp.InputSlots())
	require.Equal(t, 3, bp.OutputSlot())
	require.True(t, bp.OutputEmpty())
	require.True(t, bp.AllDrained())
	require.Zero(t, bp.Occupied())
}

func TestPutAndFlatten(t *testing.T) {
	bp := NewBufferPool(3, 2, 1, nil)

	for i, lines := range [][]string{{"5", "3"}, {"8", "1"}, {"9"}} {
		pg, err := page.FromLines(lines, 1)
		require.NoError(t, err)
		require.NoError(t, bp.Put(i, pg))
	}
	require.Equal(t, 3, bp.Occupied())

	pg, err := page.FromLines([]string{"4"}, 1)
	require.NoError(t, err)
	require.True(t, errors.Is(bp.Put(0, pg), types.ErrInvariant))
	require.True(t, errors.Is(bp.Put(3, pg), types.ErrInvariant))

	recs := bp.Flatten(3)
	var keys []int64
	for _, r := range recs {
		keys = append(keys, r.Field(0))
	}
	require.Equal(t, []int64{5, 3, 8, 1, 9}, keys)
	require.Zero(t, bp.Occupied())
	require.Equal(t, int64(3), bp.GetStats().PagesLoaded)
}

func TestMergeSlots(t *testing.T) {
	dm := diskmanager.NewDiskManager(vfs.NewMem(), "/scratch", nil)
	a := newRun(t, dm, 1, 4, 7)
	b := newRun(t, dm, 2, 4, 5)
	empty := newRun(t, dm)

	bp := NewBufferPool(4, 2, 1, nil)
	require.NoError(t, bp.BindInput(0, a))
	require.NoError(t, bp.BindInput(1, b))
	require.NoError(t, bp.BindInput(2, empty))

	_, ok := bp.Head(2)
	require.False(t, ok, "an empty run drains its slot at once")

	cmp := types.NewRecordComparer(0)
	var merged []int64
	for !bp.AllDrained() {
		slot, ok := bp.MinSlot(cmp)
		require.True(t, ok)
		rec, _ := bp.Head(slot)
		merged = append(merged, rec.Field(0))
		require.NoError(t, bp.Advance(slot))
	}
	require.Equal(t, []int64{1, 2, 4, 4, 5, 7}, merged)

	stats := bp.GetStats()
	require.Equal(t, 3, stats.BoundInputs)
	require.Equal(t, 3, stats.DrainedInputs)
	// a: 2 pages, b: 2 pages
	require.Equal(t, int64(4), stats.PagesLoaded)

	require.True(t, errors.Is(bp.Advance(0), types.ErrInvariant))
}

func TestMinSlotLowestIndexWinsTies(t *testing.T) {
	dm := diskmanager.NewDiskManager(vfs.NewMem(), "/scratch", nil)

	r0, err := sortedrun.NewRun(dm, nil)
	require.NoError(t, err)
	w, err := r0.Writer()
	require.NoError(t, err)
	require.NoError(t, w.WriteLine("3,0"))

	r1, err := sortedrun.NewRun(dm, nil)
	require.NoError(t, err)
	w, err = r1.Writer()
	require.NoError(t, err)
	require.NoError(t, w.WriteLine("3,1"))

	bp := NewBufferPool(3, 4, 2, nil)
	require.NoError(t, bp.BindInput(1, r1))
	require.NoError(t, bp.BindInput(0, r0))

	slot, ok := bp.MinSlot(types.NewRecordComparer(0))
	require.True(t, ok)
	require.Equal(t, 0, slot)
}

func TestOutputSlot(t *testing.T) {
	bp := NewBufferPool(2, 2, 1, nil)

	require.NoError(t, bp.AppendOutput(types.NewRecord(1)))
	require.False(t, bp.OutputFull())
	require.NoError(t, bp.AppendOutput(types.NewRecord(2)))
	require.True(t, bp.OutputFull())
	require.True(t, errors.Is(bp.AppendOutput(types.NewRecord(3)), types.ErrInvariant))

	out := bp.TakeOutput()
	require.Equal(t, 2, out.Len())
	require.True(t, bp.OutputEmpty())
	require.Equal(t, int64(1), bp.GetStats().PagesFlushed)
}
