package bufferpool

import (
	"ExtSortDB/storage_engine/page"
	sortedrun "ExtSortDB/storage_engine/sorted_run"
	"ExtSortDB/types"

	"go.uber.org/zap"
)

/*
This file is the main file of the bufferpool

The pool never grows or evicts: it has numPages slots for the whole sort and
pages move through them by replacement. A slot whose page is exhausted gets
the next page of its run; a run with nothing left marks the slot drained
until Purge starts the next merge group. The old page is simply dropped.

Pass 0 uses all slots as staging for up to B input pages (Put / Flatten).
Merge passes use BindInput / Head / Advance on the input slots and
AppendOutput / TakeOutput on the output slot.

The pool is owned by the merge coordinator alone and is not safe for
concurrent use.
*/

// NewBufferPool creates a pool of numPages slots holding pages of
// pageCapacity records.
func NewBufferPool(numPages, pageCapacity, fieldCount int, logger *zap.Logger) *BufferPool {
	if logger == nil {
		logger = zap.NewNop()
	}
	bp := &BufferPool{
		slots:        make([]Slot, numPages),
		pageCapacity: pageCapacity,
		fieldCount:   fieldCount,
		logger:       logger.With(zap.String("component", "bufferpool")),
	}
	bp.Purge()
	return bp
}

// InputSlots is the number of slots available to input runs, B-1.
func (bp *BufferPool) InputSlots() int {
	return len(bp.slots) - 1
}

// OutputSlot is the index of the output accumulator, B-1.
func (bp *BufferPool) OutputSlot() int {
	return len(bp.slots) - 1
}

// Purge unbinds every slot and installs an empty output page. Pages held by
// the slots become garbage.
func (bp *BufferPool) Purge() {
	for i := range bp.slots {
		bp.slots[i] = Slot{}
	}
	bp.slots[bp.OutputSlot()].page = page.NewEmpty(bp.fieldCount, bp.pageCapacity)
}

// ---------------------------------------------------------------- pass 0 staging

// Put stores an input page in slot i for in-memory sorting.
func (bp *BufferPool) Put(i int, pg *page.Page) error {
	if i < 0 || i >= len(bp.slots) {
		return types.InvariantErrorf("slot %d out of range [0, %d)", i, len(bp.slots))
	}
	if bp.slots[i].page != nil && !bp.slots[i].page.IsEmpty() {
		return types.InvariantErrorf("slot %d already holds a page", i)
	}
	bp.slots[i] = Slot{page: pg}
	bp.pagesLoaded++
	return nil
}

// Flatten moves the records of slots 0..n-1 into one list, in slot order,
// and empties the pool.
func (bp *BufferPool) Flatten(n int) []types.Record {
	total := 0
	for i := 0; i < n; i++ {
		if bp.slots[i].page != nil {
			total += bp.slots[i].page.Len()
		}
	}
	records := make([]types.Record, 0, total)
	for i := 0; i < n; i++ {
		if bp.slots[i].page != nil {
			records = append(records, bp.slots[i].page.Records()...)
		}
	}
	bp.Purge()
	return records
}

// ---------------------------------------------------------------- merge inputs

// BindInput attaches run to input slot i and loads its first page. A run
// with no records leaves the slot drained.
func (bp *BufferPool) BindInput(i int, run *sortedrun.Run) error {
	if i < 0 || i >= bp.InputSlots() {
		return types.InvariantErrorf("input slot %d out of range [0, %d)", i, bp.InputSlots())
	}
	rd, err := run.Reader()
	if err != nil {
		return err
	}
	bp.slots[i] = Slot{run: run, reader: rd}
	return bp.load(i)
}

// load replaces the page of slot i with the next page of its run.
func (bp *BufferPool) load(i int) error {
	s := &bp.slots[i]
	pg, err := s.reader.ReadPage(bp.pageCapacity, bp.fieldCount)
	if err != nil {
		return err
	}
	s.cursor = 0
	if pg.IsEmpty() {
		s.page = nil
		s.drained = true
		bp.logger.Debug("input drained", zap.Int("slot", i), zap.Uint32("run", s.run.ID), zap.Int64("pagesRead", s.reader.PagesRead()))
		return nil
	}
	s.page = pg
	bp.pagesLoaded++
	bp.logger.Debug("loaded page", zap.Int("slot", i), zap.Uint32("run", s.run.ID), zap.Int64("page", pg.ID), zap.Int("records", pg.Len()))
	return nil
}

// Head returns the record under the cursor of input slot i, false when the
// slot is unbound or drained.
func (bp *BufferPool) Head(i int) (types.Record, bool) {
	s := &bp.slots[i]
	if s.drained || s.page == nil {
		return types.Record{}, false
	}
	return s.page.At(s.cursor)
}

// Advance consumes the head of input slot i, fetching the run's next page
// when the current one is exhausted.
func (bp *BufferPool) Advance(i int) error {
	s := &bp.slots[i]
	if s.drained || s.page == nil {
		return types.InvariantErrorf("advance on empty input slot %d", i)
	}
	s.cursor++
	if s.cursor < s.page.Len() {
		return nil
	}
	return bp.load(i)
}

// MinSlot returns the input slot whose head has the smallest key. Slots are
// scanned in index order and only a strictly smaller key replaces the
// current pick, so the lowest slot wins ties.
func (bp *BufferPool) MinSlot(cmp types.RecordComparer) (int, bool) {
	best := -1
	var bestRec types.Record
	for i := 0; i < bp.InputSlots(); i++ {
		rec, ok := bp.Head(i)
		if !ok {
			continue
		}
		if best < 0 || cmp.Less(rec, bestRec) {
			best, bestRec = i, rec
		}
	}
	return best, best >= 0
}

// AllDrained reports whether no input slot has a record left.
func (bp *BufferPool) AllDrained() bool {
	for i := 0; i < bp.InputSlots(); i++ {
		if _, ok := bp.Head(i); ok {
			return false
		}
	}
	return true
}

// ---------------------------------------------------------------- merge output

func (bp *BufferPool) AppendOutput(rec types.Record) error {
	return bp.slots[bp.OutputSlot()].page.Append(rec)
}

func (bp *BufferPool) OutputFull() bool {
	return bp.slots[bp.OutputSlot()].page.IsFull()
}

func (bp *BufferPool) OutputEmpty() bool {
	return bp.slots[bp.OutputSlot()].page.IsEmpty()
}

// TakeOutput hands the output page to the caller and puts a fresh empty
// page in the output slot.
func (bp *BufferPool) TakeOutput() *page.Page {
	out := bp.slots[bp.OutputSlot()].page
	bp.slots[bp.OutputSlot()] = Slot{page: page.NewEmpty(bp.fieldCount, bp.pageCapacity)}
	bp.pagesFlushed++
	return out
}
