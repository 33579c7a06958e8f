package bufferpool

import (
	"ExtSortDB/storage_engine/page"
	sortedrun "ExtSortDB/storage_engine/sorted_run"

	"go.uber.org/zap"
)

// ############################################# BUFFER POOL #############################################

// BufferPool is the fixed memory budget of a sort: exactly B page slots.
// During a merge slots 0..B-2 hold the current page of an input run and
// slot B-1 accumulates the output page.
type BufferPool struct {
	slots        []Slot
	pageCapacity int
	fieldCount   int
	logger       *zap.Logger

	pagesLoaded  int64
	pagesFlushed int64
}

// Slot pairs a page with the index of its next unconsumed record.
type Slot struct {
	page    *page.Page
	cursor  int
	run     *sortedrun.Run
	reader  *sortedrun.RunReader
	drained bool // no more pages in the bound run for this merge group
}

// Stats returns buffer pool statistics
type BufferPoolStats struct {
	Capacity      int
	PageCapacity  int
	BoundInputs   int
	DrainedInputs int
	OutputRecords int
	PagesLoaded   int64
	PagesFlushed  int64
}
