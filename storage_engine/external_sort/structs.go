package externalsort

import (
	"ExtSortDB/storage_engine/bufferpool"
	"ExtSortDB/storage_engine/catalog"
	diskmanager "ExtSortDB/storage_engine/disk_manager"
	"ExtSortDB/types"
	"time"

	"go.uber.org/zap"
)

// ############################################# EXTERNAL SORT ############################################

// ExternalSort sorts files larger than memory with BufferPages pages of
// PageCapacity records. It is not safe for concurrent use; one Sort at a
// time.
type ExternalSort struct {
	opts   Options
	dm     *diskmanager.DiskManager
	cmp    types.RecordComparer
	logger *zap.Logger

	finalRunID uint32
	hasFinal   bool
}

// ############################################# MERGE CONTEXT ############################################

// mergeContext is the whole mutable state of one Sort call. It is created
// by Sort and handed to every pass.
type mergeContext struct {
	inputPath  string
	fieldCount int
	iteration  int
	catalog    *catalog.Catalog
	pool       *bufferpool.BufferPool
	cmp        types.RecordComparer

	inputRecords int64
	baseline     catalog.IterationTotals
	stats        SortStats
}

// ############################################# RESULT ###################################################

type Result struct {
	Path  string // the sorted output
	RunID uint32
	Stats SortStats
}

type SortStats struct {
	InputRecords     int64
	FieldCount       int
	InitialRuns      int
	MergeIterations  int
	RunsPerIteration []int // index 0 is pass 0
	PagesWritten     int64 // over all iterations
	BytesWritten     int64
	PagesLoaded      int64 // pages read into the buffer pool
	Elapsed          time.Duration
}
