package catalog

import (
	sortedrun "ExtSortDB/storage_engine/sorted_run"

	"github.com/dgraph-io/ristretto/v2"
	"go.uber.org/zap"
)

// ############################################# CATALOG ##################################################

// Catalog maps every iteration of a sort to the runs it produced, in the
// order they were produced. Iteration 0 holds the pass 0 runs.
type Catalog struct {
	iterations [][]*sortedrun.Run
	fieldCount int
	stats      *ristretto.Cache[uint32, sortedrun.RunStats] // run ID -> stats of its closed writer
	logger     *zap.Logger

	statsHits   int64
	statsMisses int64
}

// IterationTotals is the sum of RunStats over the runs of one iteration.
type IterationTotals struct {
	Iteration   int
	Runs        int
	Records     int64
	Pages       int64
	Bytes       int64
	Fingerprint uint64
}
