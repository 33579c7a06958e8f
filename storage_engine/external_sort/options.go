package externalsort

import (
	"ExtSortDB/types"
	"fmt"
	"os"

	"github.com/cockroachdb/pebble/vfs"
	"github.com/pingcap/log"
	"go.uber.org/zap"
)

// Options configures one ExternalSort. Start from DefaultOptions.
type Options struct {
	// BufferPages is B, the number of page slots in memory. One is the
	// merge output, the others are merge inputs.
	BufferPages int
	// PageCapacity is the number of records per page.
	PageCapacity int
	// FieldCount is the number of fields of every record. 0 takes it from
	// the first record of the input.
	FieldCount int
	// SortKeyIndex is the field records are ordered by.
	SortKeyIndex int

	// FS holds the input, the runs and the output. Defaults to vfs.Default.
	FS vfs.FS
	// ScratchDir is where runs are written. Created on the first run.
	ScratchDir string
	Logger     *zap.Logger

	// StableSort keeps records with equal keys in input order.
	StableSort bool
	// VerifyConservation checks after every iteration that the runs of the
	// iteration hold exactly the records of iteration 0.
	VerifyConservation bool
	// StatsCacheSize bounds the number of cached RunStats entries.
	StatsCacheSize int64
}

func DefaultOptions() Options {
	return Options{
		BufferPages:        3,
		PageCapacity:       500,
		SortKeyIndex:       0,
		StableSort:         true,
		VerifyConservation: true,
	}
}

func (o *Options) ensureDefaults() {
	if o.FS == nil {
		o.FS = vfs.Default
	}
	if o.ScratchDir == "" {
		o.ScratchDir = o.FS.PathJoin(os.TempDir(), fmt.Sprintf("extsort-%d", os.Getpid()))
	}
	if o.Logger == nil {
		o.Logger = log.L()
	}
}

// Validate checks everything that can be checked without reading the input.
// The page count precondition is checked by Sort before pass 0.
func (o *Options) Validate() error {
	if o.BufferPages <= 1 {
		return types.ConfigErrorf("buffer pages must be greater than 1, got %d", o.BufferPages)
	}
	if o.BufferPages < 3 {
		// one input slot only copies runs and never reduces their number
		return types.ConfigErrorf("buffer pages must be at least 3 to merge two runs, got %d", o.BufferPages)
	}
	if o.PageCapacity <= 0 {
		return types.ConfigErrorf("page capacity must be greater than 0, got %d", o.PageCapacity)
	}
	if o.FieldCount < 0 {
		return types.ConfigErrorf("field count must not be negative, got %d", o.FieldCount)
	}
	if o.SortKeyIndex < 0 || (o.FieldCount > 0 && o.SortKeyIndex >= o.FieldCount) {
		return types.ConfigErrorf("sort key index %d out of range [0, %d)", o.SortKeyIndex, o.FieldCount)
	}
	if o.StatsCacheSize < 0 {
		return types.ConfigErrorf("stats cache size must not be negative, got %d", o.StatsCacheSize)
	}
	return nil
}
