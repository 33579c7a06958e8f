package externalsort

import (
	"ExtSortDB/storage_engine/bufferpool"
	"ExtSortDB/storage_engine/catalog"
	diskmanager "ExtSortDB/storage_engine/disk_manager"
	"ExtSortDB/types"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

/*
This is the main file of the external sort.

Sort runs in two phases over one mergeContext:
pass 0 cuts the input into groups of up to B pages, sorts each group in
memory and writes it as one run of iteration 0 (pass0.go).
Merge passes then merge the runs of the previous iteration B-1 at a time
until a single run is left (merge.go).

Nothing is written before the input has been counted: a sort that would not
need a merge is rejected with a configuration error and leaves no files.
Intermediate runs are never removed by Sort, call Cleanup when done.
*/

func NewExternalSort(opts Options) (*ExternalSort, error) {
	opts.ensureDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger.With(zap.String("component", "externalsort"))
	return &ExternalSort{
		opts:   opts,
		dm:     diskmanager.NewDiskManager(opts.FS, opts.ScratchDir, opts.Logger),
		cmp:    types.NewRecordComparer(opts.SortKeyIndex),
		logger: logger,
	}, nil
}

// Sort sorts the file at inputPath and returns the final run. The result
// lives in the scratch directory until Cleanup or SortTo moves it.
func (s *ExternalSort) Sort(inputPath string) (*Result, error) {
	start := time.Now()

	mc, err := s.newMergeContext(inputPath)
	if err != nil {
		return nil, err
	}
	defer mc.catalog.Close()

	s.logger.Info("starting external sort",
		zap.String("input", inputPath),
		zap.Int64("records", mc.inputRecords),
		zap.Int("bufferPages", s.opts.BufferPages),
		zap.Int("pageCapacity", s.opts.PageCapacity),
		zap.Int("sortKeyIndex", s.opts.SortKeyIndex),
		zap.Bool("stable", s.opts.StableSort))

	if err := s.runPass0(mc); err != nil {
		return nil, err
	}
	if err := s.finishIteration(mc); err != nil {
		return nil, err
	}

	for len(mc.catalog.Runs(mc.iteration)) > 1 {
		if err := s.runMergePass(mc); err != nil {
			return nil, err
		}
		if err := s.finishIteration(mc); err != nil {
			return nil, err
		}
	}

	runs := mc.catalog.Runs(mc.iteration)
	if len(runs) != 1 {
		return nil, types.InvariantErrorf("iteration %d ended with %d runs", mc.iteration, len(runs))
	}
	final := runs[0]
	s.finalRunID, s.hasFinal = final.ID, true

	size, err := s.dm.FileSize(final.ID)
	if err != nil {
		return nil, err
	}
	if size != final.Stats().Bytes {
		return nil, types.InvariantErrorf("final run %s holds %d bytes, its writer wrote %d", final.Path, size, final.Stats().Bytes)
	}

	mc.stats.MergeIterations = mc.iteration
	mc.stats.PagesLoaded = mc.pool.GetStats().PagesLoaded
	mc.stats.Elapsed = time.Since(start)

	s.logger.Info("external sort finished",
		zap.String("output", final.Path),
		zap.Int("mergeIterations", mc.stats.MergeIterations),
		zap.Ints("runsPerIteration", mc.stats.RunsPerIteration),
		zap.String("written", humanize.Bytes(uint64(mc.stats.BytesWritten))),
		zap.Duration("elapsed", mc.stats.Elapsed))

	return &Result{Path: final.Path, RunID: final.ID, Stats: mc.stats}, nil
}

// SortTo sorts inputPath and moves the final run to outputPath.
func (s *ExternalSort) SortTo(inputPath, outputPath string) (*Result, error) {
	res, err := s.Sort(inputPath)
	if err != nil {
		return nil, err
	}
	if err := s.dm.Release(res.RunID, outputPath); err != nil {
		return nil, err
	}
	s.hasFinal = false
	res.Path = outputPath
	return res, nil
}

// Cleanup removes the run files this sorter still owns, including runs left
// behind by a failed sort. keepFinal spares the result of the last Sort.
func (s *ExternalSort) Cleanup(keepFinal bool) error {
	var ids []uint32
	for _, id := range s.dm.FileIDs() {
		if keepFinal && s.hasFinal && id == s.finalRunID {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil
	}
	if err := s.dm.RemoveFiles(ids); err != nil {
		return err
	}
	if !keepFinal {
		s.hasFinal = false
	}
	return nil
}

// ScratchDir is where the runs of this sorter are written.
func (s *ExternalSort) ScratchDir() string {
	return s.dm.Dir()
}

// newMergeContext counts the input and checks that it needs a merge before
// anything is created.
func (s *ExternalSort) newMergeContext(inputPath string) (*mergeContext, error) {
	fieldCount, records, err := s.countInput(inputPath)
	if err != nil {
		return nil, err
	}

	pages := (records + int64(s.opts.PageCapacity) - 1) / int64(s.opts.PageCapacity)
	if int64(s.opts.BufferPages) >= pages {
		return nil, types.ConfigErrorf("buffer pages (%d) must be fewer than the input's %d pages of %d records",
			s.opts.BufferPages, pages, s.opts.PageCapacity)
	}
	if s.opts.SortKeyIndex >= fieldCount {
		return nil, types.ConfigErrorf("sort key index %d out of range for %d fields", s.opts.SortKeyIndex, fieldCount)
	}

	cat, err := catalog.NewCatalog(fieldCount, s.opts.StatsCacheSize, s.opts.Logger)
	if err != nil {
		return nil, err
	}
	return &mergeContext{
		inputPath:    inputPath,
		fieldCount:   fieldCount,
		catalog:      cat,
		pool:         bufferpool.NewBufferPool(s.opts.BufferPages, s.opts.PageCapacity, fieldCount, s.opts.Logger),
		cmp:          s.cmp,
		inputRecords: records,
		stats:        SortStats{InputRecords: records, FieldCount: fieldCount},
	}, nil
}

// finishIteration closes the current iteration: it adds the iteration's
// runs to the stats and, when enabled, checks that no record was lost or
// invented since iteration 0.
func (s *ExternalSort) finishIteration(mc *mergeContext) error {
	totals, err := mc.catalog.Totals(mc.iteration)
	if err != nil {
		return err
	}
	mc.stats.RunsPerIteration = append(mc.stats.RunsPerIteration, totals.Runs)
	mc.stats.PagesWritten += totals.Pages
	mc.stats.BytesWritten += totals.Bytes

	if mc.iteration == 0 {
		mc.baseline = totals
		mc.stats.InitialRuns = totals.Runs
	}

	hits, misses := mc.catalog.CacheCounters()
	s.logger.Info("iteration complete",
		zap.Int("iteration", mc.iteration),
		zap.Int("runs", totals.Runs),
		zap.String("records", humanize.Comma(totals.Records)),
		zap.String("size", humanize.Bytes(uint64(totals.Bytes))),
		zap.Int64("statsCacheHits", hits),
		zap.Int64("statsCacheMisses", misses))

	// the previous iteration is fully consumed, its stats are not read again
	if mc.iteration > 0 {
		for _, run := range mc.catalog.Runs(mc.iteration - 1) {
			mc.catalog.Forget(run)
		}
	}

	if !s.opts.VerifyConservation {
		return nil
	}
	if mc.iteration == 0 && totals.Records != mc.inputRecords {
		return types.InvariantErrorf("pass 0 wrote %d records, input has %d", totals.Records, mc.inputRecords)
	}
	if totals.Records != mc.baseline.Records || totals.Fingerprint != mc.baseline.Fingerprint {
		return types.InvariantErrorf("iteration %d holds %d records (fingerprint %x), iteration 0 held %d (fingerprint %x)",
			mc.iteration, totals.Records, totals.Fingerprint, mc.baseline.Records, mc.baseline.Fingerprint)
	}
	return nil
}
