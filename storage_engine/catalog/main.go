package catalog

import (
	sortedrun "ExtSortDB/storage_engine/sorted_run"
	"ExtSortDB/types"

	"github.com/cockroachdb/errors"
	"github.com/dgraph-io/ristretto/v2"
	"go.uber.org/zap"
)

/*
This file is the main access of the run catalog.
The catalog keeps the iteration -> runs mapping the merge passes walk, and a
cache of RunStats per run. The cache is only an accelerator: ristretto may
refuse or evict an entry, in which case the stats are recomputed by scanning
the run again. Nothing here is persisted, a sort lives in one process.
*/

const defaultStatsCacheSize = 1 << 10

// NewCatalog creates an empty catalog. cacheSize bounds the number of cached
// RunStats entries, 0 picks a default.
func NewCatalog(fieldCount int, cacheSize int64, logger *zap.Logger) (*Catalog, error) {
	if cacheSize <= 0 {
		cacheSize = defaultStatsCacheSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, err := ristretto.NewCache(&ristretto.Config[uint32, sortedrun.RunStats]{
		NumCounters:        cacheSize * 10,
		MaxCost:            cacheSize,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create run stats cache")
	}
	return &Catalog{
		fieldCount: fieldCount,
		stats:      cache,
		logger:     logger.With(zap.String("component", "catalog")),
	}, nil
}

// AddRun appends run to the run list of iteration. Iterations are created in
// order, skipping one is a bug.
func (c *Catalog) AddRun(iteration int, run *sortedrun.Run) error {
	switch {
	case iteration == len(c.iterations):
		c.iterations = append(c.iterations, nil)
	case iteration < 0 || iteration > len(c.iterations):
		return types.InvariantErrorf("cannot add run to iteration %d, catalog has %d iterations", iteration, len(c.iterations))
	}
	c.iterations[iteration] = append(c.iterations[iteration], run)
	c.logger.Debug("registered run", zap.Int("iteration", iteration), zap.Uint32("run", run.ID), zap.String("path", run.Path))
	return nil
}

// Runs returns the runs of iteration in production order, nil if the
// iteration does not exist.
func (c *Catalog) Runs(iteration int) []*sortedrun.Run {
	if iteration < 0 || iteration >= len(c.iterations) {
		return nil
	}
	return c.iterations[iteration]
}

// Iterations is the number of iterations that have at least been started.
func (c *Catalog) Iterations() int {
	return len(c.iterations)
}

// RecordRunStats caches the stats of a run whose writer was closed.
func (c *Catalog) RecordRunStats(run *sortedrun.Run) {
	if c.stats.Set(run.ID, run.Stats(), 1) {
		c.stats.Wait()
	}
}

// RunStats returns the stats of run from the cache, or by scanning the run
// when the cache does not have them.
func (c *Catalog) RunStats(run *sortedrun.Run) (sortedrun.RunStats, error) {
	if st, ok := c.stats.Get(run.ID); ok {
		c.statsHits++
		return st, nil
	}
	c.statsMisses++

	var st sortedrun.RunStats
	err := run.Scan(c.fieldCount, func(line string, _ types.Record) error {
		st.Records++
		st.Bytes += int64(len(line)) + 1
		st.Fingerprint += sortedrun.Fingerprint(line)
		return nil
	})
	if err != nil {
		return sortedrun.RunStats{}, err
	}
	// page count is not observable from the file, keep what the writer saw
	st.Pages = run.Stats().Pages

	c.logger.Debug("recomputed run stats", zap.Uint32("run", run.ID), zap.Int64("records", st.Records))
	c.RecordRunStats(run)
	return st, nil
}

// Totals sums RunStats over the runs of iteration.
func (c *Catalog) Totals(iteration int) (IterationTotals, error) {
	if iteration < 0 || iteration >= len(c.iterations) {
		return IterationTotals{}, types.InvariantErrorf("iteration %d not in catalog", iteration)
	}
	t := IterationTotals{Iteration: iteration, Runs: len(c.iterations[iteration])}
	for _, run := range c.iterations[iteration] {
		st, err := c.RunStats(run)
		if err != nil {
			return IterationTotals{}, err
		}
		t.Records += st.Records
		t.Pages += st.Pages
		t.Bytes += st.Bytes
		t.Fingerprint += st.Fingerprint
	}
	return t, nil
}

// Forget drops the cached stats of run.
func (c *Catalog) Forget(run *sortedrun.Run) {
	c.stats.Del(run.ID)
}

// CacheCounters returns how often RunStats was served from the cache and
// how often the run had to be scanned.
func (c *Catalog) CacheCounters() (hits, misses int64) {
	return c.statsHits, c.statsMisses
}

func (c *Catalog) Close() {
	c.stats.Close()
}
