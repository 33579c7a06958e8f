package externalsort

import (
	sortedrun "ExtSortDB/storage_engine/sorted_run"
	"ExtSortDB/types"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

/*
This file contains the merge passes.

A pass consumes the runs of the previous iteration in catalog order, B-1
at a time. Each group is merged into one new run of the next iteration:
the first page of every run is bound to an input slot, then output pages
are produced until every input slot is drained.
*/

// runMergePass merges every run of mc.iteration into iteration+1 and
// advances mc.iteration.
func (s *ExternalSort) runMergePass(mc *mergeContext) error {
	prev := mc.catalog.Runs(mc.iteration)
	next := mc.iteration + 1
	fanIn := mc.pool.InputSlots()

	s.logger.Info("starting merge pass",
		zap.Int("iteration", next),
		zap.Int("inputRuns", len(prev)),
		zap.Int("fanIn", fanIn))

	for start := 0; start < len(prev); start += fanIn {
		group := prev[start:min(start+fanIn, len(prev))]
		if err := s.mergeGroup(mc, next, group); err != nil {
			return err
		}
	}

	mc.iteration = next
	return nil
}

// mergeGroup merges up to B-1 runs into one new run of iteration. On error
// every run of the group and the output run are left closed.
func (s *ExternalSort) mergeGroup(mc *mergeContext, iteration int, group []*sortedrun.Run) (err error) {
	var out *sortedrun.Run
	defer func() {
		if err != nil {
			closeQuietly(group...)
			if out != nil {
				closeQuietly(out)
			}
			mc.pool.Purge()
		}
	}()

	mc.pool.Purge()
	for i, run := range group {
		if err := mc.pool.BindInput(i, run); err != nil {
			return err
		}
	}

	out, err = sortedrun.NewRun(s.dm, s.opts.Logger)
	if err != nil {
		return err
	}
	w, err := out.Writer()
	if err != nil {
		return err
	}

	for !mc.pool.AllDrained() {
		if err := produceMergedPage(mc); err != nil {
			return err
		}
		pg := mc.pool.TakeOutput()
		if err := w.WritePage(pg); err != nil {
			return err
		}
		s.logger.Debug("wrote merged page",
			zap.Uint32("run", out.ID),
			zap.Int64("page", w.Stats().Pages),
			zap.Int("records", pg.Len()))
	}
	if !mc.pool.OutputEmpty() {
		return types.InvariantErrorf("output slot still holds records after merging into run %d", out.ID)
	}

	if err := out.Close(); err != nil {
		return err
	}
	for _, run := range group {
		if err := run.Close(); err != nil {
			return err
		}
	}
	mc.pool.Purge()

	if err := mc.catalog.AddRun(iteration, out); err != nil {
		return err
	}
	mc.catalog.RecordRunStats(out)

	st := out.Stats()
	s.logger.Info("merged runs",
		zap.Int("iteration", iteration),
		zap.Uint32("run", out.ID),
		zap.Int("inputs", len(group)),
		zap.Int64("records", st.Records),
		zap.String("size", humanize.Bytes(uint64(st.Bytes))))
	return nil
}

// closeQuietly closes runs on an error path. The error being returned
// already explains the failure.
func closeQuietly(runs ...*sortedrun.Run) {
	for _, run := range runs {
		_ = run.Close()
	}
}

// produceMergedPage moves the smallest head record of the input slots to
// the output slot until the output page is full or every input is drained.
func produceMergedPage(mc *mergeContext) error {
	for !mc.pool.OutputFull() {
		slot, ok := mc.pool.MinSlot(mc.cmp)
		if !ok {
			return nil
		}
		rec, _ := mc.pool.Head(slot)
		if err := mc.pool.AppendOutput(rec); err != nil {
			return err
		}
		if err := mc.pool.Advance(slot); err != nil {
			return err
		}
	}
	return nil
}
