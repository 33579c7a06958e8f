package externalsort

import (
	"ExtSortDB/storage_engine/page"
	sortedrun "ExtSortDB/storage_engine/sorted_run"
	"ExtSortDB/types"
	"io"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

/*
This file contains pass 0, the creation of the initial runs.

Pages of the input are staged in the buffer pool until all B slots are
used or the input ends. The records of the staged pages are then sorted as
one list and written back out, page by page, as one run.
*/

// countInput counts the non-blank lines of the input and finds its field
// count. Only the first record is parsed.
func (s *ExternalSort) countInput(path string) (int, int64, error) {
	f, err := s.dm.OpenInput(path)
	if err != nil {
		return 0, 0, err
	}
	lr := sortedrun.NewLineReader(f)
	defer lr.Close()

	fieldCount := s.opts.FieldCount
	var records int64
	for {
		line, err := lr.ReadLine()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, 0, err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if records == 0 && fieldCount == 0 {
			rec, err := types.ParseRecord(line, 0)
			if err != nil {
				return 0, 0, errors.Wrapf(err, "input %s line %d", path, lr.LineNo())
			}
			fieldCount = rec.FieldCount()
		}
		records++
	}
	return fieldCount, records, nil
}

func (s *ExternalSort) runPass0(mc *mergeContext) error {
	f, err := s.dm.OpenInput(mc.inputPath)
	if err != nil {
		return err
	}
	lr := sortedrun.NewLineReader(f)
	defer lr.Close()

	capacity := mc.pool.PageCapacity()
	for eof := false; !eof; {
		staged := 0
		for staged < mc.pool.Capacity() {
			lines, n, err := lr.ReadLines(capacity)
			if err != nil {
				return err
			}
			if n == 0 {
				eof = true
				break
			}
			pg, err := page.FromLines(lines, mc.fieldCount)
			if err != nil {
				return errors.Wrapf(err, "input %s near line %d", mc.inputPath, lr.LineNo())
			}
			pg.ID = int64(staged)
			if err := mc.pool.Put(staged, pg); err != nil {
				return err
			}
			staged++
			if n < capacity {
				eof = true
				break
			}
		}
		if staged == 0 {
			break
		}

		s.logger.Debug("staged input pages", zap.Int("pages", mc.pool.Occupied()), zap.Int64("throughLine", lr.LineNo()))
		records := mc.pool.Flatten(staged)
		if s.opts.StableSort {
			slices.SortStableFunc(records, mc.cmp.Compare)
		} else {
			slices.SortFunc(records, mc.cmp.Compare)
		}
		if err := s.writeInitialRun(mc, records); err != nil {
			return err
		}
	}
	return nil
}

// writeInitialRun writes sorted records as consecutive full pages, the last
// one possibly partial, of a new run in iteration 0.
func (s *ExternalSort) writeInitialRun(mc *mergeContext, records []types.Record) error {
	run, err := sortedrun.NewRun(s.dm, s.opts.Logger)
	if err != nil {
		return err
	}
	w, err := run.Writer()
	if err != nil {
		return err
	}

	capacity := mc.pool.PageCapacity()
	for off := 0; off < len(records); off += capacity {
		pg, err := page.FromRecords(records[off:min(off+capacity, len(records))], mc.fieldCount, capacity)
		if err != nil {
			closeQuietly(run)
			return err
		}
		if err := w.WritePage(pg); err != nil {
			closeQuietly(run)
			return err
		}
	}
	if err := run.Close(); err != nil {
		return err
	}

	if err := mc.catalog.AddRun(0, run); err != nil {
		return err
	}
	mc.catalog.RecordRunStats(run)

	st := run.Stats()
	s.logger.Info("created initial run",
		zap.Uint32("run", run.ID),
		zap.Int64("records", st.Records),
		zap.Int64("pages", st.Pages),
		zap.String("size", humanize.Bytes(uint64(st.Bytes))))
	return nil
}
