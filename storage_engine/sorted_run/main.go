package sortedrun

import (
	diskmanager "ExtSortDB/storage_engine/disk_manager"
	"ExtSortDB/storage_engine/page"
	"ExtSortDB/types"
	"bufio"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

/*
This is the main file of sorted runs.

A run is exactly one of closed, open for reading or open for writing. Every
change goes through transition, which closes whatever is open before opening
the other direction; asking for the direction that is already open is a
no-op. Switching direction throws the position away: a new reader starts at
the first record, a new writer truncates the file.

The writer keeps RunStats as lines go out. They are kept on the run once the
writer is closed, so the catalog can check that a merge pass neither lost nor
invented records without reading the run again.
*/

const writeBufferSize = 64 << 10

// Fingerprint is the per-record digest summed into RunStats.Fingerprint.
func Fingerprint(line string) uint64 {
	return xxhash.Sum64String(line)
}

// NewRun allocates a new run file. The file is created on first Writer().
func NewRun(dm *diskmanager.DiskManager, logger *zap.Logger) (*Run, error) {
	fd, err := dm.AllocateFile()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Run{
		ID:     fd.FileID,
		Path:   fd.FilePath,
		dm:     dm,
		logger: logger.With(zap.Uint32("run", fd.FileID)),
	}, nil
}

// transition closes the open handle, if any, and opens the requested
// direction. Closing a writer flushes and syncs it and records its stats.
func (r *Run) transition(to handleKind) error {
	if r.handle.kind == to {
		return nil
	}

	from := r.handle.kind
	switch from {
	case handleWriting:
		stats, err := r.handle.writer.close()
		r.handle = runHandle{kind: handleClosed}
		if err != nil {
			return err
		}
		r.stats = stats
	case handleReading:
		err := r.handle.reader.Close()
		r.handle = runHandle{kind: handleClosed}
		if err != nil {
			return types.WrapIO(err, "failed to close reader of %s", r.Path)
		}
	}

	switch to {
	case handleWriting:
		f, err := r.dm.Create(r.ID)
		if err != nil {
			return err
		}
		r.handle = runHandle{
			kind: handleWriting,
			writer: &RunWriter{
				run:  r,
				file: f,
				bw:   bufio.NewWriterSize(f, writeBufferSize),
			},
		}
	case handleReading:
		f, err := r.dm.Open(r.ID)
		if err != nil {
			return err
		}
		r.handle = runHandle{
			kind:   handleReading,
			reader: &RunReader{LineReader: NewLineReader(f), run: r},
		}
	}

	r.logger.Debug("run handle transition", zap.Stringer("from", from), zap.Stringer("to", to))
	return nil
}

// Writer closes an open reader and returns the run's writer, opening it if
// needed.
func (r *Run) Writer() (*RunWriter, error) {
	if err := r.transition(handleWriting); err != nil {
		return nil, err
	}
	return r.handle.writer, nil
}

// Reader closes an open writer and returns the run's reader, opening it if
// needed.
func (r *Run) Reader() (*RunReader, error) {
	if err := r.transition(handleReading); err != nil {
		return nil, err
	}
	return r.handle.reader, nil
}

// Close leaves the run with no open handle.
func (r *Run) Close() error {
	return r.transition(handleClosed)
}

func (r *Run) State() string {
	return r.handle.kind.String()
}

// Stats returns what the last closed writer wrote.
func (r *Run) Stats() RunStats {
	return r.stats
}

// Scan reads the whole run again from a fresh reader and calls fn for every
// record. The run is left closed.
func (r *Run) Scan(fieldCount int, fn func(line string, rec types.Record) error) error {
	if err := r.Close(); err != nil {
		return err
	}
	rd, err := r.Reader()
	if err != nil {
		return err
	}
	for {
		line, err := rd.ReadLine()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			r.Close()
			return err
		}
		rec, err := types.ParseRecord(line, fieldCount)
		if err != nil {
			r.Close()
			return errors.Wrapf(err, "run %s line %d", r.Path, rd.LineNo())
		}
		if err := fn(line, rec); err != nil {
			r.Close()
			return err
		}
	}
	return r.Close()
}

// ReadPage reads the next page of the run. At the end of the run the page is
// empty, not an error.
func (rd *RunReader) ReadPage(capacity, fieldCount int) (*page.Page, error) {
	lines, _, err := rd.ReadLines(capacity)
	if err != nil {
		return nil, err
	}
	pg, err := page.FromLines(lines, fieldCount)
	if err != nil {
		return nil, errors.Wrapf(err, "run %s near line %d", rd.run.Path, rd.LineNo())
	}
	pg.ID = rd.pagesRead
	if !pg.IsEmpty() {
		rd.pagesRead++
	}
	return pg, nil
}

func (rd *RunReader) PagesRead() int64 {
	return rd.pagesRead
}

// WriteLine appends one serialized record.
func (w *RunWriter) WriteLine(line string) error {
	if _, err := w.bw.WriteString(line); err != nil {
		return types.WrapIO(err, "failed to write %s", w.run.Path)
	}
	if err := w.bw.WriteByte('\n'); err != nil {
		return types.WrapIO(err, "failed to write %s", w.run.Path)
	}
	w.stats.Records++
	w.stats.Bytes += int64(len(line)) + 1
	w.stats.Fingerprint += Fingerprint(line)
	return nil
}

// WritePage appends every record of pg, in slot order.
func (w *RunWriter) WritePage(pg *page.Page) error {
	if err := pg.WriteTo(w); err != nil {
		return err
	}
	w.stats.Pages++
	return nil
}

// Stats is what has been written so far by this writer.
func (w *RunWriter) Stats() RunStats {
	return w.stats
}

func (w *RunWriter) close() (RunStats, error) {
	if err := w.bw.Flush(); err != nil {
		w.file.Close()
		return RunStats{}, types.WrapIO(err, "failed to flush %s", w.run.Path)
	}
	if err := w.file.Sync(); err != nil {
		w.file.Close()
		return RunStats{}, types.WrapIO(err, "failed to sync %s", w.run.Path)
	}
	if err := w.file.Close(); err != nil {
		return RunStats{}, types.WrapIO(err, "failed to close %s", w.run.Path)
	}
	return w.stats, nil
}
