// Run file inspection for debugging.
// Use InspectRunFile to check a run or a sort output without going through
// the catalog.

package sortedrun

import (
	"ExtSortDB/types"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/dustin/go-humanize"
)

type Inspection struct {
	Path       string
	Bytes      int64
	Records    int64
	FieldCount int
	MinKey     int64
	MaxKey     int64
	Sorted     bool
	// FirstDisorder is the 1-based line of the first record whose key is
	// smaller than its predecessor's, 0 when sorted.
	FirstDisorder int64
	Fingerprint   uint64
}

// InspectRunFile reads path once and reports its record count, key range,
// whether it is ordered by keyIndex and its fingerprint.
func InspectRunFile(fs vfs.FS, path string, keyIndex int) (*Inspection, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return nil, types.WrapIO(err, "failed to stat %s", path)
	}
	f, err := fs.Open(path)
	if err != nil {
		return nil, types.WrapIO(err, "failed to open %s", path)
	}
	lr := NewLineReader(f)
	defer lr.Close()

	ins := &Inspection{Path: path, Bytes: info.Size(), Sorted: true}
	cmp := types.NewRecordComparer(keyIndex)
	var prev types.Record

	for {
		line, err := lr.ReadLine()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if line == "" {
			continue
		}
		rec, err := types.ParseRecord(line, ins.FieldCount)
		if err != nil {
			return nil, errors.Wrapf(err, "%s line %d", path, lr.LineNo())
		}
		if ins.Records == 0 {
			ins.FieldCount = rec.FieldCount()
			if keyIndex < 0 || keyIndex >= ins.FieldCount {
				return nil, types.ConfigErrorf("key index %d out of range for %d fields", keyIndex, ins.FieldCount)
			}
			ins.MinKey, ins.MaxKey = cmp.Key(rec), cmp.Key(rec)
		} else {
			if cmp.Less(rec, prev) && ins.Sorted {
				ins.Sorted = false
				ins.FirstDisorder = lr.LineNo()
			}
			ins.MinKey = min(ins.MinKey, cmp.Key(rec))
			ins.MaxKey = max(ins.MaxKey, cmp.Key(rec))
		}
		ins.Records++
		ins.Fingerprint += Fingerprint(line)
		prev = rec
	}
	return ins, nil
}

// WriteTo prints a human-readable summary.
func (ins *Inspection) WriteTo(w io.Writer) (int64, error) {
	p := func(format string, args ...interface{}) string { return fmt.Sprintf(format, args...) }

	out := p("Run file: %s\n", ins.Path)
	out += p("  size        = %s\n", humanize.Bytes(uint64(ins.Bytes)))
	out += p("  records     = %s\n", humanize.Comma(ins.Records))
	out += p("  fields      = %d\n", ins.FieldCount)
	if ins.Records > 0 {
		out += p("  key range   = [%d, %d]\n", ins.MinKey, ins.MaxKey)
	}
	if ins.Sorted {
		out += "  sorted      = yes\n"
	} else {
		out += p("  sorted      = NO (first disorder at line %d)\n", ins.FirstDisorder)
	}
	out += p("  fingerprint = %016x\n", ins.Fingerprint)

	n, err := io.WriteString(w, out)
	return int64(n), err
}
