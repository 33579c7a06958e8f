package page

import (
	"ExtSortDB/types"
	"iter"
	"strings"
)

/*
This contains the page struct, the unit of disk I/O of the sorter.

A page holds up to Capacity records as a gap-free prefix: records are only
ever appended at the first empty slot, and a page is never partially
cleared. The buffer pool replaces a page wholesale when a slot is reused.

Pages do not know about runs or files. Reading a page is done by the run
reader (FromLines over the next Capacity lines), writing a page goes through
any LineWriter, which the run writer implements.
*/

// LineWriter is what a page is written into. Satisfied by the run writer.
type LineWriter interface {
	WriteLine(line string) error
}

type Page struct {
	ID         int64 // position of the page inside its run, -1 when not read from a run
	FieldCount int
	capacity   int
	records    []types.Record
}

// NewEmpty creates a page with every slot empty.
func NewEmpty(fieldCount, capacity int) *Page {
	return &Page{
		ID:         -1,
		FieldCount: fieldCount,
		capacity:   capacity,
		records:    make([]types.Record, 0, capacity),
	}
}

// FromLines parses the non-empty lines into a page whose capacity is
// len(lines). fieldCount 0 takes the field count of the first parsed line.
func FromLines(lines []string, fieldCount int) (*Page, error) {
	pg := NewEmpty(fieldCount, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, err := types.ParseRecord(line, pg.FieldCount)
		if err != nil {
			return nil, err
		}
		if pg.FieldCount == 0 {
			pg.FieldCount = rec.FieldCount()
		}
		pg.records = append(pg.records, rec)
	}
	return pg, nil
}

// FromRecords builds a page of the given capacity from already parsed
// records. Used by pass 0 when re-chunking a sorted record list.
func FromRecords(records []types.Record, fieldCount, capacity int) (*Page, error) {
	if len(records) > capacity {
		return nil, types.InvariantErrorf("%d records do not fit a page of capacity %d", len(records), capacity)
	}
	pg := NewEmpty(fieldCount, capacity)
	pg.records = append(pg.records, records...)
	return pg, nil
}

// Append puts rec in the first empty slot.
func (p *Page) Append(rec types.Record) error {
	if p.IsFull() {
		return types.InvariantErrorf("page is full (capacity %d)", p.capacity)
	}
	p.records = append(p.records, rec)
	return nil
}

func (p *Page) Len() int {
	return len(p.records)
}

func (p *Page) Cap() int {
	return p.capacity
}

func (p *Page) IsFull() bool {
	return len(p.records) >= p.capacity
}

func (p *Page) IsEmpty() bool {
	return len(p.records) == 0
}

// At returns the record in slot i, false if the slot is empty.
func (p *Page) At(i int) (types.Record, bool) {
	if i < 0 || i >= len(p.records) {
		return types.Record{}, false
	}
	return p.records[i], true
}

// Records returns the non-empty prefix. The slice is shared with the page.
func (p *Page) Records() []types.Record {
	return p.records
}

// Lines yields the serialized records in slot order. Every call starts over.
func (p *Page) Lines() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, rec := range p.records {
			if !yield(rec.String()) {
				return
			}
		}
	}
}

// WriteTo writes every line of the page to w, in order.
func (p *Page) WriteTo(w LineWriter) error {
	for line := range p.Lines() {
		if err := w.WriteLine(line); err != nil {
			return err
		}
	}
	return nil
}
