package types

import (
	"strconv"
	"strings"
)

/*
A Record is one line of the input: a fixed number of signed integer fields.
Records never change after parsing. The field used for ordering is not part
of the record, it lives in RecordComparer so one sort uses one key index for
every record it touches.
*/

const FieldSeparator = ","

type Record struct {
	Fields []int64
}

func NewRecord(fields ...int64) Record {
	return Record{Fields: fields}
}

func (r Record) FieldCount() int {
	return len(r.Fields)
}

func (r Record) Field(i int) int64 {
	return r.Fields[i]
}

// String joins the fields with commas, no trailing separator.
func (r Record) String() string {
	var sb strings.Builder
	for i, f := range r.Fields {
		if i > 0 {
			sb.WriteString(FieldSeparator)
		}
		sb.WriteString(strconv.FormatInt(f, 10))
	}
	return sb.String()
}

// ParseRecord parses one comma separated line. fieldCount is the count
// established by the first record of the file; 0 means this line
// establishes it.
func ParseRecord(line string, fieldCount int) (Record, error) {
	line = strings.TrimRight(line, "\r\n")
	tokens := strings.Split(line, FieldSeparator)
	if fieldCount > 0 && len(tokens) != fieldCount {
		return Record{}, ParseErrorf("record %q has %d fields, expected %d", line, len(tokens), fieldCount)
	}

	fields := make([]int64, len(tokens))
	for i, tok := range tokens {
		v, err := strconv.ParseInt(strings.TrimSpace(tok), 10, 64)
		if err != nil {
			return Record{}, ParseErrorf("record %q: field %d (%q) is not an integer", line, i, tok)
		}
		fields[i] = v
	}
	return Record{Fields: fields}, nil
}
