package types

import "cmp"

// RecordComparer orders records by a single field. Other fields are never
// used to break ties.
type RecordComparer struct {
	KeyIndex int
}

func NewRecordComparer(keyIndex int) RecordComparer {
	return RecordComparer{KeyIndex: keyIndex}
}

func (c RecordComparer) Compare(a, b Record) int {
	return cmp.Compare(a.Fields[c.KeyIndex], b.Fields[c.KeyIndex])
}

func (c RecordComparer) Less(a, b Record) bool {
	return a.Fields[c.KeyIndex] < b.Fields[c.KeyIndex]
}

func (c RecordComparer) Key(r Record) int64 {
	return r.Fields[c.KeyIndex]
}
