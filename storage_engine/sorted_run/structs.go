package sortedrun

import (
	diskmanager "ExtSortDB/storage_engine/disk_manager"
	"bufio"

	"github.com/cockroachdb/pebble/vfs"
	"go.uber.org/zap"
)

// ############################################# RUN HANDLE ###############################################

type handleKind uint8

const (
	handleClosed handleKind = iota
	handleReading
	handleWriting
)

func (k handleKind) String() string {
	switch k {
	case handleReading:
		return "reading"
	case handleWriting:
		return "writing"
	default:
		return "closed"
	}
}

// runHandle is the tagged variant {closed, reading(reader), writing(writer)}.
// Only the field matching kind is set.
type runHandle struct {
	kind   handleKind
	reader *RunReader
	writer *RunWriter
}

// ############################################# RUN ######################################################

// Run is a file backed sequence of sorted records. It is append only while
// writing and forward scan only while reading.
type Run struct {
	ID     uint32
	Path   string
	dm     *diskmanager.DiskManager
	handle runHandle
	stats  RunStats
	logger *zap.Logger
}

// RunStats describes what the last writer of a run produced.
type RunStats struct {
	Records     int64
	Pages       int64
	Bytes       int64
	Fingerprint uint64 // sum of xxhash64 over the serialized records
}

// ############################################# READER / WRITER ##########################################

// LineReader reads newline terminated lines from a file, forward only.
type LineReader struct {
	file   vfs.File
	br     *bufio.Reader
	lineNo int64
}

type RunReader struct {
	*LineReader
	run       *Run
	pagesRead int64
}

type RunWriter struct {
	run   *Run
	file  vfs.File
	bw    *bufio.Writer
	stats RunStats
}
