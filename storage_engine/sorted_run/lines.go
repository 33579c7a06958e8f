package sortedrun

import (
	"ExtSortDB/types"
	"bufio"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble/vfs"
)

const readBufferSize = 64 << 10

func NewLineReader(file vfs.File) *LineReader {
	return &LineReader{
		file: file,
		br:   bufio.NewReaderSize(file, readBufferSize),
	}
}

// ReadLine returns the next line without its terminator, io.EOF once the
// file is exhausted. A last line without a trailing newline is returned.
func (lr *LineReader) ReadLine() (string, error) {
	line, err := lr.br.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", types.WrapIO(err, "failed to read line %d", lr.lineNo+1)
		}
		if line == "" {
			return "", io.EOF
		}
	}
	lr.lineNo++
	return strings.TrimRight(line, "\r\n"), nil
}

// ReadLines reads up to n non-blank lines. Fewer are returned only at end of
// file; the returned slice always has length n, missing lines left "".
func (lr *LineReader) ReadLines(n int) ([]string, int, error) {
	lines := make([]string, n)
	got := 0
	for got < n {
		line, err := lr.ReadLine()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines[got] = line
		got++
	}
	return lines, got, nil
}

// LineNo is the number of lines consumed so far, blank ones included.
func (lr *LineReader) LineNo() int64 {
	return lr.lineNo
}

func (lr *LineReader) Close() error {
	if lr.file == nil {
		return nil
	}
	err := lr.file.Close()
	lr.file = nil
	return err
}
