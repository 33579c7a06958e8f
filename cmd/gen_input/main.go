// Generate an unsorted input file of random integer records.
// Usage: go run ./cmd/gen_input -out unsorted.txt -records 10000 -fields 3
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"

	"github.com/cockroachdb/pebble/vfs"
	"github.com/dustin/go-humanize"
)

func main() {
	out := flag.String("out", "", "file to write (required)")
	records := flag.Int("records", 10000, "number of records")
	fields := flag.Int("fields", 3, "fields per record")
	minVal := flag.Int64("min", 0, "smallest value (inclusive)")
	maxVal := flag.Int64("max", 10000000, "largest value (exclusive)")
	seed := flag.Uint64("seed", 0, "random seed, 0 picks one")
	flag.Parse()

	if *out == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -out <file> [flags]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}
	if *minVal >= *maxVal {
		fmt.Fprintf(os.Stderr, "Error: -min must be smaller than -max\n")
		os.Exit(1)
	}
	if *fields < 1 || *records < 0 {
		fmt.Fprintf(os.Stderr, "Error: need at least one field and a non-negative record count\n")
		os.Exit(1)
	}

	if *seed == 0 {
		*seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(*seed, *seed>>1))

	n, err := generate(vfs.Default, *out, rng, *records, *fields, *minVal, *maxVal)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s records of %d fields (%s) to %s, seed %d\n",
		humanize.Comma(int64(*records)), *fields, humanize.Bytes(uint64(n)), *out, *seed)
}

func generate(fs vfs.FS, path string, rng *rand.Rand, records, fields int, minVal, maxVal int64) (int64, error) {
	f, err := fs.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	var written int64
	buf := make([]byte, 0, 64)
	for i := 0; i < records; i++ {
		buf = buf[:0]
		for j := 0; j < fields; j++ {
			if j > 0 {
				buf = append(buf, ',')
			}
			buf = strconv.AppendInt(buf, randomValue(rng, minVal, maxVal), 10)
		}
		buf = append(buf, '\n')
		nn, err := bw.Write(buf)
		written += int64(nn)
		if err != nil {
			return written, err
		}
	}
	if err := bw.Flush(); err != nil {
		return written, err
	}
	return written, f.Sync()
}

// randomValue draws from [minVal, maxVal). The width is taken as unsigned so
// ranges wider than MaxInt64 work; the sum wraps back into range.
func randomValue(rng *rand.Rand, minVal, maxVal int64) int64 {
	width := uint64(maxVal) - uint64(minVal)
	return minVal + int64(rng.Uint64N(width))
}
