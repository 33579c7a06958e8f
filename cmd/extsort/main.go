// Sort a text file of comma separated integer records with a bounded
// number of buffer pages.
// Usage: go run ./cmd/extsort -in unsorted.txt -out sorted.txt -buffer-pages 3 -page-capacity 500 -key 2
package main

import (
	externalsort "ExtSortDB/storage_engine/external_sort"
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/pingcap/log"
	"go.uber.org/zap"
)

func main() {
	defaults := externalsort.DefaultOptions()

	in := flag.String("in", "", "input file (required)")
	out := flag.String("out", "", "output file, the final run stays in the scratch dir when empty")
	bufferPages := flag.Int("buffer-pages", defaults.BufferPages, "number of pages in memory (B)")
	pageCapacity := flag.Int("page-capacity", defaults.PageCapacity, "records per page")
	fields := flag.Int("fields", 0, "fields per record, 0 reads it from the first record")
	key := flag.Int("key", defaults.SortKeyIndex, "index of the sort key field")
	scratchDir := flag.String("scratch", "", "directory for intermediate runs (default: a temp dir)")
	keepRuns := flag.Bool("keep-runs", false, "do not remove intermediate runs")
	unstable := flag.Bool("unstable", false, "allow equal keys to change relative order")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	if *in == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -in <file> [-out <file>] [flags]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	level := "info"
	if *verbose {
		level = "debug"
	}
	logger, props, err := log.InitLogger(&log.Config{Level: level, Format: "text"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: init logger: %v\n", err)
		os.Exit(1)
	}
	log.ReplaceGlobals(logger, props)
	defer log.Sync()

	opts := defaults
	opts.BufferPages = *bufferPages
	opts.PageCapacity = *pageCapacity
	opts.FieldCount = *fields
	opts.SortKeyIndex = *key
	opts.ScratchDir = *scratchDir
	opts.StableSort = !*unstable

	sorter, err := externalsort.NewExternalSort(opts)
	if err != nil {
		log.Fatal("invalid options", zap.Error(err))
	}

	var res *externalsort.Result
	if *out != "" {
		res, err = sorter.SortTo(*in, *out)
	} else {
		res, err = sorter.Sort(*in)
	}
	if err != nil {
		if !*keepRuns {
			if cerr := sorter.Cleanup(false); cerr != nil {
				log.Warn("cleanup failed", zap.Error(cerr))
			}
		}
		log.Fatal("sort failed", zap.String("input", *in), zap.Error(err))
	}
	if !*keepRuns {
		if err := sorter.Cleanup(true); err != nil {
			log.Warn("cleanup failed", zap.String("scratch", sorter.ScratchDir()), zap.Error(err))
		}
	}

	st := res.Stats
	fmt.Printf("sorted %s records into %s\n", humanize.Comma(st.InputRecords), res.Path)
	fmt.Printf("  initial runs: %d, merge iterations: %d, runs per iteration: %v\n",
		st.InitialRuns, st.MergeIterations, st.RunsPerIteration)
	fmt.Printf("  pages written: %d (%s), pages loaded: %d, took %s\n",
		st.PagesWritten, humanize.Bytes(uint64(st.BytesWritten)), st.PagesLoaded, st.Elapsed)
}
