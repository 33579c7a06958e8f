// Inspect a run file or a sorted output file.
// Usage: go run ./cmd/inspect_run [-key N] <path>
// Example: go run ./cmd/inspect_run -key 2 /tmp/extsort-1234/run-000007.tmp
package main

import (
	"flag"
	"fmt"
	"os"

	sortedrun "ExtSortDB/storage_engine/sorted_run"

	"github.com/cockroachdb/pebble/vfs"
)

func main() {
	key := flag.Int("key", 0, "index of the sort key field")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [-key N] <run-file>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Example: %s -key 2 /tmp/extsort-1234/run-000007.tmp\n", os.Args[0])
		os.Exit(1)
	}
	ins, err := sortedrun.InspectRunFile(vfs.Default, flag.Arg(0), *key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if _, err := ins.WriteTo(os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if !ins.Sorted {
		os.Exit(2)
	}
}
