package numidx_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/hupe1980/numidx"
	"github.com/hupe1980/numidx/record"
)

// Example_buildAndResolve writes a small data file, indexes it and resolves ids.
func Example_buildAndResolve() {
	ctx := context.Background()

	dir, err := os.MkdirTemp("", "numidx-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	dataPath := filepath.Join(dir, "events.dat")
	f, err := os.Create(dataPath)
	if err != nil {
		log.Fatal(err)
	}
	w := record.NewWriter(f)
	for id := uint64(100); id < 200; id += 2 {
		if _, err := w.Append(id, []byte(fmt.Sprintf("event %d", id))); err != nil {
			log.Fatal(err)
		}
	}
	if err := w.Flush(); err != nil {
		log.Fatal(err)
	}
	_ = f.Close()

	indexPath := filepath.Join(dir, "events.idx")
	stats, err := numidx.NewBuilder().LevelSize(8).BuildFile(ctx, dataPath, indexPath)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("records=%d levels=%d\n", stats.Records, stats.Levels)

	idx, err := numidx.OpenFile(ctx, indexPath)
	if err != nil {
		log.Fatal(err)
	}
	defer idx.Close()

	res, err := idx.Lookup(ctx, []uint64{150, 151, 100})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("found:", res.IDs)
	fmt.Println("missing:", res.Missing.ToArray())

	// Output:
	// records=50 levels=2
	// found: [150 100]
	// missing: [151]
}
