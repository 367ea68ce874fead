package main

import (
	"context"
	"fmt"
	"text/tabwriter"
)

func statsCmd(ctx context.Context, e *env, args []string) error {
	fs := e.newFlagSet("stats", "<index> [id...]")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return errUsage
	}

	idx, err := openIndex(ctx, e, fs.Arg(0))
	if err != nil {
		return err
	}
	defer idx.Close()

	// Optional ids warm the caches so the per-level numbers say something.
	if fs.NArg() > 1 {
		ids, err := readIDs(e, fs.Args()[1:])
		if err != nil {
			return err
		}
		if _, err := idx.Resolve(ctx, ids); err != nil {
			return err
		}
	}

	s := idx.DumpStatistics()
	fmt.Fprintf(e.stdout, "levels=%d level_size=%d data_count=%d root_entries=%d\n",
		s.Levels, s.LevelSize, s.DataCount, s.RootEntries)
	fmt.Fprintf(e.stdout, "cached_pages=%d cached_entries=%d memory_bytes=%d\n",
		s.CachedPages, s.CachedEntries, s.MemoryBytes)

	tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LEVEL\tPAGES\tENTRIES\tBYTES\tHITS\tMISSES\tEVICTIONS")
	for _, lv := range s.PerLevel {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
			lv.Level, lv.Pages, lv.Entries, lv.Bytes, lv.Hits, lv.Misses, lv.Evictions)
	}
	return tw.Flush()
}
