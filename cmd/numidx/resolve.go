package main

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
)

func resolveCmd(ctx context.Context, e *env, args []string) error {
	fs := e.newFlagSet("resolve", "<index> [id...]")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return errUsage
	}

	ids, err := readIDs(e, fs.Args()[1:])
	if err != nil {
		return err
	}

	idx, err := openIndex(ctx, e, fs.Arg(0))
	if err != nil {
		return err
	}
	defer idx.Close()

	res, err := idx.Lookup(ctx, ids)
	if res == nil {
		return err
	}

	w := bufio.NewWriter(e.stdout)
	for i, id := range res.IDs {
		fmt.Fprintf(w, "%d\t%d\n", id, res.Offsets[i])
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if !res.Missing.IsEmpty() {
		fmt.Fprintf(e.stderr, "%d ids not found\n", res.Missing.GetCardinality())
	}
	return err
}

// readIDs parses ids from args, or from stdin, one per line, when args is empty.
func readIDs(e *env, args []string) ([]uint64, error) {
	if len(args) == 0 {
		sc := bufio.NewScanner(e.stdin)
		for sc.Scan() {
			if line := strings.TrimSpace(sc.Text()); line != "" {
				args = append(args, line)
			}
		}
		if err := sc.Err(); err != nil {
			return nil, err
		}
	}

	ids := make([]uint64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseUint(a, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", a, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
