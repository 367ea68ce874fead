package main

import (
	"bufio"
	"context"
	"fmt"

	"github.com/hupe1980/numidx/codec"
)

func fetchCmd(ctx context.Context, e *env, args []string) error {
	fs := e.newFlagSet("fetch", "<index> <data> [id...]")
	codecName := fs.String("codec", envString("NUMIDX_CODEC", ""), "decode payloads with this codec: json or msgpack; raw bytes are quoted")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		fs.Usage()
		return errUsage
	}

	var c codec.Codec
	if *codecName != "" {
		var ok bool
		if c, ok = codec.ByName(*codecName); !ok {
			return fmt.Errorf("unknown codec %q", *codecName)
		}
	}

	ids, err := readIDs(e, fs.Args()[2:])
	if err != nil {
		return err
	}

	idx, err := openIndex(ctx, e, fs.Arg(0))
	if err != nil {
		return err
	}
	defer idx.Close()

	data, err := openBlob(ctx, fs.Arg(1))
	if err != nil {
		return err
	}
	defer data.Close()

	recs, err := idx.Fetch(ctx, data, ids)
	if recs == nil && err != nil {
		return err
	}

	w := bufio.NewWriter(e.stdout)
	for _, rec := range recs {
		if c == nil {
			fmt.Fprintf(w, "%d\t%d\t%q\n", rec.ID, rec.Offset, rec.Payload)
			continue
		}
		var v map[string]any
		if derr := rec.Decode(c, &v); derr != nil {
			return fmt.Errorf("decode id %d: %w", rec.ID, derr)
		}
		fmt.Fprintf(w, "%d\t%d\t%v\n", rec.ID, rec.Offset, v)
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	return err
}
