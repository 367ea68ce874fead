package main

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/hupe1980/numidx/codec"
	"github.com/hupe1980/numidx/record"
	"github.com/hupe1980/numidx/testutil"
)

// event is the payload gen writes when a codec is selected.
type event struct {
	ID   uint64 `json:"id" msgpack:"id"`
	Data string `json:"data" msgpack:"data"`
}

func genCmd(ctx context.Context, e *env, args []string) error {
	fs := e.newFlagSet("gen", "<data>")
	var (
		n           = fs.Int("n", 10_000, "number of records")
		maxGap      = fs.Int("gap", 1, "largest gap between consecutive ids")
		first       = fs.Uint64("first", 1, "first id")
		payloadSize = fs.Int("payload", 32, "payload size in bytes")
		compName    = fs.String("compression", "none", "payload compression: none, lz4 or zstd")
		codecName   = fs.String("codec", "", "encode payloads as events with this codec: json or msgpack")
		seed        = fs.Int64("seed", 1, "random seed")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errUsage
	}
	if *n < 1 {
		return fmt.Errorf("-n must be positive, got %d", *n)
	}

	comp, err := record.ParseCompression(*compName)
	if err != nil {
		return err
	}
	var c codec.Codec
	if *codecName != "" {
		var ok bool
		if c, ok = codec.ByName(*codecName); !ok {
			return fmt.Errorf("unknown codec %q", *codecName)
		}
	}

	loc, err := parseLocation(fs.Arg(0))
	if err != nil {
		return err
	}
	st, name, err := loc.store(ctx)
	if err != nil {
		return err
	}

	ds := testutil.NewRNG(*seed).Dataset(*n, testutil.DatasetOptions{
		FirstID:     *first,
		MaxGap:      *maxGap,
		PayloadSize: *payloadSize,
	})

	blob, err := st.Create(ctx, name)
	if err != nil {
		return err
	}
	w := record.NewWriter(blob, record.WithCompression(comp))
	for i, id := range ds.IDs {
		if c != nil {
			_, err = w.Encode(c, id, event{ID: id, Data: hex.EncodeToString(ds.Payloads[i])})
		} else {
			_, err = w.Append(id, ds.Payloads[i])
		}
		if err != nil {
			_ = blob.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		_ = blob.Close()
		return err
	}
	if err := blob.Close(); err != nil {
		return err
	}

	fmt.Fprintf(e.stdout, "wrote %d records (ids %d..%d, %d bytes) to %s\n",
		w.Count(), ds.IDs[0], ds.IDs[len(ds.IDs)-1], w.Offset(), fs.Arg(0))
	return nil
}
