package main

import (
	"context"
	"fmt"

	"github.com/hupe1980/numidx"
	"github.com/hupe1980/numidx/record"
)

func buildCmd(ctx context.Context, e *env, args []string) error {
	fs := e.newFlagSet("build", "<data> <index>")
	var (
		levelSize = fs.Int("level-size", envInt("NUMIDX_LEVEL_SIZE", numidx.DefaultLevelSize), "maximum entries per page")
		ioLimit   = fs.Int64("io-limit", int64(envInt("NUMIDX_IO_LIMIT", 0)), "scan and upload limit in bytes per second, 0 for unlimited")
		tempDir   = fs.String("tmp", "", "directory for the temporary index file of remote builds")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return errUsage
	}

	dataLoc, err := parseLocation(fs.Arg(0))
	if err != nil {
		return err
	}
	indexLoc, err := parseLocation(fs.Arg(1))
	if err != nil {
		return err
	}

	b := numidx.NewBuilder().
		LevelSize(*levelSize).
		IOLimit(*ioLimit).
		TempDir(*tempDir).
		Logger(e.logger)

	var stats numidx.BuildStats
	if dataLoc.local() && indexLoc.local() {
		stats, err = b.BuildFile(ctx, dataLoc.name, indexLoc.name)
	} else {
		var src record.Source
		if src, err = dataSource(ctx, dataLoc, *ioLimit); err != nil {
			return err
		}
		st, name, serr := indexLoc.store(ctx)
		if serr != nil {
			return serr
		}
		stats, err = b.BuildToStore(ctx, src, st, name)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(e.stdout, "records=%d levels=%d level_size=%d entries=%v bytes=%d duration=%s\n",
		stats.Records, stats.Levels, stats.LevelSize, stats.LevelEntries, stats.Bytes, stats.Duration)
	return nil
}

func dataSource(ctx context.Context, loc location, ioLimit int64) (record.Source, error) {
	var rc *numidx.ResourceController
	if ioLimit > 0 {
		rc = numidx.NewResourceController(numidx.ResourceConfig{IOLimitBytesPerSec: ioLimit})
	}
	if loc.local() {
		return record.FileSource{Path: loc.name, Controller: rc, SkipPayload: true}, nil
	}
	st, name, err := loc.store(ctx)
	if err != nil {
		return nil, err
	}
	return record.BlobSource{Store: st, Name: name, Controller: rc, SkipPayload: true}, nil
}
