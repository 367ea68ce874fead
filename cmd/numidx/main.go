// Command numidx builds and queries numeric paged indexes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/hupe1980/numidx"
)

const usageText = `Numidx is a tool for building and querying numeric paged indexes.

Usage:

	numidx [-v] <command> [arguments]

The commands are:

	gen         generate a framed data file with random records
	build       build an index for a data file
	resolve     resolve ids to data file offsets
	fetch       resolve ids and print their records
	stats       print index and page cache statistics

Paths may be local files, s3://bucket/key or minio://bucket/key.
Flag defaults can be set with NUMIDX_LEVEL_SIZE, NUMIDX_IO_LIMIT,
NUMIDX_CACHE_PAGES, NUMIDX_BLOCK_CACHE and NUMIDX_CODEC.
`

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	switch {
	case err == nil:
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, "numidx:", err)
		os.Exit(1)
	}
}

// env carries the process streams and logger to a command.
type env struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	logger *numidx.Logger
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("numidx", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usageText) }
	verbose := fs.Bool("v", false, "log debug output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	e := &env{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		logger: numidx.NewLogger(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})),
	}

	cmd, cmdArgs := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "gen":
		return genCmd(ctx, e, cmdArgs)
	case "build":
		return buildCmd(ctx, e, cmdArgs)
	case "resolve":
		return resolveCmd(ctx, e, cmdArgs)
	case "fetch":
		return fetchCmd(ctx, e, cmdArgs)
	case "stats":
		return statsCmd(ctx, e, cmdArgs)
	default:
		fmt.Fprintln(stderr, "unknown command", cmd)
		fs.Usage()
		return errUsage
	}
}

// newFlagSet returns a flag set for a subcommand that reports errors instead of exiting.
func (e *env) newFlagSet(name, args string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	fs.Usage = func() {
		fmt.Fprintf(e.stderr, "usage: numidx %s [flags] %s\n", name, args)
		fs.PrintDefaults()
	}
	return fs
}
