// Command asdfinfo inspects a document: tree layout, array metadata, and
// the block index. By default nothing but the YAML segment is read, so
// it stays fast on files with large payloads.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/robert-malhotra/go-asdf/asdf"
)

func main() {
	var (
		dump    = flag.Bool("dump", false, "load and dump every array's elements")
		verbose = flag.Bool("v", false, "enable debug logging")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <file>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
	slog.SetDefault(logger)

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	f, err := asdf.Open(path)
	if err != nil {
		logger.Error("open failed", "path", path, "err", err)
		os.Exit(1)
	}
	defer f.Close()

	if err := report(f, *dump); err != nil {
		logger.Error("inspect failed", "path", path, "err", err)
		os.Exit(1)
	}
}

func report(f *asdf.File, dump bool) error {
	err := asdf.Walk(f.Tree(), func(path string, v any) error {
		a, ok := v.(*asdf.NDArray)
		if !ok {
			return nil
		}
		fmt.Printf("%-40s %s\n", path, a)
		if dump {
			elems, err := a.Elements()
			if err != nil {
				return err
			}
			spew.Dump(elems)
		}
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("\nblocks: %d\n", f.Blocks().Len())
	for blk := range f.Blocks().InternalBlocks() {
		fmt.Printf("  block %d: %d bytes, %s, loaded=%v\n",
			blk.Index(), blk.Size(), blk.Storage(), blk.Loaded())
	}
	return nil
}
