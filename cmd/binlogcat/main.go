// Command binlogcat prints the events of a binlog file, one per line.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/binlogkit/binlog"
)

func main() {
	rows := flag.Bool("rows", false, "print row images of rows events")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: binlogcat [flags] FILE...")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	for _, path := range flag.Args() {
		if err := cat(log, path, *rows); err != nil {
			os.Exit(1)
		}
	}
}

func cat(log *slog.Logger, path string, rows bool) error {
	f, err := binlog.Open(path)
	if err != nil {
		log.Error("open failed", "file", path, "err", err)
		return err
	}
	log.Debug("opened", "file", path, "version", f.Version())
	for {
		pos := f.Pos()
		e, err := f.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			log.Error("decode failed", "file", path, "pos", pos, "err", err)
			return err
		}
		fmt.Printf("%s %8d %s %+v\n", path, pos, e.Header.EventType, e.Data)
		if re, ok := e.Data.(*binlog.RowsEvent); ok && rows {
			for _, row := range re.Rows {
				if row.OldValues != nil {
					fmt.Printf("\t- %v\n", row.OldValues)
				}
				fmt.Printf("\t+ %v\n", row.Values)
			}
		}
	}
}
