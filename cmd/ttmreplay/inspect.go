package main

import (
	"context"
	"database/sql"
	"flag"
	"log"

	"github.com/google/subcommands"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	_ "github.com/mattn/go-sqlite3"
)

type inspectCmd struct {
	dbPath string
}

func (c *inspectCmd) Name() string     { return "inspect" }
func (c *inspectCmd) Synopsis() string { return "print per-frame statistics recorded by a prior replay run" }
func (c *inspectCmd) Usage() string {
	return "ttmreplay inspect -db <path>\n"
}
func (c *inspectCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.dbPath, "db", "", "Path to the SQLite file written by 'replay -db'")
}

func (c *inspectCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.dbPath == "" {
		log.Println("ttmreplay: -db is required")
		return subcommands.ExitUsageError
	}

	db, err := sql.Open("sqlite3", "file:"+c.dbPath+"?mode=ro")
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	rows, err := readFrameStats(db)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	p := message.NewPrinter(language.English)
	p.Printf("%-8s %-12s %-12s %-10s %-10s\n", "frame", "total", "allocated", "standby", "heapFree")
	for _, r := range rows {
		p.Printf("%-8d %-12d %-12d %-10d %-10d\n",
			r.frameIndex, r.stats.TotalTilesNum, r.stats.AllocatedTilesNum, r.stats.StandbyTilesNum, r.stats.HeapFreeTilesNum)
	}
	return subcommands.ExitSuccess
}
